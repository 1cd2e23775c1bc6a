package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/plantops/opsbrief/pkg/models"
)

// Registry holds the capability tools keyed by stable name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute validates the input against the tool's schema, runs it, and
// enforces the citation requirement. Failures of any kind come back as
// ToolResult{Success:false}; Execute never returns an error to keep
// the orchestrator's composition path uniform.
func (r *Registry) Execute(ctx context.Context, name string, in Input) models.ToolResult {
	tool, ok := r.Get(name)
	if !ok {
		return models.FailedToolResult(fmt.Sprintf("Unknown capability %q.", name))
	}

	if err := ValidateArgs(tool.ArgsSchema(), in); err != nil {
		slog.Warn("Tool input rejected", "tool", name, "error", err)
		return models.FailedToolResult(err.Error())
	}

	result := tool.Run(ctx, in)

	if result.Success && tool.CitationsRequired() && len(result.Citations) == 0 {
		slog.Error("Tool returned success without citations", "tool", name)
		return models.FailedToolResult(
			fmt.Sprintf("Internal error: %s produced an uncited result.", name))
	}
	return result
}
