package cache

import (
	"context"
	"log/slog"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

type forceRefreshKey struct{}

// WithForceRefresh marks the context so the next execution bypasses the
// cache read (the fresh result is still stored).
func WithForceRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceRefreshKey{}, true)
}

// ForceRefreshRequested reports whether the context or the raw input
// asked to bypass the cache.
func ForceRefreshRequested(ctx context.Context, in tools.Input) bool {
	if v, ok := ctx.Value(forceRefreshKey{}).(bool); ok && v {
		return true
	}
	return in.Bool("force_refresh", false)
}

// Executor runs tools through the cache. It is the only execution path
// the orchestrator and the API use, so every tool response is cached
// consistently.
type Executor struct {
	registry *tools.Registry
	cache    *Cache
}

// NewExecutor wraps a registry with the cache.
func NewExecutor(registry *tools.Registry, c *Cache) *Executor {
	return &Executor{registry: registry, cache: c}
}

// Registry exposes the underlying registry for listings.
func (e *Executor) Registry() *tools.Registry {
	return e.registry
}

// Execute runs the named tool, serving from the cache when possible.
// scope partitions entries that must not be shared across callers; the
// plant-wide tools pass "".
func (e *Executor) Execute(ctx context.Context, name, scope string, in tools.Input) models.ToolResult {
	key := Key(name, scope, in)

	if !ForceRefreshRequested(ctx, in) {
		if cached, ok := e.cache.Get(key); ok {
			slog.Debug("Tool served from cache", "tool", name, "key", key)
			return cached
		}
	}

	result := e.registry.Execute(ctx, name, in)
	e.cache.Set(key, result)
	return result
}

// Stats proxies the cache counters.
func (e *Executor) Stats() Stats {
	return e.cache.Stats()
}

// Invalidate drops cache state after ingestion: daily rows invalidate
// the daily tier, snapshot rows the live tier, catalog changes
// everything.
func (e *Executor) Invalidate(tier string) int {
	if tier == "" {
		return e.cache.InvalidateAll()
	}
	return e.cache.InvalidateTier(tier)
}
