// Package tools implements the capability tools: typed, read-only
// query operators over the operational store. Every tool shares the
// same shape — name, description, args schema, citation requirement,
// and a Run that never raises through its public boundary.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// Input carries a tool invocation's arguments.
type Input map[string]any

// String returns the named argument or def when absent/untyped.
func (in Input) String(key, def string) string {
	if v, ok := in[key].(string); ok {
		return v
	}
	return def
}

// Int returns the named argument or def. JSON numbers arrive as
// float64 and are accepted.
func (in Input) Int(key string, def int) int {
	switch v := in[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns the named argument or def.
func (in Input) Float(key string, def float64) float64 {
	switch v := in[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the named argument or def.
func (in Input) Bool(key string, def bool) bool {
	if v, ok := in[key].(bool); ok {
		return v
	}
	return def
}

// StringList returns the named argument as a string slice. Accepts
// []string and []any of strings.
func (in Input) StringList(key string) []string {
	switch v := in[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ArgType enumerates the declared argument types.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgBool   ArgType = "bool"
	ArgList   ArgType = "list"
)

// ArgField declares one input field with its constraints. Inputs are
// validated against the schema before invocation.
type ArgField struct {
	Name        string
	Type        ArgType
	Required    bool
	Enum        []string
	Min         *float64
	Max         *float64
	Description string
}

// Tool is the capability contract. Name is stable across versions and
// is the first cache key segment; Description is the natural-language
// trigger for tool selection by the external router.
type Tool interface {
	Name() string
	Description() string
	ArgsSchema() []ArgField
	CitationsRequired() bool
	Run(ctx context.Context, in Input) models.ToolResult
}

// Deps bundles what every capability tool needs. Now is injectable
// for tests and defaults to time.Now.
type Deps struct {
	Gateway gateway.Gateway
	Config  *config.Config
	Now     func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) loc() *time.Location {
	if d.Config != nil {
		return d.Config.Location()
	}
	return time.UTC
}

// parseRange resolves a tool's time_range argument, defaulting to
// yesterday.
func (d *Deps) parseRange(in Input) models.TimeRange {
	return models.ParseTimeRange(in.String("time_range", ""), d.now(), d.loc())
}

// ValidateArgs checks an input against a schema: required presence,
// type conformance, enum membership, numeric bounds. Returns a
// user-safe error describing the first violation.
func ValidateArgs(schema []ArgField, in Input) error {
	for _, field := range schema {
		raw, present := in[field.Name]
		if !present || raw == nil {
			if field.Required {
				return fmt.Errorf("%w: missing required argument %q", ErrInvalidInput, field.Name)
			}
			continue
		}

		switch field.Type {
		case ArgString:
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: argument %q must be a string", ErrInvalidInput, field.Name)
			}
			if len(field.Enum) > 0 && !contains(field.Enum, s) {
				return fmt.Errorf("%w: argument %q must be one of %v", ErrInvalidInput, field.Name, field.Enum)
			}
		case ArgInt, ArgFloat:
			var v float64
			switch n := raw.(type) {
			case int:
				v = float64(n)
			case float64:
				v = n
			default:
				return fmt.Errorf("%w: argument %q must be a number", ErrInvalidInput, field.Name)
			}
			if field.Min != nil && v < *field.Min {
				return fmt.Errorf("%w: argument %q below minimum %v", ErrInvalidInput, field.Name, *field.Min)
			}
			if field.Max != nil && v > *field.Max {
				return fmt.Errorf("%w: argument %q above maximum %v", ErrInvalidInput, field.Name, *field.Max)
			}
		case ArgBool:
			if _, ok := raw.(bool); !ok {
				return fmt.Errorf("%w: argument %q must be a boolean", ErrInvalidInput, field.Name)
			}
		case ArgList:
			switch raw.(type) {
			case []string, []any:
			default:
				return fmt.Errorf("%w: argument %q must be a list", ErrInvalidInput, field.Name)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func ptr(v float64) *float64 { return &v }
