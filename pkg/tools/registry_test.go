package tools

import (
	"context"
	"testing"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name      string
	schema    []ArgField
	citations bool
	result    models.ToolResult
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) Description() string     { return "fake" }
func (f *fakeTool) ArgsSchema() []ArgField  { return f.schema }
func (f *fakeTool) CitationsRequired() bool { return f.citations }
func (f *fakeTool) Run(context.Context, Input) models.ToolResult {
	return f.result
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "x"}))
	err := r.Register(&fakeTool{name: "x"})
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "nope", Input{})
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "nope")
}

func TestRegistryExecuteValidatesInput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:   "strict",
		schema: []ArgField{{Name: "asset_name", Type: ArgString, Required: true}},
		result: models.NewToolResult(nil),
	}))

	result := r.Execute(context.Background(), "strict", Input{})
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "asset_name")
}

func TestRegistryEnforcesCitations(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:      "uncited",
		citations: true,
		result:    models.NewToolResult(map[string]any{"v": 1}),
	}))

	result := r.Execute(context.Background(), "uncited", Input{})
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "uncited")
}

func TestRegistryPassesFailuresThrough(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:      "failing",
		citations: true,
		result:    models.FailedToolResult("boom"),
	}))

	result := r.Execute(context.Background(), "failing", Input{})
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.ErrorMessage)
}

func TestDefaultRegistryContainsAllTools(t *testing.T) {
	deps := testDeps(seededGateway())
	engine := actions.NewEngine(deps.Gateway, deps.Config)

	r, err := DefaultRegistry(deps, engine)
	require.NoError(t, err)

	want := []string{
		"action_list", "alert_check", "asset_lookup", "comparative_analysis",
		"cost_of_loss", "downtime_analysis", "financial_impact", "oee_query",
		"plant_overview", "production_status", "recommendations",
		"safety_events", "trend_analysis",
	}
	var got []string
	for _, tool := range r.List() {
		got = append(got, tool.Name())
	}
	assert.Equal(t, want, got)
}

func TestValidateArgs(t *testing.T) {
	schema := []ArgField{
		{Name: "metric", Type: ArgString, Required: true, Enum: []string{"oee", "downtime"}},
		{Name: "days", Type: ArgInt, Min: ptr(1), Max: ptr(90)},
		{Name: "flag", Type: ArgBool},
		{Name: "assets", Type: ArgList},
	}

	tests := []struct {
		name    string
		in      Input
		wantErr string
	}{
		{"valid", Input{"metric": "oee", "days": 7.0, "flag": true, "assets": []any{"a"}}, ""},
		{"missing required", Input{}, "metric"},
		{"bad enum", Input{"metric": "speed"}, "one of"},
		{"below min", Input{"metric": "oee", "days": 0.0}, "minimum"},
		{"above max", Input{"metric": "oee", "days": 400.0}, "maximum"},
		{"wrong type", Input{"metric": 5}, "string"},
		{"bad bool", Input{"metric": "oee", "flag": "yes"}, "boolean"},
		{"bad list", Input{"metric": "oee", "assets": "a"}, "list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(schema, tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
