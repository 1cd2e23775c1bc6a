package tools

import (
	"context"
	"testing"
	"time"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionListFixture() (*ActionListTool, *actions.Engine) {
	gw := seededGateway()
	gw.SeedSafetyEvents(models.SafetyEvent{
		ID: "ev-1", AssetID: "a-grinder-1",
		EventTimestamp: testNow.Add(-20 * time.Hour),
		Severity:       models.SeverityHigh, Description: "Guard fault", ReasonCode: "guard",
	})
	gw.SeedSummaries(
		// Grinder 1 also underperformed: safety must win the dedup.
		summaryRow("s1", "a-grinder-1", day(-1), 60, 120, 0),
		summaryRow("s2", "a-grinder-2", day(-1), 75, 30, 0),
		summaryRow("s3", "a-packer-1", day(-1), 90, 0, 2500),
	)

	deps := testDeps(gw)
	engine := actions.NewEngine(gw, deps.Config)
	engine.Now = deps.Now
	return NewActionListTool(deps, engine), engine
}

func TestActionListOrderingAndDedup(t *testing.T) {
	tool, _ := actionListFixture()

	result := tool.Run(context.Background(), Input{})
	out := data(t, result)

	items := out["actions"].([]map[string]any)
	require.Len(t, items, 3)

	// Safety first and exactly one item per asset, even though Grinder 1
	// also crossed the OEE threshold.
	assert.Equal(t, "safety", items[0]["category"])
	assert.Equal(t, "a-grinder-1", items[0]["asset_id"])
	assert.Contains(t, items[0]["evidence_summary"], "Also:")

	assert.Equal(t, "oee", items[1]["category"])
	assert.Equal(t, "a-grinder-2", items[1]["asset_id"])
	assert.Equal(t, "financial", items[2]["category"])
	assert.Equal(t, "a-packer-1", items[2]["asset_id"])

	counts := out["counts_by_category"].(map[string]int)
	assert.Equal(t, 1, counts["safety"])
	assert.Equal(t, 1, counts["oee"])
	assert.Equal(t, 1, counts["financial"])
	assert.Len(t, result.Citations, 3)
}

func TestActionListPriorityFilterAndLimit(t *testing.T) {
	tool, _ := actionListFixture()

	result := tool.Run(context.Background(), Input{"priority": "critical"})
	out := data(t, result)
	items := out["actions"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "safety", items[0]["category"])
	// TotalCount reflects the full list, not the filtered view.
	assert.Equal(t, 3, out["total_count"])

	result = tool.Run(context.Background(), Input{"limit": 2})
	assert.Len(t, data(t, result)["actions"], 2)
}

func TestActionListCategoryReturnsPreMergeTier(t *testing.T) {
	tool, _ := actionListFixture()

	// Grinder 1's merged item was claimed by the safety tier, but the
	// oee view still lists its OEE shortfall.
	result := tool.Run(context.Background(), Input{"category": "oee"})
	out := data(t, result)
	items := out["actions"].([]map[string]any)
	require.Len(t, items, 2)

	assets := map[string]bool{}
	for _, item := range items {
		assert.Equal(t, "oee", item["category"])
		assets[item["asset_id"].(string)] = true
	}
	assert.True(t, assets["a-grinder-1"])
	assert.True(t, assets["a-grinder-2"])
}

func TestActionListAreaScoping(t *testing.T) {
	tool, _ := actionListFixture()

	result := tool.Run(context.Background(), Input{"area": "packing"})
	out := data(t, result)
	items := out["actions"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "a-packer-1", items[0]["asset_id"])
}

func TestActionListEmptyDate(t *testing.T) {
	tool, _ := actionListFixture()

	result := tool.Run(context.Background(), Input{"date": "2020-01-01"})
	out := data(t, result)
	assert.Empty(t, out["actions"])
	assert.Contains(t, out["message"], "No action items")
	assert.NotEmpty(t, result.Citations)
}
