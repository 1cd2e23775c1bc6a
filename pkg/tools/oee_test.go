package tools

import (
	"context"
	"testing"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateOEEWeightsByOutput(t *testing.T) {
	oeeA, oeeB := 90.0, 50.0
	rows := []models.DailySummary{
		{OEEPercentage: &oeeA, ActualOutput: 900},
		{OEEPercentage: &oeeB, ActualOutput: 100},
	}
	agg := aggregateOEE(rows)
	// (90*900 + 50*100) / 1000 = 86, not the arithmetic 70.
	assert.InDelta(t, 86.0, agg.oee, 0.001)
	assert.Equal(t, 2, agg.points)
}

func TestAggregateOEEZeroOutputFallsBackToMean(t *testing.T) {
	oeeA, oeeB := 90.0, 50.0
	rows := []models.DailySummary{
		{OEEPercentage: &oeeA, ActualOutput: 0},
		{OEEPercentage: &oeeB, ActualOutput: 0},
	}
	agg := aggregateOEE(rows)
	assert.InDelta(t, 70.0, agg.oee, 0.001)
}

func TestOEEQueryForAsset(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(summaryRow("s1", "a-grinder-1", day(-1), 72, 45, 800))

	tool := NewOEEQueryTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "yesterday"})
	out := data(t, result)

	assert.Equal(t, "Grinder 1", out["scope"])
	assert.Equal(t, 72.0, out["oee"])
	assert.Equal(t, 85.0, out["target_oee"])
	assert.Equal(t, 13.0, out["gap"])
	_, hasBreakdown := out["by_asset"]
	assert.False(t, hasBreakdown, "asset scope has no per-asset breakdown")
	require.NotEmpty(t, result.Citations)
}

func TestOEEQueryAreaBreakdownWorstFirst(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(
		summaryRow("s1", "a-grinder-1", day(-1), 90, 0, 0),
		summaryRow("s2", "a-grinder-2", day(-1), 60, 0, 0),
	)

	tool := NewOEEQueryTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"area": "grinding", "time_range": "yesterday"})
	out := data(t, result)

	byAsset := out["by_asset"].([]map[string]any)
	require.Len(t, byAsset, 2)
	assert.Equal(t, "a-grinder-2", byAsset[0]["asset_id"])
	assert.Equal(t, "a-grinder-1", byAsset[1]["asset_id"])
}

func TestOEEQueryPlantScopeSpansAreas(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(
		summaryRow("s1", "a-grinder-1", day(-1), 80, 0, 0),
		summaryRow("s2", "a-packer-1", day(-1), 70, 0, 0),
	)

	tool := NewOEEQueryTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"time_range": "yesterday"})
	out := data(t, result)

	assert.Equal(t, "plant", out["scope"])
	assert.Equal(t, 2, out["data_points"])
	assert.Len(t, out["by_asset"], 2)
}

func TestOEEQueryNoData(t *testing.T) {
	tool := NewOEEQueryTool(testDeps(seededGateway()))
	result := tool.Run(context.Background(), Input{"asset_name": "Packer 1"})
	out := data(t, result)

	assert.Contains(t, out["message"], "No performance data")
	// Empty result sets are still cited.
	assert.NotEmpty(t, result.Citations)
}

func TestOEEQueryUnknownAssetFails(t *testing.T) {
	tool := NewOEEQueryTool(testDeps(seededGateway()))
	result := tool.Run(context.Background(), Input{"asset_name": "Extruder 9"})
	assert.False(t, result.Success)
}
