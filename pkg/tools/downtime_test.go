package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDowntimeAnalysisRanksReasonsAndOffenders(t *testing.T) {
	gw := seededGateway()
	rowA := summaryRow("s1", "a-grinder-1", day(-1), 70, 120, 0)
	rowA.DowntimeReasons = map[string]float64{"jam clearing": 80, "changeover": 40}
	rowB := summaryRow("s2", "a-grinder-2", day(-1), 75, 60, 0)
	rowB.DowntimeReasons = map[string]float64{"jam clearing": 20, "bearing wear": 40}
	gw.SeedSummaries(rowA, rowB)

	tool := NewDowntimeAnalysisTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"area": "grinding", "time_range": "yesterday"})
	out := data(t, result)

	assert.Equal(t, 180.0, out["total_minutes"])
	assert.Equal(t, 3.0, out["total_hours"])

	top := out["top_reasons"].([]map[string]any)
	require.Len(t, top, 3)
	assert.Equal(t, "jam clearing", top[0]["reason"])
	assert.Equal(t, 100.0, top[0]["minutes"])
	assert.InDelta(t, 55.6, top[0]["percentage"].(float64), 0.1)

	offenders := out["by_asset"].([]map[string]any)
	require.Len(t, offenders, 2)
	assert.Equal(t, "a-grinder-1", offenders[0]["asset_id"])
}

func TestDowntimeAnalysisTopThreeCap(t *testing.T) {
	gw := seededGateway()
	row := summaryRow("s1", "a-grinder-1", day(-1), 70, 100, 0)
	row.DowntimeReasons = map[string]float64{
		"jam clearing": 40, "changeover": 25, "bearing wear": 20, "cleaning": 10, "no operator": 5,
	}
	gw.SeedSummaries(row)

	tool := NewDowntimeAnalysisTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "yesterday"})
	out := data(t, result)

	assert.Len(t, out["top_reasons"], 3)
	assert.Len(t, out["all_reasons"], 5)
}

func TestDowntimeAnalysisNoDowntime(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(summaryRow("s1", "a-grinder-1", day(-1), 92, 0, 0))

	tool := NewDowntimeAnalysisTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"area": "grinding", "time_range": "yesterday"})
	out := data(t, result)

	assert.Equal(t, 0.0, out["total_minutes"])
	assert.Contains(t, out["message"], "No downtime")
	assert.NotEmpty(t, result.Citations)
}
