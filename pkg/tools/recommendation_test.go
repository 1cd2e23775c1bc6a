package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationsNeedMinimumHistory(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(summaryRow("s1", "a-grinder-1", day(-1), 70, 60, 500))

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1"})
	out := data(t, result)

	assert.Empty(t, out["recommendations"])
	assert.Contains(t, out["message"], "at least 10")
}

func TestRecommendationsRecurringDowntimePattern(t *testing.T) {
	gw := seededGateway()
	for i := 1; i <= 14; i++ {
		row := summaryRow(fmt.Sprintf("s%d", i), "a-grinder-1", day(-i), 80, 60, 200)
		row.DowntimeReasons = map[string]float64{
			"jam clearing": 45,
			"changeover":   15,
		}
		gw.SeedSummaries(row)
	}

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "last 14 days"})
	out := data(t, result)

	recs := out["recommendations"].([]map[string]any)
	require.NotEmpty(t, recs)

	// "jam clearing" explains 75% of downtime; that pattern tops the
	// list with a dollar impact priced at the cost-center rate.
	top := recs[0]
	assert.Equal(t, "downtime", top["category"])
	assert.Contains(t, top["title"], "jam clearing")
	assert.Equal(t, "high", top["confidence_level"])
	assert.Greater(t, top["estimated_monthly_impact"].(float64), 0.0)
}

func TestRecommendationsNoPatternBelowThresholds(t *testing.T) {
	gw := seededGateway()
	for i := 1; i <= 12; i++ {
		// Healthy asset: on-target OEE, trivial downtime, no waste.
		row := summaryRow(fmt.Sprintf("s%d", i), "a-grinder-1", day(-i), 88, 5, 0)
		row.DowntimeReasons = map[string]float64{
			"micro stop a": 0.2, "micro stop b": 0.2, "micro stop c": 0.2,
			"micro stop d": 0.2, "micro stop e": 0.2, "micro stop f": 0.2,
			"micro stop g": 0.2, "micro stop h": 0.2, "micro stop i": 0.2,
			"micro stop j": 0.2, "micro stop k": 0.2,
		}
		gw.SeedSummaries(row)
	}

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "last 12 days"})
	out := data(t, result)

	assert.Empty(t, out["recommendations"])
	assert.Contains(t, out["message"], "confidence bar")
}

func TestRecommendationsWeekdayPattern(t *testing.T) {
	gw := seededGateway()
	// Mondays (day -5 and -12) run at 50% OEE against 85% elsewhere.
	for i := 1; i <= 14; i++ {
		oee := 85.0
		if i == 5 || i == 12 {
			oee = 50.0
		}
		gw.SeedSummaries(summaryRow(fmt.Sprintf("s%d", i), "a-grinder-1", day(-i), oee, 0, 200))
	}

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "last 14 days"})
	out := data(t, result)

	recs := out["recommendations"].([]map[string]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "schedule", recs[0]["category"])
	assert.Contains(t, recs[0]["title"], "Monday")
	// Two occurrences back the pattern, so confidence stays near the
	// floor despite the large drop.
	assert.Equal(t, 0.64, recs[0]["confidence"])
	assert.Equal(t, "medium", recs[0]["confidence_level"])
}

func TestRecommendationsBelowPlantMean(t *testing.T) {
	gw := seededGateway()
	for i := 1; i <= 12; i++ {
		gw.SeedSummaries(
			summaryRow(fmt.Sprintf("g1-%d", i), "a-grinder-1", day(-i), 60, 30, 400),
			summaryRow(fmt.Sprintf("g2-%d", i), "a-grinder-2", day(-i), 90, 0, 0),
		)
	}

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "last 12 days"})
	out := data(t, result)

	recs := out["recommendations"].([]map[string]any)
	require.Len(t, recs, 1)
	// Grinder 1 runs 20% below the 75% plant mean.
	assert.Equal(t, "oee", recs[0]["category"])
	assert.Contains(t, recs[0]["rationale"], "plant mean")
}

func TestRecommendationsCappedAtConfiguredMax(t *testing.T) {
	gw := seededGateway()
	for i := 1; i <= 14; i++ {
		row := summaryRow(fmt.Sprintf("s%d", i), "a-grinder-1", day(-i), 55, 120, 3000)
		row.WasteCount = 200
		row.ActualOutput = 1000
		row.DowntimeReasons = map[string]float64{
			"jam clearing": 40, "bearing wear": 40, "changeover": 40,
		}
		gw.SeedSummaries(row)
	}

	tool := NewRecommendationTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "time_range": "last 14 days"})
	out := data(t, result)

	recs := out["recommendations"].([]map[string]any)
	assert.Len(t, recs, 3, "capped at max_recommendations")
}
