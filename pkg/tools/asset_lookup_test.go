package tools

import (
	"context"
	"testing"
	"time"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAssetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Grinder 5", "grinder 5"},
		{"grinder5", "grinder 5"},
		{"GRINDER-5", "grinder 5"},
		{"grinder_5", "grinder 5"},
		{"Grinder #5", "grinder 5"},
		{"  grinder   5  ", "grinder 5"},
		{"Mixer", "mixer"},
		{"Line2Packer", "line2packer"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAssetName(tt.in))
		})
	}
}

func TestAssetLookupFindsAsset(t *testing.T) {
	gw := seededGateway()
	gw.SeedSnapshots(models.LiveSnapshot{
		AssetID:           "a-grinder-1",
		SnapshotTimestamp: testNow.Add(-5 * time.Minute),
		CurrentOutput:     480,
		TargetOutput:      500,
		OutputVariance:    -4,
		Status:            models.StatusBehind,
	})
	// "Last 7 days" spans [today-6, today], so seed offsets 0 through 6.
	for i := 0; i <= 6; i++ {
		gw.SeedSummaries(summaryRow("s-g1-"+string(rune('0'+i)), "a-grinder-1", day(-i), 78-float64(i), 30, 500))
	}

	tool := NewAssetLookupTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "grinder1"})
	out := data(t, result)

	assert.Equal(t, true, out["found"])
	meta := out["metadata"].(map[string]any)
	assert.Equal(t, "Grinder 1", meta["name"])
	assert.Equal(t, "grinding", meta["area"])

	status := out["current_status"].(map[string]any)
	assert.Equal(t, "running", status["status"])
	assert.Equal(t, false, status["data_stale"])

	perf := out["performance"].(map[string]any)
	// Older days have lower OEE, so the second half mean is higher.
	assert.Equal(t, "improving", perf["trend"])
	assert.Equal(t, 7, perf["data_points"])

	require.NotEmpty(t, result.Citations)
	assert.Equal(t, models.TierDaily, result.Metadata[models.MetaCacheTier])
}

func TestAssetLookupStaleSnapshot(t *testing.T) {
	gw := seededGateway()
	gw.SeedSnapshots(models.LiveSnapshot{
		AssetID:           "a-grinder-1",
		SnapshotTimestamp: testNow.Add(-2 * time.Hour),
		Status:            models.StatusRunning,
	})

	tool := NewAssetLookupTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1", "include_performance": false})
	out := data(t, result)

	status := out["current_status"].(map[string]any)
	assert.Equal(t, true, status["data_stale"])
	assert.Contains(t, status["message"], "old")
	_, hasPerf := out["performance"]
	assert.False(t, hasPerf)
}

func TestAssetLookupUnknownAssetSuggests(t *testing.T) {
	gw := seededGateway()
	tool := NewAssetLookupTool(testDeps(gw))

	result := tool.Run(context.Background(), Input{"asset_name": "grinder 7"})
	out := data(t, result)

	assert.Equal(t, false, out["found"])
	suggestions := out["suggestions"].([]string)
	require.NotEmpty(t, suggestions)
	assert.Contains(t, suggestions, "Grinder 1")
	// Unknown-name responses are still cited and cacheable as static.
	assert.NotEmpty(t, result.Citations)
	assert.Equal(t, models.TierStatic, result.Metadata[models.MetaCacheTier])
}

func TestAssetLookupTrendInsufficientData(t *testing.T) {
	gw := seededGateway()
	gw.SeedSummaries(
		summaryRow("s1", "a-grinder-1", day(-1), 80, 0, 0),
		summaryRow("s2", "a-grinder-1", day(-2), 82, 0, 0),
		summaryRow("s3", "a-grinder-1", day(-3), 78, 0, 0),
	)

	tool := NewAssetLookupTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1"})
	out := data(t, result)

	perf := out["performance"].(map[string]any)
	assert.Equal(t, "insufficient_data", perf["trend"])
	assert.Equal(t, 3, perf["data_points"])
}

func TestAssetLookupStoreFailure(t *testing.T) {
	gw := seededGateway()
	gw.Err = assert.AnError

	tool := NewAssetLookupTool(testDeps(gw))
	result := tool.Run(context.Background(), Input{"asset_name": "Grinder 1"})

	assert.False(t, result.Success)
	assert.Equal(t, msgStoreUnavailable, result.ErrorMessage)
}
