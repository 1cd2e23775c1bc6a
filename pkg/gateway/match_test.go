package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/opsbrief/pkg/models"
)

func namedAssets(names ...string) []models.Asset {
	out := make([]models.Asset, len(names))
	for i, n := range names {
		out[i] = models.Asset{ID: "a" + n, Name: n}
	}
	return out
}

func TestMatchAssetByName_ExactWinsOverSubstring(t *testing.T) {
	assets := namedAssets("Grinder 1", "Grinder 15", "Grinder 5")

	got, ok := matchAssetByName(assets, "grinder 5")
	require.True(t, ok)
	assert.Equal(t, "Grinder 5", got.Name)
}

func TestMatchAssetByName_SubstringFallback(t *testing.T) {
	assets := namedAssets("Packer 1", "Case Sealer 1")

	got, ok := matchAssetByName(assets, "sealer")
	require.True(t, ok)
	assert.Equal(t, "Case Sealer 1", got.Name)
}

func TestMatchAssetByName_NoMatch(t *testing.T) {
	assets := namedAssets("Packer 1")

	_, ok := matchAssetByName(assets, "annealer")
	assert.False(t, ok)

	_, ok = matchAssetByName(assets, "   ")
	assert.False(t, ok)
}

func TestRankSimilar_OrdersByPositionThenLength(t *testing.T) {
	assets := namedAssets("Big Grinder 1", "Grinder 10", "Grinder 2")

	ranked := rankSimilar(assets, "grinder")
	require.Len(t, ranked, 3)
	// "Grinder 2" and "Grinder 10" match at position 0; shorter first.
	assert.Equal(t, "Grinder 2", ranked[0].Name)
	assert.Equal(t, "Grinder 10", ranked[1].Name)
	assert.Equal(t, "Big Grinder 1", ranked[2].Name)
}

func f(v float64) *float64 { return &v }

func summary(assetID string, date string, oee *float64, downtime float64) models.DailySummary {
	d, _ := models.ParseDate(date)
	return models.DailySummary{
		ID:              "sum-" + assetID + "-" + date,
		AssetID:         assetID,
		ReportDate:      d,
		OEEPercentage:   oee,
		DowntimeMinutes: downtime,
	}
}

func TestMetricValue(t *testing.T) {
	s := summary("a1", "2026-01-05", f(72.5), 47)
	s.WasteCount = 12
	s.ActualOutput = 900
	s.FinancialLossDollars = 1500

	cases := []struct {
		metric string
		want   float64
		ok     bool
	}{
		{"oee", 72.5, true},
		{"downtime", 47, true},
		{"waste", 12, true},
		{"output", 900, true},
		{"financial_loss", 1500, true},
		{"availability", 0, false},
		{"unknown_metric", 0, false},
	}
	for _, tc := range cases {
		got, ok := MetricValue(s, tc.metric)
		assert.Equal(t, tc.ok, ok, tc.metric)
		assert.Equal(t, tc.want, got, tc.metric)
	}
}

func TestIsInverseMetric(t *testing.T) {
	assert.True(t, IsInverseMetric("downtime"))
	assert.True(t, IsInverseMetric("waste"))
	assert.False(t, IsInverseMetric("oee"))
	assert.False(t, IsInverseMetric("output"))
}

func TestBuildTrendPoints_PerAsset(t *testing.T) {
	summaries := []models.DailySummary{
		summary("a1", "2026-01-02", f(80), 10),
		summary("a1", "2026-01-01", f(70), 20),
	}

	points := buildTrendPoints(summaries, "oee", true)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-01-01", points[0].Date.String())
	assert.Equal(t, float64(70), points[0].Value)
	assert.Equal(t, float64(80), points[1].Value)
}

func TestBuildTrendPoints_AggregatesAveragesPercentages(t *testing.T) {
	summaries := []models.DailySummary{
		summary("a1", "2026-01-01", f(60), 10),
		summary("a2", "2026-01-01", f(80), 30),
	}

	points := buildTrendPoints(summaries, "oee", false)
	require.Len(t, points, 1)
	assert.Equal(t, float64(70), points[0].Value)
}

func TestBuildTrendPoints_AggregatesSumsCounters(t *testing.T) {
	s1 := summary("a1", "2026-01-01", nil, 10)
	s1.DowntimeReasons = map[string]float64{"jam": 10}
	s2 := summary("a2", "2026-01-01", nil, 30)
	s2.DowntimeReasons = map[string]float64{"jam": 20, "changeover": 10}

	points := buildTrendPoints([]models.DailySummary{s1, s2}, "downtime", false)
	require.Len(t, points, 1)
	assert.Equal(t, float64(40), points[0].Value)
	assert.Equal(t, float64(30), points[0].DowntimeReasons["jam"])
	assert.Equal(t, float64(10), points[0].DowntimeReasons["changeover"])
}

func TestBuildTrendPoints_SkipsMissingMetric(t *testing.T) {
	summaries := []models.DailySummary{
		summary("a1", "2026-01-01", nil, 10),
		summary("a1", "2026-01-02", f(75), 0),
	}

	points := buildTrendPoints(summaries, "oee", true)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-01-02", points[0].Date.String())
}

func TestStaleSnapshot(t *testing.T) {
	now := time.Now()
	fresh := models.LiveSnapshot{SnapshotTimestamp: now.Add(-10 * time.Minute)}
	stale := models.LiveSnapshot{SnapshotTimestamp: now.Add(-45 * time.Minute)}

	assert.False(t, fresh.IsStale(now))
	assert.True(t, stale.IsStale(now))
}
