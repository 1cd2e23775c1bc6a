package tools

import (
	"testing"
	"time"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/require"
)

// Fixed clock for every tool test: Saturday 2025-03-15 12:00 UTC, so
// "yesterday" is 2025-03-14.
var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Plant: &config.PlantConfig{
			Timezone: "UTC",
			Areas: []config.AreaConfig{
				{ID: "grinding", Name: "Grinding", AssetNames: []string{"Grinder 1", "Grinder 2"}},
				{ID: "packing", Name: "Packing", AssetNames: []string{"Packer 1"}},
			},
		},
		Actions:        config.DefaultActionsConfig(),
		Cache:          config.DefaultCacheConfig(),
		Briefing:       config.DefaultBriefingConfig(),
		Grounding:      config.DefaultGroundingConfig(),
		Recommendation: config.DefaultRecommendationConfig(),
		Schedule:       config.DefaultScheduleConfig(),
	}
}

func testDeps(gw gateway.Gateway) *Deps {
	return &Deps{
		Gateway: gw,
		Config:  testConfig(),
		Now:     func() time.Time { return testNow },
	}
}

func seededGateway() *gateway.StubGateway {
	gw := gateway.NewStubGateway(time.UTC)
	gw.SeedAssets(
		models.Asset{ID: "a-grinder-1", Name: "Grinder 1", SourceID: "src-1", Area: "grinding", CostCenterID: "cc-grind"},
		models.Asset{ID: "a-grinder-2", Name: "Grinder 2", SourceID: "src-2", Area: "grinding", CostCenterID: "cc-grind"},
		models.Asset{ID: "a-packer-1", Name: "Packer 1", SourceID: "src-3", Area: "packing"},
	)
	gw.SeedCostCenters(models.CostCenter{ID: "cc-grind", StandardHourlyRate: 120, CostPerUnit: 2.5})
	return gw
}

func day(offset int) models.Date {
	return models.DateOf(testNow, time.UTC).AddDays(offset)
}

func summaryRow(id, assetID string, date models.Date, oee float64, downtime float64, loss float64) models.DailySummary {
	v := oee
	return models.DailySummary{
		ID:                   id,
		AssetID:              assetID,
		ReportDate:           date,
		OEEPercentage:        &v,
		ActualOutput:         1000,
		TargetOutput:         1200,
		DowntimeMinutes:      downtime,
		FinancialLossDollars: loss,
	}
}

func data(t *testing.T, result models.ToolResult) map[string]any {
	t.Helper()
	require.True(t, result.Success, "tool failed: %s", result.ErrorMessage)
	out, ok := result.Data.(map[string]any)
	require.True(t, ok, "tool data is not a map")
	return out
}
