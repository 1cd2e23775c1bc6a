package tools

import (
	"context"
	"fmt"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// FinancialImpactTool converts operational losses into dollars using
// cost-center rates. Every derived dollar figure carries a calculation
// citation that echoes the formula and rates used.
type FinancialImpactTool struct {
	*Deps
}

func NewFinancialImpactTool(deps *Deps) *FinancialImpactTool {
	return &FinancialImpactTool{Deps: deps}
}

func (t *FinancialImpactTool) Name() string { return "financial_impact" }

func (t *FinancialImpactTool) Description() string {
	return "Estimate the dollar impact of downtime and waste for an asset, area, or the plant over a time range."
}

func (t *FinancialImpactTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Description: "Asset to analyze; takes precedence over area"},
		{Name: "area", Type: ArgString, Description: "Area id to analyze"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
		{Name: "compare_previous", Type: ArgBool, Description: "Compare against the trailing 30-day daily average (default true)"},
	}
}

func (t *FinancialImpactTool) CitationsRequired() bool { return true }

func (t *FinancialImpactTool) Run(ctx context.Context, in Input) models.ToolResult {
	tr := t.parseRange(in)
	filter := gateway.FinancialFilter{Area: in.String("area", ""), Range: tr}

	scope := "plant"
	if assetName := in.String("asset_name", ""); assetName != "" {
		assetRes, err := t.Gateway.GetAssetByName(ctx, NormalizeAssetName(assetName))
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
		asset, ok := assetRes.First()
		if !ok {
			return models.FailedToolResult(fmt.Sprintf("No asset matching %q was found.", assetName))
		}
		filter.AssetID = asset.ID
		scope = asset.Name
	} else if filter.Area != "" {
		scope = "area " + filter.Area
	}

	rowsRes, err := t.Gateway.GetFinancialMetrics(ctx, filter)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	if !rowsRes.HasData() {
		result := models.NewToolResult(map[string]any{
			"scope":      scope,
			"time_range": tr.Description,
			"message":    fmt.Sprintf("No financial data for %s over %s.", scope, tr.Description),
		})
		result.Citations = append(result.Citations, citationFromResult(rowsRes,
			fmt.Sprintf("no daily summaries for %s over %s", scope, tr.Description), ""))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	impact := computeImpact(rowsRes.Data)

	// Without any cost-center rates in scope, dollars cannot be derived
	// at all. Report the operational magnitudes instead of pricing them.
	if impact.RatedRows == 0 {
		result := models.NewToolResult(map[string]any{
			"scope":            scope,
			"time_range":       tr.Description,
			"total_cost":       nil,
			"downtime_minutes": round1(impact.DowntimeMinutes),
			"waste_count":      impact.WasteUnits,
			"message":          msgNoCostCenterData,
		})
		result.Citations = append(result.Citations, citationFromResult(rowsRes,
			fmt.Sprintf("%s: %.0f downtime minutes and %d waste units over %s (no cost center rates to price them)",
				scope, impact.DowntimeMinutes, impact.WasteUnits, tr.Description),
			scopeAssetName(filter.AssetID, scope)))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	data := map[string]any{
		"scope":         scope,
		"time_range":    tr.Description,
		"downtime_cost": round2(impact.DowntimeCost),
		"waste_cost":    round2(impact.WasteCost),
		"total_cost":    round2(impact.Total()),
		"formulas": map[string]string{
			"downtime_cost": "downtime_minutes * standard_hourly_rate / 60",
			"waste_cost":    "waste_count * cost_per_unit",
		},
	}
	if len(impact.AssetsWithoutRates) > 0 {
		data["assets_without_rates"] = impact.AssetsWithoutRates
		data["note"] = msgNoCostCenterData + " for some assets; their losses are not in the total"
	}

	citations := []models.Citation{
		citationFromResult(rowsRes,
			fmt.Sprintf("%s lost an estimated $%.2f over %s ($%.2f downtime, $%.2f waste)",
				scope, impact.Total(), tr.Description, impact.DowntimeCost, impact.WasteCost),
			scopeAssetName(filter.AssetID, scope)),
		calculationCitation("financial_impact",
			"downtime_cost = downtime_minutes * standard_hourly_rate / 60; waste_cost = waste_count * cost_per_unit"),
	}

	if in.Bool("compare_previous", true) {
		baseline := models.TimeRange{
			Start:       tr.End.AddDays(-(trailingBaselineDays - 1)),
			End:         tr.End,
			Description: "trailing 30 days",
		}
		baseFilter := filter
		baseFilter.Range = baseline
		baseRes, err := t.Gateway.GetFinancialMetrics(ctx, baseFilter)
		if err == nil && baseRes.HasData() {
			baseImpact := computeImpact(baseRes.Data)
			baselineDaily := baseImpact.Total() / trailingBaselineDays
			windowDaily := impact.Total() / float64(tr.Days())
			delta := windowDaily - baselineDaily
			data["comparison"] = map[string]any{
				"baseline_range":         baseline.Description,
				"baseline_daily_average": round2(baselineDaily),
				"window_daily_average":   round2(windowDaily),
				"delta":                  round2(delta),
				"delta_pct":              round1(pctOf(delta, baselineDaily)),
			}
			citations = append(citations, citationFromResult(baseRes,
				fmt.Sprintf("trailing 30-day daily average loss $%.2f", baselineDaily), ""))
		}
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

// trailingBaselineDays is the window behind the comparison's daily
// average.
const trailingBaselineDays = 30

type financialImpact struct {
	DowntimeCost       float64
	WasteCost          float64
	DowntimeMinutes    float64
	WasteUnits         int
	RatedRows          int
	AssetsWithoutRates []string
}

func (f financialImpact) Total() float64 {
	return f.DowntimeCost + f.WasteCost
}

// computeImpact prices each row from its cost-center rates. Rows whose
// asset has no cost center are tallied in raw operational units only.
func computeImpact(rows []models.FinancialRow) financialImpact {
	var impact financialImpact
	missing := map[string]bool{}
	for _, r := range rows {
		impact.DowntimeMinutes += r.Summary.DowntimeMinutes
		impact.WasteUnits += r.Summary.WasteCount
		if r.HourlyRate == nil && r.UnitCost == nil {
			if !missing[r.AssetName] && r.AssetName != "" {
				missing[r.AssetName] = true
				impact.AssetsWithoutRates = append(impact.AssetsWithoutRates, r.AssetName)
			}
			continue
		}
		impact.RatedRows++
		if r.HourlyRate != nil {
			impact.DowntimeCost += r.Summary.DowntimeMinutes * *r.HourlyRate / 60
		}
		if r.UnitCost != nil {
			impact.WasteCost += float64(r.Summary.WasteCount) * *r.UnitCost
		}
	}
	return impact
}

var _ Tool = (*FinancialImpactTool)(nil)
