package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// Pattern thresholds: a downtime reason must recur on this share of
// days, waste must reach this share of output, a weekday mean must sit
// this far below the overall mean, and the asset mean this far below
// the plant mean, before a recommendation fires.
const (
	reasonFrequencyPct = 10.0
	reasonMinSharePct  = 5.0
	wasteSharePct      = 10.0
	weekdayDropPct     = 10.0
	plantGapPct        = 15.0
)

// RecommendationTool derives improvement recommendations from recurring
// patterns in an asset's history. Recommendations are deterministic
// rule hits with an estimated dollar impact, never free-form
// generation.
type RecommendationTool struct {
	*Deps
}

func NewRecommendationTool(deps *Deps) *RecommendationTool {
	return &RecommendationTool{Deps: deps}
}

func (t *RecommendationTool) Name() string { return "recommendations" }

func (t *RecommendationTool) Description() string {
	return "Recommend improvement actions for an asset based on recurring downtime, waste, and OEE-gap patterns in its history."
}

func (t *RecommendationTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Required: true, Description: "Asset to analyze"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default last 30 days)"},
	}
}

func (t *RecommendationTool) CitationsRequired() bool { return true }

func (t *RecommendationTool) Run(ctx context.Context, in Input) models.ToolResult {
	cfg := t.Config.Recommendation
	rangeText := in.String("time_range", "last 30 days")
	tr := models.ParseTimeRange(rangeText, t.now(), t.loc())

	assetRes, err := t.Gateway.GetAssetByName(ctx, NormalizeAssetName(in.String("asset_name", "")))
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	asset, ok := assetRes.First()
	if !ok {
		return models.FailedToolResult(fmt.Sprintf("No asset matching %q was found.", in.String("asset_name", "")))
	}

	rowsRes, err := t.Gateway.GetFinancialMetrics(ctx, gateway.FinancialFilter{AssetID: asset.ID, Range: tr})
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	if rowsRes.RowCount < cfg.MinimumDataPoints {
		result := models.NewToolResult(map[string]any{
			"asset_name":      asset.Name,
			"time_range":      tr.Description,
			"recommendations": []any{},
			"message": fmt.Sprintf("Only %d days of data for %s; at least %d are needed for recommendations.",
				rowsRes.RowCount, asset.Name, cfg.MinimumDataPoints),
		})
		result.Citations = append(result.Citations, citationFromResult(rowsRes,
			fmt.Sprintf("%d days of data for %s over %s", rowsRes.RowCount, asset.Name, tr.Description), asset.Name))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	profile := buildAssetProfile(rowsRes.Data, tr)

	// The cross-asset family compares against every asset over the same
	// window, not a fixed target.
	plantRes, err := t.Gateway.GetFinancialMetrics(ctx, gateway.FinancialFilter{Range: tr})
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	plantMean := plantMeanOEE(plantRes.Data)

	var recs []recommendation
	recs = append(recs, downtimeRecommendations(asset, profile)...)
	if r, ok := wasteRecommendation(asset, profile); ok {
		recs = append(recs, r)
	}
	if r, ok := weekdayRecommendation(asset, profile); ok {
		recs = append(recs, r)
	}
	if r, ok := plantGapRecommendation(asset, profile, plantMean); ok {
		recs = append(recs, r)
	}

	// Keep confident recommendations only, ranked by estimated impact.
	kept := recs[:0]
	for _, r := range recs {
		if r.Confidence >= cfg.ConfidenceMedium {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].MonthlyImpact != kept[j].MonthlyImpact {
			return kept[i].MonthlyImpact > kept[j].MonthlyImpact
		}
		return kept[i].Title < kept[j].Title
	})
	if len(kept) > cfg.MaxRecommendations {
		kept = kept[:cfg.MaxRecommendations]
	}

	items := make([]map[string]any, 0, len(kept))
	for _, r := range kept {
		level := "medium"
		if r.Confidence >= cfg.ConfidenceHigh {
			level = "high"
		}
		items = append(items, map[string]any{
			"title":                    r.Title,
			"category":                 r.Category,
			"rationale":                r.Rationale,
			"confidence":               round2(r.Confidence),
			"confidence_level":         level,
			"estimated_monthly_impact": round2(r.MonthlyImpact),
		})
	}

	data := map[string]any{
		"asset_name":      asset.Name,
		"time_range":      tr.Description,
		"data_points":     rowsRes.RowCount,
		"recommendations": items,
	}
	if len(items) == 0 {
		data["message"] = fmt.Sprintf("No recurring loss pattern on %s cleared the confidence bar over %s.",
			asset.Name, tr.Description)
	}

	result := models.NewToolResult(data)
	result.Citations = append(result.Citations,
		citationFromResult(rowsRes,
			fmt.Sprintf("%s over %s: %.0f min downtime, %d waste units, mean OEE %.1f%% across %d days",
				asset.Name, tr.Description, profile.DowntimeMinutes, profile.WasteCount,
				profile.MeanOEE, rowsRes.RowCount), asset.Name),
		calculationCitation("recommendation_patterns",
			"rules: downtime reason recurring on >= 10% of days, waste >= 10% of output, weekday mean >= 10% below overall, asset mean >= 15% below plant mean; impact extrapolated to 30 days at cost-center rates"),
	)
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

type assetProfile struct {
	Days            int
	DataDays        int
	DowntimeMinutes float64
	Reasons         map[string]float64
	ReasonDays      map[string]int
	WeekdayOEE      map[time.Weekday][]float64
	WasteCount      int
	ActualOutput    int
	MeanOEE         float64
	HourlyRate      float64
	UnitCost        float64
	DailyLoss       float64
}

func buildAssetProfile(rows []models.FinancialRow, tr models.TimeRange) assetProfile {
	p := assetProfile{
		Reasons:    map[string]float64{},
		ReasonDays: map[string]int{},
		WeekdayOEE: map[time.Weekday][]float64{},
		Days:       tr.Days(),
		DataDays:   len(rows),
	}
	var oee []float64
	var totalLoss float64
	for _, r := range rows {
		s := r.Summary
		p.DowntimeMinutes += s.DowntimeMinutes
		p.WasteCount += s.WasteCount
		p.ActualOutput += s.ActualOutput
		totalLoss += s.FinancialLossDollars
		for reason, minutes := range s.DowntimeReasons {
			p.Reasons[reason] += minutes
			p.ReasonDays[reason]++
		}
		if s.OEEPercentage != nil {
			oee = append(oee, *s.OEEPercentage)
			wd := s.ReportDate.Time(time.UTC).Weekday()
			p.WeekdayOEE[wd] = append(p.WeekdayOEE[wd], *s.OEEPercentage)
		}
		if r.HourlyRate != nil {
			p.HourlyRate = *r.HourlyRate
		}
		if r.UnitCost != nil {
			p.UnitCost = *r.UnitCost
		}
	}
	p.MeanOEE = mean(oee)
	if len(rows) > 0 {
		p.DailyLoss = totalLoss / float64(len(rows))
	}
	return p
}

// plantMeanOEE averages OEE across every row in scope.
func plantMeanOEE(rows []models.FinancialRow) float64 {
	var values []float64
	for _, r := range rows {
		if r.Summary.OEEPercentage != nil {
			values = append(values, *r.Summary.OEEPercentage)
		}
	}
	return mean(values)
}

type recommendation struct {
	Title         string
	Category      string
	Rationale     string
	Confidence    float64
	MonthlyImpact float64
}

// downtimeRecommendations fires for each downtime reason that recurs
// on at least reasonFrequencyPct of the days with data and carries a
// material share of the downtime.
func downtimeRecommendations(asset models.Asset, p assetProfile) []recommendation {
	if p.DowntimeMinutes <= 0 || p.DataDays == 0 {
		return nil
	}
	var out []recommendation
	for _, rs := range sortedReasons(toReasonStats(p.Reasons)) {
		frequency := pctOf(float64(p.ReasonDays[rs.Reason]), float64(p.DataDays))
		if frequency < reasonFrequencyPct || pctOf(rs.Minutes, p.DowntimeMinutes) < reasonMinSharePct {
			continue
		}
		monthlyMinutes := scaleToMonth(rs.Minutes, p.Days)
		out = append(out, recommendation{
			Title:    fmt.Sprintf("Address recurring %q downtime on %s", rs.Reason, asset.Name),
			Category: "downtime",
			Rationale: fmt.Sprintf("%q recurred on %d of %d days (%.0f%%), costing %.0f minutes of downtime.",
				rs.Reason, p.ReasonDays[rs.Reason], p.DataDays, frequency, rs.Minutes),
			Confidence:    patternConfidence(frequency, reasonFrequencyPct, p.DataDays),
			MonthlyImpact: monthlyMinutes * p.HourlyRate / 60,
		})
	}
	return out
}

// wasteRecommendation fires when waste reaches wasteSharePct of output.
func wasteRecommendation(asset models.Asset, p assetProfile) (recommendation, bool) {
	if p.ActualOutput <= 0 {
		return recommendation{}, false
	}
	share := pctOf(float64(p.WasteCount), float64(p.ActualOutput))
	if share < wasteSharePct {
		return recommendation{}, false
	}
	monthlyWaste := scaleToMonth(float64(p.WasteCount), p.Days)
	return recommendation{
		Title:    fmt.Sprintf("Investigate waste rate on %s", asset.Name),
		Category: "waste",
		Rationale: fmt.Sprintf("%d waste units against %d produced (%.0f%% of output).",
			p.WasteCount, p.ActualOutput, share),
		Confidence:    patternConfidence(share, wasteSharePct, p.DataDays),
		MonthlyImpact: monthlyWaste * p.UnitCost,
	}, true
}

// weekdayRecommendation fires when one weekday's mean OEE runs
// weekdayDropPct or more below the asset's overall mean. A single
// sample is never a schedule pattern.
func weekdayRecommendation(asset models.Asset, p assetProfile) (recommendation, bool) {
	if p.MeanOEE == 0 {
		return recommendation{}, false
	}
	var (
		worstDay   time.Weekday
		worstMean  float64
		worstCount int
		found      bool
	)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		values := p.WeekdayOEE[wd]
		if len(values) < 2 {
			continue
		}
		m := mean(values)
		if !found || m < worstMean {
			worstDay, worstMean, worstCount, found = wd, m, len(values), true
		}
	}
	if !found {
		return recommendation{}, false
	}
	drop := pctOf(p.MeanOEE-worstMean, p.MeanOEE)
	if drop < weekdayDropPct {
		return recommendation{}, false
	}
	return recommendation{
		Title:    fmt.Sprintf("Review %s operations on %s", worstDay, asset.Name),
		Category: "schedule",
		Rationale: fmt.Sprintf("%s averages %.1f%% OEE against an overall %.1f%% (%.0f%% lower, %d occurrences).",
			worstDay, worstMean, p.MeanOEE, drop, worstCount),
		Confidence:    patternConfidence(drop, weekdayDropPct, worstCount),
		MonthlyImpact: scaleToMonth(p.DailyLoss*float64(worstCount), p.Days),
	}, true
}

// plantGapRecommendation fires when the asset's mean OEE runs
// plantGapPct or more below the plant mean over the same window.
func plantGapRecommendation(asset models.Asset, p assetProfile, plantMean float64) (recommendation, bool) {
	if p.MeanOEE == 0 || plantMean == 0 {
		return recommendation{}, false
	}
	gap := pctOf(plantMean-p.MeanOEE, plantMean)
	if gap < plantGapPct {
		return recommendation{}, false
	}
	return recommendation{
		Title:    fmt.Sprintf("Review operating plan for %s", asset.Name),
		Category: "oee",
		Rationale: fmt.Sprintf("Mean OEE %.1f%% runs %.0f%% below the plant mean of %.1f%%.",
			p.MeanOEE, gap, plantMean),
		Confidence:    patternConfidence(gap, plantGapPct, p.DataDays),
		MonthlyImpact: scaleToMonth(p.DailyLoss*float64(p.Days), p.Days),
	}, true
}

// patternConfidence grows from 0.6 at the threshold toward 0.95 as the
// pattern strengthens, with the growth discounted when few samples
// back it.
func patternConfidence(value, threshold float64, samples int) float64 {
	weight := float64(samples) / 30
	if weight > 1 {
		weight = 1
	}
	c := 0.6 + (value-threshold)/threshold*0.2*weight
	if c > 0.95 {
		c = 0.95
	}
	if c < 0.6 {
		c = 0.6
	}
	return c
}

func scaleToMonth(total float64, days int) float64 {
	if days <= 0 {
		return total
	}
	return total / float64(days) * 30
}

func toReasonStats(reasons map[string]float64) map[string]*reasonStat {
	out := make(map[string]*reasonStat, len(reasons))
	for reason, minutes := range reasons {
		out[reason] = &reasonStat{Reason: reason, Minutes: minutes, Occurrences: 1}
	}
	return out
}

var _ Tool = (*RecommendationTool)(nil)
