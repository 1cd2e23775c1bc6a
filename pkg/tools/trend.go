package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// minTrendPoints is the fewest samples a trend verdict needs.
const minTrendPoints = 7

// TrendAnalysisTool fits a direction to a metric's time series and
// flags the days that do not fit it.
type TrendAnalysisTool struct {
	*Deps
}

func NewTrendAnalysisTool(deps *Deps) *TrendAnalysisTool {
	return &TrendAnalysisTool{Deps: deps}
}

func (t *TrendAnalysisTool) Name() string { return "trend_analysis" }

func (t *TrendAnalysisTool) Description() string {
	return "Analyze how a metric is trending over time for an asset, area, or the plant, with anomaly detection."
}

func (t *TrendAnalysisTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "metric", Type: ArgString, Required: true,
			Enum:        []string{"oee", "availability", "performance", "quality", "downtime", "waste", "output", "financial_loss"},
			Description: "Metric to analyze"},
		{Name: "asset_name", Type: ArgString, Description: "Asset to analyze; takes precedence over area"},
		{Name: "area", Type: ArgString, Description: "Area id to analyze"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default last 30 days)"},
	}
}

func (t *TrendAnalysisTool) CitationsRequired() bool { return true }

func (t *TrendAnalysisTool) Run(ctx context.Context, in Input) models.ToolResult {
	metric := in.String("metric", "oee")
	rangeText := in.String("time_range", "last 30 days")
	tr := models.ParseTimeRange(rangeText, t.now(), t.loc())

	filter := gateway.TrendFilter{Metric: metric, Area: in.String("area", ""), Range: tr}
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

	pointsRes, err := t.Gateway.GetTrendData(ctx, filter)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	points := pointsRes.Data

	if len(points) < minTrendPoints {
		result := models.NewToolResult(map[string]any{
			"scope":       scope,
			"metric":      metric,
			"time_range":  tr.Description,
			"direction":   "insufficient_data",
			"data_points": len(points),
			"message": fmt.Sprintf("Only %d data points for %s %s over %s; at least %d are needed.",
				len(points), scope, metric, tr.Description, minTrendPoints),
		})
		result.Citations = append(result.Citations, citationFromResult(pointsRes,
			fmt.Sprintf("%d %s data points for %s over %s", len(points), metric, scope, tr.Description), ""))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	slope := olsSlope(values)
	avg := mean(values)

	// Projected change over the window relative to the mean decides the
	// verdict; inverse metrics flip so "improving" always means better.
	relChange := 0.0
	if avg != 0 {
		relChange = slope * float64(len(values)) / avg * 100
	}
	effective := relChange
	if gateway.IsInverseMetric(metric) {
		effective = -effective
	}
	direction := "stable"
	switch {
	case effective > 5:
		direction = "improving"
	case effective < -5:
		direction = "declining"
	}

	sd := stddev(values)
	anomalies := findAnomalies(points, avg, sd)
	minPoint, maxPoint := extremes(points)

	firstSeven := values[:minTrendPoints]
	lastSeven := values[len(values)-minTrendPoints:]

	data := map[string]any{
		"scope":       scope,
		"metric":      metric,
		"time_range":  tr.Description,
		"direction":   direction,
		"data_points": len(points),
		"slope":       round2(slope),
		"mean":        round2(avg),
		"std_dev":     round2(sd),
		"min":         map[string]any{"value": round2(minPoint.Value), "date": minPoint.Date.String()},
		"max":         map[string]any{"value": round2(maxPoint.Value), "date": maxPoint.Date.String()},
		"change_pct":  round1(relChange),
		"comparison": map[string]any{
			"first_week_mean": round2(mean(firstSeven)),
			"last_week_mean":  round2(mean(lastSeven)),
			"delta":           round2(mean(lastSeven) - mean(firstSeven)),
		},
		"anomalies": anomalies,
	}

	result := models.NewToolResult(data)
	result.Citations = append(result.Citations,
		citationFromResult(pointsRes,
			fmt.Sprintf("%s %s is %s over %s: slope %.2f/day across %d points, mean %.2f",
				scope, metric, direction, tr.Description, slope, len(points), avg),
			scopeAssetName(filter.AssetID, scope)),
		calculationCitation("trend_direction",
			"least-squares slope projected over the window relative to the mean; 5% dead-band; inverse metrics flipped"),
	)
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

// extremes returns the lowest and highest points, earliest date winning
// ties so the answer is stable.
func extremes(points []models.TrendPoint) (models.TrendPoint, models.TrendPoint) {
	minPoint, maxPoint := points[0], points[0]
	for _, p := range points[1:] {
		if p.Value < minPoint.Value {
			minPoint = p
		}
		if p.Value > maxPoint.Value {
			maxPoint = p
		}
	}
	return minPoint, maxPoint
}

// findAnomalies returns up to five points more than two standard
// deviations from the mean, most deviant first, each attributed to the
// day's dominant downtime reason when one was recorded.
func findAnomalies(points []models.TrendPoint, avg, sd float64) []map[string]any {
	if sd == 0 {
		return []map[string]any{}
	}
	type anomaly struct {
		point     models.TrendPoint
		deviation float64
	}
	var found []anomaly
	for _, p := range points {
		if d := math.Abs(p.Value - avg); d > 2*sd {
			found = append(found, anomaly{point: p, deviation: d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].deviation != found[j].deviation {
			return found[i].deviation > found[j].deviation
		}
		return found[i].point.Date.Before(found[j].point.Date)
	})
	if len(found) > 5 {
		found = found[:5]
	}

	out := make([]map[string]any, 0, len(found))
	for _, a := range found {
		item := map[string]any{
			"date":      a.point.Date.String(),
			"value":     round2(a.point.Value),
			"deviation": round2(a.deviation),
		}
		if reason, minutes, ok := topReason(a.point.DowntimeReasons); ok {
			item["likely_cause"] = fmt.Sprintf("%s (%.0f min downtime)", reason, minutes)
		}
		out = append(out, item)
	}
	return out
}

var _ Tool = (*TrendAnalysisTool)(nil)
