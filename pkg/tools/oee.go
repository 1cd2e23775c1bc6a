package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/plantops/opsbrief/pkg/models"
)

// OEEQueryTool reports OEE for an asset, an area, or the whole plant
// over a time range. Aggregates are output-weighted so a line that ran
// one hour does not count like a line that ran all day.
type OEEQueryTool struct {
	*Deps
}

func NewOEEQueryTool(deps *Deps) *OEEQueryTool {
	return &OEEQueryTool{Deps: deps}
}

func (t *OEEQueryTool) Name() string { return "oee_query" }

func (t *OEEQueryTool) Description() string {
	return "Report OEE and its availability, performance, and quality components for an asset, area, or the plant over a time range."
}

func (t *OEEQueryTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Description: "Asset to report on; takes precedence over area"},
		{Name: "area", Type: ArgString, Description: "Area id to report on"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
	}
}

func (t *OEEQueryTool) CitationsRequired() bool { return true }

func (t *OEEQueryTool) Run(ctx context.Context, in Input) models.ToolResult {
	tr := t.parseRange(in)
	assetName := in.String("asset_name", "")
	area := in.String("area", "")

	scope := "plant"
	var summaries models.DataResult[models.DailySummary]
	switch {
	case assetName != "":
		assetRes, err := t.Gateway.GetAssetByName(ctx, NormalizeAssetName(assetName))
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
		asset, ok := assetRes.First()
		if !ok {
			return models.FailedToolResult(fmt.Sprintf("No asset matching %q was found.", assetName))
		}
		scope = asset.Name
		summaries, err = t.Gateway.GetOEE(ctx, asset.ID, tr)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
	case area != "":
		var err error
		scope = "area " + area
		summaries, err = t.Gateway.GetOEEByArea(ctx, area, tr)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
	default:
		var err error
		summaries, err = t.plantSummaries(ctx, tr)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
	}

	if !summaries.HasData() {
		result := models.NewToolResult(map[string]any{
			"scope":      scope,
			"time_range": tr.Description,
			"message":    fmt.Sprintf("No performance data for %s over %s.", scope, tr.Description),
		})
		result.Citations = append(result.Citations, citationFromResult(summaries,
			fmt.Sprintf("no daily summaries for %s over %s", scope, tr.Description), ""))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	agg := aggregateOEE(summaries.Data)
	target := t.Config.Actions.TargetOEEPercentage

	data := map[string]any{
		"scope":       scope,
		"time_range":  tr.Description,
		"oee":         round1(agg.oee),
		"target_oee":  target,
		"gap":         round1(target - agg.oee),
		"data_points": agg.points,
		"components": map[string]any{
			"availability": round1(agg.availability),
			"performance":  round1(agg.performance),
			"quality":      round1(agg.quality),
		},
		"output": map[string]any{
			"actual": agg.actualOutput,
			"target": agg.targetOutput,
		},
	}
	if assetName == "" {
		data["by_asset"] = perAssetOEE(summaries.Data)
	}

	result := models.NewToolResult(data)
	result.Citations = append(result.Citations,
		citationFromResult(summaries,
			fmt.Sprintf("%s OEE %.1f%% over %s (%d data points, target %.0f%%)",
				scope, agg.oee, tr.Description, agg.points, target), scopeAssetName(assetName, scope)),
		calculationCitation("weighted_oee",
			"OEE aggregated as sum(oee*actual_output)/sum(actual_output); arithmetic mean when no output was recorded"),
	)
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

// plantSummaries merges every configured area's summaries into one
// result set.
func (t *OEEQueryTool) plantSummaries(ctx context.Context, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	var merged models.DataResult[models.DailySummary]
	for i, area := range t.Config.Plant.Areas {
		res, err := t.Gateway.GetOEEByArea(ctx, area.ID, tr)
		if err != nil {
			return models.DataResult[models.DailySummary]{}, err
		}
		if i == 0 {
			merged = res
		} else {
			merged.Data = append(merged.Data, res.Data...)
		}
	}
	merged.RowCount = len(merged.Data)
	merged.QueryDescription = "plant OEE, " + tr.Description
	return merged, nil
}

type oeeAggregate struct {
	oee          float64
	availability float64
	performance  float64
	quality      float64
	actualOutput int
	targetOutput int
	points       int
}

// aggregateOEE computes the output-weighted OEE and arithmetic-mean
// components. Rows without an OEE value are skipped; when no row has
// output, the weighting degrades to an arithmetic mean.
func aggregateOEE(summaries []models.DailySummary) oeeAggregate {
	var (
		agg          oeeAggregate
		weightedSum  float64
		weightTotal  float64
		oeeValues    []float64
		availability []float64
		performance  []float64
		quality      []float64
	)
	for _, s := range summaries {
		agg.actualOutput += s.ActualOutput
		agg.targetOutput += s.TargetOutput
		if s.OEEPercentage == nil {
			continue
		}
		agg.points++
		oeeValues = append(oeeValues, *s.OEEPercentage)
		weightedSum += *s.OEEPercentage * float64(s.ActualOutput)
		weightTotal += float64(s.ActualOutput)
		if s.Availability != nil {
			availability = append(availability, *s.Availability)
		}
		if s.Performance != nil {
			performance = append(performance, *s.Performance)
		}
		if s.Quality != nil {
			quality = append(quality, *s.Quality)
		}
	}
	if weightTotal > 0 {
		agg.oee = weightedSum / weightTotal
	} else {
		agg.oee = mean(oeeValues)
	}
	agg.availability = mean(availability)
	agg.performance = mean(performance)
	agg.quality = mean(quality)
	return agg
}

// perAssetOEE breaks the aggregate down per asset, worst first.
func perAssetOEE(summaries []models.DailySummary) []map[string]any {
	byAsset := map[string][]models.DailySummary{}
	names := map[string]string{}
	for _, s := range summaries {
		byAsset[s.AssetID] = append(byAsset[s.AssetID], s)
		names[s.AssetID] = s.AssetName
	}
	out := make([]map[string]any, 0, len(byAsset))
	for assetID, rows := range byAsset {
		agg := aggregateOEE(rows)
		if agg.points == 0 {
			continue
		}
		out = append(out, map[string]any{
			"asset_id":    assetID,
			"asset_name":  names[assetID],
			"oee":         round1(agg.oee),
			"data_points": agg.points,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i]["oee"].(float64), out[j]["oee"].(float64)
		if oi != oj {
			return oi < oj
		}
		return out[i]["asset_id"].(string) < out[j]["asset_id"].(string)
	})
	return out
}

func scopeAssetName(assetName, scope string) string {
	if assetName != "" {
		return scope
	}
	return ""
}

var _ Tool = (*OEEQueryTool)(nil)
