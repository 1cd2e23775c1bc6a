package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/plantops/opsbrief/pkg/models"
)

// DowntimeAnalysisTool breaks downtime into reasons and offenders over
// a time range.
type DowntimeAnalysisTool struct {
	*Deps
}

func NewDowntimeAnalysisTool(deps *Deps) *DowntimeAnalysisTool {
	return &DowntimeAnalysisTool{Deps: deps}
}

func (t *DowntimeAnalysisTool) Name() string { return "downtime_analysis" }

func (t *DowntimeAnalysisTool) Description() string {
	return "Analyze downtime by reason and by asset over a time range, ranking the top causes."
}

func (t *DowntimeAnalysisTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Description: "Asset to analyze; takes precedence over area"},
		{Name: "area", Type: ArgString, Description: "Area id to analyze"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
	}
}

func (t *DowntimeAnalysisTool) CitationsRequired() bool { return true }

func (t *DowntimeAnalysisTool) Run(ctx context.Context, in Input) models.ToolResult {
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
		summaries, err = t.Gateway.GetDowntime(ctx, asset.ID, tr)
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
		summaries, err = (&OEEQueryTool{Deps: t.Deps}).plantSummaries(ctx, tr)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
	}

	var (
		totalMinutes float64
		reasonTotals = map[string]*reasonStat{}
		assetTotals  = map[string]*assetDowntime{}
	)
	for _, s := range summaries.Data {
		if s.DowntimeMinutes <= 0 {
			continue
		}
		totalMinutes += s.DowntimeMinutes
		at, ok := assetTotals[s.AssetID]
		if !ok {
			at = &assetDowntime{AssetID: s.AssetID, AssetName: s.AssetName}
			assetTotals[s.AssetID] = at
		}
		at.Minutes += s.DowntimeMinutes
		at.Days++
		for reason, minutes := range s.DowntimeReasons {
			rs, ok := reasonTotals[reason]
			if !ok {
				rs = &reasonStat{Reason: reason}
				reasonTotals[reason] = rs
			}
			rs.Minutes += minutes
			rs.Occurrences++
		}
	}

	if totalMinutes == 0 {
		result := models.NewToolResult(map[string]any{
			"scope":         scope,
			"time_range":    tr.Description,
			"total_minutes": 0.0,
			"message":       fmt.Sprintf("No downtime recorded for %s over %s.", scope, tr.Description),
		})
		result.Citations = append(result.Citations, citationFromResult(summaries,
			fmt.Sprintf("no downtime recorded for %s over %s", scope, tr.Description), ""))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	reasons := make([]map[string]any, 0, len(reasonTotals))
	for _, rs := range sortedReasons(reasonTotals) {
		reasons = append(reasons, map[string]any{
			"reason":      rs.Reason,
			"minutes":     round1(rs.Minutes),
			"percentage":  round1(pctOf(rs.Minutes, totalMinutes)),
			"occurrences": rs.Occurrences,
		})
	}
	topReasons := reasons
	if len(topReasons) > 3 {
		topReasons = topReasons[:3]
	}

	offenders := make([]map[string]any, 0, len(assetTotals))
	for _, at := range sortedOffenders(assetTotals) {
		offenders = append(offenders, map[string]any{
			"asset_id":           at.AssetID,
			"asset_name":         at.AssetName,
			"minutes":            round1(at.Minutes),
			"percentage":         round1(pctOf(at.Minutes, totalMinutes)),
			"days_with_downtime": at.Days,
		})
	}

	data := map[string]any{
		"scope":         scope,
		"time_range":    tr.Description,
		"total_minutes": round1(totalMinutes),
		"total_hours":   round1(totalMinutes / 60),
		"top_reasons":   topReasons,
		"all_reasons":   reasons,
		"by_asset":      offenders,
	}

	result := models.NewToolResult(data)
	excerpt := fmt.Sprintf("%s lost %.0f minutes to downtime over %s", scope, totalMinutes, tr.Description)
	if len(topReasons) > 0 {
		excerpt += fmt.Sprintf("; top reason %s (%.0f min)",
			topReasons[0]["reason"], topReasons[0]["minutes"])
	}
	result.Citations = append(result.Citations,
		citationFromResult(summaries, excerpt, scopeAssetName(assetName, scope)))
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

type reasonStat struct {
	Reason      string
	Minutes     float64
	Occurrences int
}

type assetDowntime struct {
	AssetID   string
	AssetName string
	Minutes   float64
	Days      int
}

func sortedReasons(m map[string]*reasonStat) []*reasonStat {
	out := make([]*reasonStat, 0, len(m))
	for _, rs := range m {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func sortedOffenders(m map[string]*assetDowntime) []*assetDowntime {
	out := make([]*assetDowntime, 0, len(m))
	for _, at := range m {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

var _ Tool = (*DowntimeAnalysisTool)(nil)
