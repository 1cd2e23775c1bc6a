package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

// AssetLookupTool resolves a user-supplied asset name to the catalog
// entry and summarizes current status and recent performance. Unknown
// names produce suggestions, never fabricated assets.
type AssetLookupTool struct {
	*Deps
}

func NewAssetLookupTool(deps *Deps) *AssetLookupTool {
	return &AssetLookupTool{Deps: deps}
}

func (t *AssetLookupTool) Name() string { return "asset_lookup" }

func (t *AssetLookupTool) Description() string {
	return "Look up a production asset by name and report its identity, current status, and recent performance."
}

func (t *AssetLookupTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Required: true, Description: "Asset name, exact or approximate"},
		{Name: "include_performance", Type: ArgBool, Description: "Include the recent performance summary (default true)"},
		{Name: "days_back", Type: ArgInt, Min: ptr(1), Max: ptr(90), Description: "Performance window in days (default 7)"},
	}
}

func (t *AssetLookupTool) CitationsRequired() bool { return true }

var trailingDigitsRe = regexp.MustCompile(`([a-z])(\d+)$`)

// NormalizeAssetName canonicalizes a user-supplied asset name:
// lowercase, `#`/`-`/`_` become spaces, whitespace collapses, and a
// trailing digit run glued to a word gets a separating space
// ("grinder5" → "grinder 5").
func NormalizeAssetName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer("#", " ", "-", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = trailingDigitsRe.ReplaceAllString(s, "$1 $2")
	return s
}

func (t *AssetLookupTool) Run(ctx context.Context, in Input) models.ToolResult {
	name := NormalizeAssetName(in.String("asset_name", ""))
	includePerf := in.Bool("include_performance", true)
	daysBack := in.Int("days_back", 7)

	assetRes, err := t.Gateway.GetAssetByName(ctx, name)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}

	asset, found := assetRes.First()
	if !found {
		similar, simErr := t.Gateway.GetSimilarAssets(ctx, name, 5)
		// Retry on the first token so "grinder 7" still suggests the
		// grinders that do exist.
		if simErr == nil && !similar.HasData() {
			if fields := strings.Fields(name); len(fields) > 1 {
				similar, simErr = t.Gateway.GetSimilarAssets(ctx, fields[0], 5)
			}
		}
		suggestions := []string{}
		if simErr == nil {
			for _, a := range similar.Data {
				suggestions = append(suggestions, a.Name)
			}
		}
		result := models.NewToolResult(map[string]any{
			"found":       false,
			"query":       name,
			"suggestions": suggestions,
		})
		result.Citations = append(result.Citations, citationFromResult(assetRes,
			fmt.Sprintf("no asset named %q in the catalog", name), ""))
		result.Metadata[models.MetaCacheTier] = models.TierStatic
		result.Metadata[models.MetaFollowUpQuestions] = suggestionQuestions(suggestions)
		return result
	}

	data := map[string]any{
		"found": true,
		"metadata": map[string]any{
			"id":        asset.ID,
			"name":      asset.Name,
			"area":      asset.Area,
			"source_id": asset.SourceID,
		},
	}
	citations := []models.Citation{
		recordCitation(assetRes, asset.ID, asset.ID, asset.Name, "",
			fmt.Sprintf("%s is a %s asset (id %s)", asset.Name, asset.Area, asset.ID)),
	}

	data["current_status"] = t.currentStatus(ctx, asset, &citations)

	if includePerf {
		data["performance"] = t.performance(ctx, asset, daysBack, &citations)
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

// currentStatus derives the running state from the latest snapshot.
func (t *AssetLookupTool) currentStatus(ctx context.Context, asset models.Asset, citations *[]models.Citation) map[string]any {
	snapRes, err := t.Gateway.GetLiveSnapshot(ctx, asset.ID)
	if err != nil {
		return map[string]any{"status": string(models.StatusUnknown), "message": "Live data is unavailable."}
	}
	snap, ok := snapRes.First()
	if !ok {
		return map[string]any{"status": string(models.StatusUnknown), "message": "No live snapshot has been recorded for this asset."}
	}

	status := map[string]any{
		"status":             string(collapseStatus(snap.Status)),
		"current_output":     snap.CurrentOutput,
		"target_output":      snap.TargetOutput,
		"output_variance":    snap.OutputVariance,
		"snapshot_timestamp": snap.SnapshotTimestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"data_stale":         false,
	}
	if snap.IsStale(t.now()) {
		age := t.now().Sub(snap.SnapshotTimestamp).Round(60e9)
		status["data_stale"] = true
		status["message"] = fmt.Sprintf("Live data is %s old and may not reflect current production.", age)
	}

	*citations = append(*citations, recordCitation(snapRes, "", asset.ID, asset.Name,
		snap.SnapshotTimestamp.Format("2006-01-02"),
		fmt.Sprintf("%s latest snapshot: %d/%d units, status %s",
			asset.Name, snap.CurrentOutput, snap.TargetOutput, snap.Status)))
	return status
}

// performance summarizes OEE over the window: mean, trend with a ±2%
// dead-band over half-window means (needs at least 4 points), and the
// top downtime reason.
func (t *AssetLookupTool) performance(ctx context.Context, asset models.Asset, daysBack int, citations *[]models.Citation) map[string]any {
	tr := models.ParseTimeRange(fmt.Sprintf("last %d days", daysBack), t.now(), t.loc())
	oeeRes, err := t.Gateway.GetOEE(ctx, asset.ID, tr)
	if err != nil || !oeeRes.HasData() {
		return map[string]any{"trend": "insufficient_data", "data_points": 0, "days": daysBack}
	}

	var values []float64
	reasons := map[string]float64{}
	for i := len(oeeRes.Data) - 1; i >= 0; i-- { // chronological order
		s := oeeRes.Data[i]
		if s.OEEPercentage != nil {
			values = append(values, *s.OEEPercentage)
		}
		for reason, minutes := range s.DowntimeReasons {
			reasons[reason] += minutes
		}
	}

	perf := map[string]any{
		"days":        daysBack,
		"data_points": len(values),
		"trend":       "insufficient_data",
	}
	if len(values) > 0 {
		avg := mean(values)
		perf["average_oee"] = round1(avg)
		*citations = append(*citations, citationFromResult(oeeRes,
			fmt.Sprintf("%s averaged %.1f%% OEE over %s (%d days of data)",
				asset.Name, avg, tr.Description, len(values)), asset.Name))
	}
	if len(values) >= 4 {
		half := len(values) / 2
		firstMean := mean(values[:half])
		secondMean := mean(values[half:])
		switch delta := secondMean - firstMean; {
		case delta > 2:
			perf["trend"] = "improving"
		case delta < -2:
			perf["trend"] = "declining"
		default:
			perf["trend"] = "stable"
		}
	}

	if reason, minutes, ok := topReason(reasons); ok {
		perf["top_downtime_reason"] = map[string]any{
			"reason":  reason,
			"minutes": round1(minutes),
		}
	}
	return perf
}

// collapseStatus maps snapshot statuses onto the coarse running state
// reported by the lookup.
func collapseStatus(s models.SnapshotStatus) models.SnapshotStatus {
	switch s {
	case models.StatusDown, models.StatusIdle, models.StatusUnknown:
		return s
	case "":
		return models.StatusUnknown
	default:
		return models.StatusRunning
	}
}

func suggestionQuestions(suggestions []string) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, fmt.Sprintf("Did you mean %q?", s))
	}
	return out
}

func topReason(reasons map[string]float64) (string, float64, bool) {
	best := ""
	bestMinutes := 0.0
	for reason, minutes := range reasons {
		if minutes > bestMinutes || (minutes == bestMinutes && reason < best) {
			best, bestMinutes = reason, minutes
		}
	}
	return best, bestMinutes, best != ""
}

var _ Tool = (*AssetLookupTool)(nil)
