package tools

import (
	"context"
	"fmt"

	"github.com/plantops/opsbrief/pkg/models"
)

// ProductionStatusTool reports the live production picture for an area
// or the whole plant from the latest snapshots.
type ProductionStatusTool struct {
	*Deps
}

func NewProductionStatusTool(deps *Deps) *ProductionStatusTool {
	return &ProductionStatusTool{Deps: deps}
}

func (t *ProductionStatusTool) Name() string { return "production_status" }

func (t *ProductionStatusTool) Description() string {
	return "Report current production status: per-asset output versus target from live snapshots, for one area or the whole plant."
}

func (t *ProductionStatusTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "area", Type: ArgString, Description: "Area id to scope to; omit for plant-wide"},
	}
}

func (t *ProductionStatusTool) CitationsRequired() bool { return true }

func (t *ProductionStatusTool) Run(ctx context.Context, in Input) models.ToolResult {
	area := in.String("area", "")

	snapRes, err := t.Gateway.GetLiveSnapshotsByArea(ctx, area)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	if !snapRes.HasData() {
		scope := "the plant"
		if area != "" {
			scope = fmt.Sprintf("area %q", area)
		}
		result := models.NewToolResult(map[string]any{
			"assets":  []any{},
			"summary": map[string]any{"message": fmt.Sprintf("No live snapshots for %s.", scope)},
		})
		result.Citations = append(result.Citations, citationFromResult(snapRes,
			fmt.Sprintf("no live snapshots recorded for %s", scope), ""))
		result.Metadata[models.MetaCacheTier] = models.TierLive
		return result
	}

	now := t.now()
	var (
		assets            []map[string]any
		running, down     int
		idle, stale       int
		totalOut, totalTg int
	)
	for _, snap := range snapRes.Data {
		entry := map[string]any{
			"asset_id":        snap.AssetID,
			"asset_name":      snap.AssetName,
			"status":          string(snap.Status),
			"current_output":  snap.CurrentOutput,
			"target_output":   snap.TargetOutput,
			"output_variance": snap.OutputVariance,
			"data_stale":      snap.IsStale(now),
		}
		assets = append(assets, entry)

		switch collapseStatus(snap.Status) {
		case models.StatusDown:
			down++
		case models.StatusIdle:
			idle++
		case models.StatusUnknown:
		default:
			running++
		}
		if snap.IsStale(now) {
			stale++
		}
		totalOut += snap.CurrentOutput
		totalTg += snap.TargetOutput
	}

	summary := map[string]any{
		"asset_count":      len(assets),
		"running":          running,
		"down":             down,
		"idle":             idle,
		"stale_snapshots":  stale,
		"total_output":     totalOut,
		"total_target":     totalTg,
		"overall_variance": round1(pctOf(float64(totalOut-totalTg), float64(totalTg))),
	}

	result := models.NewToolResult(map[string]any{
		"area":    area,
		"assets":  assets,
		"summary": summary,
	})
	result.Citations = append(result.Citations, citationFromResult(snapRes,
		fmt.Sprintf("%d assets reporting: %d running, %d down, %d idle, output %d of %d units",
			len(assets), running, down, idle, totalOut, totalTg), ""))
	result.Metadata[models.MetaCacheTier] = models.TierLive
	return result
}

var _ Tool = (*ProductionStatusTool)(nil)
