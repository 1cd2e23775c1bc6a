package tools

import (
	"context"
	"fmt"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// PlantOverviewTool assembles the one-glance plant picture: live state
// per area, yesterday's OEE against target, and open safety events.
type PlantOverviewTool struct {
	*Deps
}

func NewPlantOverviewTool(deps *Deps) *PlantOverviewTool {
	return &PlantOverviewTool{Deps: deps}
}

func (t *PlantOverviewTool) Name() string { return "plant_overview" }

func (t *PlantOverviewTool) Description() string {
	return "Summarize the whole plant: live status by area, yesterday's OEE versus target, and open safety events."
}

func (t *PlantOverviewTool) ArgsSchema() []ArgField {
	return nil
}

func (t *PlantOverviewTool) CitationsRequired() bool { return true }

func (t *PlantOverviewTool) Run(ctx context.Context, in Input) models.ToolResult {
	now := t.now()
	yesterday := models.ParseTimeRange("yesterday", now, t.loc())

	var (
		areas        []map[string]any
		citations    []models.Citation
		plantRunning int
		plantDown    int
		plantAssets  int
	)
	var allSummaries []models.DailySummary
	for _, area := range t.Config.Plant.Areas {
		snapRes, err := t.Gateway.GetLiveSnapshotsByArea(ctx, area.ID)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
		oeeRes, err := t.Gateway.GetOEEByArea(ctx, area.ID, yesterday)
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
		allSummaries = append(allSummaries, oeeRes.Data...)

		running, down := 0, 0
		for _, snap := range snapRes.Data {
			switch collapseStatus(snap.Status) {
			case models.StatusDown:
				down++
			case models.StatusIdle, models.StatusUnknown:
			default:
				running++
			}
		}
		plantRunning += running
		plantDown += down
		plantAssets += len(snapRes.Data)

		entry := map[string]any{
			"area_id":   area.ID,
			"area_name": area.Name,
			"assets":    len(snapRes.Data),
			"running":   running,
			"down":      down,
		}
		if agg := aggregateOEE(oeeRes.Data); agg.points > 0 {
			entry["oee_yesterday"] = round1(agg.oee)
			citations = append(citations, citationFromResult(oeeRes,
				fmt.Sprintf("%s OEE %.1f%% yesterday across %d data points",
					area.Name, agg.oee, agg.points), ""))
		}
		areas = append(areas, entry)
	}

	eventsRes, err := t.Gateway.GetSafetyEvents(ctx, gateway.SafetyEventFilter{Range: yesterday})
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	openSafety := len(eventsRes.Data)

	plantAgg := aggregateOEE(allSummaries)
	target := t.Config.Actions.TargetOEEPercentage

	data := map[string]any{
		"areas": areas,
		"plant": map[string]any{
			"assets":             plantAssets,
			"running":            plantRunning,
			"down":               plantDown,
			"oee_yesterday":      round1(plantAgg.oee),
			"target_oee":         target,
			"open_safety_events": openSafety,
		},
	}

	citations = append(citations, citationFromResult(eventsRes,
		fmt.Sprintf("%d unresolved safety events since yesterday", openSafety), ""))
	if plantAgg.points > 0 {
		citations = append(citations, calculationCitation("weighted_oee",
			fmt.Sprintf("plant OEE %.1f%% is the output-weighted mean of %d daily summaries",
				plantAgg.oee, plantAgg.points)))
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierLive
	return result
}

var _ Tool = (*PlantOverviewTool)(nil)
