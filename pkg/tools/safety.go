package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// SafetyEventsTool lists safety events, most severe first. Safety data
// is never summarized away: every returned event carries its own
// citation.
type SafetyEventsTool struct {
	*Deps
}

func NewSafetyEventsTool(deps *Deps) *SafetyEventsTool {
	return &SafetyEventsTool{Deps: deps}
}

func (t *SafetyEventsTool) Name() string { return "safety_events" }

func (t *SafetyEventsTool) Description() string {
	return "List safety events for an asset, area, or the plant, ordered by severity then recency."
}

func (t *SafetyEventsTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "asset_name", Type: ArgString, Description: "Asset to scope to"},
		{Name: "area", Type: ArgString, Description: "Area id to scope to"},
		{Name: "severity", Type: ArgString, Enum: []string{"critical", "high", "medium", "low"}, Description: "Only events of this severity"},
		{Name: "include_resolved", Type: ArgBool, Description: "Include resolved events (default false)"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
	}
}

func (t *SafetyEventsTool) CitationsRequired() bool { return true }

func (t *SafetyEventsTool) Run(ctx context.Context, in Input) models.ToolResult {
	tr := t.parseRange(in)
	filter := gateway.SafetyEventFilter{
		Area:            in.String("area", ""),
		Severity:        models.Severity(in.String("severity", "")),
		Range:           tr,
		IncludeResolved: in.Bool("include_resolved", false),
	}

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

	eventsRes, err := t.Gateway.GetSafetyEvents(ctx, filter)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}

	events := append([]models.SafetyEvent(nil), eventsRes.Data...)
	sort.SliceStable(events, func(i, j int) bool {
		ri, rj := events[i].Severity.Rank(), events[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return events[i].EventTimestamp.After(events[j].EventTimestamp)
	})

	counts := map[string]int{}
	active := 0
	items := make([]map[string]any, 0, len(events))
	citations := make([]models.Citation, 0, len(events)+1)
	for _, e := range events {
		counts[string(e.Severity)]++
		if !e.IsResolved {
			active++
		}
		items = append(items, map[string]any{
			"id":              e.ID,
			"asset_id":        e.AssetID,
			"asset_name":      e.AssetName,
			"event_timestamp": e.EventTimestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"reason_code":     e.ReasonCode,
			"severity":        string(e.Severity),
			"description":     e.Description,
			"is_resolved":     e.IsResolved,
		})
		citations = append(citations, recordCitation(eventsRes, e.ID, e.AssetID, e.AssetName,
			e.EventTimestamp.Format("2006-01-02"),
			fmt.Sprintf("%s safety event on %s: %s (%s)",
				e.Severity, e.AssetName, e.Description, e.ReasonCode)))
	}

	data := map[string]any{
		"scope":        scope,
		"time_range":   tr.Description,
		"event_count":  len(events),
		"active_count": active,
		"by_severity":  counts,
		"events":       items,
	}
	if len(events) == 0 {
		data["message"] = fmt.Sprintf("No safety events for %s over %s.", scope, tr.Description)
		citations = append(citations, citationFromResult(eventsRes,
			fmt.Sprintf("no safety events for %s over %s", scope, tr.Description), ""))
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

var _ Tool = (*SafetyEventsTool)(nil)
