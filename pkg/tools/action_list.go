package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// ActionListTool exposes the prioritized daily action list. The heavy
// lifting lives in the actions engine; this tool scopes, filters, and
// cites its output.
type ActionListTool struct {
	*Deps
	engine *actions.Engine
}

func NewActionListTool(deps *Deps, engine *actions.Engine) *ActionListTool {
	return &ActionListTool{Deps: deps, engine: engine}
}

func (t *ActionListTool) Name() string { return "action_list" }

func (t *ActionListTool) Description() string {
	return "Return the prioritized daily action list: safety first, then OEE shortfalls, then financial losses."
}

func (t *ActionListTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "date", Type: ArgString, Description: "Report date YYYY-MM-DD (default yesterday)"},
		{Name: "priority", Type: ArgString, Enum: []string{"critical", "high", "medium", "low"}, Description: "Only items at this priority"},
		{Name: "category", Type: ArgString, Enum: []string{"safety", "oee", "financial"}, Description: "Only items in this tier"},
		{Name: "area", Type: ArgString, Description: "Only items for assets in this area"},
		{Name: "limit", Type: ArgInt, Min: ptr(1), Max: ptr(100), Description: "Maximum items to return"},
	}
}

func (t *ActionListTool) CitationsRequired() bool { return true }

func (t *ActionListTool) Run(ctx context.Context, in Input) models.ToolResult {
	date := t.reportDate(in)

	response, degraded, err := t.engine.ActionList(ctx, date)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}

	// A category query returns that tier's items before the cross-tier
	// merge, so an asset claimed by a higher tier still shows up in its
	// own tier's view.
	items := response.Actions
	if category := in.String("category", ""); category != "" {
		items, err = t.engine.TierItems(ctx, date, models.ActionCategory(category))
		if err != nil {
			return models.FailedToolResult(msgStoreUnavailable)
		}
	}

	filtered, err := t.filter(ctx, items, in)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	limit := in.Int("limit", 0)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	rows := make([]map[string]any, 0, len(filtered))
	citations := make([]models.Citation, 0, len(filtered)+1)
	for _, a := range filtered {
		rows = append(rows, map[string]any{
			"id":                   a.ID,
			"asset_id":             a.AssetID,
			"asset_name":           a.AssetName,
			"priority":             string(a.PriorityLevel),
			"category":             string(a.Category),
			"primary_metric_value": a.PrimaryMetricValue,
			"recommendation":       a.RecommendationText,
			"evidence_summary":     a.EvidenceSummary,
		})
		citations = append(citations, actionCitation(a, date))
	}

	data := map[string]any{
		"report_date": date.String(),
		"actions":     rows,
		"total_count": response.TotalCount,
		"counts_by_category": map[string]int{
			"safety":    response.CountsByCategory.Safety,
			"oee":       response.CountsByCategory.OEE,
			"financial": response.CountsByCategory.Financial,
		},
	}
	if len(degraded) > 0 {
		data["degraded_tiers"] = degraded
	}
	if len(filtered) == 0 {
		data["message"] = fmt.Sprintf("No action items for %s.", date.String())
		citations = append(citations, calculationCitation("action_list",
			fmt.Sprintf("no rows crossed the safety, OEE, or financial thresholds for %s", date.String())))
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

func (t *ActionListTool) reportDate(in Input) models.Date {
	if raw := in.String("date", ""); raw != "" {
		if d, err := models.ParseDate(raw); err == nil {
			return d
		}
	}
	return models.DateOf(t.now(), t.loc()).AddDays(-1)
}

// filter applies the optional priority and area scoping.
func (t *ActionListTool) filter(ctx context.Context, items []models.ActionItem, in Input) ([]models.ActionItem, error) {
	priority := in.String("priority", "")
	area := in.String("area", "")

	var assetArea map[string]string
	if area != "" {
		index, err := t.engine.AssetsByID(ctx)
		if err != nil {
			return nil, err
		}
		assetArea = make(map[string]string, len(index))
		for id, a := range index {
			assetArea[id] = a.Area
		}
	}

	out := make([]models.ActionItem, 0, len(items))
	for _, a := range items {
		if priority != "" && string(a.PriorityLevel) != priority {
			continue
		}
		if area != "" && !strings.EqualFold(assetArea[a.AssetID], area) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func actionCitation(a models.ActionItem, date models.Date) models.Citation {
	table := gateway.TableDailySummaries
	recordID := ""
	if len(a.EvidenceRefs) > 0 {
		table = a.EvidenceRefs[0].SourceTable
		recordID = a.EvidenceRefs[0].RecordID
	}
	ts := a.CreatedAt
	return models.Citation{
		SourceType:  models.SourceDatabase,
		SourceTable: table,
		RecordID:    recordID,
		AssetID:     a.AssetID,
		Timestamp:   &ts,
		Excerpt:     a.EvidenceSummary,
		Confidence:  1.0,
		DisplayText: models.DatabaseCitationTag(table, date.String(), a.AssetName),
	}
}

var _ Tool = (*ActionListTool)(nil)
