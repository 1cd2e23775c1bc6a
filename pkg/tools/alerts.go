package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// Alert levels, most urgent first.
const (
	alertCritical = "critical"
	alertWarning  = "warning"
	alertInfo     = "info"
)

// AlertCheckTool surfaces anything needing attention right now: active
// safety events, assets down or far behind target, and stale data.
type AlertCheckTool struct {
	*Deps
}

func NewAlertCheckTool(deps *Deps) *AlertCheckTool {
	return &AlertCheckTool{Deps: deps}
}

func (t *AlertCheckTool) Name() string { return "alert_check" }

func (t *AlertCheckTool) Description() string {
	return "Check for active alerts: unresolved safety events, down or behind-target assets, and stale live data."
}

func (t *AlertCheckTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "area", Type: ArgString, Description: "Area id to scope to; omit for plant-wide"},
	}
}

func (t *AlertCheckTool) CitationsRequired() bool { return true }

// behindVariancePct is the output shortfall beyond which a running
// asset raises a warning.
const behindVariancePct = 20.0

// attentionMinutes is how long a condition may persist before the
// alert demands attention; a down asset past it is also critical.
const attentionMinutes = 60.0

func (t *AlertCheckTool) Run(ctx context.Context, in Input) models.ToolResult {
	area := in.String("area", "")
	now := t.now()
	today := models.DateOf(now, t.loc())
	todayRange := models.TimeRange{Start: today, End: today, Description: "today"}

	var (
		alerts    []map[string]any
		citations []models.Citation
	)

	// Active safety events map straight onto alert levels.
	eventsRes, err := t.Gateway.GetSafetyEvents(ctx, gateway.SafetyEventFilter{
		Area:  area,
		Range: todayRange,
	})
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	for _, e := range eventsRes.Data {
		duration := now.Sub(e.EventTimestamp).Minutes()
		alerts = append(alerts, map[string]any{
			"level":      safetyAlertLevel(e.Severity),
			"type":       "safety",
			"asset_id":   e.AssetID,
			"asset_name": e.AssetName,
			"message": fmt.Sprintf("Unresolved %s safety event on %s: %s",
				e.Severity, e.AssetName, e.Description),
			"duration_minutes":   round1(duration),
			"requires_attention": duration > attentionMinutes,
		})
		citations = append(citations, recordCitation(eventsRes, e.ID, e.AssetID, e.AssetName,
			e.EventTimestamp.Format("2006-01-02"),
			fmt.Sprintf("unresolved %s safety event on %s: %s", e.Severity, e.AssetName, e.Description)))
	}

	// Production alerts from the latest snapshots.
	snapRes, err := t.Gateway.GetLiveSnapshotsByArea(ctx, area)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}
	downtimeToday := t.downtimeToday(ctx, todayRange)
	for _, snap := range snapRes.Data {
		sinceSnapshot := now.Sub(snap.SnapshotTimestamp).Minutes()
		switch {
		case snap.Status == models.StatusDown:
			// Accumulated downtime is the truer duration when we have it.
			duration := downtimeToday[snap.AssetID]
			if duration == 0 {
				duration = sinceSnapshot
			}
			level := alertWarning
			if duration > attentionMinutes {
				level = alertCritical
			}
			alerts = append(alerts, map[string]any{
				"level":              level,
				"type":               "production",
				"asset_id":           snap.AssetID,
				"asset_name":         snap.AssetName,
				"message":            fmt.Sprintf("%s is down.", snap.AssetName),
				"duration_minutes":   round1(duration),
				"requires_attention": duration > attentionMinutes,
			})
			citations = append(citations, recordCitation(snapRes, "", snap.AssetID, snap.AssetName,
				snap.SnapshotTimestamp.Format("2006-01-02"),
				fmt.Sprintf("%s reported down at %s", snap.AssetName,
					snap.SnapshotTimestamp.Format("15:04"))))
		case snap.OutputVariance < -behindVariancePct && !snap.IsStale(now):
			alerts = append(alerts, map[string]any{
				"level":      alertWarning,
				"type":       "production",
				"asset_id":   snap.AssetID,
				"asset_name": snap.AssetName,
				"message": fmt.Sprintf("%s is %.0f%% behind target (%d of %d units).",
					snap.AssetName, -snap.OutputVariance, snap.CurrentOutput, snap.TargetOutput),
				"duration_minutes":   round1(sinceSnapshot),
				"requires_attention": sinceSnapshot > attentionMinutes,
			})
			citations = append(citations, recordCitation(snapRes, "", snap.AssetID, snap.AssetName,
				snap.SnapshotTimestamp.Format("2006-01-02"),
				fmt.Sprintf("%s at %d of %d units, %.1f%% variance",
					snap.AssetName, snap.CurrentOutput, snap.TargetOutput, snap.OutputVariance)))
		}
		if snap.IsStale(now) && snap.Status != models.StatusDown {
			alerts = append(alerts, map[string]any{
				"level":      alertInfo,
				"type":       "data",
				"asset_id":   snap.AssetID,
				"asset_name": snap.AssetName,
				"message": fmt.Sprintf("No fresh data from %s since %s.",
					snap.AssetName, snap.SnapshotTimestamp.Format("15:04")),
				"duration_minutes":   round1(sinceSnapshot),
				"requires_attention": sinceSnapshot > attentionMinutes,
			})
		}
	}

	// Equipment-condition alerts (vibration, temperature) arrive from a
	// separate feed that is not ingested yet.
	alerts = append(alerts, t.equipmentAlerts()...)

	// Severity first, then the longest-running condition.
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alertLevelRank(alerts[i]["level"].(string)), alertLevelRank(alerts[j]["level"].(string))
		if ri != rj {
			return ri < rj
		}
		return alerts[i]["duration_minutes"].(float64) > alerts[j]["duration_minutes"].(float64)
	})

	counts := map[string]int{}
	for _, a := range alerts {
		counts[a["level"].(string)]++
	}

	data := map[string]any{
		"area":        area,
		"alert_count": len(alerts),
		"by_level":    counts,
		"alerts":      alerts,
	}
	if len(alerts) == 0 {
		data["message"] = "All clear: no active alerts."
		if since, ok := t.lastResolvedAt(ctx, area, todayRange); ok {
			data["message"] = fmt.Sprintf("All clear since %s: no active alerts.", since.Format("15:04"))
			data["all_clear_since"] = since
		}
		citations = append(citations,
			citationFromResult(eventsRes, "no unresolved safety events today", ""),
			citationFromResult(snapRes, "no assets down, behind target, or stale", ""))
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierLive
	return result
}

// downtimeToday maps asset id to accumulated downtime minutes today.
// Best effort: a store error here only disables escalation.
func (t *AlertCheckTool) downtimeToday(ctx context.Context, todayRange models.TimeRange) map[string]float64 {
	out := map[string]float64{}
	summaries, err := (&OEEQueryTool{Deps: t.Deps}).plantSummaries(ctx, todayRange)
	if err != nil {
		return out
	}
	for _, s := range summaries.Data {
		out[s.AssetID] += s.DowntimeMinutes
	}
	return out
}

func (t *AlertCheckTool) equipmentAlerts() []map[string]any {
	return nil
}

// lastResolvedAt is the resolution time of the most recently resolved
// safety event today. Best effort: an error just drops the timestamp
// from the all-clear message.
func (t *AlertCheckTool) lastResolvedAt(ctx context.Context, area string, todayRange models.TimeRange) (time.Time, bool) {
	res, err := t.Gateway.GetSafetyEvents(ctx, gateway.SafetyEventFilter{
		Area:            area,
		Range:           todayRange,
		IncludeResolved: true,
	})
	if err != nil {
		return time.Time{}, false
	}
	var last time.Time
	for _, e := range res.Data {
		if e.IsResolved && e.ResolvedAt != nil && e.ResolvedAt.After(last) {
			last = *e.ResolvedAt
		}
	}
	return last, !last.IsZero()
}

func safetyAlertLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return alertCritical
	case models.SeverityMedium:
		return alertWarning
	default:
		return alertInfo
	}
}

func alertLevelRank(level string) int {
	switch level {
	case alertCritical:
		return 0
	case alertWarning:
		return 1
	default:
		return 2
	}
}

var _ Tool = (*AlertCheckTool)(nil)
