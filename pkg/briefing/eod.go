package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// concernKeywords mark a morning sentence as a flagged concern for the
// end-of-day comparison.
var concernKeywords = []string{"down", "behind", "safety", "downtime", "unresolved", "alert"}

// EODBriefing composes the end-of-day summary for a date: today's
// performance, a comparison against this morning's briefing when one
// exists, wins, concerns, and tomorrow's outlook.
func (o *Orchestrator) EODBriefing(ctx context.Context, userID, dateArg string) Briefing {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Briefing.TotalTimeout.D())
	defer cancel()

	date := o.today()
	if dateArg != "" {
		if parsed, err := models.ParseDate(dateArg); err == nil {
			date = parsed
		}
	}

	b := Briefing{
		ID:           models.NewID("brf"),
		Type:         TypeEOD,
		UserID:       userID,
		Date:         date,
		GeneratedAt:  o.Now().UTC(),
		ToolFailures: []string{},
	}

	dayRange := date.String() + " to " + date.String()
	outcomes := o.fanOut(ctx, o.cfg.Briefing.PerToolTimeout.D(), []toolCall{
		{Name: "production_status", Input: tools.Input{}, Cached: true},
		{Name: "oee_query", Input: tools.Input{"time_range": dayRange}, Cached: true},
		{Name: "downtime_analysis", Input: tools.Input{"time_range": dayRange}, Cached: true},
		{Name: "safety_events", Input: tools.Input{"time_range": dayRange}, Cached: true},
		{Name: "alert_check", Input: tools.Input{}, Cached: true},
	})

	b.Sections = []Section{
		o.eodPerformanceSection(outcomes),
		o.morningComparisonSection(userID, date, outcomes),
		eodWinsSection(outcomes),
		eodConcernsSection(outcomes),
		eodOutlookSection(outcomes),
	}
	b.ToolFailures = collectFailures(outcomes)
	finalize(&b)

	if o.store != nil {
		o.store.Save(b)
	}
	return b
}

func (o *Orchestrator) eodPerformanceSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "performance", Title: "Today's performance"}
	oee, okOEE := outcomes["oee_query"]
	status, _ := sectionStatusFrom(map[string]toolOutcome{
		"oee_query":         oee,
		"production_status": outcomes["production_status"],
	})
	section.Status = status
	if status != StatusCompleted {
		section.Content = "Performance data is unavailable right now."
		section.Error = "data queries failed"
		return section
	}

	var parts []string
	if okOEE && oee.Status == StatusCompleted {
		data := dataMap(oee.Result)
		if v, ok := numVal(data, "oee"); ok {
			target, _ := numVal(data, "target_oee")
			gap, _ := numVal(data, "gap")
			if gap > 0 {
				parts = append(parts, fmt.Sprintf("Plant OEE today was %.1f%%, %.1f points below the %.0f%% target.",
					v, gap, target))
			} else {
				parts = append(parts, fmt.Sprintf("Plant OEE today was %.1f%%, at or above the %.0f%% target.",
					v, target))
			}
		} else if msg := strVal(data, "message"); msg != "" {
			parts = append(parts, msg)
		}
	}
	if prod, ok := outcomes["production_status"]; ok && prod.Status == StatusCompleted {
		summary := subMap(dataMap(prod.Result), "summary")
		if out, ok := numVal(summary, "total_output"); ok {
			target, _ := numVal(summary, "total_target")
			parts = append(parts, fmt.Sprintf("Output stands at %.0f of %.0f units.", out, target))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "No performance data was recorded today.")
	}
	section.Content = strings.Join(parts, " ")
	for _, name := range []string{"oee_query", "production_status"} {
		if outcome, ok := outcomes[name]; ok && outcome.Status == StatusCompleted {
			section.ToolsUsed = append(section.ToolsUsed, name)
		}
	}
	section.Citations = mergeCitations([]string{"oee_query", "production_status"}, outcomes)
	return section
}

// morningComparisonSection revisits what this morning's briefing
// flagged. Without a morning record it emits the fallback note.
func (o *Orchestrator) morningComparisonSection(userID string, date models.Date, outcomes map[string]toolOutcome) Section {
	section := Section{ID: "morning_comparison", Title: "Since this morning", Status: StatusCompleted}

	var morning Briefing
	found := false
	if o.store != nil {
		morning, found = o.store.FindMorning(userID, date, o.loc())
	}
	if !found {
		section.Content = "There is no morning briefing to compare against for today."
		return section
	}

	concerns := flaggedConcerns(morning)
	activeAlerts := 0.0
	if alerts, ok := outcomes["alert_check"]; ok && alerts.Status == StatusCompleted {
		activeAlerts, _ = numVal(dataMap(alerts.Result), "alert_count")
	}

	switch {
	case len(concerns) == 0:
		section.Content = "This morning's briefing flagged no specific concerns."
	case activeAlerts == 0:
		section.Content = fmt.Sprintf("This morning flagged %d concerns; no alerts remain active, so they appear resolved. Flagged: %s",
			len(concerns), strings.Join(concerns, " "))
	default:
		section.Content = fmt.Sprintf("This morning flagged %d concerns and %.0f alerts are still active. Flagged: %s",
			len(concerns), activeAlerts, strings.Join(concerns, " "))
	}
	return section
}

func eodWinsSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "wins", Title: "Wins", Status: StatusCompleted}
	oee, ok := outcomes["oee_query"]
	if !ok || oee.Status != StatusCompleted {
		section.Content = "Win tracking is unavailable without today's performance data."
		return section
	}
	data := dataMap(oee.Result)
	target, _ := numVal(data, "target_oee")

	var winners []string
	for _, entry := range listVal(data, "by_asset") {
		if v, ok := numVal(entry, "oee"); ok && v >= target {
			winners = append(winners, fmt.Sprintf("%s at %.1f%%", strVal(entry, "asset_name"), v))
		}
	}
	if len(winners) == 0 {
		section.Content = "No assets reached the OEE target today."
	} else {
		section.Content = fmt.Sprintf("%d assets met or beat the OEE target: %s.",
			len(winners), strings.Join(winners, ", "))
	}
	return section
}

func eodConcernsSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "concerns", Title: "Concerns"}
	alerts, ok := outcomes["alert_check"]
	if !ok || alerts.Status != StatusCompleted {
		section.Status = StatusFailed
		if ok && alerts.Status == StatusTimedOut {
			section.Status = StatusTimedOut
		}
		section.Content = "Alert data is unavailable right now."
		section.Error = "alert query failed"
		return section
	}
	section.Status = StatusCompleted
	section.ToolsUsed = []string{"alert_check"}
	section.Citations = alerts.Result.Citations

	data := dataMap(alerts.Result)
	count, _ := numVal(data, "alert_count")
	if count == 0 {
		section.Content = "No active concerns going into tomorrow."
		return section
	}

	var messages []string
	for i, alert := range listVal(data, "alerts") {
		if i >= 3 {
			break
		}
		messages = append(messages, strVal(alert, "message"))
	}
	section.Content = fmt.Sprintf("%.0f active alerts. %s", count, strings.Join(messages, " "))
	return section
}

func eodOutlookSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "outlook", Title: "Tomorrow's outlook", Status: StatusCompleted}

	var parts []string
	if downtime, ok := outcomes["downtime_analysis"]; ok && downtime.Status == StatusCompleted {
		data := dataMap(downtime.Result)
		if top := listVal(data, "top_reasons"); len(top) > 0 {
			minutes, _ := numVal(top[0], "minutes")
			parts = append(parts, fmt.Sprintf("Watch %s, today's biggest downtime cause at %.0f minutes.",
				strVal(top[0], "reason"), minutes))
		}
	}
	if safety, ok := outcomes["safety_events"]; ok && safety.Status == StatusCompleted {
		if active, ok := numVal(dataMap(safety.Result), "active_count"); ok && active > 0 {
			parts = append(parts, fmt.Sprintf("%.0f safety events remain unresolved and carry into tomorrow.", active))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "No open items carry into tomorrow.")
	}
	section.Content = strings.Join(parts, " ")
	return section
}

// flaggedConcerns pulls the sentences of a morning briefing that
// mention a concern keyword.
func flaggedConcerns(morning Briefing) []string {
	var concerns []string
	for _, section := range morning.Sections {
		for _, sentence := range strings.SplitAfter(section.Content, ".") {
			lower := strings.ToLower(sentence)
			for _, kw := range concernKeywords {
				if strings.Contains(lower, kw) {
					concerns = append(concerns, strings.TrimSpace(sentence))
					break
				}
			}
		}
	}
	return concerns
}
