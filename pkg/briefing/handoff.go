package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// HandoffBriefing synthesizes a shift handoff from the last eight
// hours: what happened, what broke, what is still open, and what the
// incoming shift should focus on. Tighter budgets than the morning
// briefing because a shift change does not wait.
func (o *Orchestrator) HandoffBriefing(ctx context.Context, userID string) Briefing {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Briefing.HandoffTotalTimeout.D())
	defer cancel()

	b := Briefing{
		ID:           models.NewID("brf"),
		Type:         TypeHandoff,
		UserID:       userID,
		Date:         o.today(),
		GeneratedAt:  o.Now().UTC(),
		ToolFailures: []string{},
	}

	// The store keeps daily granularity, so the eight-hour window maps
	// to today's rows plus the live snapshots and alerts.
	outcomes := o.fanOut(ctx, o.cfg.Briefing.HandoffPerToolTimeout.D(), []toolCall{
		{Name: "production_status", Input: tools.Input{}, Cached: true},
		{Name: "downtime_analysis", Input: tools.Input{"time_range": "today"}, Cached: true},
		{Name: "safety_events", Input: tools.Input{"time_range": "today"}, Cached: true},
		{Name: "alert_check", Input: tools.Input{}, Cached: true},
	})

	b.Sections = []Section{
		handoffOverviewSection(outcomes),
		handoffIssuesSection(outcomes),
		handoffOngoingSection(outcomes),
		handoffFocusSection(outcomes),
	}
	b.ToolFailures = collectFailures(outcomes)
	finalize(&b)

	if o.store != nil {
		o.store.Save(b)
	}
	return b
}

func handoffOverviewSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "overview", Title: "Shift overview"}
	prod, ok := outcomes["production_status"]
	if !ok || prod.Status != StatusCompleted {
		section.Status = StatusFailed
		if ok && prod.Status == StatusTimedOut {
			section.Status = StatusTimedOut
		}
		section.Content = "Production status is unavailable right now."
		section.Error = "production query failed"
		return section
	}
	section.Status = StatusCompleted
	section.ToolsUsed = []string{"production_status"}
	section.Citations = prod.Result.Citations

	summary := subMap(dataMap(prod.Result), "summary")
	count, _ := numVal(summary, "asset_count")
	running, _ := numVal(summary, "running")
	down, _ := numVal(summary, "down")
	out, _ := numVal(summary, "total_output")
	target, _ := numVal(summary, "total_target")
	if count == 0 {
		section.Content = "No assets are reporting."
	} else {
		section.Content = fmt.Sprintf("%.0f of %.0f assets running, %.0f down. Output this shift stands at %.0f of %.0f units.",
			running, count, down, out, target)
	}
	return section
}

func handoffIssuesSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "issues", Title: "Issues this shift", Status: StatusCompleted}

	var parts []string
	if downtime, ok := outcomes["downtime_analysis"]; ok && downtime.Status == StatusCompleted {
		data := dataMap(downtime.Result)
		if total, ok := numVal(data, "total_minutes"); ok && total > 0 {
			line := fmt.Sprintf("Downtime totaled %.0f minutes.", total)
			if top := listVal(data, "top_reasons"); len(top) > 0 {
				minutes, _ := numVal(top[0], "minutes")
				line += fmt.Sprintf(" Biggest cause: %s, %.0f minutes.", strVal(top[0], "reason"), minutes)
			}
			parts = append(parts, line)
		}
		section.ToolsUsed = append(section.ToolsUsed, "downtime_analysis")
		section.Citations = append(section.Citations, downtime.Result.Citations...)
	}
	if safety, ok := outcomes["safety_events"]; ok && safety.Status == StatusCompleted {
		data := dataMap(safety.Result)
		if count, ok := numVal(data, "event_count"); ok && count > 0 {
			parts = append(parts, fmt.Sprintf("%.0f safety events were recorded this shift.", count))
		}
		section.ToolsUsed = append(section.ToolsUsed, "safety_events")
		section.Citations = append(section.Citations, safety.Result.Citations...)
	}
	if len(section.ToolsUsed) == 0 {
		section.Status = StatusFailed
		section.Content = "Issue data is unavailable right now."
		section.Error = "data queries failed"
		return section
	}
	if len(parts) == 0 {
		parts = append(parts, "A clean shift: no downtime or safety events recorded.")
	}
	section.Content = strings.Join(parts, " ")
	return section
}

func handoffOngoingSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "ongoing", Title: "Ongoing concerns"}
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
		section.Content = "Nothing is carrying over: no active alerts."
		return section
	}
	var messages []string
	for i, alert := range listVal(data, "alerts") {
		if i >= 3 {
			break
		}
		messages = append(messages, strVal(alert, "message"))
	}
	section.Content = fmt.Sprintf("%.0f alerts carry into the next shift. %s",
		count, strings.Join(messages, " "))
	return section
}

func handoffFocusSection(outcomes map[string]toolOutcome) Section {
	section := Section{ID: "focus", Title: "Recommended focus", Status: StatusCompleted}

	var parts []string
	if alerts, ok := outcomes["alert_check"]; ok && alerts.Status == StatusCompleted {
		for _, alert := range listVal(dataMap(alerts.Result), "alerts") {
			if strVal(alert, "level") == "critical" {
				parts = append(parts, fmt.Sprintf("Start with %s: %s",
					strVal(alert, "asset_name"), strVal(alert, "message")))
				break
			}
		}
	}
	if downtime, ok := outcomes["downtime_analysis"]; ok && downtime.Status == StatusCompleted {
		if top := listVal(dataMap(downtime.Result), "top_reasons"); len(top) > 0 {
			parts = append(parts, fmt.Sprintf("Keep an eye on %s, the shift's top downtime cause.",
				strVal(top[0], "reason")))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "No specific focus items; run to plan.")
	}
	section.Content = strings.Join(parts, " ")
	return section
}
