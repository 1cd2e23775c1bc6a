package briefing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

// downtimeMentionMinutes is the floor below which the area template
// leaves downtime unmentioned.
const downtimeMentionMinutes = 15.0

// Tool result payloads are the generic JSON maps the tools emit; the
// composers read them through these accessors and tolerate anything
// missing.

func dataMap(r models.ToolResult) map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

func subMap(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

func numVal(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func strVal(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func listVal(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]map[string]any)
	if raw != nil {
		return raw
	}
	anySlice, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(anySlice))
	for _, item := range anySlice {
		if sub, ok := item.(map[string]any); ok {
			out = append(out, sub)
		}
	}
	return out
}

// areaNarrative renders the fixed area template: output variance, then
// OEE, then safety only when events exist, then the top downtime
// reason when it cost more than the mention floor.
func areaNarrative(areaName string, outcomes map[string]toolOutcome) string {
	var parts []string

	if outcome, ok := outcomes["production_status"]; ok && outcome.Status == StatusCompleted {
		summary := subMap(dataMap(outcome.Result), "summary")
		if variance, ok := numVal(summary, "overall_variance"); ok {
			count, _ := numVal(summary, "asset_count")
			running, _ := numVal(summary, "running")
			switch {
			case count == 0:
				parts = append(parts, fmt.Sprintf("%s has no assets reporting.", areaName))
			case variance >= 0:
				parts = append(parts, fmt.Sprintf("%s is at %.1f%% above target with %.0f of %.0f assets running.",
					areaName, variance, running, count))
			default:
				parts = append(parts, fmt.Sprintf("%s is %.1f%% behind target with %.0f of %.0f assets running.",
					areaName, -variance, running, count))
			}
		} else if msg := strVal(summary, "message"); msg != "" {
			parts = append(parts, msg)
		}
	}

	if outcome, ok := outcomes["oee_query"]; ok && outcome.Status == StatusCompleted {
		data := dataMap(outcome.Result)
		if oee, ok := numVal(data, "oee"); ok {
			target, _ := numVal(data, "target_oee")
			parts = append(parts, fmt.Sprintf("OEE yesterday was %.1f%% against a %.0f%% target.", oee, target))
		}
	}

	if outcome, ok := outcomes["safety_events"]; ok && outcome.Status == StatusCompleted {
		data := dataMap(outcome.Result)
		if count, ok := numVal(data, "event_count"); ok && count > 0 {
			active, _ := numVal(data, "active_count")
			if active > 0 {
				parts = append(parts, fmt.Sprintf("%.0f safety events, %.0f unresolved.", count, active))
			} else {
				parts = append(parts, fmt.Sprintf("%.0f safety events, all resolved.", count))
			}
		}
	}

	if outcome, ok := outcomes["downtime_analysis"]; ok && outcome.Status == StatusCompleted {
		data := dataMap(outcome.Result)
		if total, ok := numVal(data, "total_minutes"); ok && total > downtimeMentionMinutes {
			if top := listVal(data, "top_reasons"); len(top) > 0 {
				minutes, _ := numVal(top[0], "minutes")
				parts = append(parts, fmt.Sprintf("Top downtime: %s, %.0f minutes.",
					strVal(top[0], "reason"), minutes))
			} else {
				parts = append(parts, fmt.Sprintf("Downtime totaled %.0f minutes.", total))
			}
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No data available for %s.", areaName)
	}
	return strings.Join(parts, " ")
}

// sectionStatusFrom derives a section's status from its branches:
// completed when any branch finished, otherwise the dominant failure
// mode.
func sectionStatusFrom(outcomes map[string]toolOutcome) (status, errMsg string) {
	completed, timedOut := 0, 0
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusCompleted:
			completed++
		case StatusTimedOut:
			timedOut++
		}
	}
	switch {
	case completed > 0:
		return StatusCompleted, ""
	case timedOut > 0:
		return StatusTimedOut, "generation timed out"
	default:
		return StatusFailed, "all data queries failed"
	}
}

func toolNames(outcomes map[string]toolOutcome) []string {
	names := make([]string, 0, len(outcomes))
	for name, outcome := range outcomes {
		if outcome.Status == StatusCompleted {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
