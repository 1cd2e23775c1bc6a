package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// SupervisorBriefing composes a briefing restricted to the caller's
// assigned assets. There is no headline, only areas that intersect the
// assignment appear, and tool results are never served from the cache
// so assignment changes reflect immediately.
func (o *Orchestrator) SupervisorBriefing(ctx context.Context, userID string, assignedAssets []string) Briefing {
	b := Briefing{
		ID:           models.NewID("brf"),
		Type:         TypeSupervisor,
		UserID:       userID,
		Date:         o.today(),
		GeneratedAt:  o.Now().UTC(),
		ToolFailures: []string{},
	}

	assigned := assignmentSet(assignedAssets)
	if len(assigned) == 0 {
		b.Sections = []Section{{
			ID:      "error",
			Title:   "No Assets Assigned",
			Content: "No assets assigned — contact your administrator",
			Status:  StatusFailed,
			Error:   "empty assignment",
		}}
		b.CompletionPercentage = 0
		b.TotalDurationEstimate = 75
		if o.store != nil {
			o.store.Save(b)
		}
		return b
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Briefing.TotalTimeout.D())
	defer cancel()

	var areas []config.AreaConfig
	for _, area := range o.cfg.Plant.Areas {
		if intersects(area, assigned) {
			areas = append(areas, area)
		}
	}

	placeholders := make([]Section, len(areas))
	for i, area := range areas {
		placeholders[i] = timedOutSection(area.ID, area.Name)
	}

	outcomeSets := make([]map[string]toolOutcome, len(areas))
	jobs := make([]sectionJob, 0, len(areas))
	for i, area := range areas {
		idx := i
		a := area
		jobs = append(jobs, sectionJob{idx: idx, build: func(ctx context.Context) Section {
			calls := areaToolSet(a.ID)
			for j := range calls {
				calls[j].Cached = false
			}
			outcomes := o.fanOut(ctx, o.cfg.Briefing.AreaTimeout.D(), calls)
			outcomeSets[idx] = outcomes
			return o.supervisorAreaSection(a, assigned, outcomes)
		}})
	}

	b.Sections = o.runSections(ctx, jobs, placeholders)
	b.ToolFailures = collectFailures(outcomeSets...)
	finalize(&b)

	if o.store != nil {
		o.store.Save(b)
	}
	return b
}

// supervisorAreaSection renders an area narrative covering only the
// assigned assets.
func (o *Orchestrator) supervisorAreaSection(area config.AreaConfig, assigned map[string]bool, outcomes map[string]toolOutcome) Section {
	status, errMsg := sectionStatusFrom(outcomes)
	section := Section{
		ID:     area.ID,
		Title:  area.Name,
		Status: status,
		Error:  errMsg,
	}
	switch status {
	case StatusCompleted:
		section.Content = supervisorNarrative(area.Name, assigned, outcomes)
		section.ToolsUsed = toolNames(outcomes)
		section.Citations = mergeCitations(areaToolOrder, outcomes)
	case StatusTimedOut:
		section.Content = "This section could not be generated in time."
	default:
		section.Content = fmt.Sprintf("Data for %s is unavailable right now.", area.Name)
	}
	return section
}

// supervisorNarrative follows the area template but only counts the
// assigned assets.
func supervisorNarrative(areaName string, assigned map[string]bool, outcomes map[string]toolOutcome) string {
	var parts []string

	if outcome, ok := outcomes["production_status"]; ok && outcome.Status == StatusCompleted {
		entries := listVal(dataMap(outcome.Result), "assets")
		var running, down, total int
		var out, target float64
		for _, entry := range entries {
			if !assigned[normalizeName(strVal(entry, "asset_name"))] {
				continue
			}
			total++
			switch strVal(entry, "status") {
			case string(models.StatusDown):
				down++
			case string(models.StatusIdle), string(models.StatusUnknown), "":
			default:
				running++
			}
			if v, ok := numVal(entry, "current_output"); ok {
				out += v
			}
			if v, ok := numVal(entry, "target_output"); ok {
				target += v
			}
		}
		if total > 0 {
			line := fmt.Sprintf("Your %s assets: %d of %d running", areaName, running, total)
			if down > 0 {
				line += fmt.Sprintf(", %d down", down)
			}
			if target > 0 {
				line += fmt.Sprintf("; output %.0f of %.0f units", out, target)
			}
			parts = append(parts, line+".")
		}
	}

	if outcome, ok := outcomes["oee_query"]; ok && outcome.Status == StatusCompleted {
		for _, entry := range listVal(dataMap(outcome.Result), "by_asset") {
			if !assigned[normalizeName(strVal(entry, "asset_name"))] {
				continue
			}
			if oee, ok := numVal(entry, "oee"); ok {
				parts = append(parts, fmt.Sprintf("%s OEE yesterday was %.1f%%.",
					strVal(entry, "asset_name"), oee))
			}
		}
	}

	if outcome, ok := outcomes["safety_events"]; ok && outcome.Status == StatusCompleted {
		count := 0
		for _, event := range listVal(dataMap(outcome.Result), "events") {
			if assigned[normalizeName(strVal(event, "asset_name"))] {
				count++
			}
		}
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%d safety events on your assets.", count))
		}
	}

	if outcome, ok := outcomes["downtime_analysis"]; ok && outcome.Status == StatusCompleted {
		for _, entry := range listVal(dataMap(outcome.Result), "by_asset") {
			if !assigned[normalizeName(strVal(entry, "asset_name"))] {
				continue
			}
			if minutes, ok := numVal(entry, "minutes"); ok && minutes > downtimeMentionMinutes {
				parts = append(parts, fmt.Sprintf("%s lost %.0f minutes to downtime.",
					strVal(entry, "asset_name"), minutes))
			}
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No data for your assets in %s.", areaName)
	}
	return strings.Join(parts, " ")
}

func assignmentSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if n := normalizeName(name); n != "" {
			set[n] = true
		}
	}
	return set
}

func intersects(area config.AreaConfig, assigned map[string]bool) bool {
	for _, name := range area.AssetNames {
		if assigned[normalizeName(name)] {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return tools.NormalizeAssetName(name)
}
