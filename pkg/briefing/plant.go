package briefing

import (
	"context"
	"fmt"
	"strings"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// areaToolSet is the fan-out every area section runs.
func areaToolSet(areaID string) []toolCall {
	return []toolCall{
		{Name: "production_status", Input: tools.Input{"area": areaID}, Cached: true},
		{Name: "oee_query", Input: tools.Input{"area": areaID, "time_range": "yesterday"}, Cached: true},
		{Name: "downtime_analysis", Input: tools.Input{"area": areaID, "time_range": "yesterday"}, Cached: true},
		{Name: "safety_events", Input: tools.Input{"area": areaID, "time_range": "yesterday"}, Cached: true},
	}
}

var areaToolOrder = []string{"production_status", "oee_query", "downtime_analysis", "safety_events"}

// PlantBriefing composes the full morning briefing: a plant-wide
// headline followed by one section per area in the user's preferred
// order, all inside the total budget.
func (o *Orchestrator) PlantBriefing(ctx context.Context, userID string, areaPreference []string) Briefing {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Briefing.TotalTimeout.D())
	defer cancel()

	areas := o.cfg.Plant.OrderedAreas(areaPreference)
	b := Briefing{
		ID:           models.NewID("brf"),
		Type:         TypePlant,
		UserID:       userID,
		Date:         o.today(),
		GeneratedAt:  o.Now().UTC(),
		ToolFailures: []string{},
	}

	placeholders := make([]Section, len(areas)+1)
	placeholders[0] = timedOutSection("headline", "Plant headline")
	for i, area := range areas {
		placeholders[i+1] = timedOutSection(area.ID, area.Name)
	}

	outcomeSets := make([]map[string]toolOutcome, len(areas)+1)
	jobs := make([]sectionJob, 0, len(areas)+1)

	jobs = append(jobs, sectionJob{idx: 0, build: func(ctx context.Context) Section {
		outcome := o.runTool(ctx, o.cfg.Briefing.PerToolTimeout.D(),
			"plant_overview", "", tools.Input{}, true)
		outcomeSets[0] = map[string]toolOutcome{"plant_overview": outcome}
		return o.headlineSection(outcome)
	}})

	for i, area := range areas {
		idx := i + 1
		a := area
		jobs = append(jobs, sectionJob{idx: idx, build: func(ctx context.Context) Section {
			outcomes := o.fanOut(ctx, o.cfg.Briefing.AreaTimeout.D(), areaToolSet(a.ID))
			outcomeSets[idx] = outcomes
			return o.areaSection(a, outcomes)
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

// headlineSection renders the plant-wide opener and marks it as a
// pause point for interactive delivery.
func (o *Orchestrator) headlineSection(outcome toolOutcome) Section {
	section := Section{
		ID:         "headline",
		Title:      "Plant headline",
		PausePoint: true,
		Status:     outcome.Status,
	}
	switch outcome.Status {
	case StatusCompleted:
		plant := subMap(dataMap(outcome.Result), "plant")
		var parts []string
		if running, ok := numVal(plant, "running"); ok {
			count, _ := numVal(plant, "assets")
			down, _ := numVal(plant, "down")
			if down > 0 {
				parts = append(parts, fmt.Sprintf("Good morning. %.0f of %.0f assets are running, %.0f down.",
					running, count, down))
			} else {
				parts = append(parts, fmt.Sprintf("Good morning. All %.0f reporting assets are running.", count))
			}
		}
		if oee, ok := numVal(plant, "oee_yesterday"); ok {
			target, _ := numVal(plant, "target_oee")
			parts = append(parts, fmt.Sprintf("Plant OEE yesterday was %.1f%% against a %.0f%% target.", oee, target))
		}
		if open, ok := numVal(plant, "open_safety_events"); ok && open > 0 {
			parts = append(parts, fmt.Sprintf("%.0f safety events are open.", open))
		}
		if len(parts) == 0 {
			section.Content = "Good morning. Plant overview data is not available yet."
		} else {
			section.Content = strings.Join(parts, " ")
		}
		section.ToolsUsed = []string{"plant_overview"}
		section.Citations = outcome.Result.Citations
	case StatusTimedOut:
		section.Content = "This section could not be generated in time."
		section.Error = "generation timed out"
	default:
		section.Content = "The plant overview is unavailable right now."
		section.Error = outcome.Result.ErrorMessage
	}
	return section
}

// areaSection renders one area's narrative from its tool fan-out.
func (o *Orchestrator) areaSection(area config.AreaConfig, outcomes map[string]toolOutcome) Section {
	status, errMsg := sectionStatusFrom(outcomes)
	section := Section{
		ID:     area.ID,
		Title:  area.Name,
		Status: status,
		Error:  errMsg,
	}
	switch status {
	case StatusCompleted:
		section.Content = areaNarrative(area.Name, outcomes)
		section.ToolsUsed = toolNames(outcomes)
		section.Citations = mergeCitations(areaToolOrder, outcomes)
	case StatusTimedOut:
		section.Content = "This section could not be generated in time."
	default:
		section.Content = fmt.Sprintf("Data for %s is unavailable right now.", area.Name)
	}
	return section
}
