package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

// Composite score weights. Downtime and waste enter inverted so lower
// is better.
const (
	weightOEE      = 0.40
	weightOutput   = 0.25
	weightDowntime = 0.20
	weightWaste    = 0.15
)

// winnerGap is the composite-score lead required to declare a winner.
const winnerGap = 5.0

// ComparativeAnalysisTool compares 2 to 10 subjects head to head on a
// weighted composite of OEE, output attainment, downtime, and waste.
// A subject is an asset or a whole area.
type ComparativeAnalysisTool struct {
	*Deps
}

func NewComparativeAnalysisTool(deps *Deps) *ComparativeAnalysisTool {
	return &ComparativeAnalysisTool{Deps: deps}
}

func (t *ComparativeAnalysisTool) Name() string { return "comparative_analysis" }

func (t *ComparativeAnalysisTool) Description() string {
	return "Compare two or more assets or areas over a time range and rank them on a weighted composite score."
}

func (t *ComparativeAnalysisTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "assets", Type: ArgList, Required: true,
			Description: `Asset or area names to compare; "all <pattern>" expands to every matching asset`},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
	}
}

func (t *ComparativeAnalysisTool) CitationsRequired() bool { return true }

func (t *ComparativeAnalysisTool) Run(ctx context.Context, in Input) models.ToolResult {
	tr := t.parseRange(in)

	resolved, err := t.resolveSubjects(ctx, in.StringList("assets"))
	if err != nil {
		return models.FailedToolResult(err.Error())
	}
	if len(resolved) < 2 {
		return models.FailedToolResult("Comparison needs at least two distinct subjects.")
	}
	if len(resolved) > 10 {
		return models.FailedToolResult(fmt.Sprintf("Comparison is limited to 10 subjects; %d were requested.", len(resolved)))
	}

	subjects := make([]*comparisonSubject, 0, len(resolved))
	var citations []models.Citation
	for _, subject := range resolved {
		var (
			rows      []models.DailySummary
			best      string
			bestOEE   float64
			worst     string
			worstOEE  float64
			withData  int
			sourceRes models.DataResult[models.DailySummary]
		)
		for _, asset := range subject.Assets {
			oeeRes, err := t.Gateway.GetOEE(ctx, asset.ID, tr)
			if err != nil {
				return models.FailedToolResult(msgStoreUnavailable)
			}
			sourceRes = oeeRes
			if !oeeRes.HasData() {
				continue
			}
			withData++
			rows = append(rows, oeeRes.Data...)
			agg := aggregateOEE(oeeRes.Data)
			if best == "" || agg.oee > bestOEE {
				best, bestOEE = asset.Name, agg.oee
			}
			if worst == "" || agg.oee < worstOEE {
				worst, worstOEE = asset.Name, agg.oee
			}
		}
		if withData == 0 {
			citations = append(citations, citationFromResult(sourceRes,
				fmt.Sprintf("no data for %s over %s", subject.Name, tr.Description), subject.Name))
			continue
		}
		subject.Agg = aggregateOEE(rows)
		for _, s := range rows {
			subject.DowntimeMinutes += s.DowntimeMinutes
			subject.WasteCount += s.WasteCount
		}
		subject.Best, subject.Worst = best, worst
		subjects = append(subjects, subject)
		citations = append(citations, citationFromResult(sourceRes,
			fmt.Sprintf("%s over %s: OEE %.1f%%, output %d/%d, downtime %.0f min, waste %d",
				subject.Name, tr.Description, subject.Agg.oee, subject.Agg.actualOutput,
				subject.Agg.targetOutput, subject.DowntimeMinutes, subject.WasteCount), subject.Name))
	}
	if len(subjects) < 2 {
		return models.FailedToolResult(
			fmt.Sprintf("Not enough subjects had data over %s to compare.", tr.Description))
	}

	scoreSubjects(subjects)
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Score != subjects[j].Score {
			return subjects[i].Score > subjects[j].Score
		}
		return subjects[i].ID < subjects[j].ID
	})

	items := make([]map[string]any, 0, len(subjects))
	for rank, s := range subjects {
		item := map[string]any{
			"rank":             rank + 1,
			"score":            round1(s.Score),
			"oee":              round1(s.Agg.oee),
			"output_pct":       round1(s.OutputPct()),
			"downtime_minutes": round1(s.DowntimeMinutes),
			"waste_count":      s.WasteCount,
		}
		if s.IsArea {
			item["area"] = s.Area
			item["asset_count"] = len(s.Assets)
			item["best_performer"] = s.Best
			item["worst_performer"] = s.Worst
		} else {
			item["asset_id"] = s.ID
			item["asset_name"] = s.Name
			item["area"] = s.Area
		}
		items = append(items, item)
	}

	data := map[string]any{
		"time_range": tr.Description,
		"subjects":   items,
	}
	if gap := subjects[0].Score - subjects[1].Score; gap >= winnerGap {
		data["winner"] = subjects[0].Name
		data["winner_margin"] = round1(gap)
	} else {
		data["winner"] = ""
		data["message"] = fmt.Sprintf("Too close to call: %s leads %s by only %.1f points.",
			subjects[0].Name, subjects[1].Name, gap)
	}

	citations = append(citations, calculationCitation("comparison_score",
		"composite = 0.40*OEE + 0.25*output attainment + 0.20*downtime rank + 0.15*waste rank (downtime and waste inverted, min-max scaled)"))

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

// resolveSubjects expands "all <pattern>" entries and resolves names,
// deduplicating by subject id. A name that matches no asset is tried as
// an area id; an area subject groups every asset in that area.
func (t *ComparativeAnalysisTool) resolveSubjects(ctx context.Context, names []string) ([]*comparisonSubject, error) {
	var (
		out  []*comparisonSubject
		seen = map[string]bool{}
	)
	addAsset := func(a models.Asset) {
		if !seen[a.ID] {
			seen[a.ID] = true
			out = append(out, &comparisonSubject{
				ID: a.ID, Name: a.Name, Area: a.Area, Assets: []models.Asset{a},
			})
		}
	}
	for _, raw := range names {
		name := NormalizeAssetName(raw)
		if pattern, ok := strings.CutPrefix(name, "all "); ok {
			allRes, err := t.Gateway.GetAllAssets(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s", msgStoreUnavailable)
			}
			matched := false
			for _, a := range allRes.Data {
				if strings.Contains(NormalizeAssetName(a.Name), pattern) ||
					strings.EqualFold(a.Area, pattern) {
					addAsset(a)
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("no assets match %q", raw)
			}
			continue
		}
		assetRes, err := t.Gateway.GetAssetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s", msgStoreUnavailable)
		}
		if asset, ok := assetRes.First(); ok {
			addAsset(asset)
			continue
		}
		area, err := t.resolveArea(ctx, name)
		if err != nil {
			return nil, err
		}
		if area == nil {
			return nil, fmt.Errorf("no asset or area matching %q was found", raw)
		}
		if !seen[area.ID] {
			seen[area.ID] = true
			out = append(out, area)
		}
	}
	return out, nil
}

// resolveArea builds an area subject when the name is a known area id.
// Returns nil without error when it is not.
func (t *ComparativeAnalysisTool) resolveArea(ctx context.Context, name string) (*comparisonSubject, error) {
	allRes, err := t.Gateway.GetAllAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s", msgStoreUnavailable)
	}
	var members []models.Asset
	for _, a := range allRes.Data {
		if strings.EqualFold(a.Area, name) {
			members = append(members, a)
		}
	}
	if len(members) == 0 {
		return nil, nil
	}
	area := strings.ToLower(name)
	return &comparisonSubject{
		ID: "area:" + area, Name: "area " + area, Area: area,
		IsArea: true, Assets: members,
	}, nil
}

type comparisonSubject struct {
	ID              string
	Name            string
	Area            string
	IsArea          bool
	Assets          []models.Asset
	Agg             oeeAggregate
	DowntimeMinutes float64
	WasteCount      int
	Score           float64
	Best            string
	Worst           string
}

func (s *comparisonSubject) OutputPct() float64 {
	return pctOf(float64(s.Agg.actualOutput), float64(s.Agg.targetOutput))
}

// scoreSubjects assigns the weighted composite. OEE and output
// attainment are already 0-100; downtime and waste are min-max scaled
// across the field and inverted so the cleanest subject scores 100.
func scoreSubjects(subjects []*comparisonSubject) {
	downtime := make([]float64, len(subjects))
	waste := make([]float64, len(subjects))
	for i, s := range subjects {
		downtime[i] = s.DowntimeMinutes
		waste[i] = float64(s.WasteCount)
	}
	downtimeScore := invertedMinMax(downtime)
	wasteScore := invertedMinMax(waste)

	for i, s := range subjects {
		output := s.OutputPct()
		if output > 100 {
			output = 100
		}
		s.Score = weightOEE*s.Agg.oee +
			weightOutput*output +
			weightDowntime*downtimeScore[i] +
			weightWaste*wasteScore[i]
	}
}

// invertedMinMax scales values to 0-100 with the smallest value at 100.
// A constant field scores everyone 100.
func invertedMinMax(values []float64) []float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if hi == lo {
			out[i] = 100
			continue
		}
		out[i] = (hi - v) / (hi - lo) * 100
	}
	return out
}

var _ Tool = (*ComparativeAnalysisTool)(nil)
