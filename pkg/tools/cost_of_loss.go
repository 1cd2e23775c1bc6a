package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/plantops/opsbrief/pkg/models"
)

// CostOfLossTool ranks where the money went: loss totals broken down by
// category and by asset, with a trend against the preceding window.
type CostOfLossTool struct {
	*Deps
}

func NewCostOfLossTool(deps *Deps) *CostOfLossTool {
	return &CostOfLossTool{Deps: deps}
}

func (t *CostOfLossTool) Name() string { return "cost_of_loss" }

func (t *CostOfLossTool) Description() string {
	return "Break total loss dollars into downtime, waste, and quality categories and rank the costliest assets."
}

func (t *CostOfLossTool) ArgsSchema() []ArgField {
	return []ArgField{
		{Name: "area", Type: ArgString, Description: "Area id to scope to; omit for plant-wide"},
		{Name: "time_range", Type: ArgString, Description: "Time range description (default yesterday)"},
		{Name: "top_n", Type: ArgInt, Min: ptr(1), Max: ptr(50), Description: "Number of assets to rank (default 5)"},
	}
}

func (t *CostOfLossTool) CitationsRequired() bool { return true }

func (t *CostOfLossTool) Run(ctx context.Context, in Input) models.ToolResult {
	tr := t.parseRange(in)
	area := in.String("area", "")
	topN := in.Int("top_n", 5)

	rowsRes, err := t.Gateway.GetCostOfLoss(ctx, tr, area)
	if err != nil {
		return models.FailedToolResult(msgStoreUnavailable)
	}

	scope := "plant"
	if area != "" {
		scope = "area " + area
	}
	if !rowsRes.HasData() {
		result := models.NewToolResult(map[string]any{
			"scope":      scope,
			"time_range": tr.Description,
			"total_loss": 0.0,
			"message":    fmt.Sprintf("No loss data for %s over %s.", scope, tr.Description),
		})
		result.Citations = append(result.Citations, citationFromResult(rowsRes,
			fmt.Sprintf("no loss data for %s over %s", scope, tr.Description), ""))
		result.Metadata[models.MetaCacheTier] = models.TierDaily
		return result
	}

	breakdown := computeLossBreakdown(rowsRes.Data)

	ranked := breakdown.rankedAssets()
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	assetItems := make([]map[string]any, 0, len(ranked))
	for _, a := range ranked {
		assetItems = append(assetItems, map[string]any{
			"asset_id":   a.AssetID,
			"asset_name": a.AssetName,
			"area":       a.Area,
			"loss":       round2(a.Total),
			"percentage": round1(pctOf(a.Total, breakdown.Total)),
		})
	}

	data := map[string]any{
		"scope":      scope,
		"time_range": tr.Description,
		"total_loss": round2(breakdown.Total),
		"categories": []map[string]any{
			lossCategory("downtime", breakdown.Downtime, breakdown.Total),
			lossCategory("waste", breakdown.Waste, breakdown.Total),
			lossCategory("quality", breakdown.Quality, breakdown.Total),
		},
		"top_assets": assetItems,
	}

	citations := []models.Citation{
		citationFromResult(rowsRes,
			fmt.Sprintf("%s total loss $%.2f over %s (downtime $%.2f, waste $%.2f, quality $%.2f)",
				scope, breakdown.Total, tr.Description,
				breakdown.Downtime, breakdown.Waste, breakdown.Quality), ""),
		calculationCitation("loss_breakdown",
			"downtime and waste priced from cost-center rates; quality is the recorded loss not explained by either"),
	}

	// Trend against the preceding window of equal length.
	prev := tr.Previous()
	prevRes, err := t.Gateway.GetCostOfLoss(ctx, prev, area)
	if err == nil && prevRes.HasData() {
		prevBreakdown := computeLossBreakdown(prevRes.Data)
		delta := breakdown.Total - prevBreakdown.Total
		direction := "flat"
		switch {
		case delta > 0:
			direction = "up"
		case delta < 0:
			direction = "down"
		}
		data["trend"] = map[string]any{
			"previous_range": prev.Description,
			"previous_total": round2(prevBreakdown.Total),
			"delta":          round2(delta),
			"direction":      direction,
		}
		citations = append(citations, citationFromResult(prevRes,
			fmt.Sprintf("previous window %s total loss $%.2f", prev.Description, prevBreakdown.Total), ""))
	}

	// Area scope also reports its share of the plant total.
	if area != "" {
		plantRes, err := t.Gateway.GetCostOfLoss(ctx, tr, "")
		if err == nil && plantRes.HasData() {
			plantBreakdown := computeLossBreakdown(plantRes.Data)
			data["plant_share"] = map[string]any{
				"plant_total": round2(plantBreakdown.Total),
				"percentage":  round1(pctOf(breakdown.Total, plantBreakdown.Total)),
			}
			citations = append(citations, citationFromResult(plantRes,
				fmt.Sprintf("plant-wide total loss $%.2f over %s", plantBreakdown.Total, tr.Description), ""))
		}
	}

	result := models.NewToolResult(data)
	result.Citations = citations
	result.Metadata[models.MetaCacheTier] = models.TierDaily
	return result
}

type lossBreakdown struct {
	Downtime float64
	Waste    float64
	Quality  float64
	Total    float64
	byAsset  map[string]*assetLoss
}

type assetLoss struct {
	AssetID   string
	AssetName string
	Area      string
	Total     float64
}

// computeLossBreakdown prices each row into categories. Downtime and
// waste come from cost-center rates; whatever recorded loss neither
// explains is attributed to quality. Rows without rates contribute
// their full recorded loss to quality.
func computeLossBreakdown(rows []models.FinancialRow) lossBreakdown {
	b := lossBreakdown{byAsset: map[string]*assetLoss{}}
	for _, r := range rows {
		var downtime, waste float64
		if r.HourlyRate != nil {
			downtime = r.Summary.DowntimeMinutes * *r.HourlyRate / 60
		}
		if r.UnitCost != nil {
			waste = float64(r.Summary.WasteCount) * *r.UnitCost
		}
		quality := r.Summary.FinancialLossDollars - downtime - waste
		if quality < 0 {
			quality = 0
		}
		b.Downtime += downtime
		b.Waste += waste
		b.Quality += quality

		rowTotal := downtime + waste + quality
		al, ok := b.byAsset[r.Summary.AssetID]
		if !ok {
			al = &assetLoss{AssetID: r.Summary.AssetID, AssetName: r.AssetName, Area: r.Area}
			b.byAsset[r.Summary.AssetID] = al
		}
		al.Total += rowTotal
	}
	b.Total = b.Downtime + b.Waste + b.Quality
	return b
}

func (b lossBreakdown) rankedAssets() []*assetLoss {
	out := make([]*assetLoss, 0, len(b.byAsset))
	for _, al := range b.byAsset {
		out = append(out, al)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

func lossCategory(name string, amount, total float64) map[string]any {
	return map[string]any{
		"category":   name,
		"loss":       round2(amount),
		"percentage": round1(pctOf(amount, total)),
	}
}

var _ Tool = (*CostOfLossTool)(nil)
