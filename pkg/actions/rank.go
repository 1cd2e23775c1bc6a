package actions

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/plantops/opsbrief/pkg/models"
)

// dedupeByAsset collapses the candidate set to one item per asset: the
// item from the highest tier wins, and every losing item's evidence is
// appended so nothing the data said is lost. Within a tier the more
// urgent priority wins.
func dedupeByAsset(candidates []models.ActionItem) []models.ActionItem {
	winners := map[string]*models.ActionItem{}
	var order []string
	for i := range candidates {
		item := candidates[i]
		current, ok := winners[item.AssetID]
		if !ok {
			copied := item
			winners[item.AssetID] = &copied
			order = append(order, item.AssetID)
			continue
		}
		if beats(item, *current) {
			item.EvidenceRefs = append(item.EvidenceRefs, current.EvidenceRefs...)
			item.EvidenceSummary += " Also: " + current.EvidenceSummary
			*current = item
		} else {
			current.EvidenceRefs = append(current.EvidenceRefs, item.EvidenceRefs...)
			current.EvidenceSummary += " Also: " + item.EvidenceSummary
		}
	}
	out := make([]models.ActionItem, 0, len(order))
	for _, assetID := range order {
		out = append(out, *winners[assetID])
	}
	return out
}

// beats reports whether a should replace b as an asset's winning item.
func beats(a, b models.ActionItem) bool {
	if a.Category.TierRank() != b.Category.TierRank() {
		return a.Category.TierRank() < b.Category.TierRank()
	}
	if priorityRank(a.PriorityLevel) != priorityRank(b.PriorityLevel) {
		return priorityRank(a.PriorityLevel) < priorityRank(b.PriorityLevel)
	}
	return metricRank(a) < metricRank(b)
}

// sortActions orders the final list: tier, then priority, then metric
// severity. Safety items at the same severity sort newest event first;
// elsewhere asset name keeps the tail stable.
func sortActions(actions []models.ActionItem) {
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Category.TierRank() != b.Category.TierRank() {
			return a.Category.TierRank() < b.Category.TierRank()
		}
		if priorityRank(a.PriorityLevel) != priorityRank(b.PriorityLevel) {
			return priorityRank(a.PriorityLevel) < priorityRank(b.PriorityLevel)
		}
		if metricRank(a) != metricRank(b) {
			return metricRank(a) < metricRank(b)
		}
		if a.Category == models.CategorySafety && a.EventTimestamp != nil && b.EventTimestamp != nil &&
			!a.EventTimestamp.Equal(*b.EventTimestamp) {
			return a.EventTimestamp.After(*b.EventTimestamp)
		}
		return a.AssetName < b.AssetName
	})
}

func priorityRank(p models.PriorityLevel) int {
	switch p {
	case models.PriorityCritical:
		return 0
	case models.PriorityHigh:
		return 1
	case models.PriorityMedium:
		return 2
	case models.PriorityLow:
		return 3
	default:
		return 4
	}
}

// metricRank orders items within a tier by how bad their primary metric
// is: severity rank for safety, ascending OEE for the oee tier,
// descending loss for the financial tier. Lower ranks sort first.
func metricRank(a models.ActionItem) float64 {
	switch a.Category {
	case models.CategorySafety:
		return float64(models.Severity(a.PrimaryMetricValue).Rank())
	case models.CategoryOEE:
		return parseMetric(a.PrimaryMetricValue)
	case models.CategoryFinancial:
		return -parseMetric(a.PrimaryMetricValue)
	default:
		return 0
	}
}

func parseMetric(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Describe renders one action item as a line for briefing templates.
func Describe(a models.ActionItem) string {
	return fmt.Sprintf("[%s/%s] %s: %s", a.Category, a.PriorityLevel, a.AssetName, a.RecommendationText)
}
