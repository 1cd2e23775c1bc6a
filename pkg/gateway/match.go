package gateway

import (
	"sort"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

// matchAssetByName resolves a name against a candidate set: exact
// match (case-insensitive) wins, then the best substring match.
// Returns false when nothing matches.
func matchAssetByName(assets []models.Asset, name string) (models.Asset, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return models.Asset{}, false
	}

	for _, a := range assets {
		if strings.ToLower(a.Name) == needle {
			return a, true
		}
	}

	ranked := rankSimilar(assets, needle)
	if len(ranked) == 0 {
		return models.Asset{}, false
	}
	return ranked[0], true
}

// normalizeNeedle prepares a user-supplied name for matching.
func normalizeNeedle(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// rankSimilar returns assets whose names contain the needle (or vice
// versa), ordered by closest match: earlier substring position first,
// then shorter name.
func rankSimilar(assets []models.Asset, needle string) []models.Asset {
	type scored struct {
		asset models.Asset
		pos   int
		size  int
	}

	var matches []scored
	for _, a := range assets {
		lower := strings.ToLower(a.Name)
		pos := strings.Index(lower, needle)
		if pos < 0 {
			// A query longer than the name may still contain it.
			if strings.Contains(needle, lower) {
				pos = len(lower)
			} else {
				continue
			}
		}
		matches = append(matches, scored{asset: a, pos: pos, size: len(lower)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].pos != matches[j].pos {
			return matches[i].pos < matches[j].pos
		}
		return matches[i].size < matches[j].size
	})

	out := make([]models.Asset, len(matches))
	for i, m := range matches {
		out[i] = m.asset
	}
	return out
}

// MetricValue extracts a named metric from a daily summary. The bool
// is false when the metric is absent on that row.
func MetricValue(s models.DailySummary, metric string) (float64, bool) {
	switch metric {
	case "oee":
		if s.OEEPercentage == nil {
			return 0, false
		}
		return *s.OEEPercentage, true
	case "availability":
		if s.Availability == nil {
			return 0, false
		}
		return *s.Availability, true
	case "performance":
		if s.Performance == nil {
			return 0, false
		}
		return *s.Performance, true
	case "quality":
		if s.Quality == nil {
			return 0, false
		}
		return *s.Quality, true
	case "downtime":
		return s.DowntimeMinutes, true
	case "waste":
		return float64(s.WasteCount), true
	case "output":
		return float64(s.ActualOutput), true
	case "financial_loss":
		return s.FinancialLossDollars, true
	default:
		return 0, false
	}
}

// IsInverseMetric reports whether lower values of the metric are
// better (downtime, waste, financial loss).
func IsInverseMetric(metric string) bool {
	switch metric {
	case "downtime", "waste", "financial_loss":
		return true
	default:
		return false
	}
}

// averagedMetrics lists metrics aggregated by mean rather than sum
// when collapsing multiple assets into one point per date.
func isAveragedMetric(metric string) bool {
	switch metric {
	case "oee", "availability", "performance", "quality":
		return true
	default:
		return false
	}
}

// buildTrendPoints collapses daily summaries into a metric time
// series. With perAsset=true every summary becomes its own point
// (annotated with the asset name); otherwise rows are aggregated per
// date — averaged for percentage metrics, summed for counters.
// Points are ordered by date ascending.
func buildTrendPoints(summaries []models.DailySummary, metric string, perAsset bool) []models.TrendPoint {
	if perAsset {
		points := make([]models.TrendPoint, 0, len(summaries))
		for _, s := range summaries {
			v, ok := MetricValue(s, metric)
			if !ok {
				continue
			}
			points = append(points, models.TrendPoint{
				Date:            s.ReportDate,
				Value:           v,
				DowntimeReasons: s.DowntimeReasons,
				AssetName:       s.AssetName,
			})
		}
		sortPointsByDate(points)
		return points
	}

	type bucket struct {
		sum     float64
		count   int
		reasons map[string]float64
	}
	buckets := make(map[models.Date]*bucket)
	for _, s := range summaries {
		v, ok := MetricValue(s, metric)
		if !ok {
			continue
		}
		b := buckets[s.ReportDate]
		if b == nil {
			b = &bucket{reasons: map[string]float64{}}
			buckets[s.ReportDate] = b
		}
		b.sum += v
		b.count++
		for reason, minutes := range s.DowntimeReasons {
			b.reasons[reason] += minutes
		}
	}

	points := make([]models.TrendPoint, 0, len(buckets))
	for date, b := range buckets {
		value := b.sum
		if isAveragedMetric(metric) && b.count > 0 {
			value = b.sum / float64(b.count)
		}
		reasons := b.reasons
		if len(reasons) == 0 {
			reasons = nil
		}
		points = append(points, models.TrendPoint{Date: date, Value: value, DowntimeReasons: reasons})
	}
	sortPointsByDate(points)
	return points
}

func sortPointsByDate(points []models.TrendPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}
