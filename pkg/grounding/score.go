package grounding

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/plantops/opsbrief/pkg/memory"
	"github.com/plantops/opsbrief/pkg/models"
)

// Heuristic weights for claim-to-evidence matching.
const (
	entityExactWeight   = 0.4
	entityPartialWeight = 0.3
	numericWeight       = 0.4
	temporalWeight      = 0.2

	memoryEntityWeight  = 0.3
	memoryMetricWeight  = 0.2
	memoryOverlapWeight = 0.3

	// Numeric tolerance: 0.5 absolute or 1% relative.
	numericAbsTolerance = 0.5
	numericRelTolerance = 0.01
)

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// scoreAgainstSource accumulates evidence weight for a claim against
// one retrieved row. ok is false when nothing matched.
func scoreAgainstSource(claim models.Claim, src Source) (models.Citation, bool) {
	conf := 0.0

	for _, mention := range claim.EntityMentions {
		conf += bestEntityMatch(mention, src.Fields)
	}

	if numbers := claimNumbers(claim); len(numbers) > 0 && anyNumericMatch(numbers, src.Fields) {
		conf += numericWeight
	}

	srcDates := fieldDates(src.Fields)
	if claim.TemporalReference != "" && temporalAligned(claim.TemporalReference, srcDates) {
		conf += temporalWeight
	}

	if conf <= 0 {
		return models.Citation{}, false
	}
	if conf > 1 {
		conf = 1
	}

	assetName, _ := src.Fields["asset_name"].(string)
	date := ""
	if len(srcDates) > 0 {
		date = srcDates[0]
	}
	var ts *time.Time
	if date != "" {
		if d, err := models.ParseDate(date); err == nil {
			t := d.Time(time.UTC)
			ts = &t
		}
	}

	return models.Citation{
		SourceType:  models.SourceDatabase,
		SourceTable: src.Table,
		RecordID:    stringField(src.Fields, "id"),
		AssetID:     stringField(src.Fields, "asset_id"),
		Timestamp:   ts,
		Excerpt:     sourceExcerpt(src, assetName, date),
		Confidence:  conf,
		DisplayText: models.DatabaseCitationTag(src.Table, date, assetName),
		ClaimText:   claim.Text,
	}, true
}

// scoreAgainstMemory accumulates evidence weight for a claim against
// one memory entry.
func scoreAgainstMemory(claim models.Claim, entry memory.Entry) (models.Citation, bool) {
	content := strings.ToLower(entry.Content)
	conf := 0.0

	for _, mention := range claim.EntityMentions {
		if mention != "" && strings.Contains(content, strings.ToLower(mention)) {
			conf += memoryEntityWeight
			break
		}
	}
	for _, metric := range claim.MetricMentions {
		if metric != "" && strings.Contains(content, strings.ToLower(metric)) {
			conf += memoryMetricWeight
		}
	}
	conf += overlapFraction(wordSet(claim.Text), wordSet(entry.Content)) * memoryOverlapWeight

	if conf <= 0 {
		return models.Citation{}, false
	}
	if conf > 1 {
		conf = 1
	}

	return models.Citation{
		SourceType:  models.SourceMemory,
		MemoryID:    entry.ID,
		Excerpt:     truncate(entry.Content, 100),
		Confidence:  conf,
		DisplayText: models.MemoryCitationTag(entry.ID),
		ClaimText:   claim.Text,
	}, true
}

// bestEntityMatch returns the strongest string-field match for one
// entity mention: exact beats substring, nothing scores zero.
func bestEntityMatch(mention string, fields map[string]any) float64 {
	needle := strings.ToLower(strings.TrimSpace(mention))
	if needle == "" {
		return 0
	}
	best := 0.0
	for _, v := range fields {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		hay := strings.ToLower(s)
		switch {
		case hay == needle:
			return entityExactWeight
		case strings.Contains(hay, needle) || strings.Contains(needle, hay):
			if best < entityPartialWeight {
				best = entityPartialWeight
			}
		}
	}
	return best
}

// claimNumbers gathers every number mentioned by the claim.
func claimNumbers(claim models.Claim) []float64 {
	tokens := append([]string{}, claim.MetricMentions...)
	tokens = append(tokens, claim.Text)
	var numbers []float64
	for _, tok := range tokens {
		for _, m := range numberRe.FindAllString(tok, -1) {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				numbers = append(numbers, f)
			}
		}
	}
	return numbers
}

// numberTokens returns the raw numeric substrings of a text, used to
// seed the extraction fallback.
func numberTokens(text string) []string {
	return numberRe.FindAllString(text, -1)
}

func anyNumericMatch(numbers []float64, fields map[string]any) bool {
	for _, v := range fields {
		fv, ok := numericValue(v)
		if !ok {
			continue
		}
		for _, n := range numbers {
			if numbersClose(n, fv) {
				return true
			}
		}
	}
	return false
}

func numbersClose(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= numericAbsTolerance {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return scale > 0 && diff/scale <= numericRelTolerance
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fieldDates collects YYYY-MM-DD strings found in date-like fields.
func fieldDates(fields map[string]any) []string {
	var dates []string
	for k, v := range fields {
		key := strings.ToLower(k)
		if !strings.Contains(key, "date") && !strings.Contains(key, "timestamp") && !strings.Contains(key, "_at") {
			continue
		}
		switch t := v.(type) {
		case string:
			if len(t) >= 10 {
				if _, err := models.ParseDate(t[:10]); err == nil {
					dates = append(dates, t[:10])
				}
			}
		case time.Time:
			dates = append(dates, t.UTC().Format("2006-01-02"))
		case models.Date:
			dates = append(dates, t.String())
		}
	}
	return dates
}

// temporalAligned reports whether the claim's temporal reference
// covers any of the source dates. Only explicit dates and the
// recognized relative forms count; an unrecognized reference never
// earns the temporal weight.
func temporalAligned(reference string, srcDates []string) bool {
	if len(srcDates) == 0 {
		return false
	}
	ref := strings.ToLower(strings.TrimSpace(reference))

	for _, d := range srcDates {
		if strings.Contains(ref, d) {
			return true
		}
	}

	switch {
	case ref == "today", ref == "yesterday", ref == "this week",
		strings.HasPrefix(ref, "last "):
		r := models.ParseTimeRange(ref, time.Now().UTC(), time.UTC)
		for _, ds := range srcDates {
			d, err := models.ParseDate(ds)
			if err != nil {
				continue
			}
			if !d.Before(r.Start) && !d.After(r.End) {
				return true
			}
		}
	}
	return false
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func sourceExcerpt(src Source, assetName, date string) string {
	switch {
	case assetName != "" && date != "":
		return fmt.Sprintf("%s row for %s on %s", src.Table, assetName, date)
	case assetName != "":
		return fmt.Sprintf("%s row for %s", src.Table, assetName)
	case date != "":
		return fmt.Sprintf("%s row on %s", src.Table, date)
	default:
		return src.Table + " row"
	}
}

// wordSet lowercases and splits text into its distinct words.
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()%")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

// overlapFraction is the share of claim words present in the evidence.
func overlapFraction(claim, evidence map[string]bool) float64 {
	if len(claim) == 0 {
		return 0
	}
	hits := 0
	for w := range claim {
		if evidence[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(claim))
}
