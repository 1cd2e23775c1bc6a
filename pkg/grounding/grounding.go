// Package grounding validates generated prose against the rows the
// tools actually retrieved. Every factual statement in emitted text is
// either backed by an inline citation or the text is replaced with a
// fallback.
package grounding

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/llm"
	"github.com/plantops/opsbrief/pkg/memory"
	"github.com/plantops/opsbrief/pkg/models"
)

// Source is one retrieved row offered as evidence, flattened to the
// field map the heuristics match against.
type Source struct {
	Table  string         `json:"table"`
	Fields map[string]any `json:"fields"`
}

// Validator scores claims against sources and rewrites responses with
// citations or fallbacks.
type Validator struct {
	llm llm.Client
	cfg *config.GroundingConfig

	// Now is replaceable in tests.
	Now func() time.Time
}

// NewValidator builds a validator. A nil config uses the defaults.
func NewValidator(client llm.Client, cfg *config.GroundingConfig) *Validator {
	if cfg == nil {
		cfg = config.DefaultGroundingConfig()
	}
	return &Validator{llm: client, cfg: cfg, Now: time.Now}
}

// ValidateResponse decomposes responseText into claims, grounds each
// groundable claim against the sources and memories, and returns the
// cited (or fallback) response.
func (v *Validator) ValidateResponse(ctx context.Context, responseText string, sources []Source, memories []memory.Entry) models.CitedResponse {
	claims := v.extractClaims(ctx, responseText)

	var (
		results    []models.GroundingResult
		ungrounded []string
		scoreSum   float64
		groundable int
	)
	citations := []models.Citation{}

	for _, claim := range claims {
		if !claim.RequiresGrounding {
			continue
		}
		groundable++

		start := v.Now()
		result := v.validateClaim(claim, sources, memories)
		result.ValidationTimeMs = v.Now().Sub(start).Milliseconds()
		if budget := v.cfg.ClaimBudget.D(); budget > 0 && result.ValidationTimeMs > budget.Milliseconds() {
			slog.Warn("Claim validation exceeded budget",
				"claim", truncate(claim.Text, 60),
				"elapsed_ms", result.ValidationTimeMs)
		}

		scoreSum += result.Confidence
		if result.IsGrounded {
			citations = appendCitations(citations, result.SupportingCitations)
		} else {
			ungrounded = append(ungrounded, claim.Text)
		}
		results = append(results, result)
	}

	score := 1.0
	if groundable > 0 {
		score = clamp01(scoreSum / float64(groundable))
	}

	text := v.renderText(responseText, score, results, ungrounded)

	return models.CitedResponse{
		ResponseText:     text,
		Citations:        citations,
		Claims:           claims,
		GroundingScore:   score,
		UngroundedClaims: ungrounded,
		Results:          results,
		Meta: map[string]any{
			"claim_count":      len(claims),
			"groundable_count": groundable,
		},
	}
}

// validateClaim scores one claim against every source and memory entry
// and keeps the strongest candidates.
func (v *Validator) validateClaim(claim models.Claim, sources []Source, memories []memory.Entry) models.GroundingResult {
	var candidates []models.Citation
	for _, src := range sources {
		if c, ok := scoreAgainstSource(claim, src); ok {
			candidates = append(candidates, c)
		}
	}
	for _, entry := range memories {
		if c, ok := scoreAgainstMemory(claim, entry); ok {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}

	best := 0.0
	if len(candidates) > 0 {
		best = candidates[0].Confidence
	}
	return models.GroundingResult{
		ClaimText:           claim.Text,
		IsGrounded:          best >= v.cfg.ThresholdMin,
		Confidence:          best,
		SupportingCitations: candidates,
	}
}

// renderText applies the tiered fallback policy.
func (v *Validator) renderText(responseText string, score float64, results []models.GroundingResult, ungrounded []string) string {
	switch {
	case score >= v.cfg.ThresholdMin:
		return injectCitations(responseText, results)
	case score >= v.cfg.ThresholdLow:
		return injectCitations(responseText, results) + disclaimer(ungrounded)
	default:
		return refusalMessage
	}
}

// appendCitations merges new citations, skipping duplicates of the
// same record and display tag.
func appendCitations(existing, add []models.Citation) []models.Citation {
	for _, c := range add {
		dup := false
		for _, have := range existing {
			if have.DisplayText == c.DisplayText && have.RecordID == c.RecordID && have.MemoryID == c.MemoryID {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, c)
		}
	}
	return existing
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
