package grounding

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

const extractionSystem = `You decompose a plant operations answer into discrete claims.
Respond with a JSON array only, no prose and no code fences. Each element:
{"text": "<the claim verbatim>",
 "claim_type": "factual" | "recommendation" | "inference" | "historical",
 "entity_mentions": ["<asset or area names mentioned>"],
 "metric_mentions": ["<numbers or metric phrases mentioned>"],
 "temporal_reference": "<date or period mentioned, empty if none>"}`

// fallbackExcerptLen bounds the single-claim fallback when extraction
// fails.
const fallbackExcerptLen = 200

type claimPayload struct {
	Text              string   `json:"text"`
	ClaimType         string   `json:"claim_type"`
	EntityMentions    []string `json:"entity_mentions"`
	MetricMentions    []string `json:"metric_mentions"`
	TemporalReference string   `json:"temporal_reference"`
}

// extractClaims asks the model to decompose the response. Any failure,
// including unparseable output, degrades to one factual claim covering
// the start of the response, so validation still runs.
func (v *Validator) extractClaims(ctx context.Context, responseText string) []models.Claim {
	if v.llm == nil {
		return []models.Claim{fallbackClaim(responseText)}
	}

	raw, err := v.llm.Complete(ctx, extractionSystem, responseText)
	if err != nil {
		slog.Warn("Claim extraction failed, falling back to whole-response claim", "error", err)
		return []models.Claim{fallbackClaim(responseText)}
	}

	payloads, err := parseClaimArray(raw)
	if err != nil || len(payloads) == 0 {
		slog.Warn("Claim extraction returned unparseable output", "error", err)
		return []models.Claim{fallbackClaim(responseText)}
	}

	claims := make([]models.Claim, 0, len(payloads))
	for _, p := range payloads {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		ct := models.ClaimType(p.ClaimType)
		switch ct {
		case models.ClaimFactual, models.ClaimRecommendation, models.ClaimInference, models.ClaimHistorical:
		default:
			ct = models.ClaimFactual
		}
		claims = append(claims, models.Claim{
			Text:              p.Text,
			Type:              ct,
			RequiresGrounding: ct.RequiresGrounding(),
			EntityMentions:    p.EntityMentions,
			MetricMentions:    p.MetricMentions,
			TemporalReference: p.TemporalReference,
		})
	}
	if len(claims) == 0 {
		return []models.Claim{fallbackClaim(responseText)}
	}
	return claims
}

// parseClaimArray tolerates code fences and surrounding prose around
// the JSON array.
func parseClaimArray(raw string) ([]claimPayload, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	var payloads []claimPayload
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

func fallbackClaim(responseText string) models.Claim {
	excerpt := strings.TrimSpace(responseText)
	if len(excerpt) > fallbackExcerptLen {
		excerpt = excerpt[:fallbackExcerptLen]
	}
	return models.Claim{
		Text:              excerpt,
		Type:              models.ClaimFactual,
		RequiresGrounding: true,
		MetricMentions:    numberTokens(excerpt),
	}
}
