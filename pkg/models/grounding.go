package models

// ClaimType classifies a claim extracted from generated prose.
type ClaimType string

const (
	ClaimFactual        ClaimType = "factual"
	ClaimRecommendation ClaimType = "recommendation"
	ClaimInference      ClaimType = "inference"
	ClaimHistorical     ClaimType = "historical"
)

// RequiresGrounding reports whether claims of this type must be backed
// by evidence. Recommendations and inferences are the author's own.
func (t ClaimType) RequiresGrounding() bool {
	return t == ClaimFactual || t == ClaimHistorical
}

// Claim is one verifiable statement decomposed from a response.
type Claim struct {
	Text              string    `json:"text"`
	Type              ClaimType `json:"claim_type"`
	RequiresGrounding bool      `json:"requires_grounding"`
	EntityMentions    []string  `json:"entity_mentions"`
	MetricMentions    []string  `json:"metric_mentions"`
	TemporalReference string    `json:"temporal_reference,omitempty"`
}

// GroundingResult is the per-claim validation outcome.
type GroundingResult struct {
	ClaimText           string     `json:"claim_text"`
	IsGrounded          bool       `json:"is_grounded"`
	Confidence          float64    `json:"confidence"`
	SupportingCitations []Citation `json:"supporting_citations"`
	FallbackText        string     `json:"fallback_text,omitempty"`
	ValidationTimeMs    int64      `json:"validation_time_ms"`
}

// CitedResponse is the final grounded response: the (possibly
// rewritten) text with inline citation tags, the full citation set,
// and the per-claim results behind the overall score.
type CitedResponse struct {
	ResponseText     string            `json:"response_text"`
	Citations        []Citation        `json:"citations"`
	Claims           []Claim           `json:"claims"`
	GroundingScore   float64           `json:"grounding_score"`
	UngroundedClaims []string          `json:"ungrounded_claims"`
	Results          []GroundingResult `json:"results,omitempty"`
	Meta             map[string]any    `json:"meta,omitempty"`
}
