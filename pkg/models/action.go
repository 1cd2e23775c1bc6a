package models

import "time"

// PriorityLevel is the urgency label attached to an action item.
type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "critical"
	PriorityHigh     PriorityLevel = "high"
	PriorityMedium   PriorityLevel = "medium"
	PriorityLow      PriorityLevel = "low"
)

// ActionCategory is the tier an action item belongs to, in strict
// priority order: safety, then oee, then financial.
type ActionCategory string

const (
	CategorySafety    ActionCategory = "safety"
	CategoryOEE       ActionCategory = "oee"
	CategoryFinancial ActionCategory = "financial"
)

// TierRank returns the absolute tier ordering: safety before oee
// before financial.
func (c ActionCategory) TierRank() int {
	switch c {
	case CategorySafety:
		return 0
	case CategoryOEE:
		return 1
	case CategoryFinancial:
		return 2
	default:
		return 3
	}
}

// EvidenceRef points into a source row backing an action item.
type EvidenceRef struct {
	SourceTable string `json:"source_table"`
	RecordID    string `json:"record_id"`
	MetricName  string `json:"metric_name"`
	MetricValue string `json:"metric_value"`
	Context     string `json:"context,omitempty"`
}

// ActionItem is one row of the daily action list. A safety-category
// item always carries PriorityCritical, and a final list holds at most
// one item per asset.
type ActionItem struct {
	ID                 string         `json:"id"`
	AssetID            string         `json:"asset_id"`
	AssetName          string         `json:"asset_name"`
	PriorityLevel      PriorityLevel  `json:"priority_level"`
	Category           ActionCategory `json:"category"`
	PrimaryMetricValue string         `json:"primary_metric_value"`
	RecommendationText string         `json:"recommendation_text"`
	EvidenceSummary    string         `json:"evidence_summary"`
	EvidenceRefs       []EvidenceRef  `json:"evidence_refs"`
	// EventTimestamp is set for safety items and orders them within
	// the tier after severity.
	EventTimestamp *time.Time `json:"event_timestamp,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CategoryCounts breaks an action list down by tier.
type CategoryCounts struct {
	Safety    int `json:"safety"`
	OEE       int `json:"oee"`
	Financial int `json:"financial"`
}

// ActionListResponse is the ranked daily action list. TotalCount is
// computed before any limit truncation, so callers always see the true
// totals.
type ActionListResponse struct {
	Actions          []ActionItem   `json:"actions"`
	ReportDate       Date           `json:"report_date"`
	TotalCount       int            `json:"total_count"`
	CountsByCategory CategoryCounts `json:"counts_by_category"`
	GeneratedAt      time.Time      `json:"generated_at"`
}
