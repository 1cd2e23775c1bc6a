package models

import "time"

// DataResult is the uniform read envelope returned by the data source
// gateway. Data always carries zero or more rows; single-entity
// lookups return at most one. Empty result sets are not errors.
type DataResult[T any] struct {
	Data             []T       `json:"data"`
	SourceName       string    `json:"source_name"`
	TableName        string    `json:"table_name"`
	QueryDescription string    `json:"query_description"`
	QueryTimestamp   time.Time `json:"query_timestamp"`
	RowCount         int       `json:"row_count"`
}

// HasData reports whether the result carries at least one row.
func (r DataResult[T]) HasData() bool {
	return len(r.Data) > 0
}

// First returns the first row, if any.
func (r DataResult[T]) First() (T, bool) {
	if len(r.Data) == 0 {
		var zero T
		return zero, false
	}
	return r.Data[0], true
}

// SourceType classifies where a citation's evidence came from.
type SourceType string

const (
	SourceDatabase    SourceType = "database"
	SourceMemory      SourceType = "memory"
	SourceCalculation SourceType = "calculation"
)

// Citation is a provenance record tied to a produced claim.
type Citation struct {
	SourceType  SourceType `json:"source_type"`
	SourceTable string     `json:"source_table,omitempty"`
	RecordID    string     `json:"record_id,omitempty"`
	MemoryID    string     `json:"memory_id,omitempty"`
	AssetID     string     `json:"asset_id,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Excerpt     string     `json:"excerpt"`
	Confidence  float64    `json:"confidence"`
	DisplayText string     `json:"display_text"`
	ClaimText   string     `json:"claim_text,omitempty"`
}

// ToolResult is what every capability tool returns. Tools never raise
// through their public boundary: failures set Success=false with a
// user-safe ErrorMessage and keep any citations already collected.
type ToolResult struct {
	Success      bool           `json:"success"`
	Data         any            `json:"data,omitempty"`
	Citations    []Citation     `json:"citations"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// Metadata keys shared across tools and the cache.
const (
	MetaCacheTier         = "cache_tier"
	MetaTTLSeconds        = "ttl_seconds"
	MetaCachedAt          = "cached_at"
	MetaQueryTimestamp    = "query_timestamp"
	MetaFollowUpQuestions = "follow_up_questions"
)

// NewToolResult returns a successful result with initialized metadata.
func NewToolResult(data any) ToolResult {
	return ToolResult{
		Success:   true,
		Data:      data,
		Citations: []Citation{},
		Metadata: map[string]any{
			MetaQueryTimestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// FailedToolResult returns a failed result carrying a user-safe message
// and any citations collected before the failure.
func FailedToolResult(msg string, citations ...Citation) ToolResult {
	if citations == nil {
		citations = []Citation{}
	}
	return ToolResult{
		Success:      false,
		Citations:    citations,
		ErrorMessage: msg,
		Metadata: map[string]any{
			MetaQueryTimestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
