// Package briefing composes multi-section operational briefings under
// hard wall-clock budgets. Orchestrators fan out to the capability
// tools in parallel and assemble whatever arrived before the deadline;
// a slow or failing branch costs its own section, never the briefing.
package briefing

import (
	"time"

	"github.com/plantops/opsbrief/pkg/models"
)

// BriefingType labels what kind of briefing a record holds.
type BriefingType string

const (
	TypePlant      BriefingType = "plant"
	TypeSupervisor BriefingType = "supervisor"
	TypeEOD        BriefingType = "eod"
	TypeHandoff    BriefingType = "handoff"
)

// Section statuses. A branch that raises becomes failed, a branch the
// deadline cut off becomes timed_out.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
)

// Section is one composed briefing segment.
type Section struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Status     string            `json:"status"`
	PausePoint bool              `json:"pause_point"`
	Error      string            `json:"error,omitempty"`
	ToolsUsed  []string          `json:"tools_used,omitempty"`
	Citations  []models.Citation `json:"citations,omitempty"`
}

// Briefing is the assembled result.
type Briefing struct {
	ID                   string       `json:"id"`
	Type                 BriefingType `json:"type"`
	UserID               string       `json:"user_id"`
	Date                 models.Date  `json:"date"`
	Sections             []Section    `json:"sections"`
	CompletionPercentage float64      `json:"completion_percentage"`
	ToolFailures         []string     `json:"tool_failures"`
	// TotalDurationEstimate is the estimated read-aloud length in
	// seconds, floored at 75.
	TotalDurationEstimate int       `json:"total_duration_estimate"`
	GeneratedAt           time.Time `json:"generated_at"`
	// BackgroundContinuation is reserved for resumable generation and
	// is always false.
	BackgroundContinuation bool `json:"background_continuation"`
}

// finalize computes the derived fields from the assembled sections.
func finalize(b *Briefing) {
	completed := 0
	chars := 0
	for _, s := range b.Sections {
		if s.Status == StatusCompleted {
			completed++
		}
		chars += len(s.Content)
	}
	if len(b.Sections) > 0 {
		b.CompletionPercentage = float64(completed) / float64(len(b.Sections)) * 100
	}
	// ≈150 words per minute at 5 chars per word.
	estimate := float64(chars) / 12.5
	if estimate < 75 {
		estimate = 75
	}
	b.TotalDurationEstimate = int(estimate)
	if b.ToolFailures == nil {
		b.ToolFailures = []string{}
	}
}
