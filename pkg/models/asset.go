// Package models holds the logical read models, result envelopes, and
// shared value types used across the query and briefing engine.
// Persistence is external; all identifiers are opaque stable strings.
package models

import "time"

// Asset identifies a production resource. Assets are created and mutated
// only by external ETL; within a query they are immutable.
type Asset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SourceID     string `json:"source_id"`
	Area         string `json:"area"`
	CostCenterID string `json:"cost_center_id,omitempty"`
}

// DailySummary is the per-asset per-date aggregated performance row.
// One row exists per (asset_id, report_date).
type DailySummary struct {
	ID                   string             `json:"id"`
	AssetID              string             `json:"asset_id"`
	AssetName            string             `json:"asset_name,omitempty"`
	ReportDate           Date               `json:"report_date"`
	OEEPercentage        *float64           `json:"oee_percentage,omitempty"`
	Availability         *float64           `json:"availability,omitempty"`
	Performance          *float64           `json:"performance,omitempty"`
	Quality              *float64           `json:"quality,omitempty"`
	ActualOutput         int                `json:"actual_output"`
	TargetOutput         int                `json:"target_output"`
	DowntimeMinutes      float64            `json:"downtime_minutes"`
	WasteCount           int                `json:"waste_count"`
	FinancialLossDollars float64            `json:"financial_loss_dollars"`
	DowntimeReasons      map[string]float64 `json:"downtime_reasons,omitempty"`
}

// SnapshotStatus is the derived production state of a live snapshot.
type SnapshotStatus string

const (
	StatusRunning  SnapshotStatus = "running"
	StatusAhead    SnapshotStatus = "ahead"
	StatusBehind   SnapshotStatus = "behind"
	StatusOnTarget SnapshotStatus = "on_target"
	StatusIdle     SnapshotStatus = "idle"
	StatusDown     SnapshotStatus = "down"
	StatusUnknown  SnapshotStatus = "unknown"
)

// StaleSnapshotAge is the age beyond which a live snapshot no longer
// reflects current production.
const StaleSnapshotAge = 30 * time.Minute

// LiveSnapshot is the most recent production sample for an asset.
type LiveSnapshot struct {
	AssetID           string         `json:"asset_id"`
	AssetName         string         `json:"asset_name,omitempty"`
	SnapshotTimestamp time.Time      `json:"snapshot_timestamp"`
	CurrentOutput     int            `json:"current_output"`
	TargetOutput      int            `json:"target_output"`
	OutputVariance    float64        `json:"output_variance"`
	Status            SnapshotStatus `json:"status"`
}

// IsStale reports whether the snapshot is older than StaleSnapshotAge
// relative to now.
func (s LiveSnapshot) IsStale(now time.Time) bool {
	return now.Sub(s.SnapshotTimestamp) > StaleSnapshotAge
}

// Severity classifies a safety event.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns the ordering rank for a severity: lower ranks sort first.
// Unknown severities rank last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	default:
		return 5
	}
}

// SafetyEvent is an operational safety incident. An event is active
// iff IsResolved is false.
type SafetyEvent struct {
	ID             string     `json:"id"`
	AssetID        string     `json:"asset_id"`
	AssetName      string     `json:"asset_name,omitempty"`
	EventTimestamp time.Time  `json:"event_timestamp"`
	ReasonCode     string     `json:"reason_code"`
	Severity       Severity   `json:"severity"`
	Description    string     `json:"description"`
	IsResolved     bool       `json:"is_resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// ShiftTarget is the effective production target for an asset. The
// applicable target is the latest with EffectiveDate <= today.
type ShiftTarget struct {
	AssetID       string `json:"asset_id"`
	TargetOutput  int    `json:"target_output"`
	Shift         string `json:"shift"`
	EffectiveDate Date   `json:"effective_date"`
}

// CostCenter carries the financial rates for the assets that reference
// it. Absence of a cost center means financial calculations are not
// possible for those assets.
type CostCenter struct {
	ID                 string  `json:"id"`
	StandardHourlyRate float64 `json:"standard_hourly_rate"`
	CostPerUnit        float64 `json:"cost_per_unit"`
}

// FinancialRow joins a daily summary with its asset's cost-center
// rates. Rates are nil when the asset has no cost center configured.
type FinancialRow struct {
	Summary    DailySummary `json:"summary"`
	AssetName  string       `json:"asset_name"`
	Area       string       `json:"area"`
	HourlyRate *float64     `json:"hourly_rate,omitempty"`
	UnitCost   *float64     `json:"unit_cost,omitempty"`
}

// TrendPoint is one sample of a metric time series.
type TrendPoint struct {
	Date            Date               `json:"date"`
	Value           float64            `json:"value"`
	DowntimeReasons map[string]float64 `json:"downtime_reasons,omitempty"`
	AssetName       string             `json:"asset_name,omitempty"`
}
