// Package gateway exposes the read-only query surface over the
// operational store. It is the only package in the core that talks to
// the store; every operation returns a models.DataResult envelope and
// is idempotent and safe to retry. Empty result sets are data, not
// errors.
package gateway

import (
	"context"
	"time"

	"github.com/plantops/opsbrief/pkg/models"
)

// SourceName identifies the operational store in result envelopes and
// citations.
const SourceName = "plant_ops"

// SafetyEventFilter scopes a safety event query. AssetID, Area, and
// Severity are optional; an empty TimeRange is invalid.
type SafetyEventFilter struct {
	AssetID         string
	Area            string
	Severity        models.Severity
	Range           models.TimeRange
	IncludeResolved bool
}

// FinancialFilter scopes a financial metrics query. AssetID and Area
// are optional and mutually exclusive; AssetID wins when both are set.
type FinancialFilter struct {
	AssetID string
	Area    string
	Range   models.TimeRange
}

// TrendFilter scopes a trend query. Metric is one of the names
// understood by MetricValue. AssetID and Area are optional.
type TrendFilter struct {
	Metric  string
	AssetID string
	Area    string
	Range   models.TimeRange
}

// Gateway is the read contract over operational entities. Errors are
// reserved for infrastructure failures (see errors.go); missing data
// yields an envelope with HasData()==false.
type Gateway interface {
	GetAsset(ctx context.Context, id string) (models.DataResult[models.Asset], error)
	GetAssetByName(ctx context.Context, name string) (models.DataResult[models.Asset], error)
	GetSimilarAssets(ctx context.Context, name string, limit int) (models.DataResult[models.Asset], error)
	GetAssetsByArea(ctx context.Context, area string) (models.DataResult[models.Asset], error)
	GetAllAssets(ctx context.Context) (models.DataResult[models.Asset], error)

	// GetOEE returns daily summaries ordered by report_date descending.
	GetOEE(ctx context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error)
	GetOEEByArea(ctx context.Context, area string, tr models.TimeRange) (models.DataResult[models.DailySummary], error)

	// GetDowntime returns summaries in range with downtime_minutes > 0.
	GetDowntime(ctx context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error)

	GetLiveSnapshot(ctx context.Context, assetID string) (models.DataResult[models.LiveSnapshot], error)
	GetLiveSnapshotsByArea(ctx context.Context, area string) (models.DataResult[models.LiveSnapshot], error)

	// GetShiftTarget returns the latest target with effective_date <= today.
	GetShiftTarget(ctx context.Context, assetID string) (models.DataResult[models.ShiftTarget], error)

	GetSafetyEvents(ctx context.Context, filter SafetyEventFilter) (models.DataResult[models.SafetyEvent], error)

	// GetFinancialMetrics joins daily summaries with cost-center rates.
	GetFinancialMetrics(ctx context.Context, filter FinancialFilter) (models.DataResult[models.FinancialRow], error)

	// GetCostOfLoss is GetFinancialMetrics scoped for ranking.
	GetCostOfLoss(ctx context.Context, tr models.TimeRange, area string) (models.DataResult[models.FinancialRow], error)

	GetTrendData(ctx context.Context, filter TrendFilter) (models.DataResult[models.TrendPoint], error)
}

// newResult wraps rows in the uniform envelope.
func newResult[T any](table, description string, rows []T) models.DataResult[T] {
	if rows == nil {
		rows = []T{}
	}
	return models.DataResult[T]{
		Data:             rows,
		SourceName:       SourceName,
		TableName:        table,
		QueryDescription: description,
		QueryTimestamp:   time.Now().UTC(),
		RowCount:         len(rows),
	}
}

// Table names of the read models.
const (
	TableAssets         = "assets"
	TableDailySummaries = "daily_summaries"
	TableLiveSnapshots  = "live_snapshots"
	TableSafetyEvents   = "safety_events"
	TableShiftTargets   = "shift_targets"
	TableCostCenters    = "cost_centers"
)
