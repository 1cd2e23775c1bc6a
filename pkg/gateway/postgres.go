package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/opsbrief/pkg/models"
)

// PostgresGateway implements Gateway over a pgx connection pool. All
// SQL in the core lives here; every statement is parameterized and
// read-only.
type PostgresGateway struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresGateway creates a gateway over an existing pool. loc is
// the plant-local zone used to resolve "today" for shift targets.
func NewPostgresGateway(pool *pgxpool.Pool, loc *time.Location) (*PostgresGateway, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil connection pool", ErrNotConfigured)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresGateway{pool: pool, loc: loc}, nil
}

const assetColumns = `a.id, a.name, a.source_id, a.area, COALESCE(a.cost_center_id, '')`

func scanAssets(rows pgx.Rows) ([]models.Asset, error) {
	defer rows.Close()
	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.SourceID, &a.Area, &a.CostCenterID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) GetAsset(ctx context.Context, id string) (models.DataResult[models.Asset], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.id = $1`, id)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_asset", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_asset", err)
	}
	return newResult(TableAssets, "asset by id "+id, assets), nil
}

func (g *PostgresGateway) GetAllAssets(ctx context.Context) (models.DataResult[models.Asset], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets a ORDER BY a.area, a.name`)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_all_assets", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_all_assets", err)
	}
	return newResult(TableAssets, "all assets", assets), nil
}

func (g *PostgresGateway) GetAssetsByArea(ctx context.Context, area string) (models.DataResult[models.Asset], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE LOWER(a.area) = LOWER($1) ORDER BY a.name`, area)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_assets_by_area", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return models.DataResult[models.Asset]{}, queryError("get_assets_by_area", err)
	}
	return newResult(TableAssets, "assets in area "+area, assets), nil
}

// GetAssetByName resolves fuzzily: exact (case-insensitive) first,
// then best substring match. The catalog is small, so matching runs
// in Go over the full set rather than in SQL.
func (g *PostgresGateway) GetAssetByName(ctx context.Context, name string) (models.DataResult[models.Asset], error) {
	all, err := g.GetAllAssets(ctx)
	if err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	var hits []models.Asset
	if asset, ok := matchAssetByName(all.Data, name); ok {
		hits = []models.Asset{asset}
	}
	return newResult(TableAssets, "asset by name "+name, hits), nil
}

func (g *PostgresGateway) GetSimilarAssets(ctx context.Context, name string, limit int) (models.DataResult[models.Asset], error) {
	all, err := g.GetAllAssets(ctx)
	if err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	ranked := rankSimilar(all.Data, normalizeNeedle(name))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return newResult(TableAssets, "assets similar to "+name, ranked), nil
}

const summaryColumns = `s.id, s.asset_id, a.name, s.report_date,
	s.oee_percentage, s.availability, s.performance, s.quality,
	s.actual_output, s.target_output, s.downtime_minutes, s.waste_count,
	s.financial_loss_dollars, s.downtime_reasons`

func scanSummaries(rows pgx.Rows) ([]models.DailySummary, error) {
	defer rows.Close()
	var out []models.DailySummary
	for rows.Next() {
		var s models.DailySummary
		var reportDate time.Time
		if err := rows.Scan(&s.ID, &s.AssetID, &s.AssetName, &reportDate,
			&s.OEEPercentage, &s.Availability, &s.Performance, &s.Quality,
			&s.ActualOutput, &s.TargetOutput, &s.DowntimeMinutes, &s.WasteCount,
			&s.FinancialLossDollars, &s.DowntimeReasons); err != nil {
			return nil, err
		}
		s.ReportDate = models.DateOf(reportDate, time.UTC)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) GetOEE(ctx context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM daily_summaries s JOIN assets a ON a.id = s.asset_id
		 WHERE s.asset_id = $1 AND s.report_date BETWEEN $2 AND $3
		 ORDER BY s.report_date DESC`,
		assetID, tr.Start.String(), tr.End.String())
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_oee", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_oee", err)
	}
	return newResult(TableDailySummaries,
		fmt.Sprintf("OEE for asset %s, %s", assetID, tr.Description), summaries), nil
}

func (g *PostgresGateway) GetOEEByArea(ctx context.Context, area string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM daily_summaries s JOIN assets a ON a.id = s.asset_id
		 WHERE LOWER(a.area) = LOWER($1) AND s.report_date BETWEEN $2 AND $3
		 ORDER BY s.report_date DESC`,
		area, tr.Start.String(), tr.End.String())
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_oee_by_area", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_oee_by_area", err)
	}
	return newResult(TableDailySummaries,
		fmt.Sprintf("OEE for area %s, %s", area, tr.Description), summaries), nil
}

func (g *PostgresGateway) GetDowntime(ctx context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM daily_summaries s JOIN assets a ON a.id = s.asset_id
		 WHERE s.asset_id = $1 AND s.report_date BETWEEN $2 AND $3
		   AND s.downtime_minutes > 0
		 ORDER BY s.report_date DESC`,
		assetID, tr.Start.String(), tr.End.String())
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_downtime", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return models.DataResult[models.DailySummary]{}, queryError("get_downtime", err)
	}
	return newResult(TableDailySummaries,
		fmt.Sprintf("downtime for asset %s, %s", assetID, tr.Description), summaries), nil
}

const snapshotColumns = `l.asset_id, a.name, l.snapshot_timestamp,
	l.current_output, l.target_output, l.output_variance, l.status`

func scanSnapshots(rows pgx.Rows) ([]models.LiveSnapshot, error) {
	defer rows.Close()
	var out []models.LiveSnapshot
	for rows.Next() {
		var s models.LiveSnapshot
		var status string
		if err := rows.Scan(&s.AssetID, &s.AssetName, &s.SnapshotTimestamp,
			&s.CurrentOutput, &s.TargetOutput, &s.OutputVariance, &status); err != nil {
			return nil, err
		}
		s.Status = models.SnapshotStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) GetLiveSnapshot(ctx context.Context, assetID string) (models.DataResult[models.LiveSnapshot], error) {
	rows, err := g.pool.Query(ctx,
		`SELECT `+snapshotColumns+`
		 FROM live_snapshots l JOIN assets a ON a.id = l.asset_id
		 WHERE l.asset_id = $1
		 ORDER BY l.snapshot_timestamp DESC LIMIT 1`, assetID)
	if err != nil {
		return models.DataResult[models.LiveSnapshot]{}, queryError("get_live_snapshot", err)
	}
	snaps, err := scanSnapshots(rows)
	if err != nil {
		return models.DataResult[models.LiveSnapshot]{}, queryError("get_live_snapshot", err)
	}
	return newResult(TableLiveSnapshots, "live snapshot for asset "+assetID, snaps), nil
}

// GetLiveSnapshotsByArea returns the latest snapshot per asset. An
// empty area means the whole plant.
func (g *PostgresGateway) GetLiveSnapshotsByArea(ctx context.Context, area string) (models.DataResult[models.LiveSnapshot], error) {
	query := `SELECT DISTINCT ON (l.asset_id) ` + snapshotColumns + `
		 FROM live_snapshots l JOIN assets a ON a.id = l.asset_id`
	var args []any
	description := "live snapshots for the plant"
	if area != "" {
		query += ` WHERE LOWER(a.area) = LOWER($1)`
		args = append(args, area)
		description = "live snapshots for area " + area
	}
	query += ` ORDER BY l.asset_id, l.snapshot_timestamp DESC`

	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return models.DataResult[models.LiveSnapshot]{}, queryError("get_live_snapshots_by_area", err)
	}
	snaps, err := scanSnapshots(rows)
	if err != nil {
		return models.DataResult[models.LiveSnapshot]{}, queryError("get_live_snapshots_by_area", err)
	}
	return newResult(TableLiveSnapshots, description, snaps), nil
}

func (g *PostgresGateway) GetShiftTarget(ctx context.Context, assetID string) (models.DataResult[models.ShiftTarget], error) {
	today := models.DateOf(time.Now(), g.loc)
	rows, err := g.pool.Query(ctx,
		`SELECT t.asset_id, t.target_output, t.shift, t.effective_date
		 FROM shift_targets t
		 WHERE t.asset_id = $1 AND t.effective_date <= $2
		 ORDER BY t.effective_date DESC LIMIT 1`,
		assetID, today.String())
	if err != nil {
		return models.DataResult[models.ShiftTarget]{}, queryError("get_shift_target", err)
	}
	defer rows.Close()

	var targets []models.ShiftTarget
	for rows.Next() {
		var t models.ShiftTarget
		var effective time.Time
		if err := rows.Scan(&t.AssetID, &t.TargetOutput, &t.Shift, &effective); err != nil {
			return models.DataResult[models.ShiftTarget]{}, queryError("get_shift_target", err)
		}
		t.EffectiveDate = models.DateOf(effective, time.UTC)
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return models.DataResult[models.ShiftTarget]{}, queryError("get_shift_target", err)
	}
	return newResult(TableShiftTargets, "shift target for asset "+assetID, targets), nil
}

func (g *PostgresGateway) GetSafetyEvents(ctx context.Context, filter SafetyEventFilter) (models.DataResult[models.SafetyEvent], error) {
	query := `SELECT e.id, e.asset_id, a.name, e.event_timestamp, e.reason_code,
		e.severity, e.description, e.is_resolved, e.resolved_at
		FROM safety_events e JOIN assets a ON a.id = e.asset_id
		WHERE e.event_timestamp >= $1 AND e.event_timestamp < $2`
	args := []any{
		filter.Range.Start.Time(g.loc),
		filter.Range.End.AddDays(1).Time(g.loc),
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		query += fmt.Sprintf(" AND e.asset_id = $%d", len(args))
	}
	if filter.Area != "" {
		args = append(args, filter.Area)
		query += fmt.Sprintf(" AND LOWER(a.area) = LOWER($%d)", len(args))
	}
	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		query += fmt.Sprintf(" AND e.severity = $%d", len(args))
	}
	if !filter.IncludeResolved {
		query += " AND e.is_resolved = FALSE"
	}
	query += " ORDER BY e.event_timestamp DESC"

	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return models.DataResult[models.SafetyEvent]{}, queryError("get_safety_events", err)
	}
	defer rows.Close()

	var events []models.SafetyEvent
	for rows.Next() {
		var e models.SafetyEvent
		var severity string
		if err := rows.Scan(&e.ID, &e.AssetID, &e.AssetName, &e.EventTimestamp,
			&e.ReasonCode, &severity, &e.Description, &e.IsResolved, &e.ResolvedAt); err != nil {
			return models.DataResult[models.SafetyEvent]{}, queryError("get_safety_events", err)
		}
		e.Severity = models.Severity(severity)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return models.DataResult[models.SafetyEvent]{}, queryError("get_safety_events", err)
	}
	return newResult(TableSafetyEvents,
		"safety events "+filter.Range.Description, events), nil
}

const financialQuery = `SELECT ` + summaryColumns + `, a.name, a.area,
	c.standard_hourly_rate, c.cost_per_unit
	FROM daily_summaries s
	JOIN assets a ON a.id = s.asset_id
	LEFT JOIN cost_centers c ON c.id = a.cost_center_id
	WHERE s.report_date BETWEEN $1 AND $2`

func (g *PostgresGateway) queryFinancial(ctx context.Context, op, query string, args ...any) ([]models.FinancialRow, error) {
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, queryError(op, err)
	}
	defer rows.Close()

	var out []models.FinancialRow
	for rows.Next() {
		var r models.FinancialRow
		var s models.DailySummary
		var reportDate time.Time
		if err := rows.Scan(&s.ID, &s.AssetID, &s.AssetName, &reportDate,
			&s.OEEPercentage, &s.Availability, &s.Performance, &s.Quality,
			&s.ActualOutput, &s.TargetOutput, &s.DowntimeMinutes, &s.WasteCount,
			&s.FinancialLossDollars, &s.DowntimeReasons,
			&r.AssetName, &r.Area, &r.HourlyRate, &r.UnitCost); err != nil {
			return nil, queryError(op, err)
		}
		s.ReportDate = models.DateOf(reportDate, time.UTC)
		r.Summary = s
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(op, err)
	}
	return out, nil
}

func (g *PostgresGateway) GetFinancialMetrics(ctx context.Context, filter FinancialFilter) (models.DataResult[models.FinancialRow], error) {
	query := financialQuery
	args := []any{filter.Range.Start.String(), filter.Range.End.String()}
	switch {
	case filter.AssetID != "":
		args = append(args, filter.AssetID)
		query += fmt.Sprintf(" AND s.asset_id = $%d", len(args))
	case filter.Area != "":
		args = append(args, filter.Area)
		query += fmt.Sprintf(" AND LOWER(a.area) = LOWER($%d)", len(args))
	}
	query += " ORDER BY s.report_date DESC"

	out, err := g.queryFinancial(ctx, "get_financial_metrics", query, args...)
	if err != nil {
		return models.DataResult[models.FinancialRow]{}, err
	}
	return newResult(TableDailySummaries,
		"financial metrics "+filter.Range.Description, out), nil
}

func (g *PostgresGateway) GetCostOfLoss(ctx context.Context, tr models.TimeRange, area string) (models.DataResult[models.FinancialRow], error) {
	query := financialQuery
	args := []any{tr.Start.String(), tr.End.String()}
	if area != "" {
		args = append(args, area)
		query += fmt.Sprintf(" AND LOWER(a.area) = LOWER($%d)", len(args))
	}
	query += " ORDER BY s.financial_loss_dollars DESC"

	out, err := g.queryFinancial(ctx, "get_cost_of_loss", query, args...)
	if err != nil {
		return models.DataResult[models.FinancialRow]{}, err
	}
	return newResult(TableDailySummaries, "cost of loss "+tr.Description, out), nil
}

func (g *PostgresGateway) GetTrendData(ctx context.Context, filter TrendFilter) (models.DataResult[models.TrendPoint], error) {
	var (
		summaries models.DataResult[models.DailySummary]
		err       error
	)
	switch {
	case filter.AssetID != "":
		summaries, err = g.GetOEE(ctx, filter.AssetID, filter.Range)
	case filter.Area != "":
		summaries, err = g.GetOEEByArea(ctx, filter.Area, filter.Range)
	default:
		rows, qerr := g.pool.Query(ctx,
			`SELECT `+summaryColumns+`
			 FROM daily_summaries s JOIN assets a ON a.id = s.asset_id
			 WHERE s.report_date BETWEEN $1 AND $2
			 ORDER BY s.report_date DESC`,
			filter.Range.Start.String(), filter.Range.End.String())
		if qerr != nil {
			return models.DataResult[models.TrendPoint]{}, queryError("get_trend_data", qerr)
		}
		var plantRows []models.DailySummary
		plantRows, err = scanSummaries(rows)
		if err != nil {
			return models.DataResult[models.TrendPoint]{}, queryError("get_trend_data", err)
		}
		summaries = newResult(TableDailySummaries, "plant summaries", plantRows)
	}
	if err != nil {
		return models.DataResult[models.TrendPoint]{}, err
	}

	points := buildTrendPoints(summaries.Data, filter.Metric, filter.AssetID != "")
	return newResult(TableDailySummaries,
		fmt.Sprintf("%s trend, %s", filter.Metric, filter.Range.Description), points), nil
}

var _ Gateway = (*PostgresGateway)(nil)
