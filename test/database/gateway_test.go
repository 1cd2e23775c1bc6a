// Integration tests for the PostgreSQL gateway against a real server.
package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/test/util"
)

func seedPlant(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO cost_centers (id, standard_hourly_rate, cost_per_unit) VALUES ($1, $2, $3)`,
			[]any{"cc-1", 120.0, 2.5}},
		{`INSERT INTO assets (id, name, source_id, area, cost_center_id) VALUES ($1, $2, $3, $4, $5)`,
			[]any{"a-grinder-1", "Grinder 1", "src-1", "grinding", "cc-1"}},
		{`INSERT INTO assets (id, name, source_id, area) VALUES ($1, $2, $3, $4)`,
			[]any{"a-grinder-2", "Grinder 2", "src-2", "grinding"}},
		{`INSERT INTO assets (id, name, source_id, area) VALUES ($1, $2, $3, $4)`,
			[]any{"a-packer-1", "Packer 1", "src-3", "packing"}},
		{`INSERT INTO daily_summaries (id, asset_id, report_date, oee_percentage, actual_output,
			target_output, downtime_minutes, financial_loss_dollars, downtime_reasons)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			[]any{"s1", "a-grinder-1", "2025-03-14", 72.0, 7000, 8000, 42.0, 1800.0,
				`{"jam clearing": 42}`}},
		{`INSERT INTO daily_summaries (id, asset_id, report_date, oee_percentage, actual_output,
			target_output) VALUES ($1, $2, $3, $4, $5, $6)`,
			[]any{"s2", "a-packer-1", "2025-03-14", 91.0, 8100, 8000}},
		{`INSERT INTO live_snapshots (asset_id, snapshot_timestamp, current_output, target_output,
			output_variance, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			[]any{"a-grinder-1", time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC), 450, 500, -10.0, "behind"}},
		{`INSERT INTO live_snapshots (asset_id, snapshot_timestamp, current_output, target_output,
			output_variance, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			[]any{"a-grinder-1", time.Date(2025, 3, 15, 11, 55, 0, 0, time.UTC), 480, 500, -4.0, "running"}},
		{`INSERT INTO live_snapshots (asset_id, snapshot_timestamp, current_output, target_output,
			output_variance, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			[]any{"a-packer-1", time.Date(2025, 3, 15, 11, 55, 0, 0, time.UTC), 510, 500, 2.0, "running"}},
		{`INSERT INTO safety_events (id, asset_id, event_timestamp, reason_code, severity,
			description, is_resolved) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]any{"se-1", "a-grinder-1", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
				"guard_interlock", "high", "Guard interlock triggered", false}},
		{`INSERT INTO safety_events (id, asset_id, event_timestamp, reason_code, severity,
			description, is_resolved, resolved_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]any{"se-2", "a-packer-1", time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC),
				"spill", "low", "Minor spill near infeed", true,
				time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}},
		{`INSERT INTO shift_targets (asset_id, target_output, shift, effective_date)
			VALUES ($1, $2, $3, $4)`,
			[]any{"a-grinder-1", 480, "day", "2025-03-01"}},
		{`INSERT INTO shift_targets (asset_id, target_output, shift, effective_date)
			VALUES ($1, $2, $3, $4)`,
			[]any{"a-grinder-1", 500, "day", "2025-03-10"}},
	}
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt.sql, stmt.args...)
		require.NoError(t, err)
	}
}

func dayRange(day string) models.TimeRange {
	d, _ := models.ParseDate(day)
	return models.TimeRange{Start: d, End: d, Description: day}
}

func TestPostgresGatewayReads(t *testing.T) {
	pool := util.SetupTestDatabase(t)
	seedPlant(t, pool)

	gw, err := gateway.NewPostgresGateway(pool, time.UTC)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("assets by area", func(t *testing.T) {
		res, err := gw.GetAssetsByArea(ctx, "grinding")
		require.NoError(t, err)
		require.Equal(t, 2, res.RowCount)
		assert.Equal(t, gateway.SourceName, res.SourceName)
	})

	t.Run("asset lookup by name is case-insensitive", func(t *testing.T) {
		res, err := gw.GetAssetByName(ctx, "grinder 1")
		require.NoError(t, err)
		asset, ok := res.First()
		require.True(t, ok)
		assert.Equal(t, "a-grinder-1", asset.ID)
	})

	t.Run("oee by area in window", func(t *testing.T) {
		res, err := gw.GetOEEByArea(ctx, "grinding", dayRange("2025-03-14"))
		require.NoError(t, err)
		require.Equal(t, 1, res.RowCount)
		summary := res.Data[0]
		require.NotNil(t, summary.OEEPercentage)
		assert.Equal(t, 72.0, *summary.OEEPercentage)
		assert.Equal(t, "Grinder 1", summary.AssetName)
		assert.Equal(t, 42.0, summary.DowntimeReasons["jam clearing"])
	})

	t.Run("oee outside window is empty not error", func(t *testing.T) {
		res, err := gw.GetOEEByArea(ctx, "grinding", dayRange("2025-01-01"))
		require.NoError(t, err)
		assert.False(t, res.HasData())
	})

	t.Run("latest snapshot per asset", func(t *testing.T) {
		res, err := gw.GetLiveSnapshotsByArea(ctx, "grinding")
		require.NoError(t, err)
		require.Equal(t, 1, res.RowCount)
		snap := res.Data[0]
		assert.Equal(t, 480, snap.CurrentOutput)
		assert.Equal(t, models.StatusRunning, snap.Status)
	})

	t.Run("unresolved safety events only", func(t *testing.T) {
		res, err := gw.GetSafetyEvents(ctx, gateway.SafetyEventFilter{Range: dayRange("2025-03-14")})
		require.NoError(t, err)
		require.Equal(t, 1, res.RowCount)
		assert.Equal(t, "se-1", res.Data[0].ID)
		assert.False(t, res.Data[0].IsResolved)
	})

	t.Run("resolved events included on request", func(t *testing.T) {
		res, err := gw.GetSafetyEvents(ctx, gateway.SafetyEventFilter{
			Range: dayRange("2025-03-14"), IncludeResolved: true})
		require.NoError(t, err)
		assert.Equal(t, 2, res.RowCount)
	})

	t.Run("latest effective shift target wins", func(t *testing.T) {
		res, err := gw.GetShiftTarget(ctx, "a-grinder-1")
		require.NoError(t, err)
		target, ok := res.First()
		require.True(t, ok)
		assert.Equal(t, 500, target.TargetOutput)
	})

	t.Run("financial metrics join cost centers", func(t *testing.T) {
		res, err := gw.GetFinancialMetrics(ctx, gateway.FinancialFilter{Range: dayRange("2025-03-14")})
		require.NoError(t, err)
		assert.True(t, res.HasData())
	})
}
