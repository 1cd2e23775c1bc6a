package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/models"
)

// StubGateway is an in-memory Gateway over seedable fixtures. It backs
// unit tests and DB-less development mode, and mirrors the Postgres
// implementation's ordering and filtering semantics.
type StubGateway struct {
	mu          sync.RWMutex
	loc         *time.Location
	assets      []models.Asset
	summaries   []models.DailySummary
	snapshots   []models.LiveSnapshot
	events      []models.SafetyEvent
	targets     []models.ShiftTarget
	costCenters map[string]models.CostCenter

	// Err, when set, is returned by every operation. Simulates store
	// failures in tests.
	Err error
}

// NewStubGateway creates an empty stub in the given zone.
func NewStubGateway(loc *time.Location) *StubGateway {
	if loc == nil {
		loc = time.UTC
	}
	return &StubGateway{loc: loc, costCenters: make(map[string]models.CostCenter)}
}

// Seed helpers. Each replaces nothing and appends fixtures.

func (g *StubGateway) SeedAssets(assets ...models.Asset) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assets = append(g.assets, assets...)
	return g
}

func (g *StubGateway) SeedSummaries(summaries ...models.DailySummary) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summaries = append(g.summaries, summaries...)
	return g
}

func (g *StubGateway) SeedSnapshots(snapshots ...models.LiveSnapshot) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshots = append(g.snapshots, snapshots...)
	return g
}

func (g *StubGateway) SeedSafetyEvents(events ...models.SafetyEvent) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, events...)
	return g
}

func (g *StubGateway) SeedShiftTargets(targets ...models.ShiftTarget) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.targets = append(g.targets, targets...)
	return g
}

func (g *StubGateway) SeedCostCenters(centers ...models.CostCenter) *StubGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range centers {
		g.costCenters[c.ID] = c
	}
	return g
}

func (g *StubGateway) failed() error {
	return g.Err
}

func (g *StubGateway) assetByID(id string) (models.Asset, bool) {
	for _, a := range g.assets {
		if a.ID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}

func (g *StubGateway) GetAsset(_ context.Context, id string) (models.DataResult[models.Asset], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	var hits []models.Asset
	if a, ok := g.assetByID(id); ok {
		hits = []models.Asset{a}
	}
	return newResult(TableAssets, "asset by id "+id, hits), nil
}

func (g *StubGateway) GetAssetByName(_ context.Context, name string) (models.DataResult[models.Asset], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	var hits []models.Asset
	if a, ok := matchAssetByName(g.assets, name); ok {
		hits = []models.Asset{a}
	}
	return newResult(TableAssets, "asset by name "+name, hits), nil
}

func (g *StubGateway) GetSimilarAssets(_ context.Context, name string, limit int) (models.DataResult[models.Asset], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	ranked := rankSimilar(g.assets, normalizeNeedle(name))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return newResult(TableAssets, "assets similar to "+name, ranked), nil
}

func (g *StubGateway) GetAssetsByArea(_ context.Context, area string) (models.DataResult[models.Asset], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	var hits []models.Asset
	for _, a := range g.assets {
		if strings.EqualFold(a.Area, area) {
			hits = append(hits, a)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Name < hits[j].Name })
	return newResult(TableAssets, "assets in area "+area, hits), nil
}

func (g *StubGateway) GetAllAssets(_ context.Context) (models.DataResult[models.Asset], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.Asset]{}, err
	}
	out := make([]models.Asset, len(g.assets))
	copy(out, g.assets)
	return newResult(TableAssets, "all assets", out), nil
}

func inRange(d models.Date, tr models.TimeRange) bool {
	return !d.Before(tr.Start) && !tr.End.Before(d)
}

func (g *StubGateway) summariesWhere(keep func(models.DailySummary) bool) []models.DailySummary {
	var out []models.DailySummary
	for _, s := range g.summaries {
		if keep(s) {
			row := s
			if row.AssetName == "" {
				if a, ok := g.assetByID(row.AssetID); ok {
					row.AssetName = a.Name
				}
			}
			out = append(out, row)
		}
	}
	// report_date descending, matching the SQL ordering.
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].ReportDate.Before(out[i].ReportDate)
	})
	return out
}

func (g *StubGateway) GetOEE(_ context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.DailySummary]{}, err
	}
	rows := g.summariesWhere(func(s models.DailySummary) bool {
		return s.AssetID == assetID && inRange(s.ReportDate, tr)
	})
	return newResult(TableDailySummaries, "OEE for asset "+assetID+", "+tr.Description, rows), nil
}

func (g *StubGateway) GetOEEByArea(_ context.Context, area string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.DailySummary]{}, err
	}
	rows := g.summariesWhere(func(s models.DailySummary) bool {
		a, ok := g.assetByID(s.AssetID)
		return ok && strings.EqualFold(a.Area, area) && inRange(s.ReportDate, tr)
	})
	return newResult(TableDailySummaries, "OEE for area "+area+", "+tr.Description, rows), nil
}

func (g *StubGateway) GetDowntime(_ context.Context, assetID string, tr models.TimeRange) (models.DataResult[models.DailySummary], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.DailySummary]{}, err
	}
	rows := g.summariesWhere(func(s models.DailySummary) bool {
		return s.AssetID == assetID && inRange(s.ReportDate, tr) && s.DowntimeMinutes > 0
	})
	return newResult(TableDailySummaries, "downtime for asset "+assetID+", "+tr.Description, rows), nil
}

func (g *StubGateway) latestSnapshot(assetID string) (models.LiveSnapshot, bool) {
	var best models.LiveSnapshot
	found := false
	for _, s := range g.snapshots {
		if s.AssetID != assetID {
			continue
		}
		if !found || s.SnapshotTimestamp.After(best.SnapshotTimestamp) {
			best = s
			found = true
		}
	}
	if found && best.AssetName == "" {
		if a, ok := g.assetByID(assetID); ok {
			best.AssetName = a.Name
		}
	}
	return best, found
}

func (g *StubGateway) GetLiveSnapshot(_ context.Context, assetID string) (models.DataResult[models.LiveSnapshot], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.LiveSnapshot]{}, err
	}
	var hits []models.LiveSnapshot
	if s, ok := g.latestSnapshot(assetID); ok {
		hits = []models.LiveSnapshot{s}
	}
	return newResult(TableLiveSnapshots, "live snapshot for asset "+assetID, hits), nil
}

func (g *StubGateway) GetLiveSnapshotsByArea(_ context.Context, area string) (models.DataResult[models.LiveSnapshot], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.LiveSnapshot]{}, err
	}
	description := "live snapshots for the plant"
	if area != "" {
		description = "live snapshots for area " + area
	}
	var hits []models.LiveSnapshot
	for _, a := range g.assets {
		// Empty area means the whole plant.
		if area != "" && !strings.EqualFold(a.Area, area) {
			continue
		}
		if s, ok := g.latestSnapshot(a.ID); ok {
			hits = append(hits, s)
		}
	}
	return newResult(TableLiveSnapshots, description, hits), nil
}

func (g *StubGateway) GetShiftTarget(_ context.Context, assetID string) (models.DataResult[models.ShiftTarget], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.ShiftTarget]{}, err
	}
	today := models.DateOf(time.Now(), g.loc)
	var best *models.ShiftTarget
	for i := range g.targets {
		t := g.targets[i]
		if t.AssetID != assetID || t.EffectiveDate.After(today) {
			continue
		}
		if best == nil || best.EffectiveDate.Before(t.EffectiveDate) {
			best = &t
		}
	}
	var hits []models.ShiftTarget
	if best != nil {
		hits = []models.ShiftTarget{*best}
	}
	return newResult(TableShiftTargets, "shift target for asset "+assetID, hits), nil
}

func (g *StubGateway) GetSafetyEvents(_ context.Context, filter SafetyEventFilter) (models.DataResult[models.SafetyEvent], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.SafetyEvent]{}, err
	}
	start := filter.Range.Start.Time(g.loc)
	end := filter.Range.End.AddDays(1).Time(g.loc)

	var hits []models.SafetyEvent
	for _, e := range g.events {
		if e.EventTimestamp.Before(start) || !e.EventTimestamp.Before(end) {
			continue
		}
		if filter.AssetID != "" && e.AssetID != filter.AssetID {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if !filter.IncludeResolved && e.IsResolved {
			continue
		}
		if filter.Area != "" {
			a, ok := g.assetByID(e.AssetID)
			if !ok || !strings.EqualFold(a.Area, filter.Area) {
				continue
			}
		}
		if e.AssetName == "" {
			if a, ok := g.assetByID(e.AssetID); ok {
				e.AssetName = a.Name
			}
		}
		hits = append(hits, e)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].EventTimestamp.After(hits[j].EventTimestamp)
	})
	return newResult(TableSafetyEvents, "safety events "+filter.Range.Description, hits), nil
}

func (g *StubGateway) financialRows(tr models.TimeRange, assetID, area string) []models.FinancialRow {
	var out []models.FinancialRow
	for _, s := range g.summaries {
		if !inRange(s.ReportDate, tr) {
			continue
		}
		a, ok := g.assetByID(s.AssetID)
		if !ok {
			continue
		}
		if assetID != "" && s.AssetID != assetID {
			continue
		}
		if assetID == "" && area != "" && !strings.EqualFold(a.Area, area) {
			continue
		}
		row := models.FinancialRow{Summary: s, AssetName: a.Name, Area: a.Area}
		row.Summary.AssetName = a.Name
		if cc, ok := g.costCenters[a.CostCenterID]; ok {
			rate := cc.StandardHourlyRate
			unit := cc.CostPerUnit
			row.HourlyRate = &rate
			row.UnitCost = &unit
		}
		out = append(out, row)
	}
	return out
}

func (g *StubGateway) GetFinancialMetrics(_ context.Context, filter FinancialFilter) (models.DataResult[models.FinancialRow], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.FinancialRow]{}, err
	}
	rows := g.financialRows(filter.Range, filter.AssetID, filter.Area)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[j].Summary.ReportDate.Before(rows[i].Summary.ReportDate)
	})
	return newResult(TableDailySummaries, "financial metrics "+filter.Range.Description, rows), nil
}

func (g *StubGateway) GetCostOfLoss(_ context.Context, tr models.TimeRange, area string) (models.DataResult[models.FinancialRow], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.FinancialRow]{}, err
	}
	rows := g.financialRows(tr, "", area)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Summary.FinancialLossDollars > rows[j].Summary.FinancialLossDollars
	})
	return newResult(TableDailySummaries, "cost of loss "+tr.Description, rows), nil
}

func (g *StubGateway) GetTrendData(_ context.Context, filter TrendFilter) (models.DataResult[models.TrendPoint], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failed(); err != nil {
		return models.DataResult[models.TrendPoint]{}, err
	}
	rows := g.summariesWhere(func(s models.DailySummary) bool {
		if !inRange(s.ReportDate, filter.Range) {
			return false
		}
		if filter.AssetID != "" {
			return s.AssetID == filter.AssetID
		}
		if filter.Area != "" {
			a, ok := g.assetByID(s.AssetID)
			return ok && strings.EqualFold(a.Area, filter.Area)
		}
		return true
	})
	points := buildTrendPoints(rows, filter.Metric, filter.AssetID != "")
	return newResult(TableDailySummaries, filter.Metric+" trend, "+filter.Range.Description, points), nil
}

var _ Gateway = (*StubGateway)(nil)
