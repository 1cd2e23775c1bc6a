// Package actions derives the daily prioritized action list from the
// operational read models. Generation is deterministic: the same rows
// and thresholds always produce the same ordered list.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/models"
)

// assetMapTTL bounds how long the asset index is reused between
// refreshes.
const assetMapTTL = 5 * time.Minute

// Engine builds action lists. Results are cached per report date until
// invalidated by new ingestion.
type Engine struct {
	gw  gateway.Gateway
	cfg *config.Config

	// Now is injectable for tests and defaults to time.Now.
	Now func() time.Time

	mu      sync.RWMutex
	byDate  map[string]models.ActionListResponse
	tiers   map[string]map[models.ActionCategory][]models.ActionItem
	degrade map[string][]string

	assetMu      sync.Mutex
	assetsByID   map[string]models.Asset
	assetsLoaded time.Time
}

// NewEngine creates an engine over the gateway with the given
// thresholds.
func NewEngine(gw gateway.Gateway, cfg *config.Config) *Engine {
	return &Engine{
		gw:      gw,
		cfg:     cfg,
		byDate:  make(map[string]models.ActionListResponse),
		tiers:   make(map[string]map[models.ActionCategory][]models.ActionItem),
		degrade: make(map[string][]string),
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ActionList returns the prioritized list for the report date, building
// and caching it on first use. The second return value names the tiers
// that could not be evaluated because their source query failed; the
// list is still served from the tiers that could.
func (e *Engine) ActionList(ctx context.Context, date models.Date) (models.ActionListResponse, []string, error) {
	key := date.String()

	e.mu.RLock()
	cached, ok := e.byDate[key]
	degraded := e.degrade[key]
	e.mu.RUnlock()
	if ok {
		return cached, degraded, nil
	}

	response, tiers, degraded, err := e.build(ctx, date)
	if err != nil {
		return models.ActionListResponse{}, nil, err
	}

	e.mu.Lock()
	e.byDate[key] = response
	e.tiers[key] = tiers
	e.degrade[key] = degraded
	e.mu.Unlock()
	return response, degraded, nil
}

// TierItems returns one tier's items for the report date before the
// cross-tier merge, in tier order. An asset claimed by a higher tier
// in the merged list still appears in its own tier here.
func (e *Engine) TierItems(ctx context.Context, date models.Date, category models.ActionCategory) ([]models.ActionItem, error) {
	if _, _, err := e.ActionList(ctx, date); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tiers[date.String()][category], nil
}

// Invalidate drops the cached list for one report date, or every date
// when date is nil. Ingestion calls this when new rows land.
func (e *Engine) Invalidate(date *models.Date) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if date == nil {
		e.byDate = make(map[string]models.ActionListResponse)
		e.tiers = make(map[string]map[models.ActionCategory][]models.ActionItem)
		e.degrade = make(map[string][]string)
		return
	}
	delete(e.byDate, date.String())
	delete(e.tiers, date.String())
	delete(e.degrade, date.String())
}

// AssetsByID returns the asset index, refreshed at most every
// assetMapTTL.
func (e *Engine) AssetsByID(ctx context.Context) (map[string]models.Asset, error) {
	e.assetMu.Lock()
	defer e.assetMu.Unlock()
	if e.assetsByID != nil && e.now().Sub(e.assetsLoaded) < assetMapTTL {
		return e.assetsByID, nil
	}
	res, err := e.gw.GetAllAssets(ctx)
	if err != nil {
		if e.assetsByID != nil {
			return e.assetsByID, nil
		}
		return nil, err
	}
	index := make(map[string]models.Asset, len(res.Data))
	for _, a := range res.Data {
		index[a.ID] = a
	}
	e.assetsByID = index
	e.assetsLoaded = e.now()
	return index, nil
}

// build evaluates all three tiers, deduplicates per asset, and sorts.
// A tier whose query fails is skipped and reported as degraded; build
// fails outright only when every tier fails. The pre-merge tier lists
// are returned alongside the merged response for category queries.
func (e *Engine) build(ctx context.Context, date models.Date) (models.ActionListResponse, map[models.ActionCategory][]models.ActionItem, []string, error) {
	tr := models.TimeRange{Start: date, End: date, Description: date.String()}

	var (
		candidates []models.ActionItem
		degraded   []string
	)
	tiers := make(map[models.ActionCategory][]models.ActionItem, 3)

	safety, err := e.safetyItems(ctx, tr)
	if err != nil {
		slog.Warn("Safety tier unavailable for action list", "date", date.String(), "error", err)
		degraded = append(degraded, string(models.CategorySafety))
	} else {
		sortActions(safety)
		tiers[models.CategorySafety] = safety
		candidates = append(candidates, safety...)
	}

	oee, err := e.oeeItems(ctx, tr)
	if err != nil {
		slog.Warn("OEE tier unavailable for action list", "date", date.String(), "error", err)
		degraded = append(degraded, string(models.CategoryOEE))
	} else {
		sortActions(oee)
		tiers[models.CategoryOEE] = oee
		candidates = append(candidates, oee...)
	}

	financial, err := e.financialItems(ctx, tr)
	if err != nil {
		slog.Warn("Financial tier unavailable for action list", "date", date.String(), "error", err)
		degraded = append(degraded, string(models.CategoryFinancial))
	} else {
		sortActions(financial)
		tiers[models.CategoryFinancial] = financial
		candidates = append(candidates, financial...)
	}

	if len(degraded) == 3 {
		return models.ActionListResponse{}, nil, nil, fmt.Errorf("action list for %s: all tiers failed", date.String())
	}

	actions := dedupeByAsset(candidates)
	sortActions(actions)

	counts := models.CategoryCounts{}
	for _, a := range actions {
		switch a.Category {
		case models.CategorySafety:
			counts.Safety++
		case models.CategoryOEE:
			counts.OEE++
		case models.CategoryFinancial:
			counts.Financial++
		}
	}

	return models.ActionListResponse{
		Actions:          actions,
		ReportDate:       date,
		TotalCount:       len(actions),
		CountsByCategory: counts,
		GeneratedAt:      e.now().UTC(),
	}, tiers, degraded, nil
}

// safetyItems turns every unresolved safety event on the report date
// into an action item. Safety items always carry the configured safety
// priority; severity only orders them within the tier.
func (e *Engine) safetyItems(ctx context.Context, tr models.TimeRange) ([]models.ActionItem, error) {
	res, err := e.gw.GetSafetyEvents(ctx, gateway.SafetyEventFilter{Range: tr})
	if err != nil {
		return nil, err
	}
	priority := models.PriorityLevel(e.cfg.Actions.SafetyPriority)
	if priority == "" {
		priority = models.PriorityCritical
	}
	out := make([]models.ActionItem, 0, len(res.Data))
	for _, ev := range res.Data {
		ts := ev.EventTimestamp
		out = append(out, models.ActionItem{
			ID:                 models.NewID("act"),
			AssetID:            ev.AssetID,
			AssetName:          ev.AssetName,
			PriorityLevel:      priority,
			Category:           models.CategorySafety,
			PrimaryMetricValue: string(ev.Severity),
			EventTimestamp:     &ts,
			RecommendationText: fmt.Sprintf("Resolve the open %s safety event on %s: %s.",
				ev.Severity, ev.AssetName, ev.Description),
			EvidenceSummary: fmt.Sprintf("Unresolved %s safety event (%s) at %s.",
				ev.Severity, ev.ReasonCode, ev.EventTimestamp.Format("15:04")),
			EvidenceRefs: []models.EvidenceRef{{
				SourceTable: gateway.TableSafetyEvents,
				RecordID:    ev.ID,
				MetricName:  "severity",
				MetricValue: string(ev.Severity),
				Context:     ev.Description,
			}},
			CreatedAt: e.now().UTC(),
		})
	}
	return out, nil
}

// oeeItems flags every summary whose OEE ran below target. The gap
// against target decides the priority.
func (e *Engine) oeeItems(ctx context.Context, tr models.TimeRange) ([]models.ActionItem, error) {
	summaries, err := e.plantSummaries(ctx, tr)
	if err != nil {
		return nil, err
	}
	cfg := e.cfg.Actions
	var out []models.ActionItem
	for _, s := range summaries {
		if s.OEEPercentage == nil || *s.OEEPercentage >= cfg.TargetOEEPercentage {
			continue
		}
		gap := cfg.TargetOEEPercentage - *s.OEEPercentage
		priority := models.PriorityLow
		switch {
		case gap >= cfg.OEEHighGapThreshold:
			priority = models.PriorityHigh
		case gap >= cfg.OEEMediumGapThreshold:
			priority = models.PriorityMedium
		}
		evidence := fmt.Sprintf("OEE %.1f%% against the %.0f%% target, a %.1f point gap.",
			*s.OEEPercentage, cfg.TargetOEEPercentage, gap)
		if reason, minutes, ok := dominantReason(s.DowntimeReasons); ok {
			evidence += fmt.Sprintf(" Largest downtime driver: %s (%.0f min).", reason, minutes)
		}
		out = append(out, models.ActionItem{
			ID:                 models.NewID("act"),
			AssetID:            s.AssetID,
			AssetName:          s.AssetName,
			PriorityLevel:      priority,
			Category:           models.CategoryOEE,
			PrimaryMetricValue: fmt.Sprintf("%.1f", *s.OEEPercentage),
			RecommendationText: fmt.Sprintf("Investigate %s: OEE ran %.1f points below target.",
				s.AssetName, gap),
			EvidenceSummary: evidence,
			EvidenceRefs: []models.EvidenceRef{{
				SourceTable: gateway.TableDailySummaries,
				RecordID:    s.ID,
				MetricName:  "oee_percentage",
				MetricValue: fmt.Sprintf("%.1f", *s.OEEPercentage),
			}},
			CreatedAt: e.now().UTC(),
		})
	}
	return out, nil
}

// financialItems flags summaries whose recorded daily loss passed the
// configured threshold.
func (e *Engine) financialItems(ctx context.Context, tr models.TimeRange) ([]models.ActionItem, error) {
	res, err := e.gw.GetFinancialMetrics(ctx, gateway.FinancialFilter{Range: tr})
	if err != nil {
		return nil, err
	}
	cfg := e.cfg.Actions
	var out []models.ActionItem
	for _, r := range res.Data {
		loss := r.Summary.FinancialLossDollars
		if loss < cfg.FinancialLossThreshold {
			continue
		}
		priority := models.PriorityLow
		switch {
		case loss >= cfg.FinancialHighThreshold:
			priority = models.PriorityHigh
		case loss >= cfg.FinancialMediumThreshold:
			priority = models.PriorityMedium
		}
		out = append(out, models.ActionItem{
			ID:                 models.NewID("act"),
			AssetID:            r.Summary.AssetID,
			AssetName:          r.AssetName,
			PriorityLevel:      priority,
			Category:           models.CategoryFinancial,
			PrimaryMetricValue: fmt.Sprintf("%.2f", loss),
			RecommendationText: fmt.Sprintf("Review %s: $%.2f lost in one day.", r.AssetName, loss),
			EvidenceSummary: fmt.Sprintf("Recorded loss $%.2f (%.0f min downtime, %d waste units).",
				loss, r.Summary.DowntimeMinutes, r.Summary.WasteCount),
			EvidenceRefs: []models.EvidenceRef{{
				SourceTable: gateway.TableDailySummaries,
				RecordID:    r.Summary.ID,
				MetricName:  "financial_loss_dollars",
				MetricValue: fmt.Sprintf("%.2f", loss),
			}},
			CreatedAt: e.now().UTC(),
		})
	}
	return out, nil
}

func (e *Engine) plantSummaries(ctx context.Context, tr models.TimeRange) ([]models.DailySummary, error) {
	var out []models.DailySummary
	for _, area := range e.cfg.Plant.Areas {
		res, err := e.gw.GetOEEByArea(ctx, area.ID, tr)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Data...)
	}
	return out, nil
}

func dominantReason(reasons map[string]float64) (string, float64, bool) {
	best := ""
	bestMinutes := 0.0
	for reason, minutes := range reasons {
		if minutes > bestMinutes || (minutes == bestMinutes && reason < best) {
			best, bestMinutes = reason, minutes
		}
	}
	return best, bestMinutes, best != ""
}
