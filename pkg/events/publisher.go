package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/models"
)

// IngestionPublisher fans ingestion events out to registered
// subscribers. Delivery is synchronous and best-effort: a failing
// subscriber is logged and the rest still run, so a cache that
// cannot be invalidated never blocks the invalidation of another.
type IngestionPublisher struct {
	mu   sync.RWMutex
	subs []Subscriber

	// Now is replaceable in tests.
	Now func() time.Time
}

// NewIngestionPublisher returns a publisher with no subscribers.
func NewIngestionPublisher() *IngestionPublisher {
	return &IngestionPublisher{Now: time.Now}
}

// Subscribe registers a subscriber for all future events.
func (p *IngestionPublisher) Subscribe(sub Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, sub)
}

// Publish stamps the event and delivers it to every subscriber in
// registration order. Returns the first subscriber error, after all
// subscribers have run.
func (p *IngestionPublisher) Publish(event IngestionEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = p.Now().UTC()
	}

	p.mu.RLock()
	subs := make([]Subscriber, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub(event); err != nil {
			slog.Warn("Ingestion subscriber failed",
				"date", event.Date.String(),
				"tables", event.Tables,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	slog.Info("Ingestion event published",
		"date", event.Date.String(),
		"tables", event.Tables,
		"subscribers", len(subs))
	return firstErr
}

// CacheInvalidator returns a subscriber that drops the cache tiers a
// batch can stale. Daily rows stale the daily tier, live snapshots
// the live tier, and asset or target changes the static tier.
func CacheInvalidator(exec *cache.Executor) Subscriber {
	return func(event IngestionEvent) error {
		var dropped int
		if event.Touches(TableDailySummaries) || event.Touches(TableSafetyEvents) {
			dropped += exec.Invalidate(models.TierDaily)
		}
		if event.Touches(TableLiveSnapshots) || event.Touches(TableSafetyEvents) {
			dropped += exec.Invalidate(models.TierLive)
		}
		if event.Touches(TableAssets) || event.Touches(TableShiftTargets) {
			dropped += exec.Invalidate(models.TierStatic)
		}
		slog.Debug("Cache invalidated on ingestion", "entries_dropped", dropped)
		return nil
	}
}

// ActionInvalidator returns a subscriber that drops cached action
// lists for the event's date, or all dates when the event has none.
func ActionInvalidator(engine *actions.Engine) Subscriber {
	return func(event IngestionEvent) error {
		if event.Date.IsZero() {
			engine.Invalidate(nil)
			return nil
		}
		date := event.Date
		engine.Invalidate(&date)
		return nil
	}
}
