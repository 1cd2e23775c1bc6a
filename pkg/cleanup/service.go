// Package cleanup enforces briefing retention. Generated briefings
// accumulate in the in-process store; the end-of-day comparison only
// ever looks back one day, so anything older is dead weight.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/plantops/opsbrief/pkg/briefing"
)

// Defaults applied when New receives zero values.
const (
	DefaultRetention = 7 * 24 * time.Hour
	DefaultInterval  = time.Hour
)

// Service periodically prunes briefings past the retention window.
// Pruning is idempotent.
type Service struct {
	store     *briefing.Store
	retention time.Duration
	interval  time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	// Now is replaceable in tests.
	Now func() time.Time
}

// New creates a cleanup service for the briefing store.
func New(store *briefing.Store, retention, interval time.Duration) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		store:     store,
		retention: retention,
		interval:  interval,
		Now:       time.Now,
	}
}

// Start launches the background cleanup loop. Safe to call once.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"retention", s.retention,
		"interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.prune()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

// Prune removes briefings past retention and reports the count.
func (s *Service) Prune() int {
	return s.store.PruneOlderThan(s.Now().Add(-s.retention))
}

func (s *Service) prune() {
	if count := s.Prune(); count > 0 {
		slog.Info("Retention: pruned old briefings", "count", count)
	}
}
