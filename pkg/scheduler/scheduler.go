// Package scheduler fires the recurring briefings: the morning plant
// briefing, the end-of-day summary, and a handoff at every shift
// boundary. Times come from the schedule configuration and are
// interpreted in the plant's time zone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/plantops/opsbrief/pkg/config"
)

// Briefing kinds the scheduler fires.
const (
	KindMorning = "morning"
	KindEOD     = "eod"
	KindHandoff = "handoff"
)

// Runner generates briefings on demand. The briefing orchestrator
// satisfies it; each call is bounded by the orchestrator's own
// budgets, so a slow run cannot wedge the scheduler.
type Runner interface {
	PlantBriefing(ctx context.Context, userID string, areaPreference []string) briefing.Briefing
	EODBriefing(ctx context.Context, userID, dateArg string) briefing.Briefing
	HandoffBriefing(ctx context.Context, userID string) briefing.Briefing
}

// entry is one recurring firing: a kind at a plant-local wall time.
type entry struct {
	kind string
	hour int
	min  int
}

// Scheduler owns one goroutine per schedule entry. Start spawns them,
// Stop signals and waits. Generated briefings land in the orchestrator
// store, where the end-of-day comparison finds the morning record.
type Scheduler struct {
	runner Runner
	cfg    *config.Config
	users  []string

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	mu   sync.Mutex
	runs map[string]int

	// Now is replaceable in tests.
	Now func() time.Time
}

// New builds a scheduler that generates briefings for each listed
// user at every firing.
func New(runner Runner, cfg *config.Config, users []string) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		users:  users,
		stopCh: make(chan struct{}),
		runs:   make(map[string]int),
		Now:    time.Now,
	}
}

// Start validates the schedule and spawns one loop per entry. Safe to
// call more than once; subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.started {
		slog.Warn("Scheduler already started, ignoring duplicate Start call")
		return nil
	}

	entries, err := s.entries()
	if err != nil {
		return err
	}
	s.started = true

	slog.Info("Starting briefing scheduler",
		"entries", len(entries),
		"users", len(s.users),
		"timezone", s.cfg.Plant.Timezone)

	for _, e := range entries {
		s.wg.Add(1)
		go func(e entry) {
			defer s.wg.Done()
			s.runLoop(ctx, e)
		}(e)
	}
	return nil
}

// Stop signals every loop and waits for them to finish. A firing in
// progress completes before its loop exits.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	slog.Info("Briefing scheduler stopped")
}

// Runs reports how many times each kind has fired.
func (s *Scheduler) Runs() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.runs))
	for k, v := range s.runs {
		out[k] = v
	}
	return out
}

// entries expands the schedule config into firing entries.
func (s *Scheduler) entries() ([]entry, error) {
	sched := s.cfg.Schedule
	var entries []entry

	h, m, err := parseClock(sched.MorningTime)
	if err != nil {
		return nil, fmt.Errorf("invalid morning_time %q: %w", sched.MorningTime, err)
	}
	entries = append(entries, entry{kind: KindMorning, hour: h, min: m})

	h, m, err = parseClock(sched.EODTime)
	if err != nil {
		return nil, fmt.Errorf("invalid eod_time %q: %w", sched.EODTime, err)
	}
	entries = append(entries, entry{kind: KindEOD, hour: h, min: m})

	for _, boundary := range sched.ShiftBoundaries {
		h, m, err = parseClock(boundary)
		if err != nil {
			return nil, fmt.Errorf("invalid shift boundary %q: %w", boundary, err)
		}
		entries = append(entries, entry{kind: KindHandoff, hour: h, min: m})
	}
	return entries, nil
}

// runLoop sleeps until the entry's next plant-local firing time,
// fires, and repeats until stopped.
func (s *Scheduler) runLoop(ctx context.Context, e entry) {
	log := slog.With("kind", e.kind, "at", fmt.Sprintf("%02d:%02d", e.hour, e.min))
	log.Info("Schedule loop started")

	for {
		now := s.Now().In(s.cfg.Location())
		timer := time.NewTimer(nextAfter(now, e.hour, e.min).Sub(now))

		select {
		case <-s.stopCh:
			timer.Stop()
			log.Info("Schedule loop shutting down")
			return
		case <-ctx.Done():
			timer.Stop()
			log.Info("Context cancelled, schedule loop shutting down")
			return
		case <-timer.C:
			s.fire(ctx, e.kind)
		}
	}
}

// fire generates the briefing for every configured user.
func (s *Scheduler) fire(ctx context.Context, kind string) {
	start := time.Now()
	for _, userID := range s.users {
		switch kind {
		case KindMorning:
			s.runner.PlantBriefing(ctx, userID, nil)
		case KindEOD:
			s.runner.EODBriefing(ctx, userID, "")
		case KindHandoff:
			s.runner.HandoffBriefing(ctx, userID)
		}
	}

	s.mu.Lock()
	s.runs[kind]++
	s.mu.Unlock()

	slog.Info("Scheduled briefings generated",
		"kind", kind,
		"users", len(s.users),
		"duration", time.Since(start))
}

// parseClock parses an "HH:MM" wall time.
func parseClock(value string) (hour, min int, err error) {
	if _, err = fmt.Sscanf(value, "%d:%d", &hour, &min); err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hour, min, nil
}

// nextAfter returns the next occurrence of the wall time strictly
// after now, in now's location.
func nextAfter(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
