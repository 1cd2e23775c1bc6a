package briefing

import (
	"sort"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/models"
)

// Store retains generated briefing records in process so the
// end-of-day flow can find the morning briefing it compares against.
type Store struct {
	mu      sync.RWMutex
	records map[string]Briefing
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Briefing)}
}

// Save records a briefing, keyed by its id.
func (s *Store) Save(b Briefing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[b.ID] = b
}

// Get returns the briefing with the given id.
func (s *Store) Get(id string) (Briefing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.records[id]
	return b, ok
}

// FindMorning returns the user's latest plant or supervisor briefing
// for the date that was generated before noon in the given zone.
func (s *Store) FindMorning(userID string, date models.Date, loc *time.Location) (Briefing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found  Briefing
		hasOne bool
	)
	for _, b := range s.records {
		if b.UserID != userID || b.Date != date {
			continue
		}
		if b.Type != TypePlant && b.Type != TypeSupervisor {
			continue
		}
		if b.GeneratedAt.In(loc).Hour() >= 12 {
			continue
		}
		if !hasOne || b.GeneratedAt.After(found.GeneratedAt) {
			found = b
			hasOne = true
		}
	}
	return found, hasOne
}

// PruneOlderThan drops briefings generated before the cutoff and
// returns how many were removed.
func (s *Store) PruneOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, b := range s.records {
		if b.GeneratedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// ListByUser returns the user's briefings, newest first.
func (s *Store) ListByUser(userID string) []Briefing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Briefing
	for _, b := range s.records {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out
}
