package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// StubStore is an in-process Store for tests and single-node
// deployments without a memory backend. Search scores entries by word
// overlap with the query. Setting Err makes every call fail, which
// callers see as empty results through the Safe helpers.
type StubStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	Err     error
}

// NewStubStore returns an empty stub.
func NewStubStore() *StubStore {
	return &StubStore{entries: make(map[string][]Entry)}
}

// Seed adds entries for a user and returns the stub for chaining.
func (s *StubStore) Seed(userID string, entries ...Entry) *StubStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], entries...)
	return s
}

func (s *StubStore) Search(_ context.Context, query, userID string, limit int, threshold float64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	queryWords := wordSet(query)
	var matched []Entry
	for _, e := range s.entries[userID] {
		score := overlapScore(queryWords, wordSet(e.Content))
		if score < threshold {
			continue
		}
		scored := e
		scored.Score = score
		matched = append(matched, scored)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Score > matched[j].Score })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *StubStore) GetAll(_ context.Context, userID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Entry, len(s.entries[userID]))
	copy(out, s.entries[userID])
	return out, nil
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,;:!?()")] = true
	}
	delete(set, "")
	return set
}

// overlapScore is the share of query words present in the entry.
func overlapScore(query, entry map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for w := range query {
		if entry[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

var _ Store = (*StubStore)(nil)
