// Package memory consults an external memory service as an opaque
// evidence source. Lookups are best effort: a failed or unavailable
// backend degrades to an empty list, never to an error the caller has
// to handle.
package memory

import "context"

// Entry is one memory record as the backend returns it.
type Entry struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store is the read contract against the memory service.
type Store interface {
	// Search returns entries relevant to the query for the user, best
	// match first, scored in [0,1] and filtered by threshold.
	Search(ctx context.Context, query, userID string, limit int, threshold float64) ([]Entry, error)
	// GetAll returns every entry stored for the user.
	GetAll(ctx context.Context, userID string) ([]Entry, error)
}

// SafeSearch wraps Store.Search with the degrade-to-empty policy.
func SafeSearch(ctx context.Context, s Store, query, userID string, limit int, threshold float64) []Entry {
	if s == nil {
		return nil
	}
	entries, err := s.Search(ctx, query, userID, limit, threshold)
	if err != nil {
		return nil
	}
	return entries
}

// SafeGetAll wraps Store.GetAll with the degrade-to-empty policy.
func SafeGetAll(ctx context.Context, s Store, userID string) []Entry {
	if s == nil {
		return nil
	}
	entries, err := s.GetAll(ctx, userID)
	if err != nil {
		return nil
	}
	return entries
}
