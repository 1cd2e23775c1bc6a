// Package cache is the tiered tool response cache. Entries live in one
// of three tiers with different TTLs: live (snapshots), daily
// (summaries), static (catalog data). Each tier holds at most MaxSize
// entries with LRU eviction, and expiry is lazy: stale entries die on
// the read path.
package cache

import (
	"container/list"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/match"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/models"
)

// Cache is the tiered response cache. Safe for concurrent use.
type Cache struct {
	cfg *config.CacheConfig

	// Now is injectable for tests and defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	tiers map[string]*tierStore
	stats Stats
}

type tierStore struct {
	ttl     time.Duration
	maxSize int
	entries map[string]*list.Element
	lru     *list.List
}

type entry struct {
	key      string
	payload  []byte
	cachedAt time.Time
}

// Stats counts cache activity since startup.
type Stats struct {
	Hits          int64          `json:"hits"`
	Misses        int64          `json:"misses"`
	Evictions     int64          `json:"evictions"`
	Expirations   int64          `json:"expirations"`
	Invalidations int64          `json:"invalidations"`
	Entries       int            `json:"entries"`
	EntriesByTier map[string]int `json:"entries_by_tier"`

	// HitRate is hits over total lookups, 0 before the first lookup.
	HitRate float64 `json:"hit_rate"`
}

// New creates a cache with the configured tier TTLs and size cap.
func New(cfg *config.CacheConfig) *Cache {
	c := &Cache{cfg: cfg, tiers: map[string]*tierStore{}}
	for tier, ttl := range map[string]time.Duration{
		models.TierLive:   cfg.LiveTTL.D(),
		models.TierDaily:  cfg.DailyTTL.D(),
		models.TierStatic: cfg.StaticTTL.D(),
	} {
		c.tiers[tier] = &tierStore{
			ttl:     ttl,
			maxSize: cfg.MaxSize,
			entries: map[string]*list.Element{},
			lru:     list.New(),
		}
	}
	return c
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Get returns a deep copy of the cached result for the key, with
// metadata annotated for provenance (cached_at, cache_tier,
// ttl_seconds). The copy keeps cached entries immutable no matter what
// callers do with the result.
func (c *Cache) Get(key string) (models.ToolResult, bool) {
	if !c.cfg.IsEnabled() {
		return models.ToolResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for tier, store := range c.tiers {
		elem, ok := store.entries[key]
		if !ok {
			continue
		}
		ent := elem.Value.(*entry)
		if c.now().Sub(ent.cachedAt) > store.ttl {
			store.lru.Remove(elem)
			delete(store.entries, key)
			c.stats.Expirations++
			c.stats.Misses++
			return models.ToolResult{}, false
		}
		store.lru.MoveToFront(elem)

		var result models.ToolResult
		if err := json.Unmarshal(ent.payload, &result); err != nil {
			slog.Error("Corrupt cache entry dropped", "key", key, "error", err)
			store.lru.Remove(elem)
			delete(store.entries, key)
			c.stats.Misses++
			return models.ToolResult{}, false
		}
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata[models.MetaCacheTier] = tier
		result.Metadata[models.MetaCachedAt] = ent.cachedAt.UTC().Format(time.RFC3339)
		result.Metadata[models.MetaTTLSeconds] = int(store.ttl.Seconds())
		c.stats.Hits++
		return result, true
	}
	c.stats.Misses++
	return models.ToolResult{}, false
}

// Set stores a successful result in the tier its metadata names.
// Failures and tier "none" results are never cached.
func (c *Cache) Set(key string, result models.ToolResult) {
	if !c.cfg.IsEnabled() || !result.Success {
		return
	}
	tier, _ := result.Metadata[models.MetaCacheTier].(string)
	store, ok := c.tiers[tier]
	if !ok {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("Uncacheable tool result", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, exists := store.entries[key]; exists {
		store.lru.Remove(elem)
		delete(store.entries, key)
	}
	store.entries[key] = store.lru.PushFront(&entry{
		key:      key,
		payload:  payload,
		cachedAt: c.now(),
	})
	for store.maxSize > 0 && store.lru.Len() > store.maxSize {
		oldest := store.lru.Back()
		store.lru.Remove(oldest)
		delete(store.entries, oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
}

// InvalidateTier drops every entry in one tier and returns the count.
func (c *Cache) InvalidateTier(tier string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	store, ok := c.tiers[tier]
	if !ok {
		return 0
	}
	n := store.lru.Len()
	store.entries = map[string]*list.Element{}
	store.lru.Init()
	c.stats.Invalidations += int64(n)
	return n
}

// InvalidateTool drops every entry for one tool and returns the count.
func (c *Cache) InvalidateTool(tool string) int {
	return c.InvalidateMatching(tool + ":*")
}

// InvalidateMatching drops entries whose key matches the glob pattern
// and returns the count.
func (c *Cache) InvalidateMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, store := range c.tiers {
		for key, elem := range store.entries {
			if match.Match(key, pattern) {
				store.lru.Remove(elem)
				delete(store.entries, key)
				n++
			}
		}
	}
	c.stats.Invalidations += int64(n)
	return n
}

// InvalidateAll empties the cache and returns the count.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, store := range c.tiers {
		n += store.lru.Len()
		store.entries = map[string]*list.Element{}
		store.lru.Init()
	}
	c.stats.Invalidations += int64(n)
	return n
}

// Stats returns a snapshot of the counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.EntriesByTier = make(map[string]int, len(c.tiers))
	for tier, store := range c.tiers {
		s.Entries += store.lru.Len()
		s.EntriesByTier[tier] = store.lru.Len()
	}
	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRate = float64(s.Hits) / float64(lookups)
	}
	return s
}

// TierOf reports the tier holding the key, for diagnostics.
func (c *Cache) TierOf(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tier, store := range c.tiers {
		if _, ok := store.entries[key]; ok {
			return tier, true
		}
	}
	return "", false
}
