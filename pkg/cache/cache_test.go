package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(maxSize int) (*Cache, *time.Time) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	cfg := config.DefaultCacheConfig()
	cfg.MaxSize = maxSize
	c := New(cfg)
	c.Now = func() time.Time { return now }
	return c, &now
}

func liveResult(v string) models.ToolResult {
	r := models.NewToolResult(map[string]any{"value": v})
	r.Metadata[models.MetaCacheTier] = models.TierLive
	return r
}

func TestCacheHitAnnotatesProvenance(t *testing.T) {
	c, _ := testCache(10)
	c.Set("oee_query:global:abc", liveResult("x"))

	got, ok := c.Get("oee_query:global:abc")
	require.True(t, ok)
	assert.Equal(t, models.TierLive, got.Metadata[models.MetaCacheTier])
	assert.Equal(t, 60, got.Metadata[models.MetaTTLSeconds])
	assert.NotEmpty(t, got.Metadata[models.MetaCachedAt])

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.EntriesByTier[models.TierLive])
}

func TestCacheStatsHitRate(t *testing.T) {
	c, _ := testCache(10)
	assert.Equal(t, 0.0, c.Stats().HitRate)

	c.Set("oee_query:global:abc", liveResult("x"))
	c.Get("oee_query:global:abc")
	c.Get("oee_query:global:abc")
	c.Get("oee_query:global:missing")
	c.Get("oee_query:global:missing")

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 2, stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestCacheDeepCopyOnGet(t *testing.T) {
	c, _ := testCache(10)
	c.Set("k:global:1", liveResult("original"))

	first, ok := c.Get("k:global:1")
	require.True(t, ok)
	first.Data.(map[string]any)["value"] = "mutated"

	second, ok := c.Get("k:global:1")
	require.True(t, ok)
	assert.Equal(t, "original", second.Data.(map[string]any)["value"])
}

func TestCacheExpiryIsLazy(t *testing.T) {
	c, now := testCache(10)
	c.Set("k:global:1", liveResult("x"))

	*now = now.Add(61 * time.Second)
	_, ok := c.Get("k:global:1")
	assert.False(t, ok)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Expirations)
	assert.Equal(t, 0, stats.Entries)
}

func TestCacheTierTTLsDiffer(t *testing.T) {
	c, now := testCache(10)
	daily := models.NewToolResult(nil)
	daily.Metadata[models.MetaCacheTier] = models.TierDaily
	c.Set("live:global:1", liveResult("x"))
	c.Set("daily:global:1", daily)

	// Past the live TTL but inside the daily TTL.
	*now = now.Add(5 * time.Minute)
	_, liveOK := c.Get("live:global:1")
	_, dailyOK := c.Get("daily:global:1")
	assert.False(t, liveOK)
	assert.True(t, dailyOK)
}

func TestCacheLRUEvictionAtCapacity(t *testing.T) {
	c, _ := testCache(3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k:global:%d", i), liveResult("x"))
	}
	// Touch the oldest so it is no longer the eviction candidate.
	_, ok := c.Get("k:global:0")
	require.True(t, ok)

	c.Set("k:global:3", liveResult("x"))

	_, ok = c.Get("k:global:1")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("k:global:0")
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCacheNeverStoresFailures(t *testing.T) {
	c, _ := testCache(10)
	failed := models.FailedToolResult("boom")
	failed.Metadata[models.MetaCacheTier] = models.TierLive
	c.Set("k:global:1", failed)

	_, ok := c.Get("k:global:1")
	assert.False(t, ok)
}

func TestCacheSkipsTierNone(t *testing.T) {
	c, _ := testCache(10)
	r := models.NewToolResult(nil)
	r.Metadata[models.MetaCacheTier] = models.TierNone
	c.Set("k:global:1", r)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheDisabledMode(t *testing.T) {
	cfg := config.DefaultCacheConfig()
	off := false
	cfg.Enabled = &off
	c := New(cfg)

	c.Set("k:global:1", liveResult("x"))
	_, ok := c.Get("k:global:1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheInvalidation(t *testing.T) {
	c, _ := testCache(10)
	daily := models.NewToolResult(nil)
	daily.Metadata[models.MetaCacheTier] = models.TierDaily
	c.Set("oee_query:global:1", daily)
	c.Set("alert_check:global:1", liveResult("x"))
	c.Set("alert_check:global:2", liveResult("y"))

	assert.Equal(t, 1, c.InvalidateTier(models.TierDaily))
	assert.Equal(t, 2, c.InvalidateTool("alert_check"))
	assert.Equal(t, 0, c.Stats().Entries)
	assert.EqualValues(t, 3, c.Stats().Invalidations)
}

func TestCacheInvalidateMatching(t *testing.T) {
	c, _ := testCache(10)
	c.Set("oee_query:user-1:aaa", liveResult("x"))
	c.Set("oee_query:user-2:bbb", liveResult("y"))
	c.Set("alert_check:user-1:ccc", liveResult("z"))

	assert.Equal(t, 2, c.InvalidateMatching("*:user-1:*"))
	_, ok := c.Get("oee_query:user-2:bbb")
	assert.True(t, ok)
}

func TestKeyCanonicalization(t *testing.T) {
	a := Key("oee_query", "u1", map[string]any{"area": "grinding", "days": 7})
	b := Key("oee_query", "u1", map[string]any{"days": 7, "area": "grinding"})
	assert.Equal(t, a, b, "argument order never splits the cache")

	// Caller identity and refresh flags are excluded from the hash.
	c := Key("oee_query", "u1", map[string]any{
		"area": "grinding", "days": 7, "user_id": "u1", "force_refresh": true,
	})
	assert.Equal(t, a, c)

	d := Key("oee_query", "u1", map[string]any{"area": "packing", "days": 7})
	assert.NotEqual(t, a, d)

	assert.Regexp(t, `^oee_query:u1:[0-9a-f]{16}$`, a)
}
