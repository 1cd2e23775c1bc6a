package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cleanupNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func seedBriefings(store *briefing.Store) {
	store.Save(briefing.Briefing{ID: "brf-old", UserID: "usr-1",
		GeneratedAt: cleanupNow.Add(-8 * 24 * time.Hour)})
	store.Save(briefing.Briefing{ID: "brf-week", UserID: "usr-1",
		GeneratedAt: cleanupNow.Add(-6 * 24 * time.Hour)})
	store.Save(briefing.Briefing{ID: "brf-fresh", UserID: "usr-1",
		GeneratedAt: cleanupNow.Add(-time.Hour)})
}

func TestPruneRespectsRetention(t *testing.T) {
	store := briefing.NewStore()
	seedBriefings(store)

	svc := New(store, 7*24*time.Hour, time.Hour)
	svc.Now = func() time.Time { return cleanupNow }

	assert.Equal(t, 1, svc.Prune())

	_, ok := store.Get("brf-old")
	assert.False(t, ok)
	_, ok = store.Get("brf-week")
	assert.True(t, ok)
	_, ok = store.Get("brf-fresh")
	assert.True(t, ok)

	// Idempotent.
	assert.Equal(t, 0, svc.Prune())
}

func TestZeroValuesFallBackToDefaults(t *testing.T) {
	svc := New(briefing.NewStore(), 0, 0)
	assert.Equal(t, DefaultRetention, svc.retention)
	assert.Equal(t, DefaultInterval, svc.interval)
}

func TestStartPrunesImmediatelyAndStops(t *testing.T) {
	store := briefing.NewStore()
	seedBriefings(store)

	svc := New(store, 7*24*time.Hour, time.Hour)
	svc.Now = func() time.Time { return cleanupNow }

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		_, ok := store.Get("brf-old")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
