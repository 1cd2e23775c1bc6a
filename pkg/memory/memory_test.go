package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubSearchRanksByOverlap(t *testing.T) {
	store := NewStubStore().Seed("u1",
		Entry{ID: "mem-1", Content: "Grinder 2 bearing failure caused extended downtime last month"},
		Entry{ID: "mem-2", Content: "Packing line changeover checklist updated"},
	)

	got, err := store.Search(context.Background(), "grinder 2 downtime", "u1", 5, 0.3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mem-1", got[0].ID)
	assert.Greater(t, got[0].Score, 0.5)
}

func TestStubSearchHonorsLimitAndUser(t *testing.T) {
	store := NewStubStore().Seed("u1",
		Entry{ID: "mem-1", Content: "oee target discussion"},
		Entry{ID: "mem-2", Content: "oee improvement plan"},
	)

	got, err := store.Search(context.Background(), "oee", "u1", 1, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = store.Search(context.Background(), "oee", "other-user", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSafeHelpersDegradeToEmpty(t *testing.T) {
	store := NewStubStore().Seed("u1", Entry{ID: "mem-1", Content: "anything"})
	store.Err = errors.New("backend unavailable")

	assert.Empty(t, SafeSearch(context.Background(), store, "anything", "u1", 5, 0))
	assert.Empty(t, SafeGetAll(context.Background(), store, "u1"))
	assert.Empty(t, SafeSearch(context.Background(), nil, "anything", "u1", 5, 0))
}

func TestGetAllCopies(t *testing.T) {
	store := NewStubStore().Seed("u1", Entry{ID: "mem-1", Content: "original"})

	first, err := store.GetAll(context.Background(), "u1")
	require.NoError(t, err)
	first[0].Content = "mutated"

	second, _ := store.GetAll(context.Background(), "u1")
	assert.Equal(t, "original", second[0].Content)
}
