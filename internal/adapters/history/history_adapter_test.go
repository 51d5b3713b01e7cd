package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func event(id string, offset time.Duration, query string) *entities.SearchEvent {
	return &entities.SearchEvent{
		ID:              id,
		Query:           query,
		NormalizedQuery: query,
		ContentType:     entities.ContentTypeAll,
		ResultCount:     3,
		Timestamp:       base.Add(offset),
	}
}

func ids(events []*entities.SearchEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func repositoriesUnderTest(t *testing.T) map[string]repositories.SearchHistoryRepository {
	t.Helper()
	badgerRepo, err := OpenBadgerHistoryAdapter("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerRepo.Close() })

	return map[string]repositories.SearchHistoryRepository{
		"memory": NewMemoryHistoryAdapter(),
		"badger": badgerRepo,
	}
}

func TestHistoryAdapters_ListSinceIsOrdered(t *testing.T) {
	for name, repo := range repositoriesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Append(ctx, event("c", 2*time.Hour, "cafe")))
			require.NoError(t, repo.Append(ctx, event("a", 0, "library")))
			require.NoError(t, repo.Append(ctx, event("b", time.Hour, "park")))

			all, err := repo.ListSince(ctx, base)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, ids(all))

			recent, err := repo.ListSince(ctx, base.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, ids(recent))
		})
	}
}

func TestHistoryAdapters_AddInteraction(t *testing.T) {
	for name, repo := range repositoriesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Append(ctx, event("a", 0, "library")))

			click := entities.Interaction{ResultID: "venue-1", Position: 0, InteractionType: entities.InteractionClick, Timestamp: base}
			require.NoError(t, repo.AddInteraction(ctx, "a", click))

			events, err := repo.ListSince(ctx, base)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.True(t, events[0].HasClick())

			err = repo.AddInteraction(ctx, "missing", click)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		})
	}
}

func TestHistoryAdapters_PurgeOlderThan(t *testing.T) {
	for name, repo := range repositoriesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Append(ctx, event("old", -100*24*time.Hour, "museum")))
			require.NoError(t, repo.Append(ctx, event("older", -200*24*time.Hour, "museum")))
			require.NoError(t, repo.Append(ctx, event("new", 0, "library")))

			removed, err := repo.PurgeOlderThan(ctx, base.Add(-90*24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			rest, err := repo.ListSince(ctx, time.Time{})
			require.NoError(t, err)
			assert.Equal(t, []string{"new"}, ids(rest))
		})
	}
}

func TestMemoryHistoryAdapter_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryAdapter()
	e := event("a", 0, "library")
	require.NoError(t, repo.Append(ctx, e))

	e.Query = "changed"
	events, err := repo.ListSince(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, "library", events[0].Query)
}

func TestMemoryHistoryAdapter_BoundedDropsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewBoundedMemoryHistoryAdapter(2)

	require.NoError(t, repo.Append(ctx, event("b", time.Minute, "cafe")))
	require.NoError(t, repo.Append(ctx, event("c", 2*time.Minute, "park")))
	require.NoError(t, repo.Append(ctx, event("a", 0, "library")))
	require.NoError(t, repo.Append(ctx, event("d", 3*time.Minute, "museum")))

	events, err := repo.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(events))
}
