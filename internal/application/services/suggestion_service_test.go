package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/history"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/search"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

func suggestionIndex(t *testing.T) repositories.SearchIndexRepository {
	t.Helper()
	ctx := context.Background()
	store := search.NewMemoryIndexAdapter()
	for _, v := range []*entities.Venue{
		{ID: "1", Name: "Coworking Space", City: "Coventry", IsPublished: true},
		{ID: "2", Name: "Coffee Shop", City: "Leeds", IsPublished: true},
		{ID: "3", Name: "Quiet Garden", City: "York", IsPublished: false},
	} {
		require.NoError(t, store.Upsert(ctx, NewVenueIndexEntry(v, 0)))
	}
	require.NoError(t, store.Upsert(ctx, NewBlogIndexEntry(&entities.Blog{
		ID: "b1", Title: "Community Corners", AuthorName: "Lee", IsPublished: true,
	}, 0)))
	return store
}

func count(values []string, v string) int {
	n := 0
	for _, x := range values {
		if x == v {
			n++
		}
	}
	return n
}

func TestSuggest_CoworkingAndCoffee(t *testing.T) {
	svc := NewSuggestionService(suggestionIndex(t), nil, 50)

	got := svc.Suggest(context.Background(), "co", entities.ParseContentType("venue"), 5)

	assert.LessOrEqual(t, len(got), 5)
	assert.Equal(t, 1, count(got, "coworking space"))
	assert.Equal(t, 1, count(got, "coffee shop"))
	assert.NotContains(t, got, "community corners")
}

func TestSuggest_CollectsTermsAndCities(t *testing.T) {
	svc := NewSuggestionService(suggestionIndex(t), nil, 50)

	got := svc.Suggest(context.Background(), "cov", entities.ContentTypeAll, 10)

	assert.Equal(t, []string{"coventry"}, got)
}

func TestSuggest_ShortPartialYieldsNothing(t *testing.T) {
	svc := NewSuggestionService(suggestionIndex(t), nil, 50)

	assert.Empty(t, svc.Suggest(context.Background(), "c", entities.ContentTypeAll, 10))
	assert.Empty(t, svc.Suggest(context.Background(), " ", entities.ContentTypeAll, 10))
	assert.NotNil(t, svc.Suggest(context.Background(), "", entities.ContentTypeAll, 10))
}

func TestSuggest_RespectsLimitAndContentType(t *testing.T) {
	svc := NewSuggestionService(suggestionIndex(t), nil, 50)

	assert.Len(t, svc.Suggest(context.Background(), "co", entities.ContentTypeAll, 2), 2)
	assert.Equal(t, []string{"community corners", "community", "corners"},
		svc.Suggest(context.Background(), "co", entities.ContentTypeBlogs, 10))
}

type failingSampleIndex struct {
	repositories.SearchIndexRepository
}

func (failingSampleIndex) Sample(ctx context.Context, entityType entities.EntityType, n int) ([]*entities.IndexEntry, error) {
	return nil, errors.New("index unavailable")
}

func TestSuggest_IndexFailureYieldsEmpty(t *testing.T) {
	svc := NewSuggestionService(failingSampleIndex{}, nil, 50)

	assert.Empty(t, svc.Suggest(context.Background(), "coffee", entities.ContentTypeAll, 10))
}

func TestSuggestPersonalized(t *testing.T) {
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, DefaultAnalyticsOptions())
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, q := range []string{"coffee near me", "library", "cozy cafe"} {
		e := searchEvent(q, "user-1", q, 1, at.Add(time.Duration(i)*time.Minute))
		e.ContentType = entities.ContentTypeBlogs
		e.Filters.Category = "cafe"
		tracker.Record(e)
	}
	tracker.Close()

	svc := NewSuggestionService(suggestionIndex(t), tracker, 50)

	got := svc.SuggestPersonalized(context.Background(), "user-1", "co", entities.ContentTypeAll, 20)
	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, []string{"cozy cafe", "coffee near me"}, got[:2])
	assert.Contains(t, got, "coworking space")
	assert.Equal(t, []string{"co blogs", "co cafe"}, got[len(got)-2:])

	capped := svc.SuggestPersonalized(context.Background(), "user-1", "co", entities.ContentTypeAll, 3)
	assert.Len(t, capped, 3)

	anonymous := svc.SuggestPersonalized(context.Background(), "", "co", entities.ContentTypeAll, 20)
	assert.Equal(t, svc.Suggest(context.Background(), "co", entities.ContentTypeAll, 20), anonymous)
}
