package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/history"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

var analyticsNow = time.Date(2026, 5, 8, 12, 0, 0, 0, time.UTC)

func analyticsOptions(random float64) AnalyticsOptions {
	opts := DefaultAnalyticsOptions()
	opts.Random = func() float64 { return random }
	opts.Now = func() time.Time { return analyticsNow }
	return opts
}

func searchEvent(id, user, query string, results int, at time.Time) *entities.SearchEvent {
	return &entities.SearchEvent{
		ID:              id,
		UserID:          user,
		Query:           query,
		ContentType:     entities.ContentTypeAll,
		ResultCount:     results,
		ExecutionTimeMs: 40,
		Timestamp:       at,
	}
}

func TestAnalytics_RecordPersistsAndCounts(t *testing.T) {
	repo := history.NewMemoryHistoryAdapter()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	tracker := NewSearchAnalyticsService(repo, publisher, analyticsOptions(0.05))
	tracker.Record(searchEvent("s1", "user-1", "Central  Library", 2, analyticsNow))
	tracker.Record(searchEvent("s2", "user-1", "central library", 1, analyticsNow))
	tracker.Close()

	stored, err := repo.ListSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "central library", stored[0].NormalizedQuery)

	assert.Equal(t, []entities.QueryCount{{Query: "central library", Count: 2}}, tracker.PopularQueries(5))
	assert.Equal(t, 2, tracker.Performance().Samples)
	publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestAnalytics_SamplingSkipsPerformance(t *testing.T) {
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, analyticsOptions(0.5))
	tracker.Record(searchEvent("s1", "", "park", 1, analyticsNow))
	tracker.Close()

	assert.Zero(t, tracker.Performance().Samples)
	assert.Len(t, tracker.PopularQueries(0), 1)
}

func TestAnalytics_StorageFailureIsSwallowed(t *testing.T) {
	repo := new(MockHistoryRepository)
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	repo.On("AddInteraction", mock.Anything, "s1", mock.Anything).Return(errors.New("disk full"))

	tracker := NewSearchAnalyticsService(repo, nil, analyticsOptions(1))
	tracker.Record(searchEvent("s1", "user-1", "museum", 4, analyticsNow))
	tracker.RecordInteraction("s1", "venue-3", 0, entities.InteractionClick)
	tracker.Close()

	recent := tracker.RecentSearches("user-1")
	require.Len(t, recent, 1)
	assert.True(t, recent[0].HasClick())
	repo.AssertExpectations(t)
}

func TestAnalytics_RecordAfterCloseIsIgnored(t *testing.T) {
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, analyticsOptions(1))
	tracker.Close()

	assert.NotPanics(t, func() {
		tracker.Record(searchEvent("s1", "", "late", 0, analyticsNow))
		tracker.Close()
	})
}

func TestAnalytics_WindowKeepsMostRecent(t *testing.T) {
	opts := analyticsOptions(1)
	opts.HistoryWindow = 3
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, opts)

	for i, q := range []string{"one", "two", "three", "four"} {
		e := searchEvent(q, "user-1", q, 1, analyticsNow.Add(time.Duration(i)*time.Minute))
		tracker.Record(e)
	}
	tracker.Close()

	var queries []string
	for _, e := range tracker.RecentSearches("user-1") {
		queries = append(queries, e.Query)
	}
	assert.Equal(t, []string{"four", "three", "two"}, queries)
	assert.Empty(t, tracker.RecentSearches("someone-else"))
}

func TestAnalytics_BoundsInProcessState(t *testing.T) {
	opts := analyticsOptions(1)
	opts.MaxTrackedUsers = 2
	opts.MaxPopularQueries = 2
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, opts)

	tracker.Record(searchEvent("s1", "user-1", "alpha", 1, analyticsNow.Add(-3*time.Minute)))
	tracker.Record(searchEvent("s2", "user-2", "alpha", 1, analyticsNow.Add(-2*time.Minute)))
	tracker.Record(searchEvent("s3", "user-3", "beta", 1, analyticsNow.Add(-time.Minute)))
	tracker.Record(searchEvent("s4", "user-3", "gamma", 1, analyticsNow))
	tracker.Close()

	assert.Empty(t, tracker.RecentSearches("user-1"))
	assert.Len(t, tracker.RecentSearches("user-2"), 1)
	assert.Len(t, tracker.RecentSearches("user-3"), 2)
	assert.Equal(t, []entities.QueryCount{{Query: "alpha", Count: 2}}, tracker.PopularQueries(5))
}

func TestAnalytics_Preferences(t *testing.T) {
	tracker := NewSearchAnalyticsService(history.NewMemoryHistoryAdapter(), nil, analyticsOptions(1))

	for i, ct := range []entities.ContentType{entities.ContentTypeBlogs, entities.ContentTypeBlogs, entities.ContentTypeVenues, entities.ContentTypeAll} {
		e := searchEvent(string(rune('a'+i)), "user-1", "coffee", 1, analyticsNow)
		e.ContentType = ct
		e.Filters.Category = "Cafe"
		tracker.Record(e)
	}
	tracker.Close()

	prefs := tracker.Preferences("user-1")
	assert.Equal(t, entities.ContentTypeBlogs, prefs.TopContentType)
	assert.Equal(t, "cafe", prefs.TopCategory)
}

func seedHistory(t *testing.T, repo repositories.SearchHistoryRepository) {
	t.Helper()
	ctx := context.Background()
	day := 24 * time.Hour

	clicked := searchEvent("c1", "u", "library", 3, analyticsNow.Add(-1*day))
	clicked.Interactions = []entities.Interaction{{ResultID: "venue-1", InteractionType: entities.InteractionClick}}
	current := []*entities.SearchEvent{
		clicked,
		searchEvent("c2", "u", "library", 3, analyticsNow.Add(-2*day)),
		searchEvent("c3", "u", "Library", 3, analyticsNow.Add(-3*day)),
		searchEvent("c4", "u", "cafe", 0, analyticsNow.Add(-4*day)),
	}
	current[3].ContentType = entities.ContentTypeVenues
	previous := []*entities.SearchEvent{
		searchEvent("p1", "u", "library", 2, analyticsNow.Add(-8*day)),
		searchEvent("p2", "u", "library", 2, analyticsNow.Add(-9*day)),
		searchEvent("p3", "u", "park", 2, analyticsNow.Add(-10*day)),
		searchEvent("p4", "u", "park", 2, analyticsNow.Add(-11*day)),
	}
	for _, e := range append(current, previous...) {
		require.NoError(t, repo.Append(ctx, e))
	}
}

func TestAnalytics_GetAnalytics(t *testing.T) {
	repo := history.NewMemoryHistoryAdapter()
	seedHistory(t, repo)
	tracker := NewSearchAnalyticsService(repo, nil, analyticsOptions(1))
	defer tracker.Close()

	summary, err := tracker.GetAnalytics(context.Background(), entities.TimeframeWeek)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalSearches)
	assert.Equal(t, 2, summary.UniqueQueries)
	assert.InDelta(t, 2.25, summary.AverageResultCount, 1e-9)
	assert.InDelta(t, 40, summary.AverageExecutionTimeMs, 1e-9)
	assert.Equal(t, []entities.QueryCount{{Query: "library", Count: 3}, {Query: "cafe", Count: 1}}, summary.TopQueries)
	assert.Equal(t, 3, summary.ContentTypeDistribution[entities.ContentTypeAll])
	assert.Equal(t, 1, summary.ContentTypeDistribution[entities.ContentTypeVenues])
	assert.InDelta(t, 1.0/3.0, summary.ConversionRate, 1e-9)

	assert.Len(t, summary.DailySearches, 8)
	total := 0
	for _, d := range summary.DailySearches {
		total += d.Count
	}
	assert.Equal(t, 4, total)

	trends := make(map[string]entities.Trend)
	for _, tr := range summary.Trends {
		trends[tr.Query] = tr.Trend
	}
	assert.Equal(t, map[string]entities.Trend{
		"library": entities.TrendRising,
		"cafe":    entities.TrendNew,
		"park":    entities.TrendDeclining,
	}, trends)
}

func TestAnalytics_GetAnalyticsPropagatesStorageErrors(t *testing.T) {
	repo := new(MockHistoryRepository)
	repo.On("ListSince", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	tracker := NewSearchAnalyticsService(repo, nil, analyticsOptions(1))
	defer tracker.Close()

	_, err := tracker.GetAnalytics(context.Background(), entities.TimeframeDay)
	assert.Error(t, err)
}

func TestAnalytics_QueryTrends(t *testing.T) {
	repo := history.NewMemoryHistoryAdapter()
	seedHistory(t, repo)
	tracker := NewSearchAnalyticsService(repo, nil, analyticsOptions(1))
	defer tracker.Close()

	trends, err := tracker.QueryTrends(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, trends, 3)
	assert.Equal(t, "library", trends[0].Query)
	assert.InDelta(t, 50, trends[0].ChangePercent, 1e-9)
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		current, previous int
		want              entities.Trend
	}{
		{13, 10, entities.TrendRising},
		{12, 10, entities.TrendStable},
		{8, 10, entities.TrendStable},
		{7, 10, entities.TrendDeclining},
		{3, 0, entities.TrendNew},
		{0, 0, entities.TrendStable},
		{0, 4, entities.TrendDeclining},
	}
	for _, tc := range cases {
		got, _ := ClassifyTrend(tc.current, tc.previous)
		assert.Equal(t, tc.want, got, "current=%d previous=%d", tc.current, tc.previous)
	}
}

func TestAnalytics_PurgeHistory(t *testing.T) {
	repo := history.NewMemoryHistoryAdapter()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, searchEvent("old", "u", "museum", 1, analyticsNow.Add(-120*24*time.Hour))))
	require.NoError(t, repo.Append(ctx, searchEvent("new", "u", "museum", 1, analyticsNow)))

	tracker := NewSearchAnalyticsService(repo, nil, analyticsOptions(1))
	defer tracker.Close()

	removed, err := tracker.PurgeHistory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	rest, err := repo.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "new", rest[0].ID)
}
