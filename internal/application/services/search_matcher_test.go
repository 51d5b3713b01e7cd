package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

func venueIndexEntry(id, name, city, category string, seed int, created time.Time) *entities.IndexEntry {
	return NewVenueIndexEntry(&entities.Venue{
		ID:          id,
		Name:        name,
		City:        city,
		Category:    category,
		IsPublished: true,
		CreatedAt:   created,
	}, seed)
}

func resultIDs(results []entities.ScoredResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Entry.ID)
	}
	return out
}

func TestQueryMatcher_CentralLibrary(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	entry := venueIndexEntry("lib", "Central Library", "London", "library", 0, time.Now())

	results := matcher.Match("library", entities.SearchFilters{}, []*entities.IndexEntry{entry})

	require.Len(t, results, 1)
	assert.Greater(t, results[0].Score, 0)
	assert.Equal(t, 8, results[0].Score) // name +5, terms +3
	assert.Contains(t, results[0].MatchedTerms, "library")
}

func TestQueryMatcher_AddingNameTermIncreasesScore(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	without := venueIndexEntry("a", "Riverside Hall", "Leeds", "", 0, created)
	without.SearchTerms = mergeTerms(without.SearchTerms, []string{"books"})
	with := venueIndexEntry("a", "Riverside Hall Books", "Leeds", "", 0, created)

	before := matcher.Match("books", entities.SearchFilters{}, []*entities.IndexEntry{without})
	after := matcher.Match("books", entities.SearchFilters{}, []*entities.IndexEntry{with})

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Greater(t, after[0].Score, before[0].Score)
}

func TestQueryMatcher_BlogWeights(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	entry := NewBlogIndexEntry(sampleBlog(), 0)

	byTitle := matcher.Match("coffee", entities.SearchFilters{}, []*entities.IndexEntry{entry})
	require.Len(t, byTitle, 1)
	assert.Equal(t, 13, byTitle[0].Score) // title +10, terms +3

	byAuthor := matcher.Match("rivers", entities.SearchFilters{}, []*entities.IndexEntry{entry})
	require.Len(t, byAuthor, 1)
	assert.Equal(t, 8, byAuthor[0].Score) // author +5, terms +3

	byVenue := matcher.Match("brew", entities.SearchFilters{}, []*entities.IndexEntry{entry})
	require.Len(t, byVenue, 1)
	assert.Equal(t, 7, byVenue[0].Score) // linked venue +4, terms +3
}

func TestQueryMatcher_DiscardsZeroScores(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	entry := venueIndexEntry("lib", "Central Library", "London", "library", 0, time.Now())

	assert.Empty(t, matcher.Match("swimming", entities.SearchFilters{}, []*entities.IndexEntry{entry}))
}

func TestQueryMatcher_QueryWithoutTermsMatchesNothing(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []*entities.IndexEntry{
		venueIndexEntry("a", "Central Library", "London", "", 42, created),
		venueIndexEntry("b", "Coffee Shop", "London", "", 25, created),
	}

	for _, query := range []string{"the", "zz", "xyzzy"} {
		assert.Empty(t, matcher.Match(query, entities.SearchFilters{}, entries), query)
	}
}

func TestQueryMatcher_EmptyQueryScoresByPopularity(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []*entities.IndexEntry{
		venueIndexEntry("quiet", "Quiet Corner", "York", "", 25, created),
		venueIndexEntry("busy", "Busy Hub", "York", "", 42, created),
	}

	results := matcher.Match("  ", entities.SearchFilters{}, entries)

	assert.Equal(t, []string{"busy", "quiet"}, resultIDs(results))
	assert.Equal(t, 42, results[0].Score)
}

func TestQueryMatcher_TiesBreakOnRecency(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	older := venueIndexEntry("old", "Park Cafe", "Bath", "", 0, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := venueIndexEntry("new", "Park Cafe", "Bath", "", 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	results := matcher.Match("cafe", entities.SearchFilters{}, []*entities.IndexEntry{older, newer})

	assert.Equal(t, []string{"new", "old"}, resultIDs(results))
}

func TestQueryMatcher_Filters(t *testing.T) {
	matcher := NewQueryMatcher(DefaultScoringWeights())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	matcher.now = func() time.Time { return now }

	library := venueIndexEntry("lib", "Town Library", "Hull", "Library", 0, now.AddDate(0, 0, -3))
	library.Tags = []string{"Quiet"}
	library.CreatedBy = "owner-1"
	cafe := venueIndexEntry("cafe", "Town Cafe", "Hull", "Cafe", 0, now.AddDate(0, -2, 0))
	hidden := venueIndexEntry("hidden", "Town Hall", "Hull", "Library", 0, now)
	hidden.IsPublished = false
	entries := []*entities.IndexEntry{library, cafe, hidden}

	assert.Equal(t, []string{"lib"}, resultIDs(matcher.Match("town", entities.SearchFilters{Category: "library"}, entries)))
	assert.Equal(t, []string{"lib", "cafe"}, resultIDs(matcher.Match("town", entities.SearchFilters{Category: "all"}, entries)))
	assert.Equal(t, []string{"lib"}, resultIDs(matcher.Match("town", entities.SearchFilters{Tags: []string{"quiet"}}, entries)))
	assert.Equal(t, []string{"lib"}, resultIDs(matcher.Match("town", entities.SearchFilters{AuthorID: "owner-1"}, entries)))
	assert.Equal(t, []string{"lib"}, resultIDs(matcher.Match("town", entities.SearchFilters{DateRange: entities.DateRangeMonth}, entries)))
	assert.Equal(t, []string{"lib", "cafe"}, resultIDs(matcher.Match("town", entities.SearchFilters{DateRange: entities.DateRangeYear}, entries)))
}
