package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchFilters_IgnoresUnknownKeys(t *testing.T) {
	f := ParseSearchFilters(map[string]any{
		"category":      "Library",
		"tags":          []any{"Quiet", "wifi", "quiet"},
		"sortBy":        "popular",
		"coordinates":   map[string]any{"lat": 51.5, "lng": -0.12},
		"maxDistance":   10.0,
		"minimumViews":  "25",
		"hasVenues":     true,
		"readTimeRange": "short",
		"dateRange":     "month",
		"colour":        "blue",
		"hasWifi":       true,
	})

	assert.Equal(t, "Library", f.Category)
	assert.Equal(t, []string{"quiet", "wifi"}, f.Tags)
	assert.Equal(t, SortByPopular, f.SortBy)
	require.NotNil(t, f.Coordinates)
	assert.InDelta(t, 51.5, f.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 10.0, f.MaxDistanceKm, 1e-9)
	assert.Equal(t, 25, f.MinimumViews)
	require.NotNil(t, f.HasVenues)
	assert.True(t, *f.HasVenues)
	assert.Equal(t, ReadTimeShort, f.ReadTimeRange)
	assert.Equal(t, DateRangeMonth, f.DateRange)
}

func TestParseSearchFilters_BadShapesAreDropped(t *testing.T) {
	f := ParseSearchFilters(map[string]any{
		"coordinates":   map[string]any{"lat": "north"},
		"sortBy":        "sideways",
		"readTimeRange": "forever",
		"maxDistance":   -3,
		"hasVenues":     "yes",
	})

	assert.Nil(t, f.Coordinates)
	assert.Equal(t, SortByRelevance, f.SortBy)
	assert.Equal(t, ReadTimeAny, f.ReadTimeRange)
	assert.Zero(t, f.MaxDistanceKm)
	assert.Nil(t, f.HasVenues)
	assert.True(t, f.IsEmpty())
}

func TestSearchFilters_CacheMapOmitsDefaults(t *testing.T) {
	assert.Empty(t, SearchFilters{Category: "all", SortBy: SortByRelevance}.CacheMap())

	m := SearchFilters{Category: "Cafe", Tags: []string{"WiFi"}, MinimumViews: 5}.CacheMap()
	assert.Equal(t, "cafe", m["category"])
	assert.Equal(t, []string{"wifi"}, m["tags"])
	assert.Equal(t, 5, m["minimumViews"])
}

func TestSearchFilters_CacheMapKeepsFullCoordinatePrecision(t *testing.T) {
	a := SearchFilters{Coordinates: &GeoPoint{Latitude: 51.530801, Longitude: -0.1238}}.CacheMap()
	b := SearchFilters{Coordinates: &GeoPoint{Latitude: 51.530809, Longitude: -0.1238}}.CacheMap()

	assert.Equal(t, "51.530801,-0.1238", a["coordinates"])
	assert.NotEqual(t, a["coordinates"], b["coordinates"])
}

func TestReadTimeRange_Buckets(t *testing.T) {
	assert.True(t, ReadTimeQuick.Contains(5))
	assert.False(t, ReadTimeQuick.Contains(6))
	assert.True(t, ReadTimeShort.Contains(6))
	assert.True(t, ReadTimeShort.Contains(10))
	assert.True(t, ReadTimeMedium.Contains(11))
	assert.True(t, ReadTimeMedium.Contains(20))
	assert.True(t, ReadTimeLong.Contains(21))
	assert.True(t, ReadTimeAny.Contains(1000))
}

func TestParseContentType(t *testing.T) {
	assert.Equal(t, ContentTypeVenues, ParseContentType("venue"))
	assert.Equal(t, ContentTypeBlogs, ParseContentType("Blogs"))
	assert.Equal(t, ContentTypeAll, ParseContentType("events"))
	assert.True(t, ContentTypeAll.Includes(EntityTypeBlog))
	assert.False(t, ContentTypeVenues.Includes(EntityTypeBlog))
}

func TestBadgeForRegulars(t *testing.T) {
	assert.Equal(t, BadgeNone, BadgeForRegulars(19))
	assert.Equal(t, BadgePopular, BadgeForRegulars(20))
	assert.Equal(t, BadgePopular, BadgeForRegulars(49))
	assert.Equal(t, BadgeCommunityHub, BadgeForRegulars(50))
}

func TestBlog_EstimatedReadTime(t *testing.T) {
	b := &Blog{Content: strings.Repeat("word ", 450)}
	assert.Equal(t, 3, b.EstimatedReadTime())

	b.ReadTimeMinutes = 7
	assert.Equal(t, 7, b.EstimatedReadTime())

	assert.Equal(t, 0, (&Blog{}).EstimatedReadTime())
}

func TestIndexEntry_CloneIsDeep(t *testing.T) {
	published := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := &IndexEntry{
		ID:          "b1",
		EntityType:  EntityTypeBlog,
		SearchTerms: []string{"coffee"},
		Location:    &GeoPoint{Latitude: 1, Longitude: 2},
		PublishedAt: &published,
	}

	c := e.Clone()
	c.SearchTerms[0] = "tea"
	c.Location.Latitude = 9

	assert.Equal(t, "coffee", e.SearchTerms[0])
	assert.InDelta(t, 1.0, e.Location.Latitude, 1e-9)
	assert.Equal(t, "blog_b1", c.Key())
	assert.Equal(t, published, c.SortTime())
}
