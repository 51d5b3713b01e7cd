package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

var (
	londonCenter = &entities.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
	parisCenter  = &entities.GeoPoint{Latitude: 48.8566, Longitude: 2.3522}
)

func kmPtr(v float64) *float64 { return &v }

func TestDistanceKm_LondonToParis(t *testing.T) {
	d, ok := DistanceKm(londonCenter, parisCenter)
	require.True(t, ok)
	assert.InDelta(t, 343.5, d, 1.0)

	same, ok := DistanceKm(londonCenter, londonCenter)
	require.True(t, ok)
	assert.InDelta(t, 0, same, 1e-9)
}

func TestDistanceKm_InvalidInput(t *testing.T) {
	_, ok := DistanceKm(nil, londonCenter)
	assert.False(t, ok)

	_, ok = DistanceKm(londonCenter, &entities.GeoPoint{Latitude: 91, Longitude: 0})
	assert.False(t, ok)

	_, ok = DistanceKm(&entities.GeoPoint{Latitude: math.NaN(), Longitude: 0}, londonCenter)
	assert.False(t, ok)

	_, ok = DistanceKm(londonCenter, &entities.GeoPoint{Latitude: 0, Longitude: -181})
	assert.False(t, ok)
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "500m", FormatDistance(0.5))
	assert.Equal(t, "999m", FormatDistance(0.9994))
	assert.Equal(t, "1.0km", FormatDistance(1))
	assert.Equal(t, "9.9km", FormatDistance(9.94))
	assert.Equal(t, "15km", FormatDistance(15.2))
	assert.Equal(t, "0m", FormatDistance(0))
}

func TestFilterByRadius_ExcludesUnknownDistances(t *testing.T) {
	results := []entities.ScoredResult{
		{Entry: &entities.IndexEntry{ID: "near"}, DistanceKm: kmPtr(0.5)},
		{Entry: &entities.IndexEntry{ID: "far"}, DistanceKm: kmPtr(15.2)},
		{Entry: &entities.IndexEntry{ID: "unknown"}},
		{Entry: &entities.IndexEntry{ID: "edge"}, DistanceKm: kmPtr(10)},
	}

	filtered := FilterByRadius(results, 10)

	require.Len(t, filtered, 2)
	assert.Equal(t, "near", filtered[0].Entry.ID)
	assert.Equal(t, "edge", filtered[1].Entry.ID)
}

func TestFilterByRadius_MatchesHaversineSubset(t *testing.T) {
	points := []*entities.GeoPoint{
		{Latitude: 51.5080, Longitude: -0.1280},
		{Latitude: 51.5500, Longitude: -0.1000},
		{Latitude: 51.7520, Longitude: -1.2577},
		{Latitude: 52.4862, Longitude: -1.8904},
		nil,
	}
	results := make([]entities.ScoredResult, len(points))
	for i, p := range points {
		results[i] = entities.ScoredResult{Entry: &entities.IndexEntry{ID: string(rune('a' + i)), Location: p}}
	}

	AttachDistances(results, londonCenter)
	filtered := FilterByRadius(results, 50)

	var expected []string
	for _, r := range results {
		if d, ok := DistanceKm(londonCenter, r.Entry.Location); ok && d <= 50 {
			expected = append(expected, r.Entry.ID)
		}
	}
	var got []string
	for _, r := range filtered {
		got = append(got, r.Entry.ID)
	}
	assert.Equal(t, expected, got)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Nil(t, results[4].DistanceKm)
	assert.NotEmpty(t, results[0].DistanceLabel)
}
