package services

import (
	"fmt"
	"math"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

const earthRadiusKm = 6371.0

// ValidCoordinates reports whether p is a usable lat/lng pair
func ValidCoordinates(p *entities.GeoPoint) bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// DistanceKm returns the great-circle distance between a and b.
// The second return value is false when either point is missing or invalid.
func DistanceKm(a, b *entities.GeoPoint) (float64, bool) {
	if !ValidCoordinates(a) || !ValidCoordinates(b) {
		return 0, false
	}

	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Latitude))*math.Cos(degreesToRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c, true
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// FormatDistance renders a distance for display: meters under 1 km,
// one decimal under 10 km, whole kilometers beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(km)))
	}
}

// AttachDistances sets DistanceKm and DistanceLabel on every result whose entry
// has coordinates. Results without a location keep a nil distance.
func AttachDistances(results []entities.ScoredResult, center *entities.GeoPoint) {
	for i := range results {
		results[i].DistanceKm = nil
		results[i].DistanceLabel = ""
		if results[i].Entry == nil {
			continue
		}
		if d, ok := DistanceKm(center, results[i].Entry.Location); ok {
			dist := d
			results[i].DistanceKm = &dist
			results[i].DistanceLabel = FormatDistance(d)
		}
	}
}

// FilterByRadius keeps results with a known distance no greater than radiusKm.
// A nil distance is excluded, never treated as within the radius.
func FilterByRadius(results []entities.ScoredResult, radiusKm float64) []entities.ScoredResult {
	filtered := make([]entities.ScoredResult, 0, len(results))
	for _, r := range results {
		if r.DistanceKm == nil || *r.DistanceKm > radiusKm {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
