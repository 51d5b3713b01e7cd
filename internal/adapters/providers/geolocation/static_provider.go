package geolocation

import (
	"context"
	"strings"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
)

// defaultPlaces covers the cities the product launched in
var defaultPlaces = map[string]entities.GeoPoint{
	"london":     {Latitude: 51.5074, Longitude: -0.1278},
	"manchester": {Latitude: 53.4808, Longitude: -2.2426},
	"birmingham": {Latitude: 52.4862, Longitude: -1.8904},
	"leeds":      {Latitude: 53.8008, Longitude: -1.5491},
	"bristol":    {Latitude: 51.4545, Longitude: -2.5879},
	"edinburgh":  {Latitude: 55.9533, Longitude: -3.1883},
	"glasgow":    {Latitude: 55.8642, Longitude: -4.2518},
	"cardiff":    {Latitude: 51.4816, Longitude: -3.1791},
}

// StaticProvider geocodes against a fixed table of place names. It is the
// offline default and the provider used in tests.
type StaticProvider struct {
	places  map[string]entities.GeoPoint
	current *entities.GeoPoint
}

// NewStaticProvider creates a provider over places (nil uses the built-in city table).
// current, when set, is returned by CurrentLocation.
func NewStaticProvider(places map[string]entities.GeoPoint, current *entities.GeoPoint) providers.GeolocationProvider {
	if places == nil {
		places = defaultPlaces
	}
	normalized := make(map[string]entities.GeoPoint, len(places))
	for name, p := range places {
		normalized[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return &StaticProvider{places: normalized, current: current}
}

// Geocode returns the point of the longest known place name contained in the address
func (p *StaticProvider) Geocode(ctx context.Context, address string) (*entities.GeoPoint, error) {
	lower := strings.ToLower(address)
	best := ""
	for name := range p.places {
		if strings.Contains(lower, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return nil, providers.ErrLocationUnavailable
	}
	point := p.places[best]
	return &point, nil
}

func (p *StaticProvider) CurrentLocation(ctx context.Context) (*entities.GeoPoint, error) {
	if p.current == nil {
		return nil, providers.ErrLocationUnavailable
	}
	point := *p.current
	return &point, nil
}
