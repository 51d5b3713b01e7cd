package providers

import (
	"context"
	"errors"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// ErrLocationUnavailable is returned when a geocoder cannot resolve a location
var ErrLocationUnavailable = errors.New("location unavailable")

// GeolocationProvider defines the interface for geocoding services
type GeolocationProvider interface {
	// Geocode converts an address to coordinates
	Geocode(ctx context.Context, address string) (*entities.GeoPoint, error)

	// CurrentLocation returns the caller's approximate position, if the provider knows it
	CurrentLocation(ctx context.Context) (*entities.GeoPoint, error)
}
