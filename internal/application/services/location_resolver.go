package services

import (
	"context"
	"strings"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

const defaultGeocodeTimeout = 3 * time.Second

// LocationQuery is the caller's description of a search centre
type LocationQuery struct {
	Coordinates *entities.GeoPoint
	Address     string
	UseCurrent  bool
}

// LocationResolver turns coordinates, an address or the current position into a search centre
type LocationResolver struct {
	geocoder providers.GeolocationProvider
	timeout  time.Duration
}

// NewLocationResolver creates a resolver; geocoder may be nil, in which case only coordinates resolve
func NewLocationResolver(geocoder providers.GeolocationProvider, timeout time.Duration) *LocationResolver {
	if timeout <= 0 {
		timeout = defaultGeocodeTimeout
	}
	return &LocationResolver{geocoder: geocoder, timeout: timeout}
}

// Resolve prefers explicit coordinates, then an address, then the current location
func (r *LocationResolver) Resolve(ctx context.Context, q LocationQuery) (*entities.GeoPoint, error) {
	if q.Coordinates != nil {
		if !ValidCoordinates(q.Coordinates) {
			return nil, apperrors.NewInvalidArgumentError("coordinates are out of range")
		}
		return q.Coordinates, nil
	}

	address := strings.TrimSpace(q.Address)
	if address == "" && !q.UseCurrent {
		return nil, apperrors.NewInvalidArgumentError("coordinates, address or current location are required")
	}
	if r.geocoder == nil {
		return nil, apperrors.NewInvalidArgumentError("location lookup is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		point *entities.GeoPoint
		err   error
	)
	if address != "" {
		point, err = r.geocoder.Geocode(ctx, address)
	} else {
		point, err = r.geocoder.CurrentLocation(ctx)
	}
	if apperrors.IsType(err, apperrors.ErrorTypeExternal) {
		return nil, err
	}
	if err != nil || !ValidCoordinates(point) {
		return nil, &apperrors.AppError{
			Type:    apperrors.ErrorTypeInvalidArgument,
			Message: "location could not be resolved",
			Err:     err,
		}
	}
	return point, nil
}
