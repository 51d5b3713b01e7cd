package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 30 * 24 * time.Hour
	defaultHTTPTimeout     = 8 * time.Second
)

// GoogleGeocoder resolves addresses with the Google Geocoding API
type GoogleGeocoder struct {
	apiKey     string
	region     string
	httpClient *http.Client
	cache      providers.CacheProvider
	baseURL    string
}

// NewGoogleGeocoder creates a geocoder biased towards region (a ccTLD such as "uk").
// cache may be nil.
func NewGoogleGeocoder(apiKey, region string, cache providers.CacheProvider) providers.GeolocationProvider {
	return NewGoogleGeocoderWithOptions(apiKey, region, cache, googleGeocodeURL, nil)
}

// NewGoogleGeocoderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleGeocoderWithOptions(apiKey, region string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) providers.GeolocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoogleGeocoder{
		apiKey:     apiKey,
		region:     region,
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
	}
}

// Geocode converts an address to coordinates
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*entities.GeoPoint, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	cacheKey := "geo:v1:geocode:" + hashKey(strings.ToLower(trimmed))
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil {
			var point entities.GeoPoint
			if err := json.Unmarshal(cached, &point); err == nil {
				return &point, nil
			}
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Msg("geocode cache read failed")
		}
	}

	params := url.Values{"address": []string{trimmed}}
	if g.region != "" {
		params.Set("region", g.region)
	}
	resp, err := g.doGeocodeRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: no results for address", providers.ErrLocationUnavailable)
	}

	loc := resp.Results[0].Geometry.Location
	point := &entities.GeoPoint{Latitude: loc.Lat, Longitude: loc.Lng}

	if g.cache != nil {
		if payload, err := json.Marshal(point); err == nil {
			if err := g.cache.Set(ctx, cacheKey, payload, defaultGeocodeCacheTTL); err != nil {
				log.Warn().Err(err).Msg("geocode cache write failed")
			}
		}
	}

	return point, nil
}

// CurrentLocation is not available server-side; the caller must supply coordinates or an address
func (g *GoogleGeocoder) CurrentLocation(ctx context.Context) (*entities.GeoPoint, error) {
	return nil, providers.ErrLocationUnavailable
}

func (g *GoogleGeocoder) doGeocodeRequest(ctx context.Context, params url.Values) (*googleGeocodeResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	params.Set("key", g.apiKey)
	reqURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("geocode request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewExternalError(fmt.Sprintf("geocode request returned status %d", resp.StatusCode), nil)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewExternalError("failed to decode geocode response", err)
	}

	switch payload.Status {
	case "OK":
		return &payload, nil
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: no results for address", providers.ErrLocationUnavailable)
	}
	if payload.ErrorMessage != "" {
		return nil, apperrors.NewExternalError(fmt.Sprintf("geocode request failed: %s - %s", payload.Status, payload.ErrorMessage), nil)
	}
	return nil, apperrors.NewExternalError("geocode request failed: "+payload.Status, nil)
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress string         `json:"formatted_address"`
	Geometry         googleGeometry `json:"geometry"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
