package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/application/services"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

const maxSuggestionLimit = 20

// Searcher runs combined and location-centred searches
type Searcher interface {
	Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error)
	SearchNear(ctx context.Context, req entities.NearRequest) (*entities.SearchResponse, error)
}

// Suggester completes partial queries
type Suggester interface {
	Suggest(ctx context.Context, partial string, contentType entities.ContentType, limit int) []string
	SuggestPersonalized(ctx context.Context, userID, partial string, contentType entities.ContentType, limit int) []string
}

// LocationResolver turns request location hints into a search centre
type LocationResolver interface {
	Resolve(ctx context.Context, q services.LocationQuery) (*entities.GeoPoint, error)
}

// InteractionRecorder records what users do with search results
type InteractionRecorder interface {
	RecordInteraction(searchID, resultID string, position int, interactionType entities.InteractionType)
}

// SearchHandler serves the search endpoints
type SearchHandler struct {
	search       Searcher
	suggestions  Suggester
	locations    LocationResolver
	interactions InteractionRecorder
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search Searcher, suggestions Suggester, locations LocationResolver, interactions InteractionRecorder) *SearchHandler {
	return &SearchHandler{
		search:       search,
		suggestions:  suggestions,
		locations:    locations,
		interactions: interactions,
	}
}

type searchRequest struct {
	Query       string         `json:"query"`
	ContentType string         `json:"contentType"`
	Limit       int            `json:"limit"`
	Filters     map[string]any `json:"filters"`
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := entities.ParseSearchFilters(filtersFromQuery(r))
	if t := q.Get("type"); t != "" {
		filters.ContentType = entities.ParseContentType(t)
	}

	h.runSearch(w, r, entities.SearchRequest{
		Query:   q.Get("q"),
		Filters: filters,
		Limit:   queryInt(r, "limit", 0),
		UserID:  r.Header.Get(userIDHeader),
	})
}

// SearchJSON handles POST /api/search, accepting the filter object as JSON
func (h *SearchHandler) SearchJSON(w http.ResponseWriter, r *http.Request) {
	var payload searchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	filters := entities.ParseSearchFilters(payload.Filters)
	if payload.ContentType != "" {
		filters.ContentType = entities.ParseContentType(payload.ContentType)
	}

	h.runSearch(w, r, entities.SearchRequest{
		Query:   payload.Query,
		Filters: filters,
		Limit:   payload.Limit,
		UserID:  r.Header.Get(userIDHeader),
	})
}

func (h *SearchHandler) runSearch(w http.ResponseWriter, r *http.Request, req entities.SearchRequest) {
	resp, err := h.search.Search(r.Context(), req)
	if err != nil {
		respondWithAppError(w, err, "failed to search")
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// SearchNear handles GET /api/search/near. The centre comes from lat/lng,
// an address, or useCurrent=true, in that order of preference.
func (h *SearchHandler) SearchNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var loc services.LocationQuery
	lat, okLat := queryFloat(r, "lat")
	lng, okLng := queryFloat(r, "lng")
	if okLat && okLng {
		loc.Coordinates = &entities.GeoPoint{Latitude: lat, Longitude: lng}
	}
	loc.Address = q.Get("address")
	loc.UseCurrent, _ = strconv.ParseBool(q.Get("useCurrent"))

	center, err := h.locations.Resolve(r.Context(), loc)
	if err != nil {
		respondWithAppError(w, err, "failed to resolve location")
		return
	}

	raw := filtersFromQuery(r)
	delete(raw, "coordinates")
	radius, _ := queryFloat(r, "radius")

	resp, err := h.search.SearchNear(r.Context(), entities.NearRequest{
		Coordinates: center,
		RadiusKm:    radius,
		ContentType: entities.ParseContentType(q.Get("type")),
		Query:       q.Get("q"),
		Filters:     entities.ParseSearchFilters(raw),
		Limit:       queryInt(r, "limit", 0),
		UserID:      r.Header.Get(userIDHeader),
	})
	if err != nil {
		respondWithAppError(w, err, "failed to search nearby")
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Suggest handles GET /api/search/suggestions
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partial := q.Get("q")
	contentType := entities.ParseContentType(q.Get("type"))

	limit := queryInt(r, "limit", 5)
	if limit <= 0 {
		limit = 5
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	var suggestions []string
	if userID := r.Header.Get(userIDHeader); userID != "" {
		suggestions = h.suggestions.SuggestPersonalized(r.Context(), userID, partial, contentType, limit)
	} else {
		suggestions = h.suggestions.Suggest(r.Context(), partial, contentType, limit)
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":       partial,
		"suggestions": suggestions,
	})
}

type interactionRequest struct {
	ResultID string `json:"resultId"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}

// RecordInteraction handles POST /api/search/{searchId}/interactions
func (h *SearchHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	searchID := mux.Vars(r)["searchId"]
	if searchID == "" {
		respondWithError(w, http.StatusBadRequest, "search ID is required")
		return
	}

	var payload interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	payload.ResultID = strings.TrimSpace(payload.ResultID)
	if payload.ResultID == "" {
		respondWithError(w, http.StatusBadRequest, "resultId is required")
		return
	}
	if payload.Position < 0 {
		respondWithError(w, http.StatusBadRequest, "position must not be negative")
		return
	}

	interactionType := entities.InteractionType(strings.ToLower(payload.Type))
	switch interactionType {
	case entities.InteractionClick, entities.InteractionView, entities.InteractionSave, entities.InteractionNavigate:
	case "":
		interactionType = entities.InteractionClick
	default:
		respondWithError(w, http.StatusBadRequest, "unknown interaction type")
		return
	}

	h.interactions.RecordInteraction(searchID, payload.ResultID, payload.Position, interactionType)

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "recorded",
	})
}

// filtersFromQuery collects the recognized filter parameters into the loose
// shape accepted by ParseSearchFilters
func filtersFromQuery(r *http.Request) map[string]any {
	q := r.URL.Query()
	raw := make(map[string]any)

	for _, key := range []string{"category", "tags", "sortBy", "maxDistance", "minimumViews", "readTimeRange", "dateRange", "authorId"} {
		if v := q.Get(key); v != "" {
			raw[key] = v
		}
	}
	if lat, lng := q.Get("lat"), q.Get("lng"); lat != "" && lng != "" {
		raw["coordinates"] = map[string]any{"lat": lat, "lng": lng}
	}
	if v := q.Get("hasVenues"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			raw["hasVenues"] = b
		}
	}
	return raw
}
