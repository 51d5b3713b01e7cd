package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/api/handlers"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/application/services"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResponse), args.Error(1)
}

func (m *MockSearcher) SearchNear(ctx context.Context, req entities.NearRequest) (*entities.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResponse), args.Error(1)
}

type stubSuggester struct {
	personalizedFor string
}

func (s *stubSuggester) Suggest(ctx context.Context, partial string, contentType entities.ContentType, limit int) []string {
	return []string{partial + " base"}
}

func (s *stubSuggester) SuggestPersonalized(ctx context.Context, userID, partial string, contentType entities.ContentType, limit int) []string {
	s.personalizedFor = userID
	return []string{partial + " for " + userID}
}

type recordedInteraction struct {
	searchID, resultID string
	position           int
	kind               entities.InteractionType
}

type stubRecorder struct {
	calls []recordedInteraction
}

func (s *stubRecorder) RecordInteraction(searchID, resultID string, position int, interactionType entities.InteractionType) {
	s.calls = append(s.calls, recordedInteraction{searchID, resultID, position, interactionType})
}

func newSearchHandler(searcher *MockSearcher, geocoder providers.GeolocationProvider) (*handlers.SearchHandler, *stubSuggester, *stubRecorder) {
	suggester := &stubSuggester{}
	recorder := &stubRecorder{}
	resolver := services.NewLocationResolver(geocoder, time.Second)
	return handlers.NewSearchHandler(searcher, suggester, resolver, recorder), suggester, recorder
}

func TestSearchHandler_SearchParsesFilters(t *testing.T) {
	searcher := &MockSearcher{}
	handler, _, _ := newSearchHandler(searcher, nil)

	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req entities.SearchRequest) bool {
		f := req.Filters
		return req.Query == "quiet cafe" &&
			req.Limit == 5 &&
			req.UserID == "u1" &&
			f.ContentType == entities.ContentTypeVenues &&
			f.Category == "cafe" &&
			len(f.Tags) == 2 &&
			f.SortBy == entities.SortByPopular &&
			f.Coordinates != nil && f.Coordinates.Latitude == 51.5 &&
			f.HasVenues != nil && *f.HasVenues
	})).Return(&entities.SearchResponse{SearchID: "s1", TotalFound: 0}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/search?q=quiet+cafe&type=venue&limit=5&category=cafe&tags=wifi,quiet&sortBy=popular&lat=51.5&lng=-0.12&hasVenues=true&colour=blue", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp entities.SearchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "s1", resp.SearchID)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_SearchJSON(t *testing.T) {
	searcher := &MockSearcher{}
	handler, _, _ := newSearchHandler(searcher, nil)

	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req entities.SearchRequest) bool {
		return req.Query == "study" &&
			req.Filters.ContentType == entities.ContentTypeBlogs &&
			req.Filters.ReadTimeRange == entities.ReadTimeShort
	})).Return(&entities.SearchResponse{SearchID: "s2"}, nil)

	body := `{"query":"study","contentType":"blogs","filters":{"readTimeRange":"short","unknown":1}}`
	w := httptest.NewRecorder()
	handler.SearchJSON(w, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)

	w = httptest.NewRecorder()
	handler.SearchJSON(w, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_SearchInternalError(t *testing.T) {
	searcher := &MockSearcher{}
	handler, _, _ := newSearchHandler(searcher, nil)
	searcher.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	w := httptest.NewRecorder()
	handler.Search(w, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearchHandler_SearchNearWithoutLocationIsBadRequest(t *testing.T) {
	searcher := &MockSearcher{}
	handler, _, _ := newSearchHandler(searcher, nil)

	w := httptest.NewRecorder()
	handler.SearchNear(w, httptest.NewRequest(http.MethodGet, "/api/search/near?q=cafe", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	searcher.AssertNotCalled(t, "SearchNear", mock.Anything, mock.Anything)
}

func TestSearchHandler_SearchNearGeocodesAddress(t *testing.T) {
	searcher := &MockSearcher{}
	geocoder := &MockGeocoder{}
	handler, _, _ := newSearchHandler(searcher, geocoder)

	london := &entities.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
	geocoder.On("Geocode", mock.Anything, "London").Return(london, nil)
	searcher.On("SearchNear", mock.Anything, mock.MatchedBy(func(req entities.NearRequest) bool {
		return req.Coordinates == london && req.RadiusKm == 2.5 && req.ContentType == entities.ContentTypeAll
	})).Return(&entities.SearchResponse{SearchID: "near"}, nil)

	w := httptest.NewRecorder()
	handler.SearchNear(w, httptest.NewRequest(http.MethodGet, "/api/search/near?address=London&radius=2.5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
	geocoder.AssertExpectations(t)
}

func TestSearchHandler_SearchNearGeocoderOutageIsBadGateway(t *testing.T) {
	searcher := &MockSearcher{}
	geocoder := &MockGeocoder{}
	handler, _, _ := newSearchHandler(searcher, geocoder)
	geocoder.On("Geocode", mock.Anything, "London").
		Return(nil, apperrors.NewExternalError("geocode request returned status 503", nil))

	w := httptest.NewRecorder()
	handler.SearchNear(w, httptest.NewRequest(http.MethodGet, "/api/search/near?address=London", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	searcher.AssertNotCalled(t, "SearchNear", mock.Anything, mock.Anything)
}

func TestSearchHandler_SearchNearMapsInvalidArgument(t *testing.T) {
	searcher := &MockSearcher{}
	handler, _, _ := newSearchHandler(searcher, nil)
	searcher.On("SearchNear", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInvalidArgumentError("valid coordinates are required"))

	w := httptest.NewRecorder()
	handler.SearchNear(w, httptest.NewRequest(http.MethodGet, "/api/search/near?lat=10&lng=10", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Suggest(t *testing.T) {
	handler, suggester, _ := newSearchHandler(&MockSearcher{}, nil)

	w := httptest.NewRecorder()
	handler.Suggest(w, httptest.NewRequest(http.MethodGet, "/api/search/suggestions?q=caf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caf base")

	req := httptest.NewRequest(http.MethodGet, "/api/search/suggestions?q=caf&limit=500", nil)
	req.Header.Set("X-User-ID", "u9")
	w = httptest.NewRecorder()
	handler.Suggest(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u9", suggester.personalizedFor)
	assert.Contains(t, w.Body.String(), "caf for u9")
}

func TestSearchHandler_RecordInteraction(t *testing.T) {
	handler, _, recorder := newSearchHandler(&MockSearcher{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search/s1/interactions",
		strings.NewReader(`{"resultId":"venue_v1","position":2,"type":"SAVE"}`))
	req = mux.SetURLVars(req, map[string]string{"searchId": "s1"})
	w := httptest.NewRecorder()
	handler.RecordInteraction(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, "s1", recorder.calls[0].searchID)
	assert.Equal(t, 2, recorder.calls[0].position)
	assert.Equal(t, entities.InteractionSave, recorder.calls[0].kind)

	for _, body := range []string{`{"position":1}`, `{"resultId":"x","type":"hover"}`, `{"resultId":"x","position":-1}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/search/s1/interactions", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"searchId": "s1"})
		w := httptest.NewRecorder()
		handler.RecordInteraction(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Len(t, recorder.calls, 1)
}
