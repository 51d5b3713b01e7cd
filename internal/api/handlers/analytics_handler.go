package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// AnalyticsReader exposes aggregated search history
type AnalyticsReader interface {
	GetAnalytics(ctx context.Context, timeframe entities.Timeframe) (*entities.SearchAnalytics, error)
	PopularQueries(n int) []entities.QueryCount
	Performance() entities.PerformanceSummary
	PurgeHistory(ctx context.Context, maxAge time.Duration) (int, error)
}

// AnalyticsHandler serves search analytics
type AnalyticsHandler struct {
	analytics AnalyticsReader
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics AnalyticsReader) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetAnalytics handles GET /api/search/analytics?timeframe=day|week|month|year
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	timeframe := entities.ParseTimeframe(r.URL.Query().Get("timeframe"))

	report, err := h.analytics.GetAnalytics(r.Context(), timeframe)
	if err != nil {
		respondWithAppError(w, err, "failed to load search analytics")
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// PopularQueries handles GET /api/search/popular
func (h *AnalyticsHandler) PopularQueries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	queries := h.analytics.PopularQueries(limit)
	if queries == nil {
		queries = []entities.QueryCount{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
	})
}

// Performance handles GET /api/search/performance
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.analytics.Performance())
}

// PurgeHistory handles DELETE /api/admin/search/history?maxAge=2160h
func (h *AnalyticsHandler) PurgeHistory(w http.ResponseWriter, r *http.Request) {
	var maxAge time.Duration
	if raw := r.URL.Query().Get("maxAge"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondWithError(w, http.StatusBadRequest, "maxAge must be a positive duration")
			return
		}
		maxAge = d
	}

	removed, err := h.analytics.PurgeHistory(r.Context(), maxAge)
	if err != nil {
		respondWithAppError(w, err, "failed to purge search history")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{
		"removed": removed,
	})
}
