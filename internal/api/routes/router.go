package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/api/handlers"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/api/middleware"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/observability"
)

// HealthCheck reports whether one collaborator is reachable
type HealthCheck func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	router *mux.Router

	searchHandler    *handlers.SearchHandler
	analyticsHandler *handlers.AnalyticsHandler
	indexHandler     *handlers.IndexHandler

	healthChecks   map[string]HealthCheck
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. indexHandler may be nil to leave the admin routes unmounted.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	indexHandler *handlers.IndexHandler,
	healthChecks map[string]HealthCheck,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		router:           mux.NewRouter(),
		searchHandler:    searchHandler,
		analyticsHandler: analyticsHandler,
		indexHandler:     indexHandler,
		healthChecks:     healthChecks,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.router.HandleFunc("/health", r.health).Methods(http.MethodGet)

	api := r.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/search", r.searchHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/search", r.searchHandler.SearchJSON).Methods(http.MethodPost)
	api.HandleFunc("/search/near", r.searchHandler.SearchNear).Methods(http.MethodGet)
	api.HandleFunc("/search/suggestions", r.searchHandler.Suggest).Methods(http.MethodGet)
	api.HandleFunc("/search/{searchId}/interactions", r.searchHandler.RecordInteraction).Methods(http.MethodPost)

	api.HandleFunc("/search/analytics", r.analyticsHandler.GetAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/search/popular", r.analyticsHandler.PopularQueries).Methods(http.MethodGet)
	api.HandleFunc("/search/performance", r.analyticsHandler.Performance).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/search/history", r.analyticsHandler.PurgeHistory).Methods(http.MethodDelete)
	if r.indexHandler != nil {
		admin.HandleFunc("/index/rebuild", r.indexHandler.Rebuild).Methods(http.MethodPost)
		admin.HandleFunc("/search/cache", r.indexHandler.CacheStats).Methods(http.MethodGet)
		admin.HandleFunc("/search/cache", r.indexHandler.ClearCache).Methods(http.MethodDelete)
	}

	// Observability runs inside the router so the matched route template is known
	r.router.Use(middleware.ObservabilityMiddleware(r.metrics))

	var handler http.Handler = r.router
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.Compression(handler)

	// CORS wraps everything so preflight requests never reach the router
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(r.healthChecks))
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
