package handlers

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/application/services"
)

// IndexRebuilder rebuilds the search index from the content store
type IndexRebuilder interface {
	RebuildAll(ctx context.Context) (*services.RebuildStats, error)
}

// CacheAdmin inspects and resets the search result cache
type CacheAdmin interface {
	Stats() services.CacheStats
	Clear()
}

// IndexHandler serves index and cache administration
type IndexHandler struct {
	rebuilder  IndexRebuilder
	cache      CacheAdmin
	rebuilding atomic.Bool
	onRebuild  func(ctx context.Context, stats *services.RebuildStats)
}

// NewIndexHandler creates a new index handler. onRebuild, when set, is called after each successful rebuild.
func NewIndexHandler(rebuilder IndexRebuilder, cache CacheAdmin, onRebuild func(ctx context.Context, stats *services.RebuildStats)) *IndexHandler {
	return &IndexHandler{
		rebuilder: rebuilder,
		cache:     cache,
		onRebuild: onRebuild,
	}
}

// Rebuild handles POST /api/admin/index/rebuild. Only one rebuild runs at a time.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if !h.rebuilding.CompareAndSwap(false, true) {
		respondWithError(w, http.StatusConflict, "index rebuild already in progress")
		return
	}
	defer h.rebuilding.Store(false)

	stats, err := h.rebuilder.RebuildAll(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to rebuild index")
		return
	}

	// Cached responses were computed against the old index
	if h.cache != nil {
		h.cache.Clear()
	}
	if h.onRebuild != nil {
		h.onRebuild(r.Context(), stats)
	}

	log.Info().
		Int("venues", stats.Venues).
		Int("blogs", stats.Blogs).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("index rebuilt")

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues":      stats.Venues,
		"blogs":       stats.Blogs,
		"failed":      stats.Failed,
		"removed":     stats.Removed,
		"duration_ms": stats.Duration.Milliseconds(),
	})
}

// CacheStats handles GET /api/admin/search/cache
func (h *IndexHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondWithError(w, http.StatusNotFound, "search cache is disabled")
		return
	}
	respondWithJSON(w, http.StatusOK, h.cache.Stats())
}

// ClearCache handles DELETE /api/admin/search/cache
func (h *IndexHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondWithError(w, http.StatusNotFound, "search cache is disabled")
		return
	}
	h.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}
