package handlers

import (
	"net/http"

	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/logger"
)

// CacheHandler exposes result cache maintenance
type CacheHandler struct {
	cache  *resultcache.Cache
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *resultcache.Cache, log *logger.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: log,
	}
}

// GetStats returns cache occupancy
// GET /api/cache/stats
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cache stats")
		respondError(w, r, http.StatusInternalServerError, "internal", "Failed to retrieve cache stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Sweep deletes expired entries
// POST /api/cache/sweep
func (h *CacheHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.Sweep(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to sweep cache")
		respondError(w, r, http.StatusInternalServerError, "internal", "Failed to sweep cache")
		return
	}

	h.logger.WithField("removed", removed).Info("Cache swept")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}
