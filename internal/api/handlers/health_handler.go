package handlers

import (
	"net/http"

	"hldesk/internal/venue"

	"hldesk/internal/ratecache"
)

type HealthHandler struct {
	cache  *ratecache.Cache
	health *venue.HealthTracker
}

func NewHealthHandler(cache *ratecache.Cache, health *venue.HealthTracker) *HealthHandler {
	return &HealthHandler{cache: cache, health: health}
}

// Root serves GET / — a bare liveness marker distinct from /api/health's
// cache-state detail.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "hldesk-api"})
}

// GetHealth serves GET /api/health.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"lastFetch":  h.cache.LastFetchMs(),
		"assetCount": h.cache.AssetCount(),
		"cacheAge":   h.cache.AgeMs(),
		"venues":     h.health.Snapshot(),
	})
}
