package handlers

import (
	"net/http"

	"hldesk/internal/ratecache"
	"hldesk/internal/sampler"
)

type InternalHandler struct {
	cache   *ratecache.Cache
	sampler *sampler.Sampler
}

func NewInternalHandler(cache *ratecache.Cache, sampler *sampler.Sampler) *InternalHandler {
	return &InternalHandler{cache: cache, sampler: sampler}
}

// RunSnapshot serves POST /api/internal/snapshot.
func (h *InternalHandler) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	result := h.cache.Get(r.Context())
	h.sampler.Run(result)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshotted": true})
}
