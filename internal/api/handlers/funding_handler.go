package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"hldesk/internal/models"
	"hldesk/internal/ratecache"
	"hldesk/internal/repository"
)

type FundingHandler struct {
	cache   *ratecache.Cache
	funding *repository.FundingRepository
}

func NewFundingHandler(cache *ratecache.Cache, funding *repository.FundingRepository) *FundingHandler {
	return &FundingHandler{cache: cache, funding: funding}
}

// GetTopSpreads serves GET /api/funding?limit=20.
func (h *FundingHandler) GetTopSpreads(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	result := h.cache.Get(r.Context())
	spreads := result.Spreads
	if len(spreads) > limit {
		spreads = spreads[:limit]
	}
	writeJSON(w, http.StatusOK, spreads)
}

// GetAsset serves GET /api/funding/{asset}.
func (h *FundingHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]
	result := h.cache.Get(r.Context())

	for _, s := range result.Spreads {
		if s.Asset == asset {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown asset")
}

// GetHistory serves GET /api/funding/history?asset=&venue=&from=&to=.
func (h *FundingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asset := q.Get("asset")
	venue := q.Get("venue")

	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from timestamp")
		return
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to timestamp")
		return
	}

	rates, err := h.funding.History(asset, venue, from, to, 1000)
	if err != nil {
		writeJSON(w, http.StatusOK, []models.FundingRate{})
		return
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].ObservedAt > rates[j].ObservedAt })
	writeJSON(w, http.StatusOK, rates)
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Parse(time.RFC3339, raw)
}
