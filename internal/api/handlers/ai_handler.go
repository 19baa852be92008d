package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"hldesk/internal/aitrader"
	"hldesk/internal/models"
	"hldesk/internal/ratecache"
	"hldesk/internal/repository"
)

type AiHandler struct {
	cache     *ratecache.Cache
	traders   *repository.AiTraderRepository
	snapshots *repository.SnapshotRepository
	engine    *aitrader.Engine
}

func NewAiHandler(cache *ratecache.Cache, traders *repository.AiTraderRepository, snapshots *repository.SnapshotRepository, engine *aitrader.Engine) *AiHandler {
	return &AiHandler{cache: cache, traders: traders, snapshots: snapshots, engine: engine}
}

type traderView struct {
	models.AiTrader
	TotalValue    float64            `json:"totalValue"`
	PnlPct        float64            `json:"pnlPct"`
	OpenPositions int                `json:"openPositions"`
	LastDecision  *models.AiDecision `json:"lastDecision,omitempty"`
}

const aiInitialBaseline = 10000.0

// GetTraders serves GET /api/ai/traders, sorted by pnlPct desc.
func (h *AiHandler) GetTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := h.traders.ListAll()
	if err != nil {
		writeJSON(w, http.StatusOK, []traderView{})
		return
	}

	lastDecisions, _ := h.traders.ListLastDecisionPerTrader()
	spreadByAsset := h.spreadByAsset(r)

	views := make([]traderView, 0, len(traders))
	for _, t := range traders {
		views = append(views, h.enrich(t, spreadByAsset, lastDecisions))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].PnlPct > views[j].PnlPct })
	writeJSON(w, http.StatusOK, views)
}

// GetTraderDetail serves GET /api/ai/traders/{name}.
func (h *AiHandler) GetTraderDetail(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	trader, err := h.traders.GetByName(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown agent")
		return
	}

	open, _ := h.traders.ListOpenPositions(trader.ID)
	decisions, _ := h.traders.ListRecentDecisions(trader.ID, 20)

	writeJSON(w, http.StatusOK, map[string]any{
		"trader":        trader,
		"openPositions": open,
		"decisions":     decisions,
	})
}

// GetSnapshots serves GET /api/ai/snapshots?days=N.
func (h *AiHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	days := parseDays(r.URL.Query().Get("days"), 7, 1, 90)
	since := time.Now().AddDate(0, 0, -days)

	traders, err := h.traders.ListAll()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string][]models.EquitySnapshot{})
		return
	}

	out := make(map[string][]models.EquitySnapshot, len(traders))
	for _, t := range traders {
		series, err := h.snapshots.ListByOwnerSince(t.ID, models.OwnerAgent, since)
		if err != nil {
			series = []models.EquitySnapshot{}
		}
		out[t.ID] = series
	}
	writeJSON(w, http.StatusOK, out)
}

// RunCycle serves POST /api/ai/run/{name}.
func (h *AiHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result := h.cache.Get(ctx)
	decision, err := h.engine.RunAgentCycle(ctx, name, result)
	if err != nil {
		if errors.Is(err, repository.ErrTraderNotFound) {
			writeError(w, http.StatusNotFound, "unknown agent")
			return
		}
		writeError(w, statusForErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *AiHandler) spreadByAsset(r *http.Request) map[string]models.FundingSpread {
	result := h.cache.Get(r.Context())
	m := make(map[string]models.FundingSpread, len(result.Spreads))
	for _, s := range result.Spreads {
		m[s.Asset] = s
	}
	return m
}

func (h *AiHandler) enrich(t models.AiTrader, spreadByAsset map[string]models.FundingSpread, lastDecisions map[string]models.AiDecision) traderView {
	open, _ := h.traders.ListOpenPositions(t.ID)

	var unrealized, sizeSum float64
	for _, pos := range open {
		mark := pos.EntryPrice
		if s, ok := spreadByAsset[pos.Asset]; ok && s.Primary != nil && s.Primary.MarkPrice != nil {
			mark = *s.Primary.MarkPrice
		}
		unrealized += pos.Direction.DirectionSign() * (pos.EntryPrice - mark) / pos.EntryPrice * pos.SizeUsd
		sizeSum += pos.SizeUsd
	}

	totalValue := t.CashBalance + sizeSum + unrealized
	pnlPct := (totalValue - aiInitialBaseline) / aiInitialBaseline

	view := traderView{AiTrader: t, TotalValue: totalValue, PnlPct: pnlPct, OpenPositions: len(open)}
	if d, ok := lastDecisions[t.ID]; ok {
		view.LastDecision = &d
	}
	return view
}
