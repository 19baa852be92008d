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

type PaperHandler struct {
	cache        *ratecache.Cache
	portfolios   *repository.PortfolioRepository
	positions    *repository.PositionRepository
	transactions *repository.TransactionRepository
	snapshots    *repository.SnapshotRepository
}

func NewPaperHandler(cache *ratecache.Cache, portfolios *repository.PortfolioRepository, positions *repository.PositionRepository, transactions *repository.TransactionRepository, snapshots *repository.SnapshotRepository) *PaperHandler {
	return &PaperHandler{cache: cache, portfolios: portfolios, positions: positions, transactions: transactions, snapshots: snapshots}
}

// portfolioView is a portfolio enriched with mark-to-market totals.
type portfolioView struct {
	models.Portfolio
	TotalValue    float64 `json:"totalValue"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	PnlPct        float64 `json:"pnlPct"`
	OpenPositions int     `json:"openPositions"`
}

// GetPortfolios serves GET /api/paper/portfolios.
func (h *PaperHandler) GetPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.ListAll()
	if err != nil {
		writeJSON(w, http.StatusOK, []portfolioView{})
		return
	}

	spreadByAsset := h.spreadByAsset(r)
	views := make([]portfolioView, 0, len(portfolios))
	for _, p := range portfolios {
		views = append(views, h.enrich(p, spreadByAsset))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetLeaderboard serves GET /api/paper/leaderboard.
func (h *PaperHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.ListAll()
	if err != nil {
		writeJSON(w, http.StatusOK, []portfolioView{})
		return
	}

	spreadByAsset := h.spreadByAsset(r)
	views := make([]portfolioView, 0, len(portfolios))
	for _, p := range portfolios {
		views = append(views, h.enrich(p, spreadByAsset))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].PnlPct > views[j].PnlPct })
	writeJSON(w, http.StatusOK, views)
}

// GetPortfolioDetail serves GET /api/paper/portfolios/{id}.
func (h *PaperHandler) GetPortfolioDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	portfolio, err := h.portfolios.GetByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown portfolio")
		return
	}

	open, _ := h.positions.ListOpenByPortfolio(id)
	closed, _ := h.positions.ListClosedByPortfolio(id, 20)
	txs, _ := h.transactions.ListByPortfolio(id, 50)

	view := h.enrich(portfolio, h.spreadByAsset(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"portfolio":       view,
		"openPositions":   open,
		"closedPositions": closed,
		"transactions":    txs,
	})
}

// GetSnapshots serves GET /api/paper/snapshots?days=N.
func (h *PaperHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	days := parseDays(r.URL.Query().Get("days"), 7, 1, 90)
	since := time.Now().AddDate(0, 0, -days)

	portfolios, err := h.portfolios.ListAll()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string][]models.EquitySnapshot{})
		return
	}

	out := make(map[string][]models.EquitySnapshot, len(portfolios))
	for _, p := range portfolios {
		ownerID := strconv.FormatInt(p.ID, 10)
		series, err := h.snapshots.ListByOwnerSince(ownerID, models.OwnerPortfolio, since)
		if err != nil {
			series = []models.EquitySnapshot{}
		}
		out[ownerID] = series
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PaperHandler) spreadByAsset(r *http.Request) map[string]models.FundingSpread {
	result := h.cache.Get(r.Context())
	m := make(map[string]models.FundingSpread, len(result.Spreads))
	for _, s := range result.Spreads {
		m[s.Asset] = s
	}
	return m
}

func (h *PaperHandler) enrich(p models.Portfolio, spreadByAsset map[string]models.FundingSpread) portfolioView {
	open, _ := h.positions.ListOpenByPortfolio(p.ID)

	var unrealized, fundingCollected float64
	for _, pos := range open {
		mark := pos.EntryPrice
		if s, ok := spreadByAsset[pos.Asset]; ok && s.Primary != nil && s.Primary.MarkPrice != nil {
			mark = *s.Primary.MarkPrice
		}
		unrealized += pos.Side.DirectionSign() * (pos.EntryPrice - mark) / pos.EntryPrice * pos.SizeUsd
		fundingCollected += pos.TotalFundingCollected
	}

	totalValue := p.CashBalance + sumOpenSize(open) + unrealized
	pnlPct := 0.0
	if p.InitialBalance > 0 {
		pnlPct = (totalValue - p.InitialBalance) / p.InitialBalance
	}

	return portfolioView{
		Portfolio: p, TotalValue: totalValue, UnrealizedPnl: unrealized,
		PnlPct: pnlPct, OpenPositions: len(open),
	}
}

func sumOpenSize(positions []models.Position) float64 {
	sum := 0.0
	for _, p := range positions {
		sum += p.SizeUsd
	}
	return sum
}

func parseDays(raw string, def, min, max int) int {
	days := def
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	if days < min {
		days = min
	}
	if days > max {
		days = max
	}
	return days
}
