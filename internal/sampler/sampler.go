// Package sampler runs the hourly mark-to-market snapshot job (C8):
// one EquitySnapshot per paper portfolio and per AI trader. It has no timer
// of its own: the poll loop calls it every Nth funding poll.
package sampler

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"hldesk/internal/models"
)

type PortfolioStore interface {
	ListActive() ([]models.Portfolio, error)
}

type PositionStore interface {
	ListOpenByPortfolio(portfolioID int64) ([]models.Position, error)
}

type TraderStore interface {
	ListActive() ([]models.AiTrader, error)
	ListOpenPositions(traderID string) ([]models.AiPosition, error)
}

type SnapshotStore interface {
	Insert(s models.EquitySnapshot) error
}

// Sampler computes and persists one equity snapshot per subject per run.
type Sampler struct {
	portfolios   PortfolioStore
	positions    PositionStore
	traders      TraderStore
	snapshots    SnapshotStore
	logger       *zap.Logger
}

func New(portfolios PortfolioStore, positions PositionStore, traders TraderStore, snapshots SnapshotStore, logger *zap.Logger) *Sampler {
	return &Sampler{portfolios: portfolios, positions: positions, traders: traders, snapshots: snapshots, logger: logger}
}

// Run takes one mark-to-market snapshot of every active portfolio and
// agent against the given aggregate's rates. Failures for one subject are
// logged and skipped; they never abort the rest of the run.
func (s *Sampler) Run(aggregate models.AggregatedResult) {
	spreadByAsset := make(map[string]models.FundingSpread, len(aggregate.Spreads))
	for _, sp := range aggregate.Spreads {
		spreadByAsset[sp.Asset] = sp
	}
	now := time.Now()

	s.samplePortfolios(spreadByAsset, now)
	s.sampleTraders(spreadByAsset, now)
}

func (s *Sampler) samplePortfolios(spreadByAsset map[string]models.FundingSpread, now time.Time) {
	portfolios, err := s.portfolios.ListActive()
	if err != nil {
		s.logger.Error("sampler: list active portfolios failed", zap.Error(err))
		return
	}

	for _, p := range portfolios {
		open, err := s.positions.ListOpenByPortfolio(p.ID)
		if err != nil {
			s.logger.Error("sampler: list open positions failed", zap.Int64("portfolio", p.ID), zap.Error(err))
			continue
		}

		var unrealized, funding float64
		for _, pos := range open {
			mark := markPriceOrFallback(spreadByAsset, pos.Asset, pos.EntryPrice)
			unrealized += pos.Side.DirectionSign() * (pos.EntryPrice - mark) / pos.EntryPrice * pos.SizeUsd
			funding += pos.TotalFundingCollected
		}

		totalValue := p.CashBalance + sumSizeUsd(open) + unrealized

		snap := models.EquitySnapshot{
			OwnerID: strconv.FormatInt(p.ID, 10), OwnerKind: models.OwnerPortfolio, SnapshotAt: now,
			TotalValue: totalValue, CashBalance: p.CashBalance, UnrealizedPnl: unrealized,
			FundingCollected: funding, OpenPositions: len(open),
		}
		if err := s.snapshots.Insert(snap); err != nil {
			s.logger.Error("sampler: insert portfolio snapshot failed", zap.Int64("portfolio", p.ID), zap.Error(err))
		}
	}
}

func (s *Sampler) sampleTraders(spreadByAsset map[string]models.FundingSpread, now time.Time) {
	traders, err := s.traders.ListActive()
	if err != nil {
		s.logger.Error("sampler: list active traders failed", zap.Error(err))
		return
	}

	for _, t := range traders {
		open, err := s.traders.ListOpenPositions(t.ID)
		if err != nil {
			s.logger.Error("sampler: list open ai positions failed", zap.String("trader", t.ID), zap.Error(err))
			continue
		}

		var unrealized, funding, sizeSum float64
		for _, pos := range open {
			mark := markPriceOrFallback(spreadByAsset, pos.Asset, pos.EntryPrice)
			unrealized += pos.Direction.DirectionSign() * (pos.EntryPrice - mark) / pos.EntryPrice * pos.SizeUsd
			funding += pos.FundingCollected
			sizeSum += pos.SizeUsd
		}

		totalValue := t.CashBalance + sizeSum + unrealized

		snap := models.EquitySnapshot{
			OwnerID: t.ID, OwnerKind: models.OwnerAgent, SnapshotAt: now,
			TotalValue: totalValue, CashBalance: t.CashBalance, UnrealizedPnl: unrealized,
			FundingCollected: funding, OpenPositions: len(open),
		}
		if err := s.snapshots.Insert(snap); err != nil {
			s.logger.Error("sampler: insert ai snapshot failed", zap.String("trader", t.ID), zap.Error(err))
		}
	}
}

func markPriceOrFallback(spreadByAsset map[string]models.FundingSpread, asset string, fallback float64) float64 {
	s, ok := spreadByAsset[asset]
	if !ok || s.Primary == nil || s.Primary.MarkPrice == nil {
		return fallback
	}
	return *s.Primary.MarkPrice
}

func sumSizeUsd(positions []models.Position) float64 {
	sum := 0.0
	for _, p := range positions {
		sum += p.SizeUsd
	}
	return sum
}
