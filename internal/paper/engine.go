package paper

import (
	"math"
	"time"

	"go.uber.org/zap"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const (
	exitFeeRate  = 0.0005
	entryFeeRate = 0.0005
	minPositionSize = 100.0
)

// PortfolioStore is the subset of repository.PortfolioRepository the engine
// depends on.
type PortfolioStore interface {
	ListActive() ([]models.Portfolio, error)
	UpdateCashBalance(id int64, cashBalance float64) error
}

// PositionStore is the subset of repository.PositionRepository the engine
// depends on.
type PositionStore interface {
	ListOpenByPortfolio(portfolioID int64) ([]models.Position, error)
	Create(p *models.Position) error
	UpdateFunding(id int64, totalFundingCollected float64, lastFundingAt time.Time) error
	Close(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error
}

// TransactionStore is the subset of repository.TransactionRepository the
// engine depends on.
type TransactionStore interface {
	Insert(tx *models.Transaction) error
}

// Engine drives every active portfolio exactly once per poll cycle.
type Engine struct {
	portfolios   PortfolioStore
	positions    PositionStore
	transactions TransactionStore
	presets      Presets
	logger       *zap.Logger
}

// NewEngine loads the bundled strategy presets and panics if they fail to
// parse — a corrupted presets.yaml is a build-time defect, not a runtime
// condition a caller can recover from.
func NewEngine(portfolios PortfolioStore, positions PositionStore, transactions TransactionStore, logger *zap.Logger) *Engine {
	presets, err := LoadPresets()
	if err != nil {
		panic("paper: failed to load strategy presets: " + err.Error())
	}
	return &Engine{portfolios: portfolios, positions: positions, transactions: transactions, presets: presets, logger: logger}
}

// RunCycle drives every active portfolio against the given aggregate. A
// failure inside one portfolio is logged and does not abort the others.
func (e *Engine) RunCycle(aggregate models.AggregatedResult) {
	portfolios, err := e.portfolios.ListActive()
	if err != nil {
		e.logger.Error("list active portfolios failed", zap.Error(err))
		return
	}

	spreadByAsset := make(map[string]models.FundingSpread, len(aggregate.Spreads))
	for _, s := range aggregate.Spreads {
		spreadByAsset[s.Asset] = s
	}

	for _, portfolio := range portfolios {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("paper cycle panicked", zap.Int64("portfolio_id", portfolio.ID), zap.Any("panic", r))
					observability.PaperCyclesRun.WithLabelValues(portfolio.StrategyName, "panic").Inc()
				}
			}()
			if err := e.runPortfolioCycle(portfolio, spreadByAsset); err != nil {
				e.logger.Error("paper cycle failed", zap.Int64("portfolio_id", portfolio.ID), zap.Error(err))
				observability.PaperCyclesRun.WithLabelValues(portfolio.StrategyName, "error").Inc()
				return
			}
			observability.PaperCyclesRun.WithLabelValues(portfolio.StrategyName, "ok").Inc()
		}()
	}
}

func (e *Engine) runPortfolioCycle(portfolio models.Portfolio, spreadByAsset map[string]models.FundingSpread) error {
	cfg := normalizeStrategyConfig(portfolio.StrategyConfig, presetConfig(portfolio.StrategyName, e.presets), e.logger)
	now := time.Now()

	openPositions, err := e.positions.ListOpenByPortfolio(portfolio.ID)
	if err != nil {
		return err
	}

	cash := portfolio.CashBalance

	// Phase 1 — funding accrual.
	for i := range openPositions {
		pos := &openPositions[i]
		spread, ok := spreadByAsset[pos.Asset]
		if !ok || spread.Primary == nil {
			continue
		}
		earned, newWatermark, accrued := accrueFunding(*pos, spread.Primary.Rate8h, now)
		if !accrued {
			continue
		}
		pos.TotalFundingCollected += earned
		pos.LastFundingAt = newWatermark

		if err := e.positions.UpdateFunding(pos.ID, pos.TotalFundingCollected, pos.LastFundingAt); err != nil {
			return err
		}
		cash += earned
		if err := e.transactions.Insert(&models.Transaction{
			PortfolioID: portfolio.ID,
			PositionID:  &pos.ID,
			Type:        models.TxFunding,
			Asset:       pos.Asset,
			Amount:      earned,
			Description: "funding accrual",
			CreatedAt:   now,
		}); err != nil {
			return err
		}
	}

	// Phase 2 — exits.
	stillOpen := openPositions[:0:0]
	for _, pos := range openPositions {
		spread, ok := spreadByAsset[pos.Asset]
		if !ok || spread.Primary == nil {
			stillOpen = append(stillOpen, pos)
			continue
		}
		currentMark := markPriceOf(spread, pos.EntryPrice)

		reason, exit := evaluateExit(pos, spread, currentMark, portfolio.StrategyName, cfg)
		if !exit {
			stillOpen = append(stillOpen, pos)
			continue
		}

		priceReturn := pos.Side.DirectionSign() * (pos.EntryPrice - currentMark) / pos.EntryPrice * pos.SizeUsd
		exitFee := pos.SizeUsd * exitFeeRate
		realizedPnl := priceReturn + pos.TotalFundingCollected - exitFee
		cashCredit := pos.SizeUsd + priceReturn - exitFee // funding already credited on accrual, not again here

		if err := e.positions.Close(pos.ID, currentMark, realizedPnl, now); err != nil {
			return err
		}
		cash += cashCredit
		if err := e.transactions.Insert(&models.Transaction{
			PortfolioID: portfolio.ID,
			PositionID:  &pos.ID,
			Type:        models.TxClose,
			Asset:       pos.Asset,
			Amount:      cashCredit,
			Description: "exit: " + reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		observability.PaperPositionsClosed.WithLabelValues(portfolio.StrategyName, reason).Inc()
	}

	// Phase 3 — entries.
	totalValue := cash
	for _, pos := range stillOpen {
		totalValue += pos.SizeUsd
	}
	maxPositionSize := totalValue * cfg.MaxPositionSizePct

	openAssets := make(map[string]bool, len(stillOpen))
	for _, pos := range stillOpen {
		openAssets[pos.Asset] = true
	}

	if len(stillOpen) < cfg.MaxPositions && cash >= maxPositionSize*0.5 {
		candidates := candidatesFor(portfolio.StrategyName, spreadsOf(spreadByAsset), cfg)
		for _, c := range candidates {
			if len(stillOpen) >= cfg.MaxPositions {
				break
			}
			if openAssets[c.spread.Asset] {
				continue
			}

			fee := maxPositionSize * entryFeeRate
			positionSize := math.Min(maxPositionSize, cash-fee)
			if positionSize < minPositionSize || cash < positionSize+fee {
				continue
			}

			mark := markPriceOf(c.spread, 0)

			pos := &models.Position{
				PortfolioID:           portfolio.ID,
				Asset:                 c.spread.Asset,
				Side:                  c.side,
				SizeUsd:               positionSize,
				EntryRate8h:           c.spread.Primary.Rate8h,
				EntrySpread:           c.spread.MaxSpread,
				EntryPrice:            mark,
				TotalFundingCollected: 0,
				LastFundingAt:         now,
				OpenedAt:              now,
				IsOpen:                true,
				FeesPaid:              fee,
			}
			if err := e.positions.Create(pos); err != nil {
				return err
			}

			cash -= positionSize + fee
			openAssets[pos.Asset] = true
			stillOpen = append(stillOpen, *pos)

			if err := e.transactions.Insert(&models.Transaction{
				PortfolioID: portfolio.ID,
				PositionID:  &pos.ID,
				Type:        models.TxOpen,
				Asset:       pos.Asset,
				Amount:      -positionSize,
				Description: "open position",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			if err := e.transactions.Insert(&models.Transaction{
				PortfolioID: portfolio.ID,
				PositionID:  &pos.ID,
				Type:        models.TxFee,
				Asset:       pos.Asset,
				Amount:      -fee,
				Description: "entry fee",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			observability.PaperPositionsOpened.WithLabelValues(portfolio.StrategyName, pos.Asset).Inc()
		}
	}

	return e.portfolios.UpdateCashBalance(portfolio.ID, cash)
}

// accrueFunding implements Phase 1's hourly funding accrual. It returns
// (earned, newLastFundingAt, accrued); accrued is false if Δh <= 0.
func accrueFunding(pos models.Position, rate8h float64, now time.Time) (float64, time.Time, bool) {
	deltaHours := math.Floor(now.Sub(pos.LastFundingAt).Hours())
	if deltaHours <= 0 {
		return 0, pos.LastFundingAt, false
	}
	hourlyRate := rate8h / 8
	earned := pos.SizeUsd * hourlyRate * deltaHours * pos.Side.DirectionSign()
	newWatermark := pos.LastFundingAt.Add(time.Duration(deltaHours) * time.Hour)
	return earned, newWatermark, true
}

// evaluateExit runs stop-loss first, then the strategy-specific exit table.
func evaluateExit(pos models.Position, spread models.FundingSpread, currentMark float64, strategyName string, cfg StrategyConfig) (string, bool) {
	var pricePct float64
	if pos.Side == models.SideShortPerp {
		pricePct = (pos.EntryPrice - currentMark) / pos.EntryPrice
	} else {
		pricePct = (currentMark - pos.EntryPrice) / pos.EntryPrice
	}
	if pricePct < -cfg.StopLossPct {
		return "stop_loss", true
	}

	if shouldStrategyExit(strategyName, spread.Primary, spread.MaxSpread, pos.Side, cfg) {
		return "strategy_exit", true
	}
	return "", false
}

func markPriceOf(spread models.FundingSpread, fallback float64) float64 {
	if spread.Primary != nil && spread.Primary.MarkPrice != nil {
		return *spread.Primary.MarkPrice
	}
	return fallback
}

func spreadsOf(m map[string]models.FundingSpread) []models.FundingSpread {
	out := make([]models.FundingSpread, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
