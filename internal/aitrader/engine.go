package aitrader

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
	"hldesk/internal/observability"
	"hldesk/pkg/retry"
)

const (
	initialBaseline = 10000.0
	stopLossPct     = 0.15
	maxOpenPositions = 3
	maxSizePctOfValue = 0.30
	minPositionSize  = 100.0
	entryFeeRate     = 0.0005
	exitFeeRate      = 0.0005
	llmMaxAttempts   = 2
)

// TraderStore is the subset of repository.AiTraderRepository the engine
// depends on.
type TraderStore interface {
	GetActiveByName(name string) (models.AiTrader, error)
	UpdateCashBalance(id string, cashBalance float64) error
	ListOpenPositions(traderID string) ([]models.AiPosition, error)
	CreatePosition(p *models.AiPosition) error
	UpdatePositionFunding(id int64, fundingCollected float64, lastFundingAt time.Time) error
	ClosePosition(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error
	InsertDecision(d *models.AiDecision) error
}

// llmCompleter is the subset of LLMClient the engine depends on, so tests
// can substitute a fake without making real HTTP calls.
type llmCompleter interface {
	Complete(ctx context.Context, model string, messages []ChatMessage) (string, error)
}

// Engine runs one agent's cycle at a time.
type Engine struct {
	store      TraderStore
	llm        llmCompleter
	logger     *zap.Logger
	llmTimeout time.Duration
}

func NewEngine(store TraderStore, llm *LLMClient, llmTimeout time.Duration, logger *zap.Logger) *Engine {
	return &Engine{store: store, llm: llm, llmTimeout: llmTimeout, logger: logger}
}

// RunAgentCycle drives one agent through funding accrual, stop-loss,
// context construction, an LLM decision, and execution. It terminates in
// exactly one persisted AiDecision and at most one position mutation.
func (e *Engine) RunAgentCycle(ctx context.Context, name string, aggregate models.AggregatedResult) (models.AiDecision, error) {
	trader, err := e.store.GetActiveByName(name)
	if err != nil {
		return models.AiDecision{}, err
	}

	spreadByAsset := make(map[string]models.FundingSpread, len(aggregate.Spreads))
	for _, s := range aggregate.Spreads {
		spreadByAsset[s.Asset] = s
	}

	now := time.Now()
	cash := trader.CashBalance

	positions, err := e.store.ListOpenPositions(trader.ID)
	if err != nil {
		return models.AiDecision{}, err
	}

	// Phase 2 (shared with C5): funding accrual, then stop-loss.
	stillOpen := positions[:0:0]
	var stopLossDecision *models.AiDecision
	for _, p := range positions {
		spread, ok := spreadByAsset[p.Asset]
		if !ok || spread.Primary == nil {
			stillOpen = append(stillOpen, p)
			continue
		}

		if earned, newWatermark, accrued := accrueFunding(p, spread.Primary.Rate8h, now); accrued {
			p.FundingCollected += earned
			p.LastFundingAt = newWatermark
			if err := e.store.UpdatePositionFunding(p.ID, p.FundingCollected, p.LastFundingAt); err != nil {
				return models.AiDecision{}, err
			}
			cash += earned
		}

		currentMark := p.EntryPrice
		if spread.Primary.MarkPrice != nil {
			currentMark = *spread.Primary.MarkPrice
		}
		if isStopLoss(p, currentMark) && stopLossDecision == nil {
			priceReturn := p.Direction.DirectionSign() * (p.EntryPrice - currentMark) / p.EntryPrice * p.SizeUsd
			exitFee := p.SizeUsd * exitFeeRate
			realizedPnl := priceReturn + p.FundingCollected - exitFee
			cashCredit := p.SizeUsd + priceReturn - exitFee

			if err := e.store.ClosePosition(p.ID, currentMark, realizedPnl, now); err != nil {
				return models.AiDecision{}, err
			}
			cash += cashCredit

			asset := p.Asset
			d := &models.AiDecision{
				ID: uuid.NewString(), TraderID: trader.ID, Action: models.ActionClose,
				Asset: &asset, Reasoning: "stop-loss triggered", CreatedAt: now,
			}
			stopLossDecision = d
			observability.AiCyclesRun.WithLabelValues(name, "close").Inc()
			continue
		}
		stillOpen = append(stillOpen, p)
	}

	if stopLossDecision != nil {
		if err := e.store.InsertDecision(stopLossDecision); err != nil {
			return models.AiDecision{}, err
		}
		if err := e.store.UpdateCashBalance(trader.ID, cash); err != nil {
			return models.AiDecision{}, err
		}
		return *stopLossDecision, nil
	}

	// Context.
	marketContext := buildMarketContext(aggregate.Spreads)
	portfolioSummary := buildPortfolioSummary(trader, stillOpen, spreadByAsset, initialBaseline)

	systemPrompt := buildSystemPrompt(trader.Name, trader.Persona)
	userPrompt := buildUserPrompt(marketContext, portfolioSummary)

	raw := e.decide(ctx, trader, systemPrompt, userPrompt)

	decision, newCash := e.execute(trader, stillOpen, raw, spreadByAsset, cash, now)

	if err := e.store.InsertDecision(&decision); err != nil {
		return models.AiDecision{}, err
	}
	if err := e.store.UpdateCashBalance(trader.ID, newCash); err != nil {
		return models.AiDecision{}, err
	}

	observability.AiCyclesRun.WithLabelValues(name, string(decision.Action)).Inc()
	return decision, nil
}

// decide calls the LLM with a 45-second timeout and one retry; a
// persistent failure downgrades to hold.
func (e *Engine) decide(ctx context.Context, trader models.AiTrader, systemPrompt, userPrompt string) rawDecision {
	start := time.Now()
	response, err := retry.DoWithResult(ctx, func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.llmTimeout)
		defer cancel()
		return e.llm.Complete(attemptCtx, trader.Model, []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		})
	}, retry.Config{MaxRetries: llmMaxAttempts, InitialDelay: 0, MaxDelay: 0, Multiplier: 1, JitterFactor: 0})

	outcome := "ok"
	defer func() {
		observability.AiLLMLatency.WithLabelValues(trader.Model, outcome).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err != nil {
		outcome = "error"
		if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindTransport {
			e.logger.Warn("llm call failed after retry", zap.String("trader", trader.Name), zap.Error(err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return holdDecision("LLM timed out after 45s — holding")
		}
		return holdDecision("LLM call failed: " + err.Error() + " — holding")
	}

	return extractDecision(response)
}

// execute applies the decision, capping or rejecting it against the
// trader's risk limits before touching any position.
func (e *Engine) execute(trader models.AiTrader, openPositions []models.AiPosition, raw rawDecision, spreadByAsset map[string]models.FundingSpread, cash float64, now time.Time) (models.AiDecision, float64) {
	action := models.Action(raw.Action)
	decision := models.AiDecision{ID: uuid.NewString(), TraderID: trader.ID, Action: action, Reasoning: raw.Reasoning, CreatedAt: now}

	switch action {
	case models.ActionOpenLong, models.ActionOpenShort:
		return e.executeOpen(trader, openPositions, raw, decision, spreadByAsset, cash, now)
	case models.ActionClose:
		return e.executeClose(trader, openPositions, raw, decision, spreadByAsset, cash, now)
	default:
		decision.Action = models.ActionHold
		return decision, cash
	}
}

func (e *Engine) executeOpen(trader models.AiTrader, openPositions []models.AiPosition, raw rawDecision, decision models.AiDecision, spreadByAsset map[string]models.FundingSpread, cash float64, now time.Time) (models.AiDecision, float64) {
	if len(openPositions) >= maxOpenPositions {
		return downgradeToHold(decision, "position cap reached"), cash
	}
	for _, p := range openPositions {
		if p.Asset == raw.Asset {
			return downgradeToHold(decision, "position already open in asset"), cash
		}
	}
	if raw.SizeUsd == nil {
		return downgradeToHold(decision, "missing sizeUsd"), cash
	}

	totalValue := totalPortfolioValue(trader, openPositions, spreadByAsset)
	size := math.Min(*raw.SizeUsd, totalValue*maxSizePctOfValue)
	fee := size * entryFeeRate
	if size-fee < minPositionSize {
		return downgradeToHold(decision, "post-fee size below minimum"), cash
	}
	if cash < size+fee {
		return downgradeToHold(decision, "insufficient cash"), cash
	}

	direction := models.DirectionLong
	if decision.Action == models.ActionOpenShort {
		direction = models.DirectionShort
	}

	mark := 0.0
	if s, ok := spreadByAsset[raw.Asset]; ok && s.Primary != nil && s.Primary.MarkPrice != nil {
		mark = *s.Primary.MarkPrice
	}

	pos := &models.AiPosition{
		TraderID: trader.ID, Asset: raw.Asset, Direction: direction, SizeUsd: size,
		EntryPrice: mark, FundingCollected: 0, LastFundingAt: now, OpenedAt: now, IsOpen: true,
	}
	if err := e.store.CreatePosition(pos); err != nil {
		e.logger.Error("create ai position failed", zap.Error(err))
		return downgradeToHold(decision, "failed to persist position"), cash
	}

	decision.Asset = &raw.Asset
	decision.SizeUsd = &size
	return decision, cash - (size + fee)
}

func (e *Engine) executeClose(trader models.AiTrader, openPositions []models.AiPosition, raw rawDecision, decision models.AiDecision, spreadByAsset map[string]models.FundingSpread, cash float64, now time.Time) (models.AiDecision, float64) {
	var target *models.AiPosition
	for i := range openPositions {
		if openPositions[i].Asset == raw.Asset {
			target = &openPositions[i]
			break
		}
	}
	if target == nil {
		return downgradeToHold(decision, "no matching open position"), cash
	}

	currentMark := target.EntryPrice
	if s, ok := spreadByAsset[target.Asset]; ok && s.Primary != nil && s.Primary.MarkPrice != nil {
		currentMark = *s.Primary.MarkPrice
	}

	priceReturn := priceReturnFor(*target, currentMark)
	exitFee := target.SizeUsd * exitFeeRate
	entryFee := target.SizeUsd * entryFeeRate
	realizedPnl := priceReturn + target.FundingCollected - entryFee - exitFee
	cashCredit := target.SizeUsd + priceReturn - exitFee

	if err := e.store.ClosePosition(target.ID, currentMark, realizedPnl, now); err != nil {
		e.logger.Error("close ai position failed", zap.Error(err))
		return downgradeToHold(decision, "failed to close position"), cash
	}

	decision.Asset = &raw.Asset
	return decision, cash + cashCredit
}

func downgradeToHold(decision models.AiDecision, reason string) models.AiDecision {
	decision.Action = models.ActionHold
	decision.Asset = nil
	decision.SizeUsd = nil
	decision.Reasoning = reason
	return decision
}

// priceReturnFor implements "direction == long ? (exit-entry)/entry :
// (entry-exit)/entry", expressed via DirectionSign.
func priceReturnFor(p models.AiPosition, exitPrice float64) float64 {
	return p.Direction.DirectionSign() * (p.EntryPrice - exitPrice) / p.EntryPrice * p.SizeUsd
}

func totalPortfolioValue(trader models.AiTrader, positions []models.AiPosition, spreadByAsset map[string]models.FundingSpread) float64 {
	total := trader.CashBalance
	for _, p := range positions {
		mark := p.EntryPrice
		if s, ok := spreadByAsset[p.Asset]; ok && s.Primary != nil && s.Primary.MarkPrice != nil {
			mark = *s.Primary.MarkPrice
		}
		total += p.SizeUsd + priceReturnFor(p, mark) + p.FundingCollected
	}
	return total
}

func isStopLoss(p models.AiPosition, currentMark float64) bool {
	var pricePct float64
	if p.Direction == models.DirectionShort {
		pricePct = (p.EntryPrice - currentMark) / p.EntryPrice
	} else {
		pricePct = (currentMark - p.EntryPrice) / p.EntryPrice
	}
	return pricePct < -stopLossPct
}

func accrueFunding(p models.AiPosition, rate8h float64, now time.Time) (float64, time.Time, bool) {
	deltaHours := math.Floor(now.Sub(p.LastFundingAt).Hours())
	if deltaHours <= 0 {
		return 0, p.LastFundingAt, false
	}
	hourlyRate := rate8h / 8
	earned := p.SizeUsd * hourlyRate * deltaHours * p.Direction.DirectionSign()
	newWatermark := p.LastFundingAt.Add(time.Duration(deltaHours) * time.Hour)
	return earned, newWatermark, true
}
