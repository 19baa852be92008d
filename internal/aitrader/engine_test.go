package aitrader

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

// ============================================================
// fake store and fake LLM
// ============================================================

type fakeTraderStore struct {
	trader    models.AiTrader
	open      []models.AiPosition
	cash      map[string]float64
	created   []models.AiPosition
	closed    []int64
	decisions []models.AiDecision
	nextID    int64
}

func (f *fakeTraderStore) GetActiveByName(name string) (models.AiTrader, error) { return f.trader, nil }
func (f *fakeTraderStore) UpdateCashBalance(id string, cashBalance float64) error {
	if f.cash == nil {
		f.cash = map[string]float64{}
	}
	f.cash[id] = cashBalance
	return nil
}
func (f *fakeTraderStore) ListOpenPositions(traderID string) ([]models.AiPosition, error) {
	return f.open, nil
}
func (f *fakeTraderStore) CreatePosition(p *models.AiPosition) error {
	f.nextID++
	p.ID = f.nextID
	f.created = append(f.created, *p)
	return nil
}
func (f *fakeTraderStore) UpdatePositionFunding(id int64, fundingCollected float64, lastFundingAt time.Time) error {
	return nil
}
func (f *fakeTraderStore) ClosePosition(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error {
	f.closed = append(f.closed, id)
	return nil
}
func (f *fakeTraderStore) InsertDecision(d *models.AiDecision) error {
	f.decisions = append(f.decisions, *d)
	return nil
}

type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeLLM: no more scripted responses")
}

func markPtr(v float64) *float64 { return &v }

// ============================================================
// RunAgentCycle tests
// ============================================================

func TestRunAgentCycleStopLossProducesSyntheticClose(t *testing.T) {
	now := time.Now()
	trader := models.AiTrader{ID: "t1", Name: "macro-thesis", Model: "gpt", CashBalance: 9000, IsActive: true}
	pos := models.AiPosition{
		ID: 10, TraderID: "t1", Asset: "BTC", Direction: models.DirectionShort,
		SizeUsd: 1000, EntryPrice: 50000, LastFundingAt: now, OpenedAt: now.Add(-2 * time.Hour), IsOpen: true,
	}

	store := &fakeTraderStore{trader: trader, open: []models.AiPosition{pos}}
	llm := &fakeLLM{}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	// short loses when mark rises far above entry: pricePct = (entry-mark)/entry < -0.15
	aggregate := models.AggregatedResult{
		Spreads: []models.FundingSpread{
			{Asset: "BTC", Primary: &models.FundingRate{Asset: "BTC", Rate8h: 0, MarkPrice: markPtr(58000)}},
		},
	}

	decision, err := engine.RunAgentCycle(context.Background(), "macro-thesis", aggregate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionClose {
		t.Fatalf("expected synthetic close on stop-loss, got %v", decision.Action)
	}
	if len(store.closed) != 1 || store.closed[0] != 10 {
		t.Fatalf("expected position 10 closed, got %+v", store.closed)
	}
	if llm.calls != 0 {
		t.Errorf("expected stop-loss to bypass the LLM, got %d calls", llm.calls)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("expected exactly one persisted decision, got %d", len(store.decisions))
	}
}

func TestRunAgentCycleLLMTimeoutTwiceHolds(t *testing.T) {
	trader := models.AiTrader{ID: "t1", Name: "momentum-breakout", Model: "gpt", CashBalance: 10000, IsActive: true}
	store := &fakeTraderStore{trader: trader}
	llm := &fakeLLM{errs: []error{
		apperr.Transport("call chat completion endpoint", context.DeadlineExceeded),
		apperr.Transport("call chat completion endpoint", context.DeadlineExceeded),
	}}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	decision, err := engine.RunAgentCycle(context.Background(), "momentum-breakout", models.AggregatedResult{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("expected hold after exhausted retries, got %v", decision.Action)
	}
	if decision.Reasoning != "LLM timed out after 45s — holding" {
		t.Errorf("unexpected reasoning: %q", decision.Reasoning)
	}
	if llm.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls total), got %d", llm.calls)
	}
}

func TestRunAgentCycleInvalidActionDowngradesToHold(t *testing.T) {
	trader := models.AiTrader{ID: "t1", Name: "contrarian-mean-reversion", Model: "gpt", CashBalance: 10000, IsActive: true}
	store := &fakeTraderStore{trader: trader}
	llm := &fakeLLM{responses: []string{`{"action": "moon", "reasoning": "yolo"}`}}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	decision, err := engine.RunAgentCycle(context.Background(), "contrarian-mean-reversion", models.AggregatedResult{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("expected hold for invalid action, got %v", decision.Action)
	}
}

func TestRunAgentCyclePositionCapDowngradesToHold(t *testing.T) {
	trader := models.AiTrader{ID: "t1", Name: "risk-adjusted-conviction", Model: "gpt", CashBalance: 10000, IsActive: true}
	open := []models.AiPosition{
		{ID: 1, TraderID: "t1", Asset: "BTC", Direction: models.DirectionLong, SizeUsd: 1000, EntryPrice: 50000, IsOpen: true},
		{ID: 2, TraderID: "t1", Asset: "ETH", Direction: models.DirectionLong, SizeUsd: 1000, EntryPrice: 3000, IsOpen: true},
		{ID: 3, TraderID: "t1", Asset: "SOL", Direction: models.DirectionLong, SizeUsd: 1000, EntryPrice: 150, IsOpen: true},
	}
	store := &fakeTraderStore{trader: trader, open: open}
	llm := &fakeLLM{responses: []string{`{"action": "open_long", "asset": "DOGE", "sizeUsd": 500, "reasoning": "fresh entry"}`}}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	decision, err := engine.RunAgentCycle(context.Background(), "risk-adjusted-conviction", models.AggregatedResult{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("expected hold when position cap reached, got %v", decision.Action)
	}
	if len(store.created) != 0 {
		t.Errorf("expected no position created when capped, got %+v", store.created)
	}
}

func TestRunAgentCycleDuplicateAssetDowngradesToHold(t *testing.T) {
	trader := models.AiTrader{ID: "t1", Name: "macro-thesis", Model: "gpt", CashBalance: 10000, IsActive: true}
	open := []models.AiPosition{
		{ID: 1, TraderID: "t1", Asset: "BTC", Direction: models.DirectionLong, SizeUsd: 1000, EntryPrice: 50000, IsOpen: true},
	}
	store := &fakeTraderStore{trader: trader, open: open}
	llm := &fakeLLM{responses: []string{`{"action": "open_short", "asset": "BTC", "sizeUsd": 500, "reasoning": "fade it"}`}}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	decision, err := engine.RunAgentCycle(context.Background(), "macro-thesis", models.AggregatedResult{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("expected hold for duplicate-asset open, got %v", decision.Action)
	}
}

func TestRunAgentCycleOpenLongPersistsPosition(t *testing.T) {
	trader := models.AiTrader{ID: "t1", Name: "macro-thesis", Model: "gpt", CashBalance: 10000, IsActive: true}
	store := &fakeTraderStore{trader: trader}
	llm := &fakeLLM{responses: []string{`{"action": "open_long", "asset": "BTC", "sizeUsd": 1000, "reasoning": "spread favors long"}`}}
	engine := NewEngine(store, nil, 45*time.Second, zap.NewNop())
	engine.llm = llm

	aggregate := models.AggregatedResult{
		Spreads: []models.FundingSpread{
			{Asset: "BTC", Primary: &models.FundingRate{Asset: "BTC", Rate8h: -0.01, MarkPrice: markPtr(50000)}},
		},
	}

	decision, err := engine.RunAgentCycle(context.Background(), "macro-thesis", aggregate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != models.ActionOpenLong {
		t.Fatalf("expected open_long to execute, got %v", decision.Action)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one position created, got %d", len(store.created))
	}
	if got := store.cash["t1"]; got >= 10000 {
		t.Errorf("expected cash debited for the new position, got %v", got)
	}
}
