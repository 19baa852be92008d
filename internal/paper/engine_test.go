package paper

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"hldesk/internal/models"
)

// ============================================================
// fake stores
// ============================================================

type fakePortfolioStore struct {
	portfolios []models.Portfolio
	cash       map[int64]float64
}

func (f *fakePortfolioStore) ListActive() ([]models.Portfolio, error) { return f.portfolios, nil }
func (f *fakePortfolioStore) UpdateCashBalance(id int64, cashBalance float64) error {
	if f.cash == nil {
		f.cash = map[int64]float64{}
	}
	f.cash[id] = cashBalance
	return nil
}

type fakePositionStore struct {
	open    map[int64][]models.Position
	created []models.Position
	closed  []int64
	nextID  int64
}

func (f *fakePositionStore) ListOpenByPortfolio(portfolioID int64) ([]models.Position, error) {
	return f.open[portfolioID], nil
}
func (f *fakePositionStore) Create(p *models.Position) error {
	f.nextID++
	p.ID = f.nextID
	f.created = append(f.created, *p)
	return nil
}
func (f *fakePositionStore) UpdateFunding(id int64, totalFundingCollected float64, lastFundingAt time.Time) error {
	return nil
}
func (f *fakePositionStore) Close(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error {
	f.closed = append(f.closed, id)
	return nil
}

type fakeTransactionStore struct {
	inserted []models.Transaction
}

func (f *fakeTransactionStore) Insert(tx *models.Transaction) error {
	f.inserted = append(f.inserted, *tx)
	return nil
}

func markPtr(v float64) *float64 { return &v }

// ============================================================
// RunCycle tests
// ============================================================

func TestEngineRunCycleAccruesFundingAfterOneHour(t *testing.T) {
	now := time.Now()
	portfolio := models.Portfolio{ID: 1, StrategyName: models.StrategyAggressive, CashBalance: 9000, IsActive: true}
	pos := models.Position{
		ID: 10, PortfolioID: 1, Asset: "BTC", Side: models.SideShortPerp,
		SizeUsd: 1000, EntryPrice: 50000, LastFundingAt: now.Add(-90 * time.Minute), OpenedAt: now.Add(-2 * time.Hour), IsOpen: true,
	}

	portfolios := &fakePortfolioStore{portfolios: []models.Portfolio{portfolio}}
	positions := &fakePositionStore{open: map[int64][]models.Position{1: {pos}}}
	transactions := &fakeTransactionStore{}

	engine := NewEngine(portfolios, positions, transactions, zap.NewNop())

	aggregate := models.AggregatedResult{
		Spreads: []models.FundingSpread{
			{Asset: "BTC", Primary: &models.FundingRate{Asset: "BTC", Rate8h: 0.008, MarkPrice: markPtr(50000)}, MaxSpread: 0.02},
		},
	}

	engine.RunCycle(aggregate)

	if len(transactions.inserted) != 1 || transactions.inserted[0].Type != models.TxFunding {
		t.Fatalf("expected one funding transaction, got %+v", transactions.inserted)
	}
	// hourlyRate = 0.008/8 = 0.001; earned = 1000 * 0.001 * 1 * (+1) = 1.0
	if got := transactions.inserted[0].Amount; got != 1.0 {
		t.Errorf("expected earned funding 1.0, got %v", got)
	}
	if cash := portfolios.cash[1]; cash != 9001.0 {
		t.Errorf("expected cash 9001.0 after funding credit, got %v", cash)
	}
}

func TestEngineRunCycleSkipsFundingWithinSameHour(t *testing.T) {
	now := time.Now()
	portfolio := models.Portfolio{ID: 1, StrategyName: models.StrategyAggressive, CashBalance: 9000, IsActive: true}
	pos := models.Position{
		ID: 10, PortfolioID: 1, Asset: "BTC", Side: models.SideShortPerp,
		SizeUsd: 1000, EntryPrice: 50000, LastFundingAt: now.Add(-10 * time.Minute), OpenedAt: now.Add(-2 * time.Hour), IsOpen: true,
	}

	portfolios := &fakePortfolioStore{portfolios: []models.Portfolio{portfolio}}
	positions := &fakePositionStore{open: map[int64][]models.Position{1: {pos}}}
	transactions := &fakeTransactionStore{}
	engine := NewEngine(portfolios, positions, transactions, zap.NewNop())

	aggregate := models.AggregatedResult{
		Spreads: []models.FundingSpread{
			{Asset: "BTC", Primary: &models.FundingRate{Asset: "BTC", Rate8h: 0.008, MarkPrice: markPtr(50000)}, MaxSpread: 0.02},
		},
	}

	engine.RunCycle(aggregate)

	if len(transactions.inserted) != 0 {
		t.Fatalf("expected no funding transaction within the same hour, got %+v", transactions.inserted)
	}
}

func TestEngineRunCycleStopLossExit(t *testing.T) {
	now := time.Now()
	portfolio := models.Portfolio{ID: 1, StrategyName: models.StrategyAggressive, CashBalance: 9000, IsActive: true}
	pos := models.Position{
		ID: 10, PortfolioID: 1, Asset: "BTC", Side: models.SideShortPerp,
		SizeUsd: 1000, EntryPrice: 50000, LastFundingAt: now, OpenedAt: now.Add(-2 * time.Hour), IsOpen: true,
	}

	portfolios := &fakePortfolioStore{portfolios: []models.Portfolio{portfolio}}
	positions := &fakePositionStore{open: map[int64][]models.Position{1: {pos}}}
	transactions := &fakeTransactionStore{}
	engine := NewEngine(portfolios, positions, transactions, zap.NewNop())

	// short_perp loses when mark rises far above entry: pricePct = (entry-mark)/entry < -0.10
	aggregate := models.AggregatedResult{
		Spreads: []models.FundingSpread{
			{Asset: "BTC", Primary: &models.FundingRate{Asset: "BTC", Rate8h: 0, MarkPrice: markPtr(57000)}, MaxSpread: 0.02},
		},
	}

	engine.RunCycle(aggregate)

	if len(positions.closed) != 1 || positions.closed[0] != 10 {
		t.Fatalf("expected stop-loss close of position 10, got %+v", positions.closed)
	}
}

func TestEngineRunCycleProcessesEachPortfolioIndependently(t *testing.T) {
	good := models.Portfolio{ID: 1, StrategyName: models.StrategyAggressive, CashBalance: 9000, IsActive: true}
	bad := models.Portfolio{ID: 2, StrategyName: models.StrategyConservative, CashBalance: 9000, IsActive: true}

	portfolios := &fakePortfolioStore{portfolios: []models.Portfolio{bad, good}}
	// positions.open has no entry for id 2, causing ListOpenByPortfolio to return nil, nil — not a panic path,
	// so instead we verify both portfolios get a cash update to confirm independence.
	positions := &fakePositionStore{open: map[int64][]models.Position{}}
	transactions := &fakeTransactionStore{}
	engine := NewEngine(portfolios, positions, transactions, zap.NewNop())

	engine.RunCycle(models.AggregatedResult{})

	if _, ok := portfolios.cash[1]; !ok {
		t.Error("expected portfolio 1 to be processed")
	}
	if _, ok := portfolios.cash[2]; !ok {
		t.Error("expected portfolio 2 to be processed independently of portfolio 1")
	}
}
