package repository

import (
	"database/sql"
	"errors"
	"time"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

var (
	ErrTraderNotFound = errors.New("ai trader not found")
)

// AiTraderRepository covers ai_traders, ai_positions, and ai_decisions.
type AiTraderRepository struct {
	db *sql.DB
}

func NewAiTraderRepository(db *sql.DB) *AiTraderRepository {
	return &AiTraderRepository{db: db}
}

func (r *AiTraderRepository) GetActiveByName(name string) (models.AiTrader, error) {
	query := `SELECT id, name, model, emoji, persona, cash_balance, is_active
		FROM ai_traders WHERE name = $1 AND is_active = true`

	var t models.AiTrader
	err := r.db.QueryRow(query, name).Scan(&t.ID, &t.Name, &t.Model, &t.Emoji, &t.Persona, &t.CashBalance, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AiTrader{}, ErrTraderNotFound
	}
	if err != nil {
		return models.AiTrader{}, apperr.Store("get active trader by name", err)
	}
	return t, nil
}

// GetByName returns a trader regardless of active state, for detail pages.
func (r *AiTraderRepository) GetByName(name string) (models.AiTrader, error) {
	query := `SELECT id, name, model, emoji, persona, cash_balance, is_active
		FROM ai_traders WHERE name = $1`

	var t models.AiTrader
	err := r.db.QueryRow(query, name).Scan(&t.ID, &t.Name, &t.Model, &t.Emoji, &t.Persona, &t.CashBalance, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AiTrader{}, ErrTraderNotFound
	}
	if err != nil {
		return models.AiTrader{}, apperr.Store("get trader by name", err)
	}
	return t, nil
}

// ListAll returns every trader regardless of active state.
func (r *AiTraderRepository) ListAll() ([]models.AiTrader, error) {
	rows, err := r.db.Query(`SELECT id, name, model, emoji, persona, cash_balance, is_active FROM ai_traders ORDER BY name`)
	if err != nil {
		return nil, apperr.Store("list all traders", err)
	}
	defer rows.Close()

	var out []models.AiTrader
	for rows.Next() {
		var t models.AiTrader
		if err := rows.Scan(&t.ID, &t.Name, &t.Model, &t.Emoji, &t.Persona, &t.CashBalance, &t.IsActive); err != nil {
			return nil, apperr.Store("scan ai trader row", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *AiTraderRepository) ListActive() ([]models.AiTrader, error) {
	rows, err := r.db.Query(`SELECT id, name, model, emoji, persona, cash_balance, is_active FROM ai_traders WHERE is_active = true`)
	if err != nil {
		return nil, apperr.Store("list active traders", err)
	}
	defer rows.Close()

	var out []models.AiTrader
	for rows.Next() {
		var t models.AiTrader
		if err := rows.Scan(&t.ID, &t.Name, &t.Model, &t.Emoji, &t.Persona, &t.CashBalance, &t.IsActive); err != nil {
			return nil, apperr.Store("scan ai trader row", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *AiTraderRepository) UpdateCashBalance(id string, cashBalance float64) error {
	result, err := r.db.Exec(`UPDATE ai_traders SET cash_balance = $1 WHERE id = $2`, cashBalance, id)
	if err != nil {
		return apperr.Store("update trader cash balance", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTraderNotFound
	}
	return nil
}

func (r *AiTraderRepository) ListOpenPositions(traderID string) ([]models.AiPosition, error) {
	query := `SELECT id, trader_id, asset, direction, size_usd, entry_price, funding_collected, last_funding_at,
		opened_at, is_open, exit_price, realized_pnl, closed_at
		FROM ai_positions WHERE trader_id = $1 AND is_open = true`

	rows, err := r.db.Query(query, traderID)
	if err != nil {
		return nil, apperr.Store("query open ai positions", err)
	}
	defer rows.Close()

	var out []models.AiPosition
	for rows.Next() {
		p, err := scanAiPosition(rows)
		if err != nil {
			return nil, apperr.Store("scan ai position row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *AiTraderRepository) CreatePosition(p *models.AiPosition) error {
	query := `INSERT INTO ai_positions
		(trader_id, asset, direction, size_usd, entry_price, funding_collected, last_funding_at, opened_at, is_open)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING id`

	return r.db.QueryRow(query, p.TraderID, p.Asset, string(p.Direction), p.SizeUsd, p.EntryPrice,
		p.FundingCollected, p.LastFundingAt, p.OpenedAt).Scan(&p.ID)
}

func (r *AiTraderRepository) UpdatePositionFunding(id int64, fundingCollected float64, lastFundingAt time.Time) error {
	_, err := r.db.Exec(`UPDATE ai_positions SET funding_collected = $1, last_funding_at = $2 WHERE id = $3`,
		fundingCollected, lastFundingAt, id)
	if err != nil {
		return apperr.Store("update ai position funding", err)
	}
	return nil
}

func (r *AiTraderRepository) ClosePosition(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE ai_positions SET is_open = false, exit_price = $1, realized_pnl = $2, closed_at = $3 WHERE id = $4`,
		exitPrice, realizedPnl, closedAt, id)
	if err != nil {
		return apperr.Store("close ai position", err)
	}
	return nil
}

func (r *AiTraderRepository) InsertDecision(d *models.AiDecision) error {
	query := `INSERT INTO ai_decisions (id, trader_id, action, asset, size_usd, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, d.ID, d.TraderID, string(d.Action), d.Asset, d.SizeUsd, d.Reasoning, d.CreatedAt)
	if err != nil {
		return apperr.Store("insert ai decision", err)
	}
	return nil
}

// ListRecentDecisions returns the most recent decisions for a trader first,
// capped at limit.
func (r *AiTraderRepository) ListRecentDecisions(traderID string, limit int) ([]models.AiDecision, error) {
	query := `SELECT id, trader_id, action, asset, size_usd, reasoning, created_at
		FROM ai_decisions WHERE trader_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(query, traderID, limit)
	if err != nil {
		return nil, apperr.Store("query ai decisions", err)
	}
	defer rows.Close()

	var out []models.AiDecision
	for rows.Next() {
		var d models.AiDecision
		var action string
		if err := rows.Scan(&d.ID, &d.TraderID, &action, &d.Asset, &d.SizeUsd, &d.Reasoning, &d.CreatedAt); err != nil {
			return nil, apperr.Store("scan ai decision row", err)
		}
		d.Action = models.Action(action)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListLastDecisionPerTrader returns the most recent decision for every
// trader, keyed by trader ID, for the agent-listing endpoint.
func (r *AiTraderRepository) ListLastDecisionPerTrader() (map[string]models.AiDecision, error) {
	query := `SELECT DISTINCT ON (trader_id) id, trader_id, action, asset, size_usd, reasoning, created_at
		FROM ai_decisions ORDER BY trader_id, created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperr.Store("query last decision per trader", err)
	}
	defer rows.Close()

	out := make(map[string]models.AiDecision)
	for rows.Next() {
		var d models.AiDecision
		var action string
		if err := rows.Scan(&d.ID, &d.TraderID, &action, &d.Asset, &d.SizeUsd, &d.Reasoning, &d.CreatedAt); err != nil {
			return nil, apperr.Store("scan last decision row", err)
		}
		d.Action = models.Action(action)
		out[d.TraderID] = d
	}
	return out, rows.Err()
}

func scanAiPosition(s scanner) (models.AiPosition, error) {
	var p models.AiPosition
	var direction string
	if err := s.Scan(&p.ID, &p.TraderID, &p.Asset, &direction, &p.SizeUsd, &p.EntryPrice, &p.FundingCollected,
		&p.LastFundingAt, &p.OpenedAt, &p.IsOpen, &p.ExitPrice, &p.RealizedPnl, &p.ClosedAt); err != nil {
		return models.AiPosition{}, err
	}
	p.Direction = models.Direction(direction)
	return p, nil
}
