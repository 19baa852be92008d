package repository

import (
	"database/sql"
	"errors"
	"time"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

var ErrPositionNotFound = errors.New("position not found")

// PositionRepository is the paper_positions table.
type PositionRepository struct {
	db *sql.DB
}

func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) ListOpenByPortfolio(portfolioID int64) ([]models.Position, error) {
	query := `SELECT id, portfolio_id, asset, side, size_usd, entry_rate_8h, entry_spread, entry_price,
		total_funding_collected, last_funding_at, opened_at, is_open, exit_price, realized_pnl, closed_at, fees_paid
		FROM paper_positions WHERE portfolio_id = $1 AND is_open = true`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, apperr.Store("query open positions", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, apperr.Store("scan position row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListClosedByPortfolio returns the most recently closed positions first,
// capped at limit.
func (r *PositionRepository) ListClosedByPortfolio(portfolioID int64, limit int) ([]models.Position, error) {
	query := `SELECT id, portfolio_id, asset, side, size_usd, entry_rate_8h, entry_spread, entry_price,
		total_funding_collected, last_funding_at, opened_at, is_open, exit_price, realized_pnl, closed_at, fees_paid
		FROM paper_positions WHERE portfolio_id = $1 AND is_open = false ORDER BY closed_at DESC LIMIT $2`

	rows, err := r.db.Query(query, portfolioID, limit)
	if err != nil {
		return nil, apperr.Store("query closed positions", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, apperr.Store("scan position row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PositionRepository) Create(p *models.Position) error {
	query := `INSERT INTO paper_positions
		(portfolio_id, asset, side, size_usd, entry_rate_8h, entry_spread, entry_price,
		 total_funding_collected, last_funding_at, opened_at, is_open, fees_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, $11)
		RETURNING id`

	return r.db.QueryRow(query,
		p.PortfolioID, p.Asset, string(p.Side), p.SizeUsd, p.EntryRate8h, p.EntrySpread, p.EntryPrice,
		p.TotalFundingCollected, p.LastFundingAt, p.OpenedAt, p.FeesPaid,
	).Scan(&p.ID)
}

// UpdateFunding persists an accrual step from Phase 1: new cumulative
// funding total and the advanced lastFundingAt watermark.
func (r *PositionRepository) UpdateFunding(id int64, totalFundingCollected float64, lastFundingAt time.Time) error {
	result, err := r.db.Exec(`UPDATE paper_positions SET total_funding_collected = $1, last_funding_at = $2 WHERE id = $3`,
		totalFundingCollected, lastFundingAt, id)
	if err != nil {
		return apperr.Store("update position funding", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// Close marks a position closed with its exit accounting.
func (r *PositionRepository) Close(id int64, exitPrice, realizedPnl float64, closedAt time.Time) error {
	result, err := r.db.Exec(`UPDATE paper_positions
		SET is_open = false, exit_price = $1, realized_pnl = $2, closed_at = $3
		WHERE id = $4 AND is_open = true`,
		exitPrice, realizedPnl, closedAt, id)
	if err != nil {
		return apperr.Store("close position", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func scanPosition(s scanner) (models.Position, error) {
	var p models.Position
	var side string
	if err := s.Scan(&p.ID, &p.PortfolioID, &p.Asset, &side, &p.SizeUsd, &p.EntryRate8h, &p.EntrySpread, &p.EntryPrice,
		&p.TotalFundingCollected, &p.LastFundingAt, &p.OpenedAt, &p.IsOpen, &p.ExitPrice, &p.RealizedPnl, &p.ClosedAt, &p.FeesPaid); err != nil {
		return models.Position{}, err
	}
	p.Side = models.Side(side)
	return p, nil
}
