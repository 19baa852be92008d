package repository

import (
	"database/sql"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

var ErrPortfolioNotFound = errors.New("portfolio not found")

// PortfolioRepository is the paper_portfolios table.
type PortfolioRepository struct {
	db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// ListActive returns every portfolio the Paper-Trading Engine must drive
// this cycle.
func (r *PortfolioRepository) ListActive() ([]models.Portfolio, error) {
	query := `SELECT id, strategy_name, strategy_config, cash_balance, initial_balance, is_active, created_at
		FROM paper_portfolios WHERE is_active = true ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperr.Store("query active portfolios", err)
	}
	defer rows.Close()

	var out []models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, apperr.Store("scan portfolio row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAll returns every portfolio regardless of active state, for the
// leaderboard and listing endpoints.
func (r *PortfolioRepository) ListAll() ([]models.Portfolio, error) {
	query := `SELECT id, strategy_name, strategy_config, cash_balance, initial_balance, is_active, created_at
		FROM paper_portfolios ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apperr.Store("query all portfolios", err)
	}
	defer rows.Close()

	var out []models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, apperr.Store("scan portfolio row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PortfolioRepository) GetByID(id int64) (models.Portfolio, error) {
	query := `SELECT id, strategy_name, strategy_config, cash_balance, initial_balance, is_active, created_at
		FROM paper_portfolios WHERE id = $1`

	p, err := scanPortfolio(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Portfolio{}, ErrPortfolioNotFound
	}
	if err != nil {
		return models.Portfolio{}, apperr.Store("get portfolio by id", err)
	}
	return p, nil
}

func (r *PortfolioRepository) UpdateCashBalance(id int64, cashBalance float64) error {
	result, err := r.db.Exec(`UPDATE paper_portfolios SET cash_balance = $1 WHERE id = $2`, cashBalance, id)
	if err != nil {
		return apperr.Store("update portfolio cash balance", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrPortfolioNotFound
	}
	return nil
}

// scanner abstracts over *sql.Row and *sql.Rows, both of which implement
// Scan with the same signature.
type scanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(s scanner) (models.Portfolio, error) {
	var p models.Portfolio
	var configJSON []byte
	if err := s.Scan(&p.ID, &p.StrategyName, &configJSON, &p.CashBalance, &p.InitialBalance, &p.IsActive, &p.CreatedAt); err != nil {
		return models.Portfolio{}, err
	}
	if len(configJSON) > 0 {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(configJSON, &p.StrategyConfig); err != nil {
			return models.Portfolio{}, err
		}
	}
	return p, nil
}
