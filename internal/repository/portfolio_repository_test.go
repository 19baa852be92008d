package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioRepositoryListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM paper_portfolios WHERE is_active = true`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "strategy_name", "strategy_config", "cash_balance", "initial_balance", "is_active", "created_at"}).
			AddRow(int64(1), "aggressive", []byte(`{"enter_spread_threshold":0.03}`), 9500.0, 10000.0, true, now).
			AddRow(int64(2), "conservative", []byte(`{}`), 10000.0, 10000.0, true, now))

	repo := NewPortfolioRepository(db)
	portfolios, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, portfolios, 2)
	assert.Equal(t, "aggressive", portfolios[0].StrategyName)
	assert.Equal(t, 0.03, portfolios[0].StrategyConfig["enter_spread_threshold"])
}

func TestPortfolioRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM paper_portfolios WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	repo := NewPortfolioRepository(db)
	_, err = repo.GetByID(99)
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

func TestPortfolioRepositoryUpdateCashBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE paper_portfolios SET cash_balance`).
		WithArgs(9000.0, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPortfolioRepository(db)
	require.NoError(t, repo.UpdateCashBalance(1, 9000.0))
}

func TestPortfolioRepositoryUpdateCashBalanceNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE paper_portfolios SET cash_balance`).
		WithArgs(9000.0, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPortfolioRepository(db)
	err = repo.UpdateCashBalance(1, 9000.0)
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}
