package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

// TransactionRepository is the append-only paper_transactions audit log.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Insert(tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	query := `INSERT INTO paper_transactions (id, portfolio_id, position_id, type, asset, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query, tx.ID, tx.PortfolioID, tx.PositionID, string(tx.Type), tx.Asset, tx.Amount, tx.Description, tx.CreatedAt)
	if err != nil {
		return apperr.Store("insert paper_transactions row", err)
	}
	return nil
}

// ListByPortfolio returns the most recent transactions first, capped at
// limit.
func (r *TransactionRepository) ListByPortfolio(portfolioID int64, limit int) ([]models.Transaction, error) {
	query := `SELECT id, portfolio_id, position_id, type, asset, amount, description, created_at
		FROM paper_transactions WHERE portfolio_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(query, portfolioID, limit)
	if err != nil {
		return nil, apperr.Store("query paper_transactions", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.PortfolioID, &tx.PositionID, &txType, &tx.Asset, &tx.Amount, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, apperr.Store("scan paper_transactions row", err)
		}
		tx.Type = models.TransactionType(txType)
		out = append(out, tx)
	}
	return out, rows.Err()
}
