package repository

import (
	"database/sql"
	"time"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

// SnapshotRepository writes hourly EquitySnapshot rows, routing to
// paper_snapshots or ai_snapshots by OwnerKind.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Insert(s models.EquitySnapshot) error {
	table := "paper_snapshots"
	if s.OwnerKind == models.OwnerAgent {
		table = "ai_snapshots"
	}

	query := `INSERT INTO ` + table + ` (owner_id, snapshot_at, total_value, cash_balance, unrealized_pnl, funding_collected, open_positions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, s.OwnerID, s.SnapshotAt, s.TotalValue, s.CashBalance, s.UnrealizedPnl, s.FundingCollected, s.OpenPositions)
	if err != nil {
		return apperr.Store("insert equity snapshot row", err)
	}
	return nil
}

// ListByOwner returns snapshots for one owner ordered oldest-first, the
// shape analytics.ComputeSharpeAndDrawdown expects.
func (r *SnapshotRepository) ListByOwner(ownerID string, ownerKind models.OwnerKind) ([]models.EquitySnapshot, error) {
	table := "paper_snapshots"
	if ownerKind == models.OwnerAgent {
		table = "ai_snapshots"
	}

	query := `SELECT owner_id, snapshot_at, total_value, cash_balance, unrealized_pnl, funding_collected, open_positions
		FROM ` + table + ` WHERE owner_id = $1 ORDER BY snapshot_at ASC`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, apperr.Store("query equity snapshots", err)
	}
	defer rows.Close()

	var out []models.EquitySnapshot
	for rows.Next() {
		var s models.EquitySnapshot
		s.OwnerKind = ownerKind
		if err := rows.Scan(&s.OwnerID, &s.SnapshotAt, &s.TotalValue, &s.CashBalance, &s.UnrealizedPnl, &s.FundingCollected, &s.OpenPositions); err != nil {
			return nil, apperr.Store("scan equity snapshot row", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByOwnerSince returns snapshots for one owner at or after since,
// ordered oldest-first, for the N-day time-series endpoints.
func (r *SnapshotRepository) ListByOwnerSince(ownerID string, ownerKind models.OwnerKind, since time.Time) ([]models.EquitySnapshot, error) {
	table := "paper_snapshots"
	if ownerKind == models.OwnerAgent {
		table = "ai_snapshots"
	}

	query := `SELECT owner_id, snapshot_at, total_value, cash_balance, unrealized_pnl, funding_collected, open_positions
		FROM ` + table + ` WHERE owner_id = $1 AND snapshot_at >= $2 ORDER BY snapshot_at ASC`

	rows, err := r.db.Query(query, ownerID, since)
	if err != nil {
		return nil, apperr.Store("query equity snapshots since", err)
	}
	defer rows.Close()

	var out []models.EquitySnapshot
	for rows.Next() {
		var s models.EquitySnapshot
		s.OwnerKind = ownerKind
		if err := rows.Scan(&s.OwnerID, &s.SnapshotAt, &s.TotalValue, &s.CashBalance, &s.UnrealizedPnl, &s.FundingCollected, &s.OpenPositions); err != nil {
			return nil, apperr.Store("scan equity snapshot row", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
