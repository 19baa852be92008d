package models

import "time"

// OwnerKind distinguishes a paper portfolio from an AI trading agent as the
// subject of an equity snapshot.
type OwnerKind string

const (
	OwnerPortfolio OwnerKind = "portfolio"
	OwnerAgent     OwnerKind = "agent"
)

// EquitySnapshot is one hourly mark-to-market sample used by analytics.
type EquitySnapshot struct {
	ID                int64     `json:"id" db:"id"`
	OwnerID           string    `json:"ownerId" db:"owner_id"`
	OwnerKind         OwnerKind `json:"ownerKind" db:"owner_kind"`
	SnapshotAt        time.Time `json:"snapshotAt" db:"snapshot_at"`
	TotalValue        float64   `json:"totalValue" db:"total_value"`
	CashBalance       float64   `json:"cashBalance" db:"cash_balance"`
	UnrealizedPnl     float64   `json:"unrealizedPnl" db:"unrealized_pnl"`
	FundingCollected  float64   `json:"fundingCollected" db:"funding_collected"`
	OpenPositions     int       `json:"openPositions" db:"open_positions"`
}
