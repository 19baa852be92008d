package models

import "time"

// Direction is the side of an AiPosition ("long"/"short", distinct from
// Position's "long_perp"/"short_perp" spelling).
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// DirectionSign mirrors Side.DirectionSign for AI positions: short collects
// positive funding, long collects negative funding.
func (d Direction) DirectionSign() float64 {
	if d == DirectionShort {
		return 1
	}
	return -1
}

// Action is the decision space an AI trader's LLM call is constrained to.
type Action string

const (
	ActionOpenLong  Action = "open_long"
	ActionOpenShort Action = "open_short"
	ActionClose     Action = "close"
	ActionHold      Action = "hold"
)

// AiTrader is one LLM-driven agent.
type AiTrader struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Model       string  `json:"model" db:"model"`
	Emoji       string  `json:"emoji" db:"emoji"`
	Persona     string  `json:"persona" db:"persona"`
	CashBalance float64 `json:"cashBalance" db:"cash_balance"`
	IsActive    bool    `json:"isActive" db:"is_active"`
}

// AiPosition mirrors Position for an agent's book.
type AiPosition struct {
	ID                int64      `json:"id" db:"id"`
	TraderID          string     `json:"traderId" db:"trader_id"`
	Asset             string     `json:"asset" db:"asset"`
	Direction         Direction  `json:"direction" db:"direction"`
	SizeUsd           float64    `json:"sizeUsd" db:"size_usd"`
	EntryPrice        float64    `json:"entryPrice" db:"entry_price"`
	FundingCollected  float64    `json:"fundingCollected" db:"funding_collected"`
	LastFundingAt     time.Time  `json:"lastFundingAt" db:"last_funding_at"`
	OpenedAt          time.Time  `json:"openedAt" db:"opened_at"`
	IsOpen            bool       `json:"isOpen" db:"is_open"`
	ExitPrice         *float64   `json:"exitPrice,omitempty" db:"exit_price"`
	RealizedPnl       *float64   `json:"realizedPnl,omitempty" db:"realized_pnl"`
	ClosedAt          *time.Time `json:"closedAt,omitempty" db:"closed_at"`
}

// AiDecision is the persisted outcome of one agent cycle.
type AiDecision struct {
	ID        string    `json:"id" db:"id"`
	TraderID  string    `json:"traderId" db:"trader_id"`
	Action    Action    `json:"action" db:"action"`
	Asset     *string   `json:"asset,omitempty" db:"asset"`
	SizeUsd   *float64  `json:"sizeUsd,omitempty" db:"size_usd"`
	Reasoning string    `json:"reasoning" db:"reasoning"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
