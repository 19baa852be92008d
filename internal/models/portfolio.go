package models

import "time"

// Portfolio is one paper-trading strategy instance.
type Portfolio struct {
	ID             int64          `json:"id" db:"id"`
	StrategyName   string         `json:"strategyName" db:"strategy_name"`
	StrategyConfig map[string]any `json:"strategyConfig" db:"strategy_config"`
	CashBalance    float64        `json:"cashBalance" db:"cash_balance"`
	InitialBalance float64        `json:"initialBalance" db:"initial_balance"`
	IsActive       bool           `json:"isActive" db:"is_active"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
}

const (
	StrategyAggressive     = "aggressive"
	StrategyConservative   = "conservative"
	StrategyDiversified    = "diversified"
	StrategyNegativeFade   = "negative_fade"
	StrategyRegimeAdaptive = "regime_adaptive"
)
