// Package paper implements the rule-based paper-trading state machine
// (funding accrual, exits, entries) driven once per poll cycle for every
// active portfolio, in the style of an internal/bot/engine.go-shaped event
// loop and internal/bot/risk.go-shaped stop-loss handling, adapted from
// live order execution to simulated accounting.
package paper

import "go.uber.org/zap"

// StrategyConfig is a portfolio's tunable thresholds, loaded from the
// paper_portfolios.strategy_config JSON column with defaults from the
// matching preset in presets.yaml.
type StrategyConfig struct {
	EnterSpreadThreshold float64
	EnterRateThreshold   float64
	ExitSpreadThreshold  float64
	ExitRateThreshold    float64
	PositiveThreshold    float64
	NegativeThreshold    float64
	StopLossPct          float64
	MaxPositionSizePct   float64
	MaxPositions         int
	AllowedAssets        []string
	TopN                 int
}

// presetConfig returns the baseline StrategyConfig for a strategy: the
// global defaults with that strategy's presets.yaml overrides applied
// (e.g. negative_fade's exit_rate_threshold of -0.01 vs.
// regime_adaptive's 0.0001). Falls back to the bare global defaults if
// the strategy has no matching preset.
func presetConfig(strategyName string, presets Presets) StrategyConfig {
	base := defaultStrategyConfig()
	raw, ok := presets[strategyName]
	if !ok {
		return base
	}
	return normalizeStrategyConfig(raw, base, nil)
}

func defaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		EnterSpreadThreshold: 0.03,
		EnterRateThreshold:   -0.05,
		ExitSpreadThreshold:  0.01,
		ExitRateThreshold:    -0.01,
		PositiveThreshold:    0.0003,
		NegativeThreshold:    0.0003,
		StopLossPct:          0.10,
		MaxPositionSizePct:   0.20,
		MaxPositions:         5,
		AllowedAssets:        []string{"BTC", "ETH"},
		TopN:                 20,
	}
}

// normalizeStrategyConfig merges a portfolio's raw strategy_config map onto
// the strategy's defaults. `entry_*` keys are accepted as a deprecated
// alias for `enter_*` and logged at warn each time one is read; if both are
// present, `enter_*` wins.
func normalizeStrategyConfig(raw map[string]any, defaults StrategyConfig, logger *zap.Logger) StrategyConfig {
	cfg := defaults

	get := func(enterKey, entryKey string) (float64, bool) {
		if v, ok := raw[enterKey]; ok {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
		if v, ok := raw[entryKey]; ok {
			if f, ok := toFloat(v); ok {
				if logger != nil {
					logger.Warn("strategy config uses deprecated entry_* key", zap.String("key", entryKey))
				}
				return f, true
			}
		}
		return 0, false
	}

	if v, ok := get("enter_spread_threshold", "entry_spread_threshold"); ok {
		cfg.EnterSpreadThreshold = v
	}
	if v, ok := get("enter_rate_threshold", "entry_rate_threshold"); ok {
		cfg.EnterRateThreshold = v
	}
	if v, ok := toFloatKey(raw, "exit_spread_threshold"); ok {
		cfg.ExitSpreadThreshold = v
	}
	if v, ok := toFloatKey(raw, "exit_rate_threshold"); ok {
		cfg.ExitRateThreshold = v
	}
	if v, ok := toFloatKey(raw, "positive_threshold"); ok {
		cfg.PositiveThreshold = v
	}
	if v, ok := toFloatKey(raw, "negative_threshold"); ok {
		cfg.NegativeThreshold = v
	}
	if v, ok := toFloatKey(raw, "stop_loss_pct"); ok {
		cfg.StopLossPct = v
	}
	if v, ok := toFloatKey(raw, "max_position_size_pct"); ok {
		cfg.MaxPositionSizePct = v
	}
	if v, ok := toFloatKey(raw, "max_positions"); ok {
		cfg.MaxPositions = int(v)
	}
	if v, ok := toFloatKey(raw, "top_n"); ok {
		cfg.TopN = int(v)
	}
	if v, ok := raw["allowed_assets"]; ok {
		if list, ok := v.([]any); ok {
			assets := make([]string, 0, len(list))
			for _, a := range list {
				if s, ok := a.(string); ok {
					assets = append(assets, s)
				}
			}
			if len(assets) > 0 {
				cfg.AllowedAssets = assets
			}
		}
	}

	return cfg
}

func toFloatKey(raw map[string]any, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
