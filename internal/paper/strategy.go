package paper

import (
	"math"
	"sort"

	"hldesk/internal/models"
)

// candidate is one asset eligible for entry, ranked within its strategy.
type candidate struct {
	spread models.FundingSpread
	side   models.Side
	rank   float64 // higher ranks first
}

// candidatesFor implements the per-strategy candidate filter, side, and
// rank table.
func candidatesFor(strategyName string, spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	switch strategyName {
	case models.StrategyNegativeFade:
		return negativeFadeCandidates(spreads, cfg)
	case models.StrategyConservative:
		return conservativeCandidates(spreads, cfg)
	case models.StrategyDiversified:
		return diversifiedCandidates(spreads, cfg)
	case models.StrategyRegimeAdaptive:
		return regimeAdaptiveCandidates(spreads, cfg)
	case models.StrategyAggressive:
		return aggressiveCandidates(spreads, cfg)
	default:
		return nil
	}
}

func negativeFadeCandidates(spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	var out []candidate
	for _, s := range spreads {
		if s.Primary == nil || s.Primary.Rate8h >= cfg.EnterRateThreshold {
			continue
		}
		out = append(out, candidate{spread: s, side: models.SideLongPerp, rank: -s.Primary.Rate8h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank > out[j].rank }) // ascending rate8h == descending -rate8h
	return out
}

func conservativeCandidates(spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	allowed := toSet(cfg.AllowedAssets)
	var out []candidate
	for _, s := range spreads {
		if s.Primary == nil || !allowed[s.Asset] {
			continue
		}
		if s.MaxSpread <= cfg.EnterSpreadThreshold || s.Primary.Rate8h <= 0 {
			continue
		}
		out = append(out, candidate{spread: s, side: models.SideShortPerp, rank: s.MaxSpread})
	}
	sortByRankDesc(out)
	return out
}

func diversifiedCandidates(spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	topN := topNByOpenInterest(spreads, cfg.TopN)
	inTopN := toSpreadSet(topN)
	var out []candidate
	for _, s := range spreads {
		if s.Primary == nil || !inTopN[s.Asset] {
			continue
		}
		if s.MaxSpread <= cfg.EnterSpreadThreshold || s.Primary.Rate8h <= 0 {
			continue
		}
		out = append(out, candidate{spread: s, side: models.SideShortPerp, rank: s.MaxSpread})
	}
	sortByRankDesc(out)
	return out
}

func regimeAdaptiveCandidates(spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	var shorts, longs []candidate
	for _, s := range spreads {
		if s.Primary == nil {
			continue
		}
		switch {
		case s.Primary.Rate8h > cfg.PositiveThreshold:
			shorts = append(shorts, candidate{spread: s, side: models.SideShortPerp, rank: math.Abs(s.Primary.Rate8h)})
		case s.Primary.Rate8h < -cfg.NegativeThreshold:
			longs = append(longs, candidate{spread: s, side: models.SideLongPerp, rank: math.Abs(s.Primary.Rate8h)})
		}
	}
	sortByRankDesc(shorts)
	sortByRankDesc(longs)

	bestShort, bestLong := 0.0, 0.0
	if len(shorts) > 0 {
		bestShort = shorts[0].rank
	}
	if len(longs) > 0 {
		bestLong = longs[0].rank
	}
	if bestShort >= bestLong {
		return shorts
	}
	return longs
}

func aggressiveCandidates(spreads []models.FundingSpread, cfg StrategyConfig) []candidate {
	var out []candidate
	for _, s := range spreads {
		if s.Primary == nil {
			continue
		}
		if s.MaxSpread <= cfg.EnterSpreadThreshold || s.Primary.Rate8h <= 0 {
			continue
		}
		out = append(out, candidate{spread: s, side: models.SideShortPerp, rank: s.MaxSpread})
	}
	sortByRankDesc(out)
	return out
}

// shouldStrategyExit implements the per-strategy exit table (stop-loss is
// evaluated separately, before this, in evaluateExit in engine.go).
func shouldStrategyExit(strategyName string, primary *models.FundingRate, maxSpread float64, side models.Side, cfg StrategyConfig) bool {
	switch strategyName {
	case models.StrategyNegativeFade:
		return primary != nil && primary.Rate8h > cfg.ExitRateThreshold
	case models.StrategyRegimeAdaptive:
		if primary == nil {
			return false
		}
		if side == models.SideLongPerp {
			return primary.Rate8h > cfg.ExitRateThreshold
		}
		return primary.Rate8h < -cfg.ExitRateThreshold
	default: // aggressive, conservative, diversified
		return maxSpread < cfg.ExitSpreadThreshold
	}
}

func topNByOpenInterest(spreads []models.FundingSpread, n int) []models.FundingSpread {
	ranked := make([]models.FundingSpread, 0, len(spreads))
	for _, s := range spreads {
		if s.Primary != nil {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return openInterestOf(ranked[i]) > openInterestOf(ranked[j])
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

func openInterestOf(s models.FundingSpread) float64 {
	if s.Primary == nil || s.Primary.OpenInterest == nil {
		return 0
	}
	return *s.Primary.OpenInterest
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

func toSpreadSet(spreads []models.FundingSpread) map[string]bool {
	out := make(map[string]bool, len(spreads))
	for _, s := range spreads {
		out[s.Asset] = true
	}
	return out
}

func sortByRankDesc(c []candidate) {
	sort.Slice(c, func(i, j int) bool { return c[i].rank > c[j].rank })
}
