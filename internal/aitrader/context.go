package aitrader

import (
	"fmt"
	"sort"
	"strings"

	"hldesk/internal/models"
)

const topAssetsByOpenInterest = 20

// buildMarketContext emits one line per top-N asset (by open interest)
// with mark price, 24h change, 24h volume, open interest, primary rate,
// CEX average, and max spread.
func buildMarketContext(spreads []models.FundingSpread) string {
	ranked := make([]models.FundingSpread, 0, len(spreads))
	for _, s := range spreads {
		if s.Primary != nil {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return openInterestOf(ranked[i]) > openInterestOf(ranked[j])
	})
	if len(ranked) > topAssetsByOpenInterest {
		ranked = ranked[:topAssetsByOpenInterest]
	}

	var sb strings.Builder
	for _, s := range ranked {
		p := s.Primary
		mark := 0.0
		if p.MarkPrice != nil {
			mark = *p.MarkPrice
		}
		change := 0.0
		if p.Change24h != nil {
			change = *p.Change24h
		}
		volume := 0.0
		if p.Volume24h != nil {
			volume = *p.Volume24h
		}
		oiMillions := openInterestOf(s) / 1_000_000

		cexAvg := cexAverage(s)

		sb.WriteString(fmt.Sprintf(
			"%s: mark=$%.4f change24h=%.2f%% volume24h=$%.0f oi=$%.2fM primaryRate8h=%.5f cexAvg8h=%.5f maxSpread=%.5f\n",
			s.Asset, mark, change, volume, oiMillions, p.Rate8h, cexAvg, s.MaxSpread,
		))
	}
	return sb.String()
}

func cexAverage(s models.FundingSpread) float64 {
	if len(s.CexRates) == 0 {
		return 0
	}
	var sum float64
	for _, r := range s.CexRates {
		sum += r.Rate8h
	}
	return sum / float64(len(s.CexRates))
}

func openInterestOf(s models.FundingSpread) float64 {
	if s.Primary == nil || s.Primary.OpenInterest == nil {
		return 0
	}
	return *s.Primary.OpenInterest
}

// buildPortfolioSummary reports cash, mark-to-market total value, total
// P&L against the $10,000 baseline, and each open position's entry vs.
// current price, unrealized P&L, funding collected, and current rate.
func buildPortfolioSummary(trader models.AiTrader, positions []models.AiPosition, spreadByAsset map[string]models.FundingSpread, baseline float64) string {
	totalValue := trader.CashBalance
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cash: $%.2f\n", trader.CashBalance))

	for _, p := range positions {
		currentMark := p.EntryPrice
		currentRate := 0.0
		if s, ok := spreadByAsset[p.Asset]; ok && s.Primary != nil {
			if s.Primary.MarkPrice != nil {
				currentMark = *s.Primary.MarkPrice
			}
			currentRate = s.Primary.Rate8h
		}

		unrealized := unrealizedPnl(p, currentMark)
		totalValue += p.SizeUsd + unrealized + p.FundingCollected

		sb.WriteString(fmt.Sprintf(
			"  %s %s: entry=$%.4f current=$%.4f unrealizedPnl=$%.2f fundingCollected=$%.2f currentRate8h=%.5f\n",
			p.Asset, p.Direction, p.EntryPrice, currentMark, unrealized, p.FundingCollected, currentRate,
		))
	}

	totalPnl := totalValue - baseline
	sb.WriteString(fmt.Sprintf("Total value: $%.2f (P&L vs $%.0f baseline: $%.2f)\n", totalValue, baseline, totalPnl))
	return sb.String()
}

// unrealizedPnl mirrors the engines' shared price-return formula.
func unrealizedPnl(p models.AiPosition, currentMark float64) float64 {
	sign := p.Direction.DirectionSign()
	return sign * (p.EntryPrice - currentMark) / p.EntryPrice * p.SizeUsd
}
