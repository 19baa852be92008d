package venue

import (
	"context"
	"strings"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const binancePremiumIndexURL = "https://fapi.binance.com/fapi/v1/premiumIndex"

type binancePremiumIndexEntry struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

// BinanceAdapter fetches per-8h funding rates in one bulk call.
type BinanceAdapter struct {
	client *Client
}

func NewBinanceAdapter() *BinanceAdapter {
	return &BinanceAdapter{client: NewClient(10, 5)}
}

func (b *BinanceAdapter) Name() models.Venue { return models.VenueBinance }

func (b *BinanceAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueBinance)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var entries []binancePremiumIndexEntry
	if err := b.client.GetJSON(ctx, binancePremiumIndexURL, &entries); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueBinance)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Symbol, "USDT") {
			continue
		}
		asset := stripSuffixes(e.Symbol, "USDT")
		rateRaw := parseFloatOr(e.LastFundingRate, 0)
		mark := parseFloatOr(e.MarkPrice, 0)

		fr := models.FundingRate{
			Asset:           asset,
			Venue:           models.VenueBinance,
			RateRaw:         rateRaw,
			Rate8h:          models.Normalize8h(rateRaw, models.ConventionPer8Hour, 8),
			NextFundingTime: e.NextFundingTime,
			ObservedAt:      now,
		}
		if mark > 0 {
			fr.MarkPrice = &mark
		}
		out = append(out, fr)
	}
	return out, nil
}
