package venue

import (
	"context"
	"strings"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const bybitTickersURL = "https://api.bybit.com/v5/market/tickers?category=linear"

type bybitTickersResponse struct {
	Result struct {
		List []struct {
			Symbol          string `json:"symbol"`
			MarkPrice       string `json:"markPrice"`
			FundingRate     string `json:"fundingRate"`
			NextFundingTime string `json:"nextFundingTime"`
			OpenInterest    string `json:"openInterest"`
			Volume24h       string `json:"volume24h"`
			Price24hPcnt    string `json:"price24hPcnt"`
		} `json:"list"`
	} `json:"result"`
}

// BybitAdapter fetches per-8h funding rates for all linear perpetuals in
// one bulk call.
type BybitAdapter struct {
	client *Client
}

func NewBybitAdapter() *BybitAdapter {
	return &BybitAdapter{client: NewClient(10, 5)}
}

func (b *BybitAdapter) Name() models.Venue { return models.VenueBybit }

func (b *BybitAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueBybit)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var resp bybitTickersResponse
	if err := b.client.GetJSON(ctx, bybitTickersURL, &resp); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueBybit)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(resp.Result.List))
	for _, t := range resp.Result.List {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		asset := stripSuffixes(t.Symbol, "USDT")
		rateRaw := parseFloatOr(t.FundingRate, 0)
		mark := parseFloatOr(t.MarkPrice, 0)
		nextFunding := int64(parseFloatOr(t.NextFundingTime, 0))

		fr := models.FundingRate{
			Asset:           asset,
			Venue:           models.VenueBybit,
			RateRaw:         rateRaw,
			Rate8h:          models.Normalize8h(rateRaw, models.ConventionPer8Hour, 8),
			NextFundingTime: nextFunding,
			ObservedAt:      now,
		}
		if mark > 0 {
			fr.MarkPrice = &mark
		}
		if oi := parseFloatOr(t.OpenInterest, -1); oi >= 0 && mark > 0 {
			usdOI := oi * mark
			fr.OpenInterest = &usdOI
		}
		if vol := parseFloatOr(t.Volume24h, -1); vol >= 0 {
			v := vol
			fr.Volume24h = &v
		}
		if pct := parseFloatOr(t.Price24hPcnt, -1); pct != -1 {
			c := pct * 100
			fr.Change24h = &c
		}
		out = append(out, fr)
	}
	return out, nil
}
