package venue

import (
	"context"
	"strings"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const bitgetTickersURL = "https://api.bitget.com/api/v2/mix/market/tickers?productType=USDT-FUTURES"

type bitgetTickersResponse struct {
	Data []struct {
		Symbol          string `json:"symbol"`
		FundingRate     string `json:"fundingRate"`
		MarkPrice       string `json:"markPrice"`
		Change24h       string `json:"change24h"`
		UsdtVolume      string `json:"usdtVolume"`
		HoldingAmount   string `json:"holdingAmount"`
	} `json:"data"`
}

// BitgetAdapter fetches all USDT-margined futures tickers in one bulk call.
// Bitget's published rate is hourly despite the endpoint's naming, so it is
// normalized with the per-hour (×8) convention.
type BitgetAdapter struct {
	client *Client
}

func NewBitgetAdapter() *BitgetAdapter {
	return &BitgetAdapter{client: NewClient(10, 5)}
}

func (b *BitgetAdapter) Name() models.Venue { return models.VenueBitget }

func (b *BitgetAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueBitget)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var resp bitgetTickersResponse
	if err := b.client.GetJSON(ctx, bitgetTickersURL, &resp); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueBitget)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(resp.Data))
	for _, t := range resp.Data {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		asset := stripSuffixes(t.Symbol, "USDT")
		rateRaw := parseFloatOr(t.FundingRate, 0)
		mark := parseFloatOr(t.MarkPrice, 0)

		fr := models.FundingRate{
			Asset:      asset,
			Venue:      models.VenueBitget,
			RateRaw:    rateRaw,
			Rate8h:     models.Normalize8h(rateRaw, models.ConventionPerHour, 1),
			ObservedAt: now,
		}
		if mark > 0 {
			fr.MarkPrice = &mark
		}
		if vol := parseFloatOr(t.UsdtVolume, -1); vol >= 0 {
			v := vol
			fr.Volume24h = &v
		}
		if hold := parseFloatOr(t.HoldingAmount, -1); hold >= 0 && mark > 0 {
			usdOI := hold * mark
			fr.OpenInterest = &usdOI
		}
		if chg := parseFloatOr(t.Change24h, -1); chg != -1 {
			c := chg * 100
			fr.Change24h = &c
		}
		out = append(out, fr)
	}
	return out, nil
}
