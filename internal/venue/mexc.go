package venue

import (
	"context"
	"strings"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const (
	mexcDetailURL      = "https://contract.mexc.com/api/v1/contract/detail"
	mexcFundingRateURL = "https://contract.mexc.com/api/v1/contract/funding_rate"
)

type mexcDetailResponse struct {
	Data []struct {
		Symbol string `json:"symbol"`
	} `json:"data"`
}

type mexcFundingRateResponse struct {
	Data []struct {
		Symbol          string  `json:"symbol"`
		FundingRate     float64 `json:"fundingRate"`
		NextSettleTime  int64   `json:"nextSettleTime"`
	} `json:"data"`
}

// MEXCAdapter combines a contract-detail call (symbol universe) with a
// bulk funding-rate call. Like Bitget, MEXC's published figure is hourly
// despite the per-8h-shaped response, so it is normalized with the
// per-hour (×8) convention.
type MEXCAdapter struct {
	client *Client
}

func NewMEXCAdapter() *MEXCAdapter {
	return &MEXCAdapter{client: NewClient(10, 5)}
}

func (m *MEXCAdapter) Name() models.Venue { return models.VenueMEXC }

func (m *MEXCAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueMEXC)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var detail mexcDetailResponse
	if err := m.client.GetJSON(ctx, mexcDetailURL, &detail); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueMEXC)).Inc()
		return nil, err
	}
	usdtSymbols := make(map[string]bool, len(detail.Data))
	for _, d := range detail.Data {
		if strings.HasSuffix(d.Symbol, "_USDT") {
			usdtSymbols[d.Symbol] = true
		}
	}

	var funding mexcFundingRateResponse
	if err := m.client.GetJSON(ctx, mexcFundingRateURL, &funding); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueMEXC)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(funding.Data))
	for _, f := range funding.Data {
		if !usdtSymbols[f.Symbol] {
			continue
		}
		out = append(out, models.FundingRate{
			Asset:           stripSuffixes(f.Symbol, "_USDT"),
			Venue:           models.VenueMEXC,
			RateRaw:         f.FundingRate,
			Rate8h:          models.Normalize8h(f.FundingRate, models.ConventionPerHour, 1),
			NextFundingTime: f.NextSettleTime,
			ObservedAt:      now,
		})
	}
	return out, nil
}
