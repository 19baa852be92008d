package venue

import (
	"context"
	"strings"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const gateioContractsURL = "https://api.gateio.ws/api/v4/futures/usdt/contracts"

type gateioContract struct {
	Name                 string  `json:"name"`
	FundingRate          string  `json:"funding_rate"`
	FundingNextApply     int64   `json:"funding_next_apply"`
	MarkPrice            string  `json:"mark_price"`
	TradeSize            float64 `json:"trade_size"`
	LastPrice            string  `json:"last_price"`
}

// GateIOAdapter fetches the full USDT-margined futures contract list in one
// bulk call; each contract entry already carries its current funding rate.
type GateIOAdapter struct {
	client *Client
}

func NewGateIOAdapter() *GateIOAdapter {
	return &GateIOAdapter{client: NewClient(10, 5)}
}

func (g *GateIOAdapter) Name() models.Venue { return models.VenueGateIO }

func (g *GateIOAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueGateIO)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var contracts []gateioContract
	if err := g.client.GetJSON(ctx, gateioContractsURL, &contracts); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueGateIO)).Inc()
		return nil, err
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(contracts))
	for _, c := range contracts {
		if !strings.HasSuffix(c.Name, "_USDT") {
			continue
		}
		asset := stripSuffixes(c.Name, "_USDT")
		rateRaw := parseFloatOr(c.FundingRate, 0)
		mark := parseFloatOr(c.MarkPrice, 0)

		fr := models.FundingRate{
			Asset:           asset,
			Venue:           models.VenueGateIO,
			RateRaw:         rateRaw,
			Rate8h:          models.Normalize8h(rateRaw, models.ConventionPer8Hour, 8),
			NextFundingTime: c.FundingNextApply * 1000,
			ObservedAt:      now,
		}
		if mark > 0 {
			fr.MarkPrice = &mark
		}
		out = append(out, fr)
	}
	return out, nil
}
