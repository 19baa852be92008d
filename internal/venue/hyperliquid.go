package venue

import (
	"context"
	"strconv"
	"time"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const hyperliquidInfoURL = "https://api.hyperliquid.xyz/info"

// hyperliquidMeta is the first element of the metaAndAssetCtxs response
// tuple: the universe of tradable perpetual assets, in the same order as
// the ctxs slice.
type hyperliquidMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

// hyperliquidCtx is one element of ctxs, aligned by index with Universe.
type hyperliquidCtx struct {
	Funding         string `json:"funding"`
	OpenInterest    string `json:"openInterest"`
	MarkPx          string `json:"markPx"`
	PrevDayPx       string `json:"prevDayPx"`
	DayNtlVlm       string `json:"dayNtlVlm"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

// HyperliquidAdapter is the always-on primary venue. Hyperliquid publishes
// one hourly funding rate; Normalize8h converts it to the common 8-hour
// basis.
type HyperliquidAdapter struct {
	client *Client
}

func NewHyperliquidAdapter() *HyperliquidAdapter {
	return &HyperliquidAdapter{client: NewClient(5, 2)}
}

func (h *HyperliquidAdapter) Name() models.Venue { return models.VenueHyperliquid }

func (h *HyperliquidAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueHyperliquid)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var raw [2]any
	body := map[string]string{"type": "metaAndAssetCtxs"}
	if err := h.client.PostJSON(ctx, hyperliquidInfoURL, body, &raw); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueHyperliquid)).Inc()
		return nil, err
	}

	meta, ctxs, err := decodeHyperliquidTuple(raw)
	if err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueHyperliquid)).Inc()
		return nil, apperr.Transport("decode hyperliquid metaAndAssetCtxs", err)
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(meta.Universe))
	for i, asset := range meta.Universe {
		if i >= len(ctxs) {
			break
		}
		c := ctxs[i]
		fundingRaw := parseFloatOr(c.Funding, 0)

		rate := models.FundingRate{
			Asset:           asset.Name,
			Venue:           models.VenueHyperliquid,
			RateRaw:         fundingRaw,
			Rate8h:          models.Normalize8h(fundingRaw, models.ConventionPerHour, 1),
			NextFundingTime: c.NextFundingTime,
			ObservedAt:      now,
		}
		if v := parseFloatOr(c.OpenInterest, -1); v >= 0 {
			mark := parseFloatOr(c.MarkPx, 0)
			usdOI := v * mark
			rate.OpenInterest = &usdOI
		}
		if v := parseFloatOr(c.MarkPx, -1); v >= 0 {
			mv := v
			rate.MarkPrice = &mv
		}
		if prev := parseFloatOr(c.PrevDayPx, -1); prev > 0 && rate.MarkPrice != nil {
			change := (*rate.MarkPrice - prev) / prev * 100
			rate.Change24h = &change
		}
		if v := parseFloatOr(c.DayNtlVlm, -1); v >= 0 {
			vv := v
			rate.Volume24h = &vv
		}
		out = append(out, rate)
	}
	return out, nil
}

func decodeHyperliquidTuple(raw [2]any) (hyperliquidMeta, []hyperliquidCtx, error) {
	var meta hyperliquidMeta
	var ctxs []hyperliquidCtx
	if err := remarshal(raw[0], &meta); err != nil {
		return meta, ctxs, err
	}
	if err := remarshal(raw[1], &ctxs); err != nil {
		return meta, ctxs, err
	}
	return meta, ctxs, nil
}

func parseFloatOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
