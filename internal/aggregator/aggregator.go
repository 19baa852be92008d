// Package aggregator reconciles heterogeneous venue rate conventions into
// the common 8-hour cross-venue spread model, in the style of
// internal/bot/spread.go (fee-aware spread calculator, concurrent fan-out
// over exchanges) adapted from order-book depth to funding rates.
package aggregator

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/venue"
)

// Aggregator fans out to the primary venue and the configured CEX venues
// concurrently, waits for all to settle, and reconciles the result into an
// AggregatedResult.
type Aggregator struct {
	primary venue.Adapter
	cex     []venue.Adapter
	timeout time.Duration
	health  *venue.HealthTracker
}

func New(primary venue.Adapter, cex []venue.Adapter, perVenueTimeout time.Duration) *Aggregator {
	return &Aggregator{primary: primary, cex: cex, timeout: perVenueTimeout, health: venue.NewHealthTracker()}
}

// Health exposes the per-venue failure tracker for the health endpoint.
func (a *Aggregator) Health() *venue.HealthTracker {
	return a.health
}

type venueResult struct {
	venueName models.Venue
	rates     []models.FundingRate
	err       error
}

// Aggregate calls every adapter concurrently and waits for all to settle;
// no adapter short-circuits another. A failed primary adapter yields an
// empty result rather than an error, since polling must continue
// regardless of one bad cycle.
func (a *Aggregator) Aggregate(ctx context.Context) models.AggregatedResult {
	now := time.Now().UnixMilli()

	adapters := make([]venue.Adapter, 0, 1+len(a.cex))
	adapters = append(adapters, a.primary)
	adapters = append(adapters, a.cex...)

	results := make([]venueResult, len(adapters))
	var wg sync.WaitGroup
	for i, ad := range adapters {
		wg.Add(1)
		go func(idx int, adapter venue.Adapter) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			rates, err := adapter.Fetch(fetchCtx)
			a.health.Record(adapter.Name(), err)
			results[idx] = venueResult{venueName: adapter.Name(), rates: rates, err: err}
		}(i, ad)
	}
	wg.Wait()

	primaryResult := results[0]
	if primaryResult.err != nil {
		return models.AggregatedResult{
			Spreads:   []models.FundingSpread{},
			AllRates:  []models.FundingRate{},
			Timestamp: now,
		}
	}

	cexByVenue := make(map[models.Venue]map[string]models.FundingRate)
	allRates := make([]models.FundingRate, 0, len(primaryResult.rates))
	allRates = append(allRates, primaryResult.rates...)

	for _, r := range results[1:] {
		if r.err != nil {
			continue
		}
		byAsset := make(map[string]models.FundingRate, len(r.rates))
		for _, fr := range r.rates {
			byAsset[fr.Asset] = fr
		}
		cexByVenue[r.venueName] = byAsset
		allRates = append(allRates, r.rates...)
	}

	spreads := make([]models.FundingSpread, 0, len(primaryResult.rates))
	for i := range primaryResult.rates {
		p := primaryResult.rates[i]
		spread := models.FundingSpread{
			Asset:    p.Asset,
			Primary:  &p,
			CexRates: map[models.Venue]models.FundingRate{},
			BestCex:  models.VenueNone,
		}

		var bestAbs float64
		found := false
		for venueName, byAsset := range cexByVenue {
			cexRate, ok := byAsset[p.Asset]
			if !ok {
				continue
			}
			spread.CexRates[venueName] = cexRate
			absRate := math.Abs(cexRate.Rate8h)
			if !found || absRate > bestAbs {
				found = true
				bestAbs = absRate
				spread.BestCex = venueName
				spread.BestCexVal = cexRate.Rate8h
			}
		}

		if found {
			spread.MaxSpread = p.Rate8h - spread.BestCexVal
		} else {
			spread.MaxSpread = 0
			spread.BestCex = models.VenueNone
		}
		spreads = append(spreads, spread)
	}

	sort.Slice(spreads, func(i, j int) bool {
		return math.Abs(spreads[i].MaxSpread) > math.Abs(spreads[j].MaxSpread)
	})

	return models.AggregatedResult{
		Spreads:   spreads,
		AllRates:  allRates,
		Timestamp: now,
	}
}
