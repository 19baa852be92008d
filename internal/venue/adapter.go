// Package venue fetches and normalizes perpetual-futures funding data from
// the primary venue and the configured CEX set, in the style of
// internal/exchange (its Exchange interface and per-venue adapter
// files), narrowed to the one operation this system needs: Fetch.
package venue

import (
	"context"

	"hldesk/internal/models"
)

// Adapter fetches and normalizes funding data from one venue into canonical
// rate records. A transport error is returned wrapped with apperr.KindTransport
// if the venue's endpoint returns non-success or an unparseable payload.
type Adapter interface {
	Name() models.Venue
	Fetch(ctx context.Context) ([]models.FundingRate, error)
}

// stripSuffixes normalizes a venue's native symbol to the canonical asset
// ticker by removing known margin/contract suffixes.
func stripSuffixes(symbol string, suffixes ...string) string {
	for _, s := range suffixes {
		if len(symbol) > len(s) && symbol[len(symbol)-len(s):] == s {
			return symbol[:len(symbol)-len(s)]
		}
	}
	return symbol
}
