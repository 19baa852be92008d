package models

// Venue identifies a funding-rate source. Hyperliquid is always the
// primary venue; the CEX set is whichever three of the rest an operator
// configures via CEX_VENUES.
type Venue string

const (
	VenueHyperliquid Venue = "hyperliquid"
	VenueBinance     Venue = "binance"
	VenueBybit       Venue = "bybit"
	VenueOKX         Venue = "okx"
	VenueGateIO      Venue = "gateio"
	VenueBitget      Venue = "bitget"
	VenueMEXC        Venue = "mexc"
	VenueNone        Venue = "none"
)

// RateConvention describes how a venue's native funding number relates to
// the canonical 8-hour rate.
type RateConvention string

const (
	ConventionPerHour     RateConvention = "per_hour"
	ConventionPer8Hour    RateConvention = "per_8h"
	ConventionPerInterval RateConvention = "per_interval"
)
