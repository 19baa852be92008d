package models

// FundingRate is one venue's observation of one asset's funding rate at a
// point in time, normalized onto an 8-hour equivalent.
type FundingRate struct {
	Asset           string  `json:"asset" db:"asset"`
	Venue           Venue   `json:"venue" db:"venue"`
	Rate8h          float64 `json:"rate8h" db:"rate_8h"`
	RateRaw         float64 `json:"rateRaw" db:"rate_raw"`
	NextFundingTime int64   `json:"nextFundingTime" db:"next_funding_time"`
	OpenInterest    *float64 `json:"openInterest,omitempty" db:"open_interest"`
	MarkPrice       *float64 `json:"markPrice,omitempty" db:"mark_price"`
	Change24h       *float64 `json:"change24h,omitempty" db:"change_24h"`
	Volume24h       *float64 `json:"volume24h,omitempty" db:"volume_24h"`
	ObservedAt      int64   `json:"observedAt" db:"observed_at"`
}

// Normalize8h converts a native rate into its 8-hour equivalent per the
// venue's funding convention.
func Normalize8h(rateRaw float64, convention RateConvention, intervalHours float64) float64 {
	switch convention {
	case ConventionPerHour:
		return rateRaw * 8
	case ConventionPerInterval:
		if intervalHours <= 0 {
			return rateRaw
		}
		return rateRaw * (8 / intervalHours)
	default: // ConventionPer8Hour
		return rateRaw
	}
}

// FundingSpread is the cross-venue view of one asset, keyed against the
// primary venue's rate.
type FundingSpread struct {
	Asset      string                `json:"asset"`
	Primary    *FundingRate          `json:"primary"`
	CexRates   map[Venue]FundingRate `json:"cexRates"`
	BestCex    Venue                 `json:"bestCex"`
	BestCexVal float64               `json:"bestCexRate"`
	MaxSpread  float64               `json:"maxSpread"`
}

// AggregatedResult is the Aggregator's output for one poll cycle.
type AggregatedResult struct {
	Spreads   []FundingSpread `json:"spreads"`
	AllRates  []FundingRate   `json:"allRates"`
	Timestamp int64           `json:"timestamp"`
}
