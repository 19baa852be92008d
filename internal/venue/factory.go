package venue

import (
	"fmt"
	"strings"
)

// SupportedCexVenues lists the venues eligible for the configurable CEX
// set; operators pick one to three of them via CEX_VENUES.
var SupportedCexVenues = []string{"binance", "bybit", "okx", "gateio", "bitget", "mexc"}

func IsSupportedCex(name string) bool {
	name = strings.ToLower(name)
	for _, v := range SupportedCexVenues {
		if v == name {
			return true
		}
	}
	return false
}

// NewCexAdapter builds the adapter for a configured CEX venue name.
func NewCexAdapter(name string) (Adapter, error) {
	switch strings.ToLower(name) {
	case "binance":
		return NewBinanceAdapter(), nil
	case "bybit":
		return NewBybitAdapter(), nil
	case "okx":
		return NewOKXAdapter(), nil
	case "gateio":
		return NewGateIOAdapter(), nil
	case "bitget":
		return NewBitgetAdapter(), nil
	case "mexc":
		return NewMEXCAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported CEX venue: %s", name)
	}
}

// BuildAdapters constructs the primary adapter plus one adapter per
// configured CEX venue name.
func BuildAdapters(cexVenues []string) (Adapter, []Adapter, error) {
	primary := NewHyperliquidAdapter()

	cex := make([]Adapter, 0, len(cexVenues))
	for _, name := range cexVenues {
		adapter, err := NewCexAdapter(name)
		if err != nil {
			return nil, nil, err
		}
		cex = append(cex, adapter)
	}
	return primary, cex, nil
}
