// Package analytics computes Sharpe ratio and max drawdown over equity
// snapshot series, using the internal/risk/volatility.go
// sample-variance and annualization pattern (math.Sqrt over a sample
// variance accumulator; no third-party stats library appears anywhere in
// the example pack, so this stays on the standard library).
package analytics

import "math"

const hoursPerYear = 8760

// ComputeSharpeAndDrawdown returns the annualized Sharpe ratio and max
// drawdown for a chronological series of total-value snapshots. Both are
// nil when there are fewer than 2 valid hourly returns; Sharpe is also nil
// when the sample standard deviation of returns is zero.
func ComputeSharpeAndDrawdown(values []float64) (sharpe, maxDrawdown *float64) {
	if len(values) < 2 {
		return nil, nil
	}

	returns := hourlyReturns(values)
	if len(returns) < 2 {
		return nil, nil
	}

	sharpe = computeSharpe(returns)
	dd := computeMaxDrawdown(values)
	maxDrawdown = &dd
	return sharpe, maxDrawdown
}

func hourlyReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}
	return returns
}

func computeSharpe(returns []float64) *float64 {
	mean := meanOf(returns)

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1) // sample variance
	std := math.Sqrt(variance)

	if std == 0 {
		return nil
	}

	sharpe := (mean / std) * math.Sqrt(hoursPerYear)
	return &sharpe
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeMaxDrawdown tracks the running peak and returns the largest
// peak-to-trough decline as a negated fraction, rounded to 5 decimals.
func computeMaxDrawdown(values []float64) float64 {
	peak := values[0]
	maxDD := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}

	return roundTo5(-maxDD)
}

func roundTo5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
