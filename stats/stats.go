// Package stats holds the small statistical helpers behind the backtest
// metrics and the weakness analyzer.
package stats

import (
	"math"

	"github.com/shopspring/decimal"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation, 0 for fewer than two
// points.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// StepReturns converts an equity curve into per-step fractional returns.
// Steps starting from zero equity are skipped.
func StepReturns(curve []decimal.Decimal) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1]
		if prev.IsZero() {
			continue
		}
		r, _ := curve[i].Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

// Drawdowns returns the running peak-to-trough decline of the equity curve
// in percent, one sample per curve point.
func Drawdowns(curve []decimal.Decimal) []float64 {
	if len(curve) == 0 {
		return nil
	}
	out := make([]float64, len(curve))
	peak := curve[0]
	for i, v := range curve {
		if v.GreaterThan(peak) {
			peak = v
		}
		if peak.IsZero() {
			out[i] = 0
			continue
		}
		dd, _ := peak.Sub(v).Div(peak).Mul(decimal.NewFromInt(100)).Float64()
		out[i] = dd
	}
	return out
}

// MaxDrawdown returns the largest peak-to-trough decline of the curve, as an
// absolute decimal amount and as a percentage of the peak.
func MaxDrawdown(curve []decimal.Decimal) (decimal.Decimal, float64) {
	if len(curve) == 0 {
		return decimal.Zero, 0
	}
	peak := curve[0]
	maxAbs := decimal.Zero
	maxPct := 0.0
	for _, v := range curve {
		if v.GreaterThan(peak) {
			peak = v
		}
		abs := peak.Sub(v)
		if abs.GreaterThan(maxAbs) {
			maxAbs = abs
		}
		if !peak.IsZero() {
			pct, _ := abs.Div(peak).Mul(decimal.NewFromInt(100)).Float64()
			if pct > maxPct {
				maxPct = pct
			}
		}
	}
	return maxAbs, maxPct
}
