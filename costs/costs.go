// Package costs provides the pluggable fee and slippage models shared by the
// backtest and live execution paths. Both engines must price fills through
// the same models so a strategy tested historically behaves identically live.
package costs

import "github.com/shopspring/decimal"

// FeeModel prices the commission charged on one fill.
type FeeModel interface {
	Fee(price, size decimal.Decimal, entry bool) decimal.Decimal
}

// SlippageModel adjusts a quoted price to a realistic fill price.
type SlippageModel interface {
	// Apply returns the effective fill price: buys pay more, sells receive
	// less.
	Apply(price decimal.Decimal, buy bool) decimal.Decimal
}

// FixedFee charges a flat percentage of traded notional.
type FixedFee struct {
	Rate decimal.Decimal // e.g. 0.001 = 0.1%
}

// NewFixedFee builds a FixedFee from a float rate.
func NewFixedFee(rate float64) FixedFee {
	return FixedFee{Rate: decimal.NewFromFloat(rate)}
}

func (f FixedFee) Fee(price, size decimal.Decimal, entry bool) decimal.Decimal {
	return price.Mul(size).Mul(f.Rate)
}

// FixedSlippage shifts the price by a flat percentage against the taker.
type FixedSlippage struct {
	Rate decimal.Decimal // e.g. 0.0005 = 0.05%
}

// NewFixedSlippage builds a FixedSlippage from a float rate.
func NewFixedSlippage(rate float64) FixedSlippage {
	return FixedSlippage{Rate: decimal.NewFromFloat(rate)}
}

func (s FixedSlippage) Apply(price decimal.Decimal, buy bool) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if buy {
		return price.Mul(one.Add(s.Rate))
	}
	return price.Mul(one.Sub(s.Rate))
}

// Defaults used when a config omits the cost section: 0.1% commission and
// 0.05% slippage.
func DefaultFee() FixedFee           { return NewFixedFee(0.001) }
func DefaultSlippage() FixedSlippage { return NewFixedSlippage(0.0005) }
