package costs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFixedFee(t *testing.T) {
	fee := NewFixedFee(0.001)
	got := fee.Fee(decimal.NewFromInt(100), decimal.NewFromInt(5), true)
	assert.True(t, got.Equal(decimal.RequireFromString("0.5")), "got %s", got)

	// Entry and exit are charged the same flat rate.
	exit := fee.Fee(decimal.NewFromInt(100), decimal.NewFromInt(5), false)
	assert.True(t, got.Equal(exit))

	zero := NewFixedFee(0)
	assert.True(t, zero.Fee(decimal.NewFromInt(100), decimal.NewFromInt(5), true).IsZero())
}

func TestFixedSlippage(t *testing.T) {
	slip := NewFixedSlippage(0.01)
	price := decimal.NewFromInt(100)

	buy := slip.Apply(price, true)
	sell := slip.Apply(price, false)

	assert.True(t, buy.Equal(decimal.NewFromInt(101)), "buys pay up, got %s", buy)
	assert.True(t, sell.Equal(decimal.NewFromInt(99)), "sells receive less, got %s", sell)
}

func TestDefaults(t *testing.T) {
	assert.True(t, DefaultFee().Rate.Equal(decimal.NewFromFloat(0.001)))
	assert.True(t, DefaultSlippage().Rate.Equal(decimal.NewFromFloat(0.0005)))
}
