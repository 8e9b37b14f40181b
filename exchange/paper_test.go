package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
)

func fixedSource(price float64) PriceSource {
	return PriceSourceFunc(func(ctx context.Context, symbol string) (domain.MarketData, error) {
		p := decimal.NewFromFloat(price)
		return domain.MarketData{
			Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Open:      p, High: p, Low: p, Close: p,
			Volume: decimal.NewFromInt(1000),
		}, nil
	})
}

func marketOrder(side domain.OrderSide, qty float64) *domain.Order {
	return &domain.Order{
		Symbol:   "BTCUSDT",
		Side:     side,
		Type:     domain.OrderMarket,
		Quantity: decimal.NewFromFloat(qty),
	}
}

func TestPaperVenueRoundTrip(t *testing.T) {
	// Zero costs so the PnL math is exact.
	v := NewPaperVenue(decimal.NewFromInt(10000), fixedSource(100),
		costs.NewFixedFee(0), costs.NewFixedSlippage(0), nil)
	ctx := context.Background()

	filled, err := v.PlaceOrder(ctx, marketOrder(domain.OrderBuy, 10))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, filled.Status)
	assert.True(t, filled.AverageFillPrice.Equal(decimal.NewFromInt(100)))

	pos, err := v.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.IsLong())
	assert.True(t, pos.Size.Equal(decimal.NewFromInt(10)))

	// Price moves up, close at 110 for +100.
	v.source = fixedSource(110)
	_, err = v.PlaceOrder(ctx, marketOrder(domain.OrderSell, 10))
	require.NoError(t, err)

	pos, err = v.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, pos)

	bal, err := v.GetBalance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(decimal.NewFromInt(10100)), "got %s", bal.Total)
}

func TestPaperVenueSlippageAndFees(t *testing.T) {
	v := NewPaperVenue(decimal.NewFromInt(10000), fixedSource(100),
		costs.NewFixedFee(0.001), costs.NewFixedSlippage(0.01), nil)

	filled, err := v.PlaceOrder(context.Background(), marketOrder(domain.OrderBuy, 1))
	require.NoError(t, err)

	// Buys pay up: 100 * 1.01 = 101, fee = 101 * 0.001.
	assert.True(t, filled.AverageFillPrice.Equal(decimal.NewFromInt(101)))
	bal, err := v.GetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, bal.Available.Equal(decimal.NewFromFloat(10000-0.101)), "got %s", bal.Available)
}

func TestPaperVenueRejectsNonMarket(t *testing.T) {
	v := NewPaperVenue(decimal.NewFromInt(10000), fixedSource(100), nil, nil, nil)

	order := marketOrder(domain.OrderBuy, 1)
	order.Type = domain.OrderLimit
	rejected, err := v.PlaceOrder(context.Background(), order)

	require.Error(t, err)
	assert.Equal(t, domain.OrderRejected, rejected.Status)
	var verr *domain.VenueError
	assert.True(t, errors.As(err, &verr))
}

func TestPaperVenueRejectsSameSideAdd(t *testing.T) {
	v := NewPaperVenue(decimal.NewFromInt(10000), fixedSource(100), nil, nil, nil)
	ctx := context.Background()

	_, err := v.PlaceOrder(ctx, marketOrder(domain.OrderBuy, 1))
	require.NoError(t, err)

	_, err = v.PlaceOrder(ctx, marketOrder(domain.OrderBuy, 1))
	assert.Error(t, err)
}

func TestPaperVenueShortRoundTrip(t *testing.T) {
	v := NewPaperVenue(decimal.NewFromInt(10000), fixedSource(100),
		costs.NewFixedFee(0), costs.NewFixedSlippage(0), nil)
	ctx := context.Background()

	_, err := v.PlaceOrder(ctx, marketOrder(domain.OrderSell, 5))
	require.NoError(t, err)

	pos, err := v.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.False(t, pos.IsLong())

	// Price drops, short profits: (100-90)*5 = 50.
	v.source = fixedSource(90)
	_, err = v.PlaceOrder(ctx, marketOrder(domain.OrderBuy, 5))
	require.NoError(t, err)

	bal, err := v.GetBalance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Total.Equal(decimal.NewFromInt(10050)), "got %s", bal.Total)
}

func TestRoundSize(t *testing.T) {
	s := RoundSize(decimal.RequireFromString("0.123456789123"))
	assert.Equal(t, "0.12345679", s.String())
}
