package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestMarketDataValidate(t *testing.T) {
	good := MarketData{Open: dec(100), High: dec(105), Low: dec(99), Close: dec(104)}
	assert.NoError(t, good.Validate())
	assert.True(t, good.Price().Equal(good.Close))

	badLow := MarketData{Open: dec(100), High: dec(105), Low: dec(101), Close: dec(104)}
	assert.Error(t, badLow.Validate())

	badHigh := MarketData{Open: dec(100), High: dec(99), Low: dec(98), Close: dec(98.5)}
	assert.Error(t, badHigh.Validate())
}

func TestSignalTypeIsEntry(t *testing.T) {
	assert.True(t, SignalBuy.IsEntry())
	assert.True(t, SignalSell.IsEntry())
	assert.False(t, SignalHold.IsEntry())
	assert.False(t, SignalClose.IsEntry())
}

func TestPositionLifecycle(t *testing.T) {
	pos := &Position{
		Side:       SignalBuy,
		EntryPrice: dec(100),
		Size:       dec(2),
		EntryTime:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.True(t, pos.IsOpen())
	require.True(t, pos.IsLong())

	_, ok := pos.PnL()
	assert.False(t, ok, "PnL undefined while open")
	assert.True(t, pos.UnrealizedPnL(dec(110)).Equal(dec(20)))

	exit := pos.EntryTime.Add(3 * time.Hour)
	pos.Close(exit, dec(110))
	require.False(t, pos.IsOpen())

	pnl, ok := pos.PnL()
	require.True(t, ok)
	assert.True(t, pnl.Equal(dec(20)))

	pct, ok := pos.PnLPct()
	require.True(t, ok)
	assert.InDelta(t, 10.0, pct, 1e-9)

	d, ok := pos.Duration()
	require.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)

	// Closing again is ignored.
	pos.Close(exit.Add(time.Hour), dec(50))
	assert.True(t, pos.ExitPrice.Equal(dec(110)))
	assert.True(t, pos.UnrealizedPnL(dec(120)).IsZero(), "no unrealized PnL once closed")
}

func TestPositionShortSign(t *testing.T) {
	pos := &Position{Side: SignalSell, EntryPrice: dec(100), Size: dec(1)}
	assert.False(t, pos.IsLong())
	assert.True(t, pos.UnrealizedPnL(dec(90)).Equal(dec(10)), "shorts profit from declines")

	pos.Close(time.Now(), dec(110))
	pnl, _ := pos.PnL()
	assert.True(t, pnl.Equal(dec(-10)))
}

func TestPositionNotional(t *testing.T) {
	pos := &Position{Side: SignalBuy, EntryPrice: dec(100), Size: dec(3)}
	assert.True(t, pos.Notional().Equal(dec(300)), "entry price fallback")

	pos.CurrentPrice = dec(110)
	assert.True(t, pos.Notional().Equal(dec(330)))
}

func TestErrorWrappers(t *testing.T) {
	cause := errors.New("connection refused")
	verr := &VenueError{Op: "PlaceOrder", Err: cause}
	assert.ErrorIs(t, verr, cause)
	assert.Contains(t, verr.Error(), "PlaceOrder")

	serr := &StrategyError{Strategy: "momentum", Err: cause}
	assert.ErrorIs(t, serr, cause)
	assert.Contains(t, serr.Error(), "momentum")
}

func TestOrderIsFinal(t *testing.T) {
	for status, final := range map[OrderStatus]bool{
		OrderPending:         false,
		OrderPartiallyFilled: false,
		OrderFilled:          true,
		OrderCancelled:       true,
		OrderRejected:        true,
	} {
		o := &Order{Status: status}
		assert.Equal(t, final, o.IsFinal(), "status %s", status)
	}
}
