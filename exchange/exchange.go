// Package exchange defines the venue abstraction the execution engine trades
// through, plus a paper venue that simulates fills locally. Live venue
// adapters implement the same interface; the trader cannot tell the two
// apart.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"algo-trading-engine/domain"
)

// Venue is the exchange-facing surface of the execution engine. Every call
// can block on the network, so every call takes a context. Implementations
// must be safe for concurrent use.
type Venue interface {
	// Name identifies the venue in logs and status snapshots.
	Name() string

	// GetMarketData returns the latest bar for the symbol.
	GetMarketData(ctx context.Context, symbol string) (domain.MarketData, error)

	// PlaceOrder submits the order and returns it with the venue-assigned
	// ID, fill price and final status populated.
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder cancels a resting order by ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetPosition returns the open position for the symbol, or nil when
	// flat.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// GetBalance returns the quote-currency account balance.
	GetBalance(ctx context.Context) (domain.Balance, error)

	// HealthCheck verifies the venue is reachable and authenticated.
	HealthCheck(ctx context.Context) error
}

// PriceSource supplies a paper venue with market data. Replay feeds and live
// tickers both satisfy it.
type PriceSource interface {
	GetMarketData(ctx context.Context, symbol string) (domain.MarketData, error)
}

// PriceSourceFunc adapts a function to the PriceSource interface.
type PriceSourceFunc func(ctx context.Context, symbol string) (domain.MarketData, error)

func (f PriceSourceFunc) GetMarketData(ctx context.Context, symbol string) (domain.MarketData, error) {
	return f(ctx, symbol)
}

// sizePrecision is the number of decimal places order sizes are rounded to
// before submission.
const sizePrecision = 8

// RoundSize normalizes an order size to the venue's size precision.
func RoundSize(size decimal.Decimal) decimal.Decimal {
	return size.Round(sizePrecision)
}
