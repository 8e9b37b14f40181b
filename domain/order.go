package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// OrderType is the execution style requested from the venue.
type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

// OrderStatus is the venue-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderFilled          OrderStatus = "FILLED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Order is an exchange-facing execution request and its observed result.
// Only the execution engine creates orders; the backtest engine synthesizes
// fills directly into positions.
type Order struct {
	ID               string          `json:"id,omitempty"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	Quantity         decimal.Decimal `json:"quantity"`
	Type             OrderType       `json:"type"`
	Price            decimal.Decimal `json:"price,omitempty"`
	StopPrice        decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce      string          `json:"time_in_force"` // GTC, IOC, FOK
	Status           OrderStatus     `json:"status"`
	FilledQuantity   decimal.Decimal `json:"filled_quantity"`
	AverageFillPrice decimal.Decimal `json:"average_fill_price,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// IsFinal reports whether the order can no longer change state.
func (o *Order) IsFinal() bool {
	switch o.Status {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	}
	return false
}

// Balance is an account balance for one currency.
type Balance struct {
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
	Total     decimal.Decimal `json:"total"`
}
