// Package domain holds the shared data model for the backtest, risk and
// live execution paths. Types here carry no behavior beyond derived fields
// and invariant checks; all money fields use decimal.Decimal.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SignalType classifies a strategy output.
type SignalType string

const (
	SignalBuy   SignalType = "BUY"
	SignalSell  SignalType = "SELL"
	SignalHold  SignalType = "HOLD"
	SignalClose SignalType = "CLOSE"
)

// IsEntry reports whether the signal opens a new position.
func (s SignalType) IsEntry() bool {
	return s == SignalBuy || s == SignalSell
}

// MarketData is one OHLCV bar.
type MarketData struct {
	Timestamp time.Time              `json:"timestamp"`
	Open      decimal.Decimal        `json:"open"`
	High      decimal.Decimal        `json:"high"`
	Low       decimal.Decimal        `json:"low"`
	Close     decimal.Decimal        `json:"close"`
	Volume    decimal.Decimal        `json:"volume"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Price is the current price of the bar (close).
func (m MarketData) Price() decimal.Decimal {
	return m.Close
}

// Validate checks the bar invariant low <= open,close <= high.
func (m MarketData) Validate() error {
	if m.Low.GreaterThan(m.Open) || m.Low.GreaterThan(m.Close) {
		return fmt.Errorf("bar at %s: low %s above open/close", m.Timestamp.Format(time.RFC3339), m.Low)
	}
	if m.High.LessThan(m.Open) || m.High.LessThan(m.Close) {
		return fmt.Errorf("bar at %s: high %s below open/close", m.Timestamp.Format(time.RFC3339), m.High)
	}
	return nil
}

// Signal is a strategy output at one evaluation point. A HOLD strength is
// advisory only and never triggers execution.
type Signal struct {
	Type      SignalType             `json:"type"`
	Strength  float64                `json:"strength"` // 0.0 to 1.0
	Price     decimal.Decimal        `json:"price"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Hold returns a HOLD signal for the given bar.
func Hold(bar MarketData) Signal {
	return Signal{Type: SignalHold, Price: bar.Price(), Timestamp: bar.Timestamp}
}

// StopLoss extracts an optional stop-loss price from the signal metadata.
func (s Signal) StopLoss() (decimal.Decimal, bool) {
	return metadataPrice(s.Metadata, "stop_loss")
}

// TakeProfit extracts an optional take-profit price from the signal metadata.
func (s Signal) TakeProfit() (decimal.Decimal, bool) {
	return metadataPrice(s.Metadata, "take_profit")
}

func metadataPrice(md map[string]interface{}, key string) (decimal.Decimal, bool) {
	if md == nil {
		return decimal.Zero, false
	}
	switch v := md[key].(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Position is a single open or closed trade. It is created on signal
// acceptance, mutated only by its owning engine, and closed exactly once;
// once ExitTime is set the position is immutable.
type Position struct {
	Side         SignalType             `json:"side"` // SignalBuy = long, SignalSell = short
	EntryPrice   decimal.Decimal        `json:"entry_price"`
	Size         decimal.Decimal        `json:"size"`
	EntryTime    time.Time              `json:"entry_time"`
	CurrentPrice decimal.Decimal        `json:"current_price"`
	StopLoss     decimal.Decimal        `json:"stop_loss,omitempty"`
	TakeProfit   decimal.Decimal        `json:"take_profit,omitempty"`
	ExitTime     *time.Time             `json:"exit_time,omitempty"`
	ExitPrice    decimal.Decimal        `json:"exit_price,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.ExitTime == nil
}

// IsLong reports whether the position profits from rising prices.
func (p *Position) IsLong() bool {
	return p.Side != SignalSell
}

// Close records the exit fill. Calling Close on an already closed position
// is a programming error and is ignored.
func (p *Position) Close(ts time.Time, price decimal.Decimal) {
	if p.ExitTime != nil {
		return
	}
	t := ts
	p.ExitTime = &t
	p.ExitPrice = price
}

// PnL is the realized profit or loss, defined only once closed. Long
// positions earn exit-entry, shorts earn entry-exit.
func (p *Position) PnL() (decimal.Decimal, bool) {
	if p.IsOpen() {
		return decimal.Zero, false
	}
	if p.IsLong() {
		return p.ExitPrice.Sub(p.EntryPrice).Mul(p.Size), true
	}
	return p.EntryPrice.Sub(p.ExitPrice).Mul(p.Size), true
}

// PnLPct is the realized return in percent of the entry price, defined only
// once closed.
func (p *Position) PnLPct() (float64, bool) {
	if p.IsOpen() || p.EntryPrice.IsZero() {
		return 0, false
	}
	var diff decimal.Decimal
	if p.IsLong() {
		diff = p.ExitPrice.Sub(p.EntryPrice)
	} else {
		diff = p.EntryPrice.Sub(p.ExitPrice)
	}
	pct, _ := diff.Div(p.EntryPrice).Mul(decimal.NewFromInt(100)).Float64()
	return pct, true
}

// UnrealizedPnL marks the open position to the given price.
func (p *Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}
	if p.IsLong() {
		return price.Sub(p.EntryPrice).Mul(p.Size)
	}
	return p.EntryPrice.Sub(price).Mul(p.Size)
}

// Notional is the current market value of the position, falling back to the
// entry price when no mark price has been observed yet.
func (p *Position) Notional() decimal.Decimal {
	price := p.CurrentPrice
	if price.IsZero() {
		price = p.EntryPrice
	}
	return p.Size.Mul(price)
}

// Duration is the holding time of a closed position.
func (p *Position) Duration() (time.Duration, bool) {
	if p.ExitTime == nil {
		return 0, false
	}
	return p.ExitTime.Sub(p.EntryTime), true
}

// TradeKind classifies a trade record for the annotation stream.
type TradeKind string

const (
	TradeEntry      TradeKind = "entry"
	TradeExit       TradeKind = "exit"
	TradeStopLoss   TradeKind = "stop_loss"
	TradeTakeProfit TradeKind = "take_profit"
)

// TradeRecord is one executed (or simulated) trade as reported to the
// dashboard layer.
type TradeRecord struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Kind      TradeKind              `json:"kind"`
	Symbol    string                 `json:"symbol"`
	Strategy  string                 `json:"strategy"`
	Side      SignalType             `json:"side"`
	Price     decimal.Decimal        `json:"price"`
	Size      decimal.Decimal        `json:"size"`
	Reason    string                 `json:"reason"`
	PnL       decimal.Decimal        `json:"pnl,omitempty"`
	PnLPct    float64                `json:"pnl_pct,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EquityPoint is one sample of the equity curve: total account value as
// cash plus mark-to-market of open positions.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
	Cash      decimal.Decimal `json:"cash"`
}
