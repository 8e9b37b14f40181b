package trader

import (
	"time"

	"github.com/shopspring/decimal"

	"algo-trading-engine/domain"
	"algo-trading-engine/risk"
)

// Mode selects where orders go.
type Mode string

const (
	// ModePaper simulates fills locally through a paper venue.
	ModePaper Mode = "paper"
	// ModeLive submits real orders to the configured venue.
	ModeLive Mode = "live"
)

// Status is a point-in-time snapshot of one trader, built for the dashboard
// layer. All fields are copies; mutating a snapshot has no effect on the
// trader.
type Status struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Strategy      string           `json:"strategy"`
	Mode          Mode             `json:"mode"`
	Running       bool             `json:"running"`
	Paused        bool             `json:"paused"`
	AutoTrading   bool             `json:"auto_trading"`
	StartedAt     time.Time        `json:"started_at,omitempty"`
	Uptime        time.Duration    `json:"uptime"`
	Balance       decimal.Decimal  `json:"balance"`
	Equity        decimal.Decimal  `json:"equity"`
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl"`
	Position      *domain.Position `json:"position,omitempty"`
	SignalCount   int              `json:"signal_count"`
	TradeCount    int              `json:"trade_count"`
	LastSignal    *domain.Signal   `json:"last_signal,omitempty"`
	LastTickAt    time.Time        `json:"last_tick_at,omitempty"`
	Risk          risk.Status      `json:"risk"`
}
