package trader

import (
	"time"

	"github.com/shopspring/decimal"

	"algo-trading-engine/domain"
)

// EventType classifies an execution event published to observers.
type EventType string

const (
	EventStarted    EventType = "started"
	EventStopped    EventType = "stopped"
	EventPaused     EventType = "paused"
	EventResumed    EventType = "resumed"
	EventSignal     EventType = "signal"
	EventTrade      EventType = "trade"
	EventRejected   EventType = "rejected"
	EventAnnotation EventType = "annotation"
	EventError      EventType = "error"
	EventHeartbeat  EventType = "heartbeat"
)

// Event is one execution event. Only the fields relevant to the type are
// populated.
type Event struct {
	Type      EventType           `json:"type"`
	Trader    string              `json:"trader"`
	Symbol    string              `json:"symbol"`
	Timestamp time.Time           `json:"timestamp"`
	Signal    *domain.Signal      `json:"signal,omitempty"`
	Trade     *domain.TradeRecord `json:"trade,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Error     string              `json:"error,omitempty"`
	Status    *Status             `json:"status,omitempty"`
}

// Observer receives execution events. OnEvent must not block; slow consumers
// drop events on their own side.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Annotation marks a trade on a chart. Entries carry the side, exits carry
// the realized PnL.
type Annotation struct {
	Timestamp time.Time         `json:"timestamp"`
	Symbol    string            `json:"symbol"`
	Kind      domain.TradeKind  `json:"kind"`
	Side      domain.SignalType `json:"side"`
	Price     decimal.Decimal   `json:"price"`
	PnL       decimal.Decimal   `json:"pnl,omitempty"`
	Label     string            `json:"label"`
}
