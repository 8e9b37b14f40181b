package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyMarketData is returned when a replay or optimization is invoked
// with an empty price series. Fatal to that call only, never to the process.
var ErrEmptyMarketData = errors.New("market data cannot be empty")

// VenueError wraps a market-data fetch or order-submission failure. The
// execution loop logs it and retries on the next tick.
type VenueError struct {
	Op  string // "get_market_data", "place_order", ...
	Err error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue %s: %v", e.Op, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// StrategyError wraps an error or recovered panic from a strategy callback.
// The calling engine treats it as a HOLD for that tick.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
