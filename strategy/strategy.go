// Package strategy defines the contract every trading strategy implements.
// The backtest and execution engines depend on this interface only, never on
// concrete strategies.
package strategy

import (
	"algo-trading-engine/domain"
)

// Strategy is evaluated by both the backtest engine (historical replay) and
// the execution engine (live ticks) with the same signal and position types.
type Strategy interface {
	// Name identifies the strategy in logs, trade records and status
	// snapshots.
	Name() string

	// GenerateSignal evaluates the current bar given the preceding history
	// window and the currently open position (nil when flat). An error is
	// treated by the calling engine as a HOLD for this bar.
	GenerateSignal(bar domain.MarketData, history []domain.MarketData, current *domain.Position) (domain.Signal, error)

	// RequiredHistoryLength is the minimum lookback window the strategy
	// needs before it can produce meaningful signals.
	RequiredHistoryLength() int

	// UpdateState lets stateful strategies observe each bar and the signal
	// that was produced for it.
	UpdateState(bar domain.MarketData, signal domain.Signal)

	// Reset clears internal state before a fresh replay.
	Reset()

	// Parameters exposes the tunable parameter set, used by the optimizer
	// and recorded into backtest results.
	Parameters() Params
}

// Params is a strategy's tunable parameter bag. Keys are free-form; the
// engines only look at the well-known stop_loss_pct / take_profit_pct keys.
type Params map[string]float64

// Get returns the parameter or the given default when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Lookup returns the parameter and whether it is set.
func (p Params) Lookup(key string) (float64, bool) {
	v, ok := p[key]
	return v, ok
}

// Clone returns an independent copy so sweeps can mutate per combination.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Well-known parameter keys consumed by the engines when attaching exit
// levels to new positions.
const (
	ParamStopLossPct   = "stop_loss_pct"
	ParamTakeProfitPct = "take_profit_pct"
)

// Base provides the common plumbing (name, parameters, a state map) so
// concrete strategies only implement GenerateSignal.
type Base struct {
	StrategyName string
	Params       Params
	State        map[string]interface{}
}

// NewBase builds the embedded helper. A nil params map is replaced with an
// empty one.
func NewBase(name string, params Params) Base {
	if params == nil {
		params = Params{}
	}
	return Base{StrategyName: name, Params: params, State: map[string]interface{}{}}
}

func (b *Base) Name() string               { return b.StrategyName }
func (b *Base) Parameters() Params         { return b.Params }
func (b *Base) RequiredHistoryLength() int { return 1 }

func (b *Base) UpdateState(bar domain.MarketData, signal domain.Signal) {}

func (b *Base) Reset() {
	b.State = map[string]interface{}{}
}
