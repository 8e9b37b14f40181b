// Package backtest replays a historical price series through a strategy and
// produces performance metrics. The replay is single-threaded, performs no
// I/O and is deterministic: the same strategy and data always yield the same
// result. Fills are priced through the same cost models the live path uses.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
	"algo-trading-engine/strategy"
)

// Engine holds the replay configuration. The zero value is not usable; build
// one with New.
type Engine struct {
	InitialCapital  decimal.Decimal
	PositionSizePct decimal.Decimal // fraction of capital committed per entry, 1.0 = all-in
	Fee             costs.FeeModel
	Slippage        costs.SlippageModel

	logger *zap.Logger
}

// New builds an engine with the given starting capital. Nil cost models fall
// back to the shared defaults, a nil logger to a no-op logger. Position
// sizing defaults to full capital per trade; the live path sizes through the
// risk manager instead, which is an intentional policy difference.
func New(initialCapital decimal.Decimal, fee costs.FeeModel, slip costs.SlippageModel, logger *zap.Logger) *Engine {
	if fee == nil {
		fee = costs.DefaultFee()
	}
	if slip == nil {
		slip = costs.DefaultSlippage()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		InitialCapital:  initialCapital,
		PositionSizePct: decimal.NewFromInt(1),
		Fee:             fee,
		Slippage:        slip,
		logger:          logger,
	}
}

// Run replays the market data through the strategy. The input series is
// sorted by timestamp (stable) before the replay; it fails with
// domain.ErrEmptyMarketData when the series is empty.
func (e *Engine) Run(strat strategy.Strategy, data []domain.MarketData) (*domain.BacktestResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyMarketData
	}

	bars := make([]domain.MarketData, len(data))
	copy(bars, data)
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	strat.Reset()
	params := strat.Parameters()
	lookback := strat.RequiredHistoryLength()

	capital := e.InitialCapital
	var current *domain.Position
	closed := make([]*domain.Position, 0)
	equity := []decimal.Decimal{capital}

	for i, bar := range bars {
		// Exit-before-entry: a triggered stop or target is processed before
		// the strategy sees the bar, so one bar cannot silently exit and
		// re-enter. Triggers test the bar's full range; the fill happens at
		// the bar close with exit-side slippage, like any other exit.
		if current != nil && current.IsOpen() && exitLevelHit(current, bar) {
			exitPrice := e.Slippage.Apply(bar.Price(), !current.IsLong())
			capital = e.closePosition(current, bar.Timestamp, exitPrice, capital)
			closed = append(closed, current)
			current = nil
			equity = append(equity, capital)
		}

		start := i - lookback
		if start < 0 {
			start = 0
		}
		history := bars[start:i]

		signal := e.evaluate(strat, bar, history, current)

		switch {
		case signal.Type.IsEntry() && current == nil:
			current, capital = e.openPosition(signal, bar, params, capital)
			equity = append(equity, capital)

		case signal.Type == domain.SignalClose && current != nil && current.IsOpen():
			exitPrice := e.Slippage.Apply(bar.Price(), !current.IsLong())
			capital = e.closePosition(current, bar.Timestamp, exitPrice, capital)
			closed = append(closed, current)
			current = nil
			equity = append(equity, capital)

		default:
			if current != nil && current.IsOpen() {
				current.CurrentPrice = bar.Price()
			}
		}

		strat.UpdateState(bar, signal)
	}

	// Nothing open survives the replay: force-close at the last bar's close.
	if current != nil && current.IsOpen() {
		last := bars[len(bars)-1]
		exitPrice := e.Slippage.Apply(last.Price(), !current.IsLong())
		capital = e.closePosition(current, last.Timestamp, exitPrice, capital)
		closed = append(closed, current)
		equity = append(equity, capital)
	}

	return deriveResult(closed, equity, e.InitialCapital, paramsToMap(params)), nil
}

// evaluate calls the strategy, converting errors and panics into a HOLD for
// this bar so one bad bar cannot abort the replay.
func (e *Engine) evaluate(strat strategy.Strategy, bar domain.MarketData, history []domain.MarketData, current *domain.Position) (signal domain.Signal) {
	defer func() {
		if r := recover(); r != nil {
			serr := &domain.StrategyError{Strategy: strat.Name(), Err: fmt.Errorf("panic: %v", r)}
			e.logger.Error("strategy panicked, holding", zap.Error(serr), zap.Time("bar", bar.Timestamp))
			signal = domain.Hold(bar)
		}
	}()

	signal, err := strat.GenerateSignal(bar, history, current)
	if err != nil {
		serr := &domain.StrategyError{Strategy: strat.Name(), Err: err}
		e.logger.Warn("strategy error, holding", zap.Error(serr), zap.Time("bar", bar.Timestamp))
		return domain.Hold(bar)
	}
	return signal
}

// openPosition fills an entry with slippage, sizes it from current capital
// and deducts the entry commission. Stop and target levels come from signal
// metadata first, strategy parameters second.
func (e *Engine) openPosition(signal domain.Signal, bar domain.MarketData, params strategy.Params, capital decimal.Decimal) (*domain.Position, decimal.Decimal) {
	long := signal.Type == domain.SignalBuy
	entryPrice := e.Slippage.Apply(bar.Price(), long)
	size := capital.Mul(e.PositionSizePct).Div(entryPrice)

	commission := e.Fee.Fee(entryPrice, size, true)
	capital = capital.Sub(commission)

	pos := &domain.Position{
		Side:         signal.Type,
		EntryPrice:   entryPrice,
		Size:         size,
		EntryTime:    bar.Timestamp,
		CurrentPrice: bar.Price(),
	}

	if sl, ok := signal.StopLoss(); ok {
		pos.StopLoss = sl
	} else if pct, ok := params.Lookup(strategy.ParamStopLossPct); ok {
		pos.StopLoss = offsetPct(entryPrice, pct, !long)
	}
	if tp, ok := signal.TakeProfit(); ok {
		pos.TakeProfit = tp
	} else if pct, ok := params.Lookup(strategy.ParamTakeProfitPct); ok {
		pos.TakeProfit = offsetPct(entryPrice, pct, long)
	}

	e.logger.Debug("opened position",
		zap.String("side", string(signal.Type)),
		zap.String("entry", entryPrice.String()),
		zap.String("size", size.String()),
	)
	return pos, capital
}

// closePosition records the exit, charges the exit commission and returns
// the updated capital.
func (e *Engine) closePosition(pos *domain.Position, ts time.Time, exitPrice, capital decimal.Decimal) decimal.Decimal {
	commission := e.Fee.Fee(exitPrice, pos.Size, false)
	pos.Close(ts, exitPrice)
	pnl, _ := pos.PnL()
	capital = capital.Add(pnl).Sub(commission)

	e.logger.Debug("closed position",
		zap.String("exit", exitPrice.String()),
		zap.String("pnl", pnl.String()),
		zap.String("capital", capital.String()),
	)
	return capital
}

// exitLevelHit tests the position's stop-loss and take-profit against the
// bar's full range. A long stop triggers when the low touches it, a long
// target when the high does; shorts are mirrored.
func exitLevelHit(pos *domain.Position, bar domain.MarketData) bool {
	if pos.IsLong() {
		if !pos.StopLoss.IsZero() && bar.Low.LessThanOrEqual(pos.StopLoss) {
			return true
		}
		if !pos.TakeProfit.IsZero() && bar.High.GreaterThanOrEqual(pos.TakeProfit) {
			return true
		}
		return false
	}
	if !pos.StopLoss.IsZero() && bar.High.GreaterThanOrEqual(pos.StopLoss) {
		return true
	}
	if !pos.TakeProfit.IsZero() && bar.Low.LessThanOrEqual(pos.TakeProfit) {
		return true
	}
	return false
}

// offsetPct returns price shifted by pct, upward when up is true.
func offsetPct(price decimal.Decimal, pct float64, up bool) decimal.Decimal {
	one := decimal.NewFromInt(1)
	d := decimal.NewFromFloat(pct)
	if up {
		return price.Mul(one.Add(d))
	}
	return price.Mul(one.Sub(d))
}

func paramsToMap(p strategy.Params) map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
