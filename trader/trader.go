// Package trader runs one strategy against one venue, live or paper, with
// every order gated by the risk manager. The loop is tick-driven and single
// threaded per trader; a separate heartbeat goroutine publishes status
// snapshots for the dashboard layer.
package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
	"algo-trading-engine/exchange"
	"algo-trading-engine/metrics"
	"algo-trading-engine/risk"
	"algo-trading-engine/strategy"
)

// Config holds everything one trader needs. Venue and Strategy are required;
// the rest has defaults.
type Config struct {
	ID                string        `json:"id"`
	Symbol            string        `json:"symbol"`
	Mode              Mode          `json:"mode"`
	TickInterval      time.Duration `json:"tick_interval"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	MaxHistory        int           `json:"max_history"`
	EvalTimeout       time.Duration `json:"eval_timeout"`
	AutoTrading       bool          `json:"auto_trading"`

	InitialCapital decimal.Decimal `json:"initial_capital"`
	Limits         risk.Limits     `json:"limits"`

	Strategy strategy.Strategy   `json:"-"`
	Venue    exchange.Venue      `json:"-"`
	Fee      costs.FeeModel      `json:"-"`
	Slippage costs.SlippageModel `json:"-"`
	Metrics  *metrics.Metrics    `json:"-"`
}

// DefaultConfig returns a paper-mode configuration with conservative
// intervals. Strategy and Venue must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		Symbol:            "BTCUSDT",
		Mode:              ModePaper,
		TickInterval:      time.Minute,
		HeartbeatInterval: 30 * time.Second,
		MaxHistory:        500,
		EvalTimeout:       5 * time.Second,
		AutoTrading:       true,
		InitialCapital:    decimal.NewFromInt(10000),
		Limits:            risk.DefaultLimits(),
	}
}

// Trader drives one strategy loop. Build with New, then Start; Stop is
// idempotent and waits for both goroutines to exit.
type Trader struct {
	cfg    Config
	logger *zap.Logger
	riskMg *risk.Manager

	mu          sync.RWMutex
	running     bool
	paused      bool
	startedAt   time.Time
	position    *domain.Position
	history     []domain.MarketData
	signalCount int
	tradeCount  int
	lastSignal  *domain.Signal
	lastTickAt  time.Time
	equityCurve []domain.EquityPoint
	observers   []Observer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New validates the configuration and builds a stopped trader.
func New(cfg Config, logger *zap.Logger) (*Trader, error) {
	if cfg.Strategy == nil {
		return nil, errors.New("trader: strategy is required")
	}
	if cfg.Venue == nil {
		return nil, errors.New("trader: venue is required")
	}
	if cfg.Symbol == "" {
		return nil, errors.New("trader: symbol is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 500
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 5 * time.Second
	}
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("%s-%s-%s", cfg.Symbol, cfg.Strategy.Name(), cfg.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("trader", cfg.ID))

	return &Trader{
		cfg:    cfg,
		logger: logger,
		riskMg: risk.NewManager(cfg.InitialCapital, cfg.Limits, logger),
	}, nil
}

// ID returns the trader identifier.
func (t *Trader) ID() string { return t.cfg.ID }

// Risk exposes the risk manager for manual kill and reset.
func (t *Trader) Risk() *risk.Manager { return t.riskMg }

// Subscribe registers an observer for execution events.
func (t *Trader) Subscribe(obs Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, obs)
}

// Start launches the trading loop and the heartbeat. It fails when already
// running or when the venue health check fails. A trader paused before
// Start begins in the paused state.
func (t *Trader) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.New("trader: already running")
	}
	t.running = true
	t.startedAt = time.Now()
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	if err := t.cfg.Venue.HealthCheck(ctx); err != nil {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		return fmt.Errorf("venue health check: %w", err)
	}

	t.cfg.Strategy.Reset()

	t.wg.Add(2)
	go t.runLoop(ctx)
	go t.runHeartbeat(ctx)

	t.logger.Info("🚀 trader started",
		zap.String("symbol", t.cfg.Symbol),
		zap.String("strategy", t.cfg.Strategy.Name()),
		zap.String("mode", string(t.cfg.Mode)),
		zap.Duration("tick", t.cfg.TickInterval))
	t.publish(Event{Type: EventStarted})
	return nil
}

// Stop shuts the loops down, waits up to five seconds for them to exit, then
// closes any position still open so nothing survives a stopped trader.
// Calling Stop on a stopped trader is a no-op.
func (t *Trader) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.logger.Warn("trader loops did not exit in time")
	}

	t.closeOpenPosition()

	t.logger.Info("trader stopped")
	t.publish(Event{Type: EventStopped})
	return nil
}

// closeOpenPosition exits a position that survived until shutdown. When the
// venue cannot fill the exit the position is flag-closed locally at its last
// mark so the exit is still recorded.
func (t *Trader) closeOpenPosition() {
	t.mu.RLock()
	pos := t.position
	t.mu.RUnlock()
	if pos == nil || !pos.IsOpen() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if bar, err := t.cfg.Venue.GetMarketData(ctx, t.cfg.Symbol); err == nil {
		t.closePosition(ctx, bar, domain.TradeExit)
		t.sampleEquity(ctx, bar.Timestamp)
	} else {
		t.venueError("GetMarketData", err)
	}

	t.mu.RLock()
	still := t.position != nil && t.position.IsOpen()
	t.mu.RUnlock()
	if !still {
		return
	}

	mark := pos.CurrentPrice
	if mark.IsZero() {
		mark = pos.EntryPrice
	}
	pos.Close(time.Now(), mark)
	pnl, _ := pos.PnL()
	t.riskMg.RecordTrade(pnl)
	t.mu.Lock()
	t.tradeCount++
	t.mu.Unlock()

	t.logger.Warn("position flag-closed at stop", zap.String("pnl", pnl.String()))
	t.publishTrade(domain.TradeExit, pos, pnl, "closed at stop")
}

// IsRunning reports whether the loop is active.
func (t *Trader) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Pause suspends signal evaluation and order submission. Market data and
// position marks keep flowing so the status stays live.
func (t *Trader) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
	t.logger.Info("trader paused")
	t.publish(Event{Type: EventPaused})
}

// Resume re-enables signal evaluation after a Pause.
func (t *Trader) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
	t.logger.Info("trader resumed")
	t.publish(Event{Type: EventResumed})
}

// EquityCurve returns a copy of the sampled equity points.
func (t *Trader) EquityCurve() []domain.EquityPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.EquityPoint, len(t.equityCurve))
	copy(out, t.equityCurve)
	return out
}

// Status builds a snapshot for the dashboard layer.
func (t *Trader) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Status{
		ID:          t.cfg.ID,
		Symbol:      t.cfg.Symbol,
		Strategy:    t.cfg.Strategy.Name(),
		Mode:        t.cfg.Mode,
		Running:     t.running,
		Paused:      t.paused,
		AutoTrading: t.cfg.AutoTrading,
		SignalCount: t.signalCount,
		TradeCount:  t.tradeCount,
		LastTickAt:  t.lastTickAt,
		Risk:        t.riskMg.Status(),
	}
	if t.running {
		st.StartedAt = t.startedAt
		st.Uptime = time.Since(t.startedAt)
	}
	st.Balance = st.Risk.CurrentBalance
	st.Equity = st.Risk.CurrentBalance
	if t.position != nil && t.position.IsOpen() {
		cp := *t.position
		st.Position = &cp
		st.UnrealizedPnL = cp.UnrealizedPnL(cp.CurrentPrice)
		st.Equity = st.Equity.Add(st.UnrealizedPnL)
	}
	if t.lastSignal != nil {
		sig := *t.lastSignal
		st.LastSignal = &sig
	}
	return st
}

func (t *Trader) runLoop(ctx context.Context) {
	defer t.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("trading loop panic recovered", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	// First iteration immediately, then on the ticker.
	t.iterate(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("trading loop stopped by context")
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.iterate(ctx)
		}
	}
}

func (t *Trader) runHeartbeat(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			st := t.Status()
			t.publish(Event{Type: EventHeartbeat, Status: &st})
		}
	}
}

// iterate runs one tick: refresh state, mark the position, exit on stop or
// target, then ask the strategy and route any actionable signal through the
// risk manager. Venue errors abort the tick and are retried on the next one.
func (t *Trader) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("tick panic recovered", zap.Any("panic", r))
		}
	}()

	pos, err := t.cfg.Venue.GetPosition(ctx, t.cfg.Symbol)
	if err != nil {
		t.venueError("GetPosition", err)
		return
	}

	bar, err := t.cfg.Venue.GetMarketData(ctx, t.cfg.Symbol)
	if err != nil {
		t.venueError("GetMarketData", err)
		return
	}
	t.cfg.Metrics.Tick(t.cfg.ID)

	t.mu.Lock()
	t.lastTickAt = time.Now()
	// Venue positions do not carry stop and target levels; keep the locally
	// tracked ones when the same position is still open.
	if pos != nil && t.position != nil && t.position.IsOpen() && pos.EntryTime.Equal(t.position.EntryTime) {
		pos.StopLoss = t.position.StopLoss
		pos.TakeProfit = t.position.TakeProfit
	}
	t.position = pos
	if t.position != nil && t.position.IsOpen() {
		t.position.CurrentPrice = bar.Price()
	}
	t.history = append(t.history, bar)
	if len(t.history) > t.cfg.MaxHistory {
		t.history = t.history[len(t.history)-t.cfg.MaxHistory:]
	}
	history := make([]domain.MarketData, len(t.history)-1)
	copy(history, t.history[:len(t.history)-1])
	paused := t.paused
	t.mu.Unlock()

	if pv, ok := t.cfg.Venue.(*exchange.PaperVenue); ok {
		pv.MarkPosition(t.cfg.Symbol, bar.Price())
	}

	// Protective exits run even while paused and never consult the risk
	// manager: reducing risk must always be possible.
	if t.position != nil && t.position.IsOpen() {
		if kind, hit := t.protectiveExit(t.position, bar); hit {
			t.closePosition(ctx, bar, kind)
			t.sampleEquity(ctx, bar.Timestamp)
			return
		}
	}

	// A paused trader still tracks the account: the equity curve keeps
	// growing and the risk manager keeps evaluating its kill conditions.
	if paused {
		t.sampleEquity(ctx, bar.Timestamp)
		return
	}

	signal := t.evaluate(bar, history)
	t.mu.Lock()
	t.signalCount++
	sig := signal
	t.lastSignal = &sig
	t.mu.Unlock()
	t.cfg.Metrics.Signal(t.cfg.ID, string(signal.Type))

	if signal.Type != domain.SignalHold {
		t.publish(Event{Type: EventSignal, Signal: &sig})
	}

	t.act(ctx, bar, signal)
	t.cfg.Strategy.UpdateState(bar, signal)
	t.sampleEquity(ctx, bar.Timestamp)
}

// evaluate runs the strategy with the configured timeout. Timeouts, errors
// and panics all degrade to HOLD for this tick.
func (t *Trader) evaluate(bar domain.MarketData, history []domain.MarketData) domain.Signal {
	type result struct {
		signal domain.Signal
		err    error
	}
	ch := make(chan result, 1)

	t.mu.RLock()
	pos := t.position
	t.mu.RUnlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		sig, err := t.cfg.Strategy.GenerateSignal(bar, history, pos)
		ch <- result{signal: sig, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			serr := &domain.StrategyError{Strategy: t.cfg.Strategy.Name(), Err: res.err}
			t.logger.Warn("strategy error, holding", zap.Error(serr))
			return domain.Hold(bar)
		}
		return res.signal
	case <-time.After(t.cfg.EvalTimeout):
		t.logger.Warn("strategy evaluation timed out, holding",
			zap.Duration("timeout", t.cfg.EvalTimeout))
		return domain.Hold(bar)
	}
}

// act routes an actionable signal: entries go through the risk manager,
// CLOSE bypasses it.
func (t *Trader) act(ctx context.Context, bar domain.MarketData, signal domain.Signal) {
	t.mu.RLock()
	pos := t.position
	t.mu.RUnlock()
	open := pos != nil && pos.IsOpen()

	switch {
	case signal.Type.IsEntry() && !open:
		if !t.cfg.AutoTrading {
			t.logger.Info("auto trading disabled, signal not executed",
				zap.String("type", string(signal.Type)))
			return
		}
		ok, reason := t.riskMg.ValidateSignal(signal, t.openPositions(), t.cfg.Symbol, bar.Price())
		if !ok {
			t.logger.Warn("signal rejected by risk manager", zap.String("reason", reason))
			t.cfg.Metrics.OrderRejected(t.cfg.ID)
			t.publish(Event{Type: EventRejected, Signal: &signal, Reason: reason})
			return
		}
		t.openPosition(ctx, bar, signal)

	case signal.Type == domain.SignalClose && open:
		t.closePosition(ctx, bar, domain.TradeExit)
	}
}

// openPositions returns the open positions the risk manager counts toward
// total exposure.
func (t *Trader) openPositions() map[string]*domain.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	positions := make(map[string]*domain.Position)
	if t.position != nil && t.position.IsOpen() {
		positions[t.cfg.Symbol] = t.position
	}
	return positions
}

func (t *Trader) openPosition(ctx context.Context, bar domain.MarketData, signal domain.Signal) {
	balance := t.riskMg.Status().CurrentBalance
	maxPct := decimal.NewFromFloat(t.cfg.Limits.MaxPositionSize)
	strength := decimal.NewFromFloat(signal.Strength)
	size := exchange.RoundSize(balance.Mul(maxPct).Mul(strength).Div(bar.Price()))
	if !size.IsPositive() {
		t.logger.Warn("computed order size is zero, skipping entry")
		return
	}

	side := domain.OrderBuy
	if signal.Type == domain.SignalSell {
		side = domain.OrderSell
	}
	order := &domain.Order{
		Symbol:   t.cfg.Symbol,
		Side:     side,
		Type:     domain.OrderMarket,
		Quantity: size,
	}

	filled, err := t.cfg.Venue.PlaceOrder(ctx, order)
	if err != nil {
		t.venueError("PlaceOrder", err)
		return
	}
	t.riskMg.RecordOrder()
	t.cfg.Metrics.OrderSubmitted(t.cfg.ID)

	pos := &domain.Position{
		Side:         signal.Type,
		EntryPrice:   filled.AverageFillPrice,
		Size:         filled.FilledQuantity,
		EntryTime:    filled.Timestamp,
		CurrentPrice: bar.Price(),
	}
	if sl, ok := signal.StopLoss(); ok {
		pos.StopLoss = sl
	}
	if tp, ok := signal.TakeProfit(); ok {
		pos.TakeProfit = tp
	}

	t.mu.Lock()
	t.position = pos
	t.mu.Unlock()

	t.logger.Info("📈 position opened",
		zap.String("side", string(signal.Type)),
		zap.String("entry", pos.EntryPrice.String()),
		zap.String("size", pos.Size.String()))
	t.publishTrade(domain.TradeEntry, pos, decimal.Zero, "signal entry")
}

func (t *Trader) closePosition(ctx context.Context, bar domain.MarketData, kind domain.TradeKind) {
	t.mu.RLock()
	pos := t.position
	t.mu.RUnlock()
	if pos == nil || !pos.IsOpen() {
		return
	}

	side := domain.OrderSell
	if !pos.IsLong() {
		side = domain.OrderBuy
	}
	order := &domain.Order{
		Symbol:   t.cfg.Symbol,
		Side:     side,
		Type:     domain.OrderMarket,
		Quantity: pos.Size,
	}

	filled, err := t.cfg.Venue.PlaceOrder(ctx, order)
	if err != nil {
		t.venueError("PlaceOrder", err)
		return
	}
	t.riskMg.RecordOrder()
	t.cfg.Metrics.OrderSubmitted(t.cfg.ID)

	pos.Close(filled.Timestamp, filled.AverageFillPrice)
	pnl, _ := pos.PnL()
	t.riskMg.RecordTrade(pnl)

	t.mu.Lock()
	t.tradeCount++
	t.position = pos
	t.mu.Unlock()

	t.logger.Info("📉 position closed",
		zap.String("kind", string(kind)),
		zap.String("exit", pos.ExitPrice.String()),
		zap.String("pnl", pnl.String()))
	t.publishTrade(kind, pos, pnl, string(kind))
}

// protectiveExit tests the open position's stop and target against the bar's
// full range, the same trigger rule the replay engine uses: a long stop fires
// when the low touches it, a long target when the high does, shorts mirrored.
// The fill still happens at the venue's current price.
func (t *Trader) protectiveExit(pos *domain.Position, bar domain.MarketData) (domain.TradeKind, bool) {
	if pos.IsLong() {
		if !pos.StopLoss.IsZero() && bar.Low.LessThanOrEqual(pos.StopLoss) {
			return domain.TradeStopLoss, true
		}
		if !pos.TakeProfit.IsZero() && bar.High.GreaterThanOrEqual(pos.TakeProfit) {
			return domain.TradeTakeProfit, true
		}
		return "", false
	}
	if !pos.StopLoss.IsZero() && bar.High.GreaterThanOrEqual(pos.StopLoss) {
		return domain.TradeStopLoss, true
	}
	if !pos.TakeProfit.IsZero() && bar.Low.LessThanOrEqual(pos.TakeProfit) {
		return domain.TradeTakeProfit, true
	}
	return "", false
}

// sampleEquity refreshes the risk manager's view of the account after each
// tick and records one equity point.
func (t *Trader) sampleEquity(ctx context.Context, ts time.Time) {
	bal, err := t.cfg.Venue.GetBalance(ctx)
	if err != nil {
		t.venueError("GetBalance", err)
		return
	}
	t.riskMg.UpdateBalance(bal.Total)
	t.cfg.Metrics.Equity(t.cfg.ID, bal.Total)
	t.cfg.Metrics.KillSwitch(t.cfg.ID, t.riskMg.IsKilled())

	t.mu.Lock()
	t.equityCurve = append(t.equityCurve, domain.EquityPoint{
		Timestamp: ts,
		Equity:    bal.Total,
		Cash:      bal.Available,
	})
	t.mu.Unlock()
}

func (t *Trader) venueError(op string, err error) {
	verr := err
	var ve *domain.VenueError
	if !errors.As(err, &ve) {
		verr = &domain.VenueError{Op: op, Err: err}
	}
	t.logger.Error("venue error, retrying next tick", zap.Error(verr))
	t.cfg.Metrics.VenueError(t.cfg.ID)
	t.publish(Event{Type: EventError, Error: verr.Error()})
}

func (t *Trader) publishTrade(kind domain.TradeKind, pos *domain.Position, pnl decimal.Decimal, reason string) {
	price := pos.EntryPrice
	ts := pos.EntryTime
	if kind != domain.TradeEntry {
		price = pos.ExitPrice
		if pos.ExitTime != nil {
			ts = *pos.ExitTime
		}
	}
	rec := &domain.TradeRecord{
		ID:        fmt.Sprintf("%s-%d", t.cfg.ID, time.Now().UnixNano()),
		Timestamp: ts,
		Kind:      kind,
		Symbol:    t.cfg.Symbol,
		Strategy:  t.cfg.Strategy.Name(),
		Side:      pos.Side,
		Price:     price,
		Size:      pos.Size,
		Reason:    reason,
	}
	if kind != domain.TradeEntry {
		rec.PnL = pnl
		if pct, ok := pos.PnLPct(); ok {
			rec.PnLPct = pct
		}
	}
	t.publish(Event{Type: EventTrade, Trade: rec})
	t.publish(Event{Type: EventAnnotation, Trade: rec})
}

func (t *Trader) publish(ev Event) {
	ev.Trader = t.cfg.ID
	ev.Symbol = t.cfg.Symbol
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	t.mu.RLock()
	obs := make([]Observer, len(t.observers))
	copy(obs, t.observers)
	t.mu.RUnlock()

	for _, o := range obs {
		o.OnEvent(ev)
	}
}
