// Package risk implements the account-level gatekeeper between signal
// generation and order submission: limit checks, daily-stats accounting and
// a one-way kill switch. The manager is pure state plus checks; it never
// calls a venue and never blocks.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/domain"
)

// Limits is the immutable risk configuration. Percentages are fractions of
// the account (0.05 = 5%).
type Limits struct {
	MaxDailyLoss     float64 `json:"max_daily_loss" yaml:"max_daily_loss" default:"0.05"`
	MaxPositionSize  float64 `json:"max_position_size" yaml:"max_position_size" default:"0.10"`
	MaxTotalExposure float64 `json:"max_total_exposure" yaml:"max_total_exposure" default:"0.50"`
	MaxDrawdown      float64 `json:"max_drawdown" yaml:"max_drawdown" default:"0.15"`
	MinBalance       float64 `json:"min_balance" yaml:"min_balance"`
	MaxOrdersPerDay  int     `json:"max_orders_per_day" yaml:"max_orders_per_day" default:"100"`
	MaxOrdersPerHour int     `json:"max_orders_per_hour" yaml:"max_orders_per_hour" default:"20"`
}

// DefaultLimits mirrors the struct defaults for callers that build limits in
// code rather than from config.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyLoss:     0.05,
		MaxPositionSize:  0.10,
		MaxTotalExposure: 0.50,
		MaxDrawdown:      0.15,
		MaxOrdersPerDay:  100,
		MaxOrdersPerHour: 20,
	}
}

// DailyStats accumulates per-trading-day counters. It is replaced wholesale
// when the wall-clock date changes.
type DailyStats struct {
	Date            time.Time       `json:"date"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	PeakBalance     decimal.Decimal `json:"peak_balance"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	TradesCount     int             `json:"trades_count"`
	OrdersCount     int             `json:"orders_count"`
	OrdersByHour    map[int]int     `json:"orders_by_hour"`
	MaxDrawdown     float64         `json:"max_drawdown"`
}

// Status is a point-in-time snapshot for the dashboard layer.
type Status struct {
	IsKilled       bool            `json:"is_killed"`
	KillReason     string          `json:"kill_reason,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Daily          DailyStats      `json:"daily_stats"`
}

// Manager tracks balances and enforces limits. All methods are safe for
// concurrent use.
type Manager struct {
	limits Limits
	logger *zap.Logger

	// Now is the clock used for daily rollover and hourly buckets.
	// Overridable in tests; defaults to time.Now.
	Now func() time.Time

	mu         sync.Mutex
	balance    decimal.Decimal
	daily      DailyStats
	isKilled   bool
	killReason string
}

// NewManager builds a manager seeded with the starting account balance.
func NewManager(initialBalance decimal.Decimal, limits Limits, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		limits:  limits,
		logger:  logger,
		Now:     time.Now,
		balance: initialBalance,
	}
	m.daily = m.freshDaily(initialBalance)
	return m
}

// Limits returns the immutable limit configuration.
func (m *Manager) Limits() Limits { return m.limits }

func (m *Manager) freshDaily(balance decimal.Decimal) DailyStats {
	return DailyStats{
		Date:            m.Now(),
		StartingBalance: balance,
		CurrentBalance:  balance,
		PeakBalance:     balance,
		OrdersByHour:    make(map[int]int),
	}
}

// rollDailyLocked starts a new accumulator when the wall-clock date changed.
func (m *Manager) rollDailyLocked() {
	now := m.Now()
	y1, mo1, d1 := m.daily.Date.Date()
	y2, mo2, d2 := now.Date()
	if y1 == y2 && mo1 == mo2 && d1 == d2 {
		return
	}
	m.daily = m.freshDaily(m.balance)
	m.logger.Info("daily stats reset", zap.String("starting_balance", m.balance.String()))
}

// UpdateBalance records a new account balance, rolling the trading day when
// the date changed and recomputing PnL, peak and drawdown. It trips the kill
// switch on a daily-loss, max-drawdown or balance-floor breach.
func (m *Manager) UpdateBalance(newBalance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDailyLocked()
	m.balance = newBalance
	m.daily.CurrentBalance = newBalance
	m.daily.TotalPnL = newBalance.Sub(m.daily.StartingBalance)

	if newBalance.GreaterThan(m.daily.PeakBalance) {
		m.daily.PeakBalance = newBalance
	}
	if m.daily.PeakBalance.IsPositive() {
		dd, _ := m.daily.PeakBalance.Sub(newBalance).Div(m.daily.PeakBalance).Float64()
		if dd > m.daily.MaxDrawdown {
			m.daily.MaxDrawdown = dd
		}
	}

	if m.daily.StartingBalance.IsPositive() {
		lossPct, _ := m.daily.StartingBalance.Sub(newBalance).Div(m.daily.StartingBalance).Float64()
		if lossPct >= m.limits.MaxDailyLoss {
			m.killLocked(fmt.Sprintf("Daily loss limit exceeded: %.2f%% >= %.2f%%", lossPct*100, m.limits.MaxDailyLoss*100))
		}
	}
	if m.daily.MaxDrawdown >= m.limits.MaxDrawdown {
		m.killLocked(fmt.Sprintf("Max drawdown exceeded: %.2f%% >= %.2f%%", m.daily.MaxDrawdown*100, m.limits.MaxDrawdown*100))
	}
	if m.limits.MinBalance > 0 && newBalance.LessThan(decimal.NewFromFloat(m.limits.MinBalance)) {
		m.killLocked(fmt.Sprintf("Balance below minimum: %s < %.2f", newBalance.StringFixed(2), m.limits.MinBalance))
	}
}

// ValidateSignal checks a proposed signal against every limit. Checks
// short-circuit: the first failing check's reason is returned and no side
// effects occur on rejection. Closing risk is never gated here; callers
// bypass validation for exits.
func (m *Manager) ValidateSignal(signal domain.Signal, positions map[string]*domain.Position, symbol string, currentPrice decimal.Decimal) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isKilled {
		return false, fmt.Sprintf("Trading killed: %s", m.killReason)
	}
	if !m.checkPositionSizeLocked(signal) {
		return false, "Position size exceeds limit"
	}
	if signal.Type.IsEntry() && !m.checkTotalExposureLocked(positions) {
		return false, "Total exposure exceeds limit"
	}
	if m.daily.OrdersCount >= m.limits.MaxOrdersPerDay {
		return false, fmt.Sprintf("Daily order limit reached: %d", m.daily.OrdersCount)
	}
	hour := m.Now().Hour()
	if m.daily.OrdersByHour[hour] >= m.limits.MaxOrdersPerHour {
		return false, fmt.Sprintf("Hourly order limit reached: %d", m.daily.OrdersByHour[hour])
	}
	return true, ""
}

// checkPositionSizeLocked verifies the proposed size, scaled by signal
// strength, stays within MaxPositionSize of the balance.
func (m *Manager) checkPositionSizeLocked(signal domain.Signal) bool {
	if !m.balance.IsPositive() {
		return false
	}
	maxValue := m.balance.Mul(decimal.NewFromFloat(m.limits.MaxPositionSize))
	proposed := maxValue.Mul(decimal.NewFromFloat(signal.Strength))
	pct, _ := proposed.Div(m.balance).Float64()
	if pct > m.limits.MaxPositionSize {
		m.logger.Warn("position size exceeds limit",
			zap.Float64("proposed_pct", pct),
			zap.Float64("limit", m.limits.MaxPositionSize))
		return false
	}
	return true
}

// checkTotalExposureLocked verifies the notional of all open positions stays
// within MaxTotalExposure of the balance.
func (m *Manager) checkTotalExposureLocked(positions map[string]*domain.Position) bool {
	if !m.balance.IsPositive() {
		return false
	}
	exposure := decimal.Zero
	for _, pos := range positions {
		if pos != nil && pos.IsOpen() {
			exposure = exposure.Add(pos.Notional())
		}
	}
	pct, _ := exposure.Div(m.balance).Float64()
	if pct > m.limits.MaxTotalExposure {
		m.logger.Warn("total exposure exceeds limit",
			zap.Float64("exposure_pct", pct),
			zap.Float64("limit", m.limits.MaxTotalExposure))
		return false
	}
	return true
}

// RecordOrder counts a submitted order against the daily and hourly caps.
// Call it only after a successful submission.
func (m *Manager) RecordOrder() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.daily.OrdersCount++
	m.daily.OrdersByHour[m.Now().Hour()]++
}

// RecordTrade counts a completed trade and its realized PnL.
func (m *Manager) RecordTrade(pnl decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.daily.TradesCount++
	m.daily.RealizedPnL = m.daily.RealizedPnL.Add(pnl)
}

// Kill trips the kill switch. Once set it stays set until ResetKillSwitch;
// repeated calls keep the first reason.
func (m *Manager) Kill(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killLocked(reason)
}

func (m *Manager) killLocked(reason string) {
	if m.isKilled {
		return
	}
	m.isKilled = true
	m.killReason = reason
	m.logger.Error("🚨 TRADING KILLED", zap.String("reason", reason))
}

// IsKilled reports the kill-switch state.
func (m *Manager) IsKilled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isKilled
}

// ResetKillSwitch re-enables trading. This is the only way back once the
// switch has tripped; it exists for explicit manual intervention.
func (m *Manager) ResetKillSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isKilled = false
	m.killReason = ""
	m.logger.Info("kill switch reset, trading resumed")
}

// Status returns a snapshot for the dashboard layer. The daily stats map is
// copied so callers cannot mutate internal state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	daily := m.daily
	daily.OrdersByHour = make(map[int]int, len(m.daily.OrdersByHour))
	for h, n := range m.daily.OrdersByHour {
		daily.OrdersByHour[h] = n
	}
	return Status{
		IsKilled:       m.isKilled,
		KillReason:     m.killReason,
		CurrentBalance: m.balance,
		Daily:          daily,
	}
}
