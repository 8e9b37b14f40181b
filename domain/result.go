package domain

import (
	"github.com/shopspring/decimal"
)

// BacktestResult aggregates one full replay. It is immutable once produced.
// Money amounts are decimal; ratio and statistical metrics are float64.
type BacktestResult struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	TotalReturn    decimal.Decimal `json:"total_return"`
	TotalReturnPct float64         `json:"total_return_pct"`
	SharpeRatio    float64         `json:"sharpe_ratio"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct float64         `json:"max_drawdown_pct"`

	AvgWin       decimal.Decimal `json:"avg_win"`
	AvgLoss      decimal.Decimal `json:"avg_loss"`
	ProfitFactor float64         `json:"profit_factor"`

	// AvgTradeDuration is the mean holding time in hours.
	AvgTradeDuration float64 `json:"avg_trade_duration"`

	Trades        []*Position       `json:"trades"`
	EquityCurve   []decimal.Decimal `json:"equity_curve"`
	DrawdownCurve []float64         `json:"drawdown_curve"`

	Parameters map[string]float64 `json:"parameters"`
}

// OptimizationResult is the outcome of a grid-search sweep.
type OptimizationResult struct {
	BestParameters map[string]float64 `json:"best_parameters"`
	BestScore      float64            `json:"best_score"`
	BestBacktest   *BacktestResult    `json:"best_backtest"`
	AllResults     []SweepResult      `json:"-"`
}

// SweepResult pairs one tested parameter set with its backtest outcome.
type SweepResult struct {
	Parameters map[string]float64 `json:"parameters"`
	Result     *BacktestResult    `json:"result"`
}
