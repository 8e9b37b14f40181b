package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"algo-trading-engine/domain"
	"algo-trading-engine/stats"
)

// annualization factor for the Sharpe ratio: sqrt of the conventional 252
// trading days.
var sharpeAnnualization = math.Sqrt(252)

// deriveResult computes the aggregate metrics for a completed replay. With
// no trades the result is all zeros apart from the curves and parameters.
func deriveResult(trades []*domain.Position, equity []decimal.Decimal, initialCapital decimal.Decimal, params map[string]float64) *domain.BacktestResult {
	result := &domain.BacktestResult{
		Trades:        trades,
		EquityCurve:   equity,
		DrawdownCurve: stats.Drawdowns(equity),
		Parameters:    params,
	}
	if len(trades) == 0 {
		return result
	}

	finalCapital := equity[len(equity)-1]
	result.TotalTrades = len(trades)
	result.TotalReturn = finalCapital.Sub(initialCapital)
	if !initialCapital.IsZero() {
		result.TotalReturnPct, _ = result.TotalReturn.Div(initialCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	var (
		winSum, lossSum decimal.Decimal
		wins, losses    int
		durationsSum    float64
		durations       int
	)
	for _, trade := range trades {
		pnl, ok := trade.PnL()
		if !ok {
			continue
		}
		if pnl.IsPositive() {
			wins++
			winSum = winSum.Add(pnl)
		} else {
			losses++
			lossSum = lossSum.Add(pnl.Abs())
		}
		if d, ok := trade.Duration(); ok {
			durationsSum += d.Hours()
			durations++
		}
	}

	result.WinningTrades = wins
	result.LosingTrades = losses
	result.WinRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		result.AvgWin = winSum.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		result.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(losses)))
	}
	result.ProfitFactor = profitFactor(winSum, lossSum)
	if durations > 0 {
		result.AvgTradeDuration = durationsSum / float64(durations)
	}

	returns := stats.StepReturns(equity)
	if sd := stats.StdDev(returns); sd > 0 {
		result.SharpeRatio = stats.Mean(returns) / sd * sharpeAnnualization
	}

	result.MaxDrawdown, result.MaxDrawdownPct = stats.MaxDrawdown(equity)
	return result
}

// profitFactor is gross wins over gross losses: 0 with no trades or no wins,
// +Inf with wins and zero losses.
func profitFactor(winSum, lossSum decimal.Decimal) float64 {
	if lossSum.IsZero() {
		if winSum.IsPositive() {
			return math.Inf(1)
		}
		return 0
	}
	pf, _ := winSum.Div(lossSum).Float64()
	return pf
}
