package optimizer

import (
	"fmt"

	"algo-trading-engine/domain"
)

// DrawdownSeverity grades the maximum drawdown of a backtest.
type DrawdownSeverity string

const (
	SeverityLow      DrawdownSeverity = "low"
	SeverityMedium   DrawdownSeverity = "medium"
	SeverityHigh     DrawdownSeverity = "high"
	SeverityCritical DrawdownSeverity = "critical"
)

// WeaknessAnalysis summarizes the structural problems found in a backtest
// result, with human-readable findings and suggested fixes.
type WeaknessAnalysis struct {
	HighDrawdown      bool             `json:"high_drawdown"`
	DrawdownSeverity  DrawdownSeverity `json:"drawdown_severity"`
	WhipsawSignals    bool             `json:"whipsaw_signals"`
	SlippageSensitive bool             `json:"slippage_sensitive"`
	LowWinRate        bool             `json:"low_win_rate"`
	PoorProfitFactor  bool             `json:"poor_profit_factor"`
	Weaknesses        []string         `json:"weaknesses"`
	Recommendations   []string         `json:"recommendations"`
}

// AnalyzeWeaknesses inspects a backtest result for common strategy defects:
// deep drawdowns, low win rate, poor profit factor, whipsaw churn, slippage
// sensitivity and inverted risk/reward.
func AnalyzeWeaknesses(result *domain.BacktestResult) WeaknessAnalysis {
	a := WeaknessAnalysis{DrawdownSeverity: SeverityLow}

	switch {
	case result.MaxDrawdownPct > 40:
		a.DrawdownSeverity = SeverityCritical
	case result.MaxDrawdownPct > 25:
		a.DrawdownSeverity = SeverityHigh
	case result.MaxDrawdownPct > 15:
		a.DrawdownSeverity = SeverityMedium
	}
	if result.MaxDrawdownPct > 20 {
		a.HighDrawdown = true
		a.add(fmt.Sprintf("High max drawdown: %.2f%%", result.MaxDrawdownPct),
			"Consider tighter stop-loss or position sizing limits")
	}

	if result.WinRate < 0.40 {
		a.LowWinRate = true
		a.add(fmt.Sprintf("Low win rate: %.1f%%", result.WinRate*100),
			"Consider improving entry signal quality or adding filters")
	}

	if result.ProfitFactor < 1.2 && result.TotalTrades > 0 {
		a.PoorProfitFactor = true
		a.add(fmt.Sprintf("Poor profit factor: %.2f", result.ProfitFactor),
			"Work on improving risk/reward ratio (stop-loss vs take-profit)")
	}

	if result.AvgTradeDuration < 1.0 && result.TotalTrades > 20 {
		a.WhipsawSignals = true
		a.add(fmt.Sprintf("Potential whipsaws: avg trade duration only %.2f hours", result.AvgTradeDuration),
			"Add trend filter or increase signal confirmation requirements")
	}

	if result.TotalTrades > 50 && result.TotalReturnPct < 5 {
		a.SlippageSensitive = true
		a.add(fmt.Sprintf("High trade frequency (%d trades) with low returns", result.TotalTrades),
			"Reduce trade frequency or improve signal quality")
	}

	if result.TotalTrades == 0 {
		a.add("No trades executed, strategy may be too conservative",
			"Check entry conditions and ensure signals are being generated")
	}

	if result.WinningTrades > 0 && result.AvgLoss.IsPositive() {
		rr, _ := result.AvgWin.Div(result.AvgLoss).Float64()
		if rr < 1.0 {
			a.add(fmt.Sprintf("Poor risk/reward ratio: %.2f", rr),
				"Consider wider take-profit targets relative to stop-loss")
		}
	}

	return a
}

func (a *WeaknessAnalysis) add(weakness, recommendation string) {
	a.Weaknesses = append(a.Weaknesses, weakness)
	a.Recommendations = append(a.Recommendations, recommendation)
}
