package optimizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"algo-trading-engine/domain"
)

func TestAnalyzeWeaknessesHealthyResult(t *testing.T) {
	r := &domain.BacktestResult{
		TotalTrades:      30,
		WinningTrades:    18,
		WinRate:          0.6,
		ProfitFactor:     2.1,
		MaxDrawdownPct:   8,
		TotalReturnPct:   25,
		AvgTradeDuration: 12,
		AvgWin:           decimal.NewFromInt(30),
		AvgLoss:          decimal.NewFromInt(15),
	}
	a := AnalyzeWeaknesses(r)

	assert.Empty(t, a.Weaknesses)
	assert.Equal(t, SeverityLow, a.DrawdownSeverity)
	assert.False(t, a.HighDrawdown)
}

func TestAnalyzeWeaknessesDrawdownSeverity(t *testing.T) {
	for pct, want := range map[float64]DrawdownSeverity{
		10: SeverityLow,
		18: SeverityMedium,
		30: SeverityHigh,
		45: SeverityCritical,
	} {
		r := &domain.BacktestResult{MaxDrawdownPct: pct, WinRate: 0.5, TotalTrades: 10, ProfitFactor: 1.5, AvgTradeDuration: 5}
		a := AnalyzeWeaknesses(r)
		assert.Equal(t, want, a.DrawdownSeverity, "pct=%v", pct)
		assert.Equal(t, pct > 20, a.HighDrawdown, "pct=%v", pct)
	}
}

func TestAnalyzeWeaknessesFlagsEverything(t *testing.T) {
	r := &domain.BacktestResult{
		TotalTrades:      60,
		WinningTrades:    15,
		WinRate:          0.25,
		ProfitFactor:     0.9,
		MaxDrawdownPct:   35,
		TotalReturnPct:   2,
		AvgTradeDuration: 0.5,
		AvgWin:           decimal.NewFromInt(10),
		AvgLoss:          decimal.NewFromInt(20),
	}
	a := AnalyzeWeaknesses(r)

	assert.True(t, a.HighDrawdown)
	assert.True(t, a.LowWinRate)
	assert.True(t, a.PoorProfitFactor)
	assert.True(t, a.WhipsawSignals)
	assert.True(t, a.SlippageSensitive)
	assert.Equal(t, SeverityHigh, a.DrawdownSeverity)
	assert.Len(t, a.Weaknesses, len(a.Recommendations))
	assert.GreaterOrEqual(t, len(a.Weaknesses), 6)
}

func TestAnalyzeWeaknessesNoTrades(t *testing.T) {
	a := AnalyzeWeaknesses(&domain.BacktestResult{})
	assert.Contains(t, a.Weaknesses[len(a.Weaknesses)-1], "No trades")
}
