package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"algo-trading-engine/backtest"
	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
	"algo-trading-engine/exchange"
	"algo-trading-engine/marketdata"
	"algo-trading-engine/optimizer"
	"algo-trading-engine/strategy"
	"algo-trading-engine/trader"
)

// trendBars builds an hourly series that rises, then falls, so the moving
// average cross fires one full round trip.
func trendBars() []domain.MarketData {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 0, 90)
	p := 100.0
	for i := 0; i < 40; i++ {
		p += 1.2
		prices = append(prices, p)
	}
	for i := 0; i < 50; i++ {
		p -= 1.0
		prices = append(prices, p)
	}

	bars := make([]domain.MarketData, len(prices))
	for i, px := range prices {
		d := decimal.NewFromFloat(px)
		bars[i] = domain.MarketData{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      d,
			High:      d.Add(decimal.NewFromFloat(0.5)),
			Low:       d.Sub(decimal.NewFromFloat(0.5)),
			Close:     d,
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return bars
}

func TestCompleteSystem(t *testing.T) {
	logger := zap.NewNop()
	bars := trendBars()

	t.Log("📊 Running SMA cross backtest over synthetic trend data...")
	engine := backtest.New(decimal.NewFromInt(10000),
		costs.NewFixedFee(0.001), costs.NewFixedSlippage(0.0005), logger)

	strat := newSMACross("sma_cross", strategy.Params{"fast_period": 3, "slow_period": 8})
	result, err := engine.Run(strat, bars)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.TotalTrades, 1, "the trend should produce at least one round trip")
	assert.NotEmpty(t, result.EquityCurve)
	t.Logf("✅ backtest done: %d trades, return %s", result.TotalTrades, result.TotalReturn.StringFixed(2))

	t.Log("🔍 Analyzing result weaknesses...")
	analysis := optimizer.AnalyzeWeaknesses(result)
	assert.Len(t, analysis.Recommendations, len(analysis.Weaknesses))

	t.Log("🏆 Running a small parameter sweep...")
	registry := strategy.NewRegistry()
	registry.Register("sma_cross", newSMACross)
	factory := func(name string, params strategy.Params) strategy.Strategy {
		s, _ := registry.Create(name, params)
		return s
	}
	opt := optimizer.New(engine, optimizer.ObjectiveSharpe, logger)
	sweep, err := opt.Optimize(factory, "sma_cross", bars, optimizer.Grid{
		"fast_period": {3, 5},
		"slow_period": {8, 12},
	})
	require.NoError(t, err)
	assert.Len(t, sweep.AllResults, 4)
	assert.NotEmpty(t, sweep.BestParameters)

	t.Log("🚀 Running the paper trader over a replayed feed...")
	feed := marketdata.NewReplayFeed(bars)
	venue := exchange.NewPaperVenue(decimal.NewFromInt(10000), feed,
		costs.NewFixedFee(0.001), costs.NewFixedSlippage(0.0005), logger)

	tcfg := trader.DefaultConfig()
	tcfg.Symbol = "BTCUSDT"
	tcfg.Strategy = newSMACross("sma_cross", strategy.Params{"fast_period": 3, "slow_period": 8})
	tcfg.Venue = venue
	tcfg.TickInterval = 5 * time.Millisecond
	tcfg.HeartbeatInterval = time.Second

	tr, err := trader.New(tcfg, logger)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if tr.Status().TradeCount >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, tr.Stop())

	status := tr.Status()
	assert.False(t, status.Running)
	assert.GreaterOrEqual(t, status.TradeCount, 2, "the replayed trend should open and close a position")
	assert.Greater(t, status.SignalCount, 0)
	t.Logf("✅ paper run done: %d signals, %d trades", status.SignalCount, status.TradeCount)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := loadConfig("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sma_cross", cfg.Engine.Strategy)
	assert.Equal(t, "paper", cfg.Engine.Mode)
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.InitialCapital()))
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	body := []byte("engine:\n  strategy: sma_cross\n  symbol: ETHUSDT\n  initial_capital: 25000\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Engine.Symbol)
	assert.True(t, decimal.NewFromInt(25000).Equal(cfg.InitialCapital()))
}

func TestSMACrossSignals(t *testing.T) {
	strat := newSMACross("sma_cross", strategy.Params{"fast_period": 2, "slow_period": 3})
	bars := trendBars()

	sig, err := strat.GenerateSignal(bars[10], bars[:10], nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalBuy, sig.Type, "a rising series should signal entry")

	short := bars[:2]
	sig, err = strat.GenerateSignal(bars[2], short, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalHold, sig.Type, "insufficient history holds")

	pos := &domain.Position{
		Side:       domain.SignalBuy,
		EntryPrice: decimal.NewFromInt(140),
		Size:       decimal.NewFromInt(1),
		EntryTime:  bars[60].Timestamp,
	}
	sig, err = strat.GenerateSignal(bars[70], bars[:70], pos)
	require.NoError(t, err)
	assert.Equal(t, domain.SignalClose, sig.Type, "a falling series should close the long")
}
