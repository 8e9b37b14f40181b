package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/backtest"
	"algo-trading-engine/config"
	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
	"algo-trading-engine/exchange"
	"algo-trading-engine/marketdata"
	"algo-trading-engine/metrics"
	"algo-trading-engine/optimizer"
	"algo-trading-engine/strategy"
	"algo-trading-engine/stream"
	"algo-trading-engine/trader"
)

// smaCrossStrategy is the demo strategy the runner ships with: long when the
// fast moving average crosses above the slow one, close on the cross down.
type smaCrossStrategy struct {
	strategy.Base
}

func newSMACross(name string, params strategy.Params) strategy.Strategy {
	return &smaCrossStrategy{Base: strategy.NewBase(name, params)}
}

func (s *smaCrossStrategy) RequiredHistoryLength() int {
	return int(s.Params.Get("slow_period", 20))
}

func (s *smaCrossStrategy) GenerateSignal(bar domain.MarketData, history []domain.MarketData, current *domain.Position) (domain.Signal, error) {
	fast := int(s.Params.Get("fast_period", 5))
	slow := int(s.Params.Get("slow_period", 20))
	if len(history) < slow {
		return domain.Hold(bar), nil
	}

	fastMA := sma(history, bar, fast)
	slowMA := sma(history, bar, slow)

	switch {
	case current == nil && fastMA.GreaterThan(slowMA):
		return domain.Signal{
			Type: domain.SignalBuy, Strength: 1,
			Price: bar.Price(), Timestamp: bar.Timestamp,
		}, nil
	case current != nil && current.IsOpen() && fastMA.LessThan(slowMA):
		return domain.Signal{
			Type: domain.SignalClose, Strength: 1,
			Price: bar.Price(), Timestamp: bar.Timestamp,
		}, nil
	}
	return domain.Hold(bar), nil
}

// sma averages the last n closes including the current bar.
func sma(history []domain.MarketData, bar domain.MarketData, n int) decimal.Decimal {
	sum := bar.Price()
	count := 1
	for i := len(history) - 1; i >= 0 && count < n; i-- {
		sum = sum.Add(history[i].Close)
		count++
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	runBacktest := flag.Bool("backtest", false, "run a backtest over the configured data file and exit")
	runSweep := flag.Bool("optimize", false, "run a parameter sweep over the configured data file and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry := strategy.NewRegistry()
	registry.Register("sma_cross", newSMACross)

	switch {
	case *runBacktest:
		err = backtestMain(cfg, registry, logger)
	case *runSweep:
		err = optimizeMain(cfg, registry, logger)
	default:
		err = tradeMain(cfg, registry, logger)
	}
	if err != nil {
		logger.Fatal("❌ run failed", zap.Error(err))
	}
}

// loadConfig reads the YAML file when present and falls back to the built-in
// defaults with the demo strategy so the binary runs out of the box.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := config.Default()
		if err != nil {
			return nil, err
		}
		cfg.Engine.Strategy = "sma_cross"
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func loadData(cfg *config.Config, logger *zap.Logger) ([]domain.MarketData, error) {
	if cfg.Backtest.DataFile == "" {
		return nil, fmt.Errorf("backtest.data_file is not configured")
	}
	bars, err := marketdata.LoadCSV(cfg.Backtest.DataFile)
	if err != nil {
		return nil, err
	}
	if err := marketdata.ValidateBars(bars); err != nil {
		return nil, err
	}
	logger.Info("📊 loaded market data",
		zap.String("file", cfg.Backtest.DataFile),
		zap.Int("bars", len(bars)))
	return bars, nil
}

func buildEngine(cfg *config.Config, logger *zap.Logger) *backtest.Engine {
	engine := backtest.New(cfg.InitialCapital(),
		costs.NewFixedFee(cfg.Costs.FeeRate),
		costs.NewFixedSlippage(cfg.Costs.SlippageRate),
		logger)
	engine.PositionSizePct = decimal.NewFromFloat(cfg.Backtest.PositionSizePct)
	return engine
}

func backtestMain(cfg *config.Config, registry *strategy.Registry, logger *zap.Logger) error {
	bars, err := loadData(cfg, logger)
	if err != nil {
		return err
	}
	strat, err := registry.Create(cfg.Engine.Strategy, cfg.Engine.Parameters)
	if err != nil {
		return err
	}

	result, err := buildEngine(cfg, logger).Run(strat, bars)
	if err != nil {
		return err
	}

	logger.Info("✅ backtest finished",
		zap.Int("trades", result.TotalTrades),
		zap.Float64("win_rate", result.WinRate),
		zap.String("total_return", result.TotalReturn.StringFixed(2)),
		zap.Float64("total_return_pct", result.TotalReturnPct),
		zap.Float64("sharpe", result.SharpeRatio),
		zap.Float64("max_drawdown_pct", result.MaxDrawdownPct),
		zap.Float64("profit_factor", result.ProfitFactor))

	analysis := optimizer.AnalyzeWeaknesses(result)
	for i, weakness := range analysis.Weaknesses {
		logger.Warn("⚠️ weakness found",
			zap.String("weakness", weakness),
			zap.String("recommendation", analysis.Recommendations[i]))
	}
	return nil
}

func optimizeMain(cfg *config.Config, registry *strategy.Registry, logger *zap.Logger) error {
	bars, err := loadData(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := registry.Create(cfg.Engine.Strategy, nil); err != nil {
		return err
	}
	factory := func(name string, params strategy.Params) strategy.Strategy {
		strat, _ := registry.Create(name, params)
		return strat
	}

	grid := optimizer.Grid{
		"fast_period": {3, 5, 8},
		"slow_period": {15, 20, 30},
	}
	opt := optimizer.New(buildEngine(cfg, logger), optimizer.ObjectiveSharpe, logger)
	result, err := opt.Optimize(factory, cfg.Engine.Strategy, bars, grid)
	if err != nil {
		return err
	}

	logger.Info("🏆 sweep finished",
		zap.Float64("best_score", result.BestScore),
		zap.Any("best_parameters", result.BestParameters),
		zap.Int("combinations_tested", len(result.AllResults)))
	return nil
}

// exchangeVenue wires the paper venue over the replayed feed. Live venue
// adapters plug in here once a real exchange client exists.
func exchangeVenue(cfg *config.Config, source exchange.PriceSource, fee costs.FeeModel, slip costs.SlippageModel, logger *zap.Logger) exchange.Venue {
	return exchange.NewPaperVenue(cfg.InitialCapital(), source, fee, slip, logger)
}

func tradeMain(cfg *config.Config, registry *strategy.Registry, logger *zap.Logger) error {
	bars, err := loadData(cfg, logger)
	if err != nil {
		return err
	}
	strat, err := registry.Create(cfg.Engine.Strategy, cfg.Engine.Parameters)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		go func() {
			logger.Info("📈 metrics listening", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, promhttp.Handler()); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	feed := marketdata.NewReplayFeed(bars)
	fee := costs.NewFixedFee(cfg.Costs.FeeRate)
	slip := costs.NewFixedSlippage(cfg.Costs.SlippageRate)
	venue := exchangeVenue(cfg, feed, fee, slip, logger)

	tcfg := trader.DefaultConfig()
	tcfg.Symbol = cfg.Engine.Symbol
	tcfg.Mode = trader.Mode(cfg.Engine.Mode)
	tcfg.Strategy = strat
	tcfg.Venue = venue
	tcfg.TickInterval = cfg.Engine.TickInterval
	tcfg.HeartbeatInterval = cfg.Engine.HeartbeatInterval
	tcfg.MaxHistory = cfg.Engine.MaxHistory
	tcfg.EvalTimeout = cfg.Engine.EvalTimeout
	tcfg.AutoTrading = cfg.Engine.AutoTrading
	tcfg.InitialCapital = cfg.InitialCapital()
	tcfg.Limits = cfg.Risk
	tcfg.Fee = fee
	tcfg.Slippage = slip
	tcfg.Metrics = m

	t, err := trader.New(tcfg, logger)
	if err != nil {
		return err
	}

	reg := trader.NewRegistry()
	if err := reg.Add(t); err != nil {
		return err
	}

	if cfg.Stream.Enabled {
		hub := stream.NewHub(logger)
		defer hub.Close()
		reg.Subscribe(hub)
		go func() {
			logger.Info("🔌 event stream listening", zap.String("addr", cfg.Stream.Addr))
			if err := http.ListenAndServe(cfg.Stream.Addr, hub); err != nil {
				logger.Error("stream server stopped", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := t.Start(ctx); err != nil {
		return err
	}

	logger.Info("✅ trading engine is live, press Ctrl+C to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("🛑 shutdown signal received")
	return reg.StopAll()
}
