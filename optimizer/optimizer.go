// Package optimizer sweeps strategy parameter grids through the backtest
// engine and picks the best-scoring combination. It also analyzes a finished
// backtest for structural weaknesses.
package optimizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"algo-trading-engine/backtest"
	"algo-trading-engine/domain"
	"algo-trading-engine/strategy"
)

// Objective selects which metric a sweep maximizes.
type Objective string

const (
	ObjectiveSharpe       Objective = "sharpe_ratio"
	ObjectiveTotalReturn  Objective = "total_return_pct"
	ObjectiveProfitFactor Objective = "profit_factor"
	ObjectiveWinRate      Objective = "win_rate"
)

// ErrNoValidCombination is returned when every combination in the grid
// failed or was filtered out by constraints.
var ErrNoValidCombination = errors.New("no valid parameter combinations found")

// Grid maps parameter names to the candidate values to test. The sweep runs
// the cartesian product of all values.
type Grid map[string][]float64

// Constraint filters a backtest result; a sweep only keeps combinations for
// which every constraint returns true.
type Constraint func(*domain.BacktestResult) bool

// Optimizer runs grid searches against one backtest engine.
type Optimizer struct {
	engine    *backtest.Engine
	objective Objective
	logger    *zap.Logger
}

// New builds an optimizer. An empty objective defaults to Sharpe.
func New(engine *backtest.Engine, objective Objective, logger *zap.Logger) *Optimizer {
	if objective == "" {
		objective = ObjectiveSharpe
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{engine: engine, objective: objective, logger: logger}
}

// Optimize sweeps the grid, instantiating the strategy through the factory
// for each combination. Combinations whose backtest fails are skipped; the
// sweep fails only when nothing valid remains.
func (o *Optimizer) Optimize(factory strategy.Factory, name string, data []domain.MarketData, grid Grid) (*domain.OptimizationResult, error) {
	return o.run(factory, name, data, grid, nil)
}

// OptimizeWithConstraints is Optimize with result filters: combinations
// whose backtest fails any constraint are discarded before scoring.
func (o *Optimizer) OptimizeWithConstraints(factory strategy.Factory, name string, data []domain.MarketData, grid Grid, constraints []Constraint) (*domain.OptimizationResult, error) {
	return o.run(factory, name, data, grid, constraints)
}

func (o *Optimizer) run(factory strategy.Factory, name string, data []domain.MarketData, grid Grid, constraints []Constraint) (*domain.OptimizationResult, error) {
	combos := grid.Combinations()
	o.logger.Info("starting parameter sweep",
		zap.String("strategy", name),
		zap.String("objective", string(o.objective)),
		zap.Int("combinations", len(combos)))

	best := &domain.OptimizationResult{BestScore: math.Inf(-1)}
	for _, params := range combos {
		strat := factory(name, params)
		result, err := o.engine.Run(strat, data)
		if err != nil {
			o.logger.Warn("combination failed, skipping",
				zap.Any("params", params), zap.Error(err))
			continue
		}
		if !meetsAll(result, constraints) {
			continue
		}

		score, err := Score(result, o.objective)
		if err != nil {
			return nil, err
		}
		best.AllResults = append(best.AllResults, domain.SweepResult{
			Parameters: params,
			Result:     result,
		})
		if score > best.BestScore {
			best.BestScore = score
			best.BestParameters = params
			best.BestBacktest = result
		}
	}

	if best.BestBacktest == nil {
		return nil, ErrNoValidCombination
	}
	o.logger.Info("sweep finished",
		zap.Float64("best_score", best.BestScore),
		zap.Any("best_params", best.BestParameters))
	return best, nil
}

func meetsAll(result *domain.BacktestResult, constraints []Constraint) bool {
	for _, c := range constraints {
		if !c(result) {
			return false
		}
	}
	return true
}

// Score extracts the objective metric from a result.
func Score(result *domain.BacktestResult, objective Objective) (float64, error) {
	switch objective {
	case ObjectiveSharpe:
		return result.SharpeRatio, nil
	case ObjectiveTotalReturn:
		return result.TotalReturnPct, nil
	case ObjectiveProfitFactor:
		return result.ProfitFactor, nil
	case ObjectiveWinRate:
		return result.WinRate, nil
	default:
		return 0, fmt.Errorf("unknown objective: %s", objective)
	}
}

// Combinations expands the grid into its cartesian product. Parameter names
// are iterated in sorted order so the output order is deterministic.
func (g Grid) Combinations() []strategy.Params {
	if len(g) == 0 {
		return nil
	}
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []strategy.Params{{}}
	for _, name := range names {
		values := g[name]
		next := make([]strategy.Params, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				p := base.Clone()
				p[name] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}
