// Package optimizer runs a parameter sweep over the Dual-MA strategy by
// driving many independent engine.Engine runs concurrently. Grounded on
// Optimizer in original_source/aegisquant-core/src/optimizer.rs, which uses
// Rayon's par_iter to fan a combination list out across CPU cores; this
// package reaches for the same shape with golang.org/x/sync/errgroup, the
// bounded-worker-pool idiom the pack uses wherever concurrent fan-out with a
// shared error path is needed.
package optimizer

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"aegisgo/internal/engine"
	"aegisgo/internal/gateway"
	"aegisgo/pkg/types"
)

// Range describes a (start, end, step) sweep for one parameter, matching
// ParameterRange in optimizer.rs.
type Range struct {
	Start, End, Step int
}

// PositionSizeRange is the optional float sweep over position size.
type PositionSizeRange struct {
	Start, End, Step float64
	Enabled          bool
}

// ParameterRange bounds the combinations the sweep tries. Defaults mirror
// ParameterRange::default in optimizer.rs.
type ParameterRange struct {
	ShortMA      Range
	LongMA       Range
	PositionSize PositionSizeRange
}

func DefaultParameterRange() ParameterRange {
	return ParameterRange{
		ShortMA: Range{Start: 3, End: 10, Step: 1},
		LongMA:  Range{Start: 10, End: 30, Step: 2},
	}
}

// Result pairs the strategy parameters that produced a backtest with its
// result, matching OptimizationResult in optimizer.rs.
type Result struct {
	Params types.StrategyParams
	Result types.BacktestResult
}

// Optimizer sweeps StrategyParams combinations against one fixed tick
// series and risk configuration, running each combination's backtest
// concurrently. Unlike the teacher's market-making bot (one long-lived
// process per market), every run here is a short, independent, in-memory
// backtest, so the pool is sized off GOMAXPROCS rather than a fixed worker
// count.
type Optimizer struct {
	RiskConfig     types.RiskConfig
	InitialBalance float64
	Symbol         string
	GatewayMode    engine.GatewayMode
	Slippage       float64
	SlippageModel  gateway.SlippageModel
	CommissionRate float64
	Concurrency    int

	logger *slog.Logger
}

func New(riskCfg types.RiskConfig, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		RiskConfig:     riskCfg,
		InitialBalance: 100_000.0,
		Symbol:         "BTCUSDT",
		SlippageModel:  gateway.DefaultSlippageModel(),
		Concurrency:    runtime.GOMAXPROCS(0),
		logger:         logger.With("component", "optimizer"),
	}
}

// GenerateCombinations enumerates every (short, long[, position_size])
// combination in range with short < long, mirroring generate_combinations
// in optimizer.rs.
func (o *Optimizer) GenerateCombinations(r ParameterRange) []types.StrategyParams {
	var combos []types.StrategyParams
	for short := r.ShortMA.Start; short <= r.ShortMA.End; short += r.ShortMA.Step {
		for long := r.LongMA.Start; long <= r.LongMA.End; long += r.LongMA.Step {
			if short >= long {
				continue
			}
			sizes := []float64{100.0}
			if r.PositionSize.Enabled {
				sizes = sizes[:0]
				for ps := r.PositionSize.Start; ps <= r.PositionSize.End; ps += r.PositionSize.Step {
					sizes = append(sizes, ps)
				}
			}
			for _, size := range sizes {
				combos = append(combos, types.StrategyParams{
					ShortMAPeriod: short,
					LongMAPeriod:  long,
					PositionSize:  size,
					StopLossPct:   0.02,
					TakeProfitPct: 0.05,
				})
			}
		}
	}
	return combos
}

// RunSweep runs one backtest per combination concurrently and returns a
// Result per combination that produced data, in the same order as
// combinations — so, unlike optimizer.rs's Rayon-ordered-but-unspecified
// output, results here are always index-stable and therefore fully
// deterministic regardless of goroutine scheduling order. A combination
// whose backtest fails is logged and left out; if ctx is cancelled, RunSweep
// returns ctx's error instead of results.
func (o *Optimizer) RunSweep(ctx context.Context, ticks []types.Tick, report types.DataQualityReport, r ParameterRange) ([]Result, error) {
	combos := o.GenerateCombinations(r)
	results := make([]*Result, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)

	for i, params := range combos {
		i, params := i, params
		g.Go(func() error {
			res, err := o.runSingle(gctx, params, ticks, report)
			if err != nil {
				o.logger.Warn("backtest failed", "short_ma", params.ShortMAPeriod, "long_ma", params.LongMAPeriod, "error", err)
				return nil
			}
			results[i] = &Result{Params: params, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (o *Optimizer) runSingle(ctx context.Context, params types.StrategyParams, ticks []types.Tick, report types.DataQualityReport) (types.BacktestResult, error) {
	eng := engine.New(engine.Config{
		Symbol:         o.Symbol,
		Strategy:       params,
		Risk:           o.RiskConfig,
		InitialBalance: o.InitialBalance,
		GatewayMode:    o.GatewayMode,
		Slippage:       o.Slippage,
		SlippageModel:  o.SlippageModel,
		CommissionRate: o.CommissionRate,
		LatencySample:  0,
	}, o.logger, nil)

	eng.LoadTicks(ticks, report)
	return eng.Run(ctx)
}

// SortBySharpe orders results descending by Sharpe ratio, matching
// sort_by_sharpe in optimizer.rs.
func SortBySharpe(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Result.SharpeRatio > results[j].Result.SharpeRatio
	})
}

// SortByReturn orders results descending by total return percentage.
func SortByReturn(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Result.TotalReturnPct > results[j].Result.TotalReturnPct
	})
}

// BestBySharpe returns the highest-Sharpe result, or nil if results is empty.
func BestBySharpe(results []Result) *Result {
	if len(results) == 0 {
		return nil
	}
	best := &results[0]
	for i := range results[1:] {
		if results[i+1].Result.SharpeRatio > best.Result.SharpeRatio {
			best = &results[i+1]
		}
	}
	return best
}

// BestByReturn returns the highest total-return result, or nil if results is empty.
func BestByReturn(results []Result) *Result {
	if len(results) == 0 {
		return nil
	}
	best := &results[0]
	for i := range results[1:] {
		if results[i+1].Result.TotalReturnPct > best.Result.TotalReturnPct {
			best = &results[i+1]
		}
	}
	return best
}
