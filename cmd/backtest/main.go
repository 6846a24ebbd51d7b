// Command backtest runs a single-symbol, single-strategy tick backtest (or,
// with -optimize, a parameter sweep over the Dual-MA strategy) and prints
// the resulting performance report.
//
// Architecture:
//
//	main.go                      — entry point: loads config, loads ticks, runs engine or optimizer
//	internal/datasource          — loads raw tick rows from a local CSV file or a remote CSV endpoint
//	internal/cleansing           — validates/cleanses raw rows into types.Tick, flags anomalies
//	internal/indicators          — moving averages feeding the strategy
//	internal/strategy/dualma.go  — short/long MA crossover signal generation
//	internal/risk/manager.go     — capital, throttle, position, and drawdown checks before every order
//	internal/gateway             — Simple and L1 order-book-aware fill simulation
//	internal/warmup              — holds back orders until enough bars have accumulated
//	internal/emergency           — process-wide halt flag; while set, the engine closes its position instead of trading
//	internal/eventbus             — publishes tick/signal/order/account events, drives timers
//	internal/latency             — tracks per-tick processing latency
//	internal/persistence         — SQLite sink for trades, account snapshots, and positions
//	internal/engine               — orchestrates one backtest run end to end
//	internal/optimizer            — sweeps strategy parameters across concurrent backtests
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"aegisgo/internal/cleansing"
	"aegisgo/internal/config"
	"aegisgo/internal/dashboard"
	"aegisgo/internal/datasource"
	"aegisgo/internal/engine"
	"aegisgo/internal/gateway"
	"aegisgo/internal/optimizer"
	"aegisgo/internal/persistence"
	"aegisgo/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("AEGIS_CONFIG"); p != "" {
		cfgPath = p
	}

	var optimize bool
	flag.StringVar(&cfgPath, "config", cfgPath, "path to config YAML")
	flag.BoolVar(&optimize, "optimize", false, "run a parameter sweep instead of a single backtest")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	ticks, report, err := loadTicks(cfg)
	if err != nil {
		logger.Error("failed to load tick data", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded ticks",
		"total", report.TotalTicks, "valid", report.ValidTicks,
		"invalid", report.InvalidTicks, "anomalies", report.AnomalyTicks,
	)

	if optimize {
		runOptimize(cfg, logger, ticks, report)
		return
	}
	runSingle(cfg, logger, ticks, report)
}

func loadTicks(cfg *config.Config) ([]types.Tick, types.DataQualityReport, error) {
	var src datasource.Source
	if cfg.Data.RemoteURL != "" {
		src = datasource.NewRemoteSource(cfg.Data.RemoteURL, cfg.Data.RemoteTimeout)
	} else {
		src = datasource.NewFileSource(cfg.Data.FilePath)
	}

	rows, err := src.Load(context.Background())
	if err != nil {
		return nil, types.DataQualityReport{}, fmt.Errorf("load rows: %w", err)
	}

	ticks, report := cleansing.Cleanse(rows)
	ticks, _ = cleansing.CleanAdvanced(ticks, cleansing.PipelineConfig{
		OutlierZScoreThreshold: cfg.Data.OutlierZScoreThreshold,
		FillMissing:            cfg.Data.FillMissing,
		AdjustPrices:           cfg.Data.AdjustPrices,
	})

	return ticks, report, nil
}

func strategyParams(c config.StrategyConfig) types.StrategyParams {
	return types.StrategyParams{
		ShortMAPeriod: c.ShortMAPeriod,
		LongMAPeriod:  c.LongMAPeriod,
		PositionSize:  c.PositionSize,
		StopLossPct:   c.StopLossPct,
		TakeProfitPct: c.TakeProfitPct,
		WarmupBars:    c.WarmupBars,
	}
}

func riskConfig(c config.RiskConfig) types.RiskConfig {
	return types.RiskConfig{
		MaxOrderRate:    c.MaxOrderRate,
		MaxPositionSize: c.MaxPositionSize,
		MaxOrderValue:   c.MaxOrderValue,
		MaxDrawdownPct:  c.MaxDrawdownPct,
	}
}

func slippageModel(c config.GatewayConfig) gateway.SlippageModel {
	return gateway.SlippageModel{
		BaseSlippage: c.L1BaseSlippage,
		ImpactFactor: c.L1ImpactFactor,
		MaxSlippage:  c.L1MaxSlippage,
	}
}

func gatewayMode(mode string) engine.GatewayMode {
	if mode == "l1" {
		return engine.ModeL1
	}
	return engine.ModeSimple
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Symbol:         cfg.Symbol,
		Strategy:       strategyParams(cfg.Strategy),
		Risk:           riskConfig(cfg.Risk),
		InitialBalance: cfg.Gateway.InitialBalance,
		GatewayMode:    gatewayMode(cfg.Gateway.Mode),
		Slippage:       cfg.Gateway.Slippage,
		SlippageModel:  slippageModel(cfg.Gateway),
		L1FillRatio:    cfg.Gateway.L1FillRatio,
		CommissionRate: cfg.Gateway.CommissionRate,
		LatencySample:  cfg.Gateway.LatencySampleRate,
	}
}

func runSingle(cfg *config.Config, logger *slog.Logger, ticks []types.Tick, report types.DataQualityReport) {
	var store *persistence.Store
	if cfg.Persistence.Enabled {
		s, err := persistence.Open(cfg.Persistence.DBPath)
		if err != nil {
			logger.Error("failed to open persistence store", "error", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	eng := engine.New(engineConfig(cfg), logger, store)
	eng.LoadTicks(ticks, report)

	var dashServer *dashboard.Server
	if cfg.Dashboard.Enabled {
		events := eng.Bus().Subscribe(types.AllEvents())
		dashServer = dashboard.NewServer(cfg.Dashboard, eng, cfg.Symbol, *cfg, events.C, logger)
		go func() {
			if err := dashServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	result, err := eng.Run(context.Background())
	if dashServer != nil {
		dashServer.Stop()
	}
	if err != nil {
		logger.Error("backtest failed", "error", err)
		os.Exit(1)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}

func runOptimize(cfg *config.Config, logger *slog.Logger, ticks []types.Tick, report types.DataQualityReport) {
	opt := optimizer.New(riskConfig(cfg.Risk), logger)
	opt.InitialBalance = cfg.Gateway.InitialBalance
	opt.Symbol = cfg.Symbol
	opt.GatewayMode = gatewayMode(cfg.Gateway.Mode)
	opt.Slippage = cfg.Gateway.Slippage
	opt.CommissionRate = cfg.Gateway.CommissionRate
	opt.SlippageModel = slippageModel(cfg.Gateway)

	results, err := opt.RunSweep(context.Background(), ticks, report, optimizer.DefaultParameterRange())
	if err != nil {
		logger.Error("optimization sweep failed", "error", err)
		os.Exit(1)
	}

	optimizer.SortBySharpe(results)
	logger.Info("sweep complete", "combinations", len(results))

	for i, r := range results {
		if i >= 10 {
			break
		}
		fmt.Printf("short=%d long=%d sharpe=%.3f return_pct=%.2f max_dd_pct=%.2f\n",
			r.Params.ShortMAPeriod, r.Params.LongMAPeriod, r.Result.SharpeRatio, r.Result.TotalReturnPct, r.Result.MaxDrawdownPct)
	}
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
