// Package engine orchestrates one backtest run: it wires data, strategy,
// risk, gateway, warmup, the event bus, the emergency halt, and latency
// tracking into a single per-tick loop. Grounded on
// original_source/aegisquant-core/src/engine.rs's BacktestEngine
// (process_tick, run, calculate_max_drawdown, calculate_sharpe_ratio, all
// carried over near verbatim) and on the teacher's
// internal/engine/engine.go for the construction/Run shape (config struct
// in, slog logger threaded through, context-aware Run loop) — the teacher's
// per-market goroutine fan-out does not apply here since a backtest runs
// one symbol at a time, so this engine's loop is a single synchronous
// range over ticks instead of a goroutine pool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"aegisgo/internal/emergency"
	"aegisgo/internal/eventbus"
	"aegisgo/internal/gateway"
	"aegisgo/internal/latency"
	"aegisgo/internal/persistence"
	"aegisgo/internal/risk"
	"aegisgo/internal/strategy"
	"aegisgo/internal/warmup"
	"aegisgo/pkg/types"
)

var ErrNoData = errors.New("no data loaded")

// GatewayMode selects between Simple (fixed slippage) and L1 (book-depth)
// order execution.
type GatewayMode int

const (
	ModeSimple GatewayMode = iota
	ModeL1
)

// Config bundles everything needed to construct one Engine. SlippageModel
// is only consulted when GatewayMode is ModeL1; Slippage only when Simple.
type Config struct {
	Symbol         string
	Strategy       types.StrategyParams
	Risk           types.RiskConfig
	InitialBalance float64
	GatewayMode    GatewayMode
	Slippage       float64
	SlippageModel  gateway.SlippageModel
	L1FillRatio    float64 // only consulted when GatewayMode is ModeL1; 0 keeps the gateway's default
	CommissionRate float64
	LatencySample  int64 // 1 = sample every tick
}

// Engine runs one strategy over one tick stream for one symbol.
type Engine struct {
	cfg    Config
	runID  string
	logger *slog.Logger

	strategy *strategy.DualMA
	risk     *risk.Manager
	gw       gateway.Gateway
	warmup   *warmup.Manager
	bus      *eventbus.Bus
	timers   *eventbus.TimerManager
	lat      *latency.Tracker
	store    *persistence.Store // optional, nil if persistence is disabled

	ticks      []types.Tick
	dataReport types.DataQualityReport

	equityCurve []types.EquityPoint

	totalTrades, winningTrades, losingTrades int32
	firstTradeTimestamp                      int64
	haveFirstTrade                           bool
	emergencyOrdersSent                      bool
}

// New constructs an Engine. store may be nil to disable persistence.
func New(cfg Config, logger *slog.Logger, store *persistence.Store) *Engine {
	var gw gateway.Gateway
	switch cfg.GatewayMode {
	case ModeL1:
		l1 := gateway.NewL1(cfg.InitialBalance, cfg.SlippageModel, cfg.CommissionRate)
		if cfg.L1FillRatio > 0 {
			l1.SetFillRatio(cfg.L1FillRatio)
		}
		gw = l1
	default:
		gw = gateway.NewSimple(cfg.InitialBalance, cfg.Slippage, cfg.CommissionRate)
	}

	runID := uuid.NewString()
	bus := eventbus.NewBus()
	e := &Engine{
		cfg:      cfg,
		runID:    runID,
		logger:   logger.With("component", "engine", "symbol", cfg.Symbol, "run_id", runID),
		strategy: strategy.NewDualMA(cfg.Strategy),
		risk:     risk.NewManager(cfg.Risk, logger),
		gw:       gw,
		warmup:   warmup.NewManager(warmupBars(cfg.Strategy)),
		bus:      bus,
		timers:   eventbus.NewTimerManager(bus),
		lat:      latency.NewTracker(),
		store:    store,
	}
	e.lat.SetSampleRate(max64(cfg.LatencySample, 1))
	return e
}

// warmupBars resolves the bar count the warmup manager gates on. An explicit
// positive WarmupBars always wins. A WarmupBars of 0 (or negative) does not
// mean "no warmup" here: unlike warmup.NewManager's own zero-bars-means-
// instantly-warm rule, the engine falls back to the longer of the two
// strategy periods, since signal generation cannot produce anything
// meaningful before both moving averages are themselves ready. This means
// ActualStartBar reports that fallback value, not a literal 0, whenever
// WarmupBars is left at its zero default.
func warmupBars(p types.StrategyParams) int {
	if p.WarmupBars > 0 {
		return p.WarmupBars
	}
	if p.LongMAPeriod > p.ShortMAPeriod {
		return p.LongMAPeriod
	}
	return p.ShortMAPeriod
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Bus exposes the event bus so a dashboard or other observer can subscribe.
func (e *Engine) Bus() *eventbus.Bus { return e.bus }

// LoadTicks installs pre-cleansed ticks and their quality report, and
// (re)initializes the risk manager's equity baseline.
func (e *Engine) LoadTicks(ticks []types.Tick, report types.DataQualityReport) {
	e.ticks = ticks
	e.dataReport = report
	e.risk.Initialize(e.cfg.InitialBalance)
}

// ProcessTick advances the engine by one tick: update prices, advance the
// warmup gate, check the emergency halt, feed the strategy, and once warmup
// is complete risk-check and execute any resulting order, then record
// equity. The strategy sees every tick, so its moving averages fill during
// warmup. Mirrors process_tick in
// engine.rs, extended with the warmup/emergency/event-bus/latency
// components the expanded spec adds.
func (e *Engine) ProcessTick(tick types.Tick) error {
	stop := e.lat.Track()
	defer stop()

	e.gw.UpdatePrice(e.cfg.Symbol, tick.Price)
	e.bus.Publish(types.Event{Type: types.EventTick, Timestamp: tick.Timestamp, Tick: tick})
	e.timers.Advance(tick.Timestamp)

	warmedUp := e.warmup.Tick(tick.Timestamp)

	if emergency.IsHalted() {
		e.handleEmergencyHalt(tick)
	} else {
		e.runStrategy(tick, warmedUp)
	}

	account := e.gw.QueryAccount()
	e.equityCurve = append(e.equityCurve, types.EquityPoint{Timestamp: tick.Timestamp, Equity: account.Equity})
	e.risk.UpdateEquity(account.Equity)
	e.bus.Publish(types.Event{Type: types.EventAccountUpdate, Timestamp: tick.Timestamp, Account: account})

	return nil
}

func (e *Engine) runStrategy(tick types.Tick, warmedUp bool) {
	signal := e.strategy.OnTick(tick)
	if signal == strategy.SignalNone || !warmedUp {
		return
	}

	order, ok := e.strategy.GenerateOrder(e.cfg.Symbol, signal)
	if !ok {
		return
	}

	e.bus.Publish(types.Event{
		Type:            types.EventSignal,
		Timestamp:       tick.Timestamp,
		SignalSymbol:    e.cfg.Symbol,
		SignalDirection: order.Direction,
	})

	account := e.gw.QueryAccount()
	if err := e.risk.Check(order, account, tick.Price, time.UnixMilli(tick.Timestamp)); err != nil {
		e.logger.Debug("order rejected by risk manager", "err", err)
		return
	}

	orderID, err := e.gw.SubmitOrder(order, tick.Price, tick.Timestamp)
	if err != nil {
		e.logger.Debug("order rejected by gateway", "err", err)
		return
	}
	e.totalTrades++

	for _, fill := range e.gw.GetFills() {
		if !e.haveFirstTrade {
			e.firstTradeTimestamp = fill.Timestamp
			e.haveFirstTrade = true
		}
		e.classifyFill(fill)
		e.bus.Publish(types.Event{
			Type:           types.EventOrderUpdate,
			Timestamp:      fill.Timestamp,
			OrderID:        fmt.Sprintf("%d", orderID),
			OrderStatus:    types.OrderFilled,
			FilledQuantity: fill.Quantity,
			FillPrice:      fill.Price,
		})
		if e.store != nil {
			sessionDate := time.UnixMilli(fill.Timestamp).UTC().Format("2006-01-02")
			_ = e.store.SaveTrade(persistence.TradeRecord{
				Timestamp: fill.Timestamp,
				Symbol:    fill.Symbol,
				Direction: fill.Direction,
				Quantity:  fill.Quantity,
				Price:     fill.Price,
				PnL:       fill.RealizedDelta,
			}, sessionDate)
		}
	}
}

// classifyFill resolves SPEC_FULL.md's Open Question #1: a trade is a win
// or a loss based on the realized-PnL delta this specific fill produced,
// never by re-reading the position's cumulative realized PnL afterward.
func (e *Engine) classifyFill(fill types.Fill) {
	if fill.Direction != types.DirectionSell {
		return
	}
	switch {
	case fill.RealizedDelta > 0:
		e.winningTrades++
	case fill.RealizedDelta < 0:
		e.losingTrades++
	}
}

func (e *Engine) handleEmergencyHalt(tick types.Tick) {
	if e.emergencyOrdersSent {
		return
	}
	var positions []types.Position
	if pos, ok := e.gw.QueryPosition(e.cfg.Symbol); ok {
		positions = append(positions, pos)
	}
	closeOrders := emergency.GenerateCloseAllOrders(positions)
	for _, order := range closeOrders {
		if _, err := e.gw.SubmitOrder(order, tick.Price, tick.Timestamp); err != nil {
			e.logger.Warn("failed to close position during emergency halt", "err", err)
			continue
		}
		for _, fill := range e.gw.GetFills() {
			e.classifyFill(fill)
		}
	}
	e.emergencyOrdersSent = true
}

// Run resets per-run state (a fresh gateway account, the risk manager's
// baseline, equity curve, strategy, warmup, and counters) and processes
// every loaded tick, returning the aggregate BacktestResult.
func (e *Engine) Run(ctx context.Context) (types.BacktestResult, error) {
	if len(e.ticks) == 0 {
		return types.BacktestResult{}, ErrNoData
	}

	switch e.cfg.GatewayMode {
	case ModeL1:
		l1 := gateway.NewL1(e.cfg.InitialBalance, e.cfg.SlippageModel, e.cfg.CommissionRate)
		if e.cfg.L1FillRatio > 0 {
			l1.SetFillRatio(e.cfg.L1FillRatio)
		}
		e.gw = l1
	default:
		e.gw = gateway.NewSimple(e.cfg.InitialBalance, e.cfg.Slippage, e.cfg.CommissionRate)
	}
	e.risk.Initialize(e.cfg.InitialBalance)
	e.equityCurve = e.equityCurve[:0]
	e.strategy.Reset()
	e.warmup.Reset()
	e.totalTrades, e.winningTrades, e.losingTrades = 0, 0, 0
	e.haveFirstTrade = false
	e.emergencyOrdersSent = false

	for _, tick := range e.ticks {
		select {
		case <-ctx.Done():
			return types.BacktestResult{}, ctx.Err()
		default:
		}
		if err := e.ProcessTick(tick); err != nil {
			return types.BacktestResult{}, err
		}
	}

	account := e.gw.QueryAccount()
	finalEquity := account.Equity
	totalReturnPct := (finalEquity - e.cfg.InitialBalance) / e.cfg.InitialBalance * 100.0

	return types.BacktestResult{
		FinalEquity:         finalEquity,
		TotalReturnPct:      totalReturnPct,
		MaxDrawdownPct:      e.calculateMaxDrawdown(),
		SharpeRatio:         e.calculateSharpeRatio(),
		TotalTrades:         e.totalTrades,
		WinningTrades:       e.winningTrades,
		LosingTrades:        e.losingTrades,
		ActualStartBar:      int32(e.warmup.ActualStartBar()),
		FirstTradeTimestamp: e.firstTradeTimestamp,
	}, nil
}

// calculateMaxDrawdown walks the equity curve once, ratcheting a running
// peak and tracking the worst fractional drop from it, then reports it as
// a percentage. Mirrors calculate_max_drawdown in engine.rs exactly.
func (e *Engine) calculateMaxDrawdown() float64 {
	if len(e.equityCurve) == 0 {
		return 0
	}

	peak := e.equityCurve[0].Equity
	var maxDrawdown float64
	for _, pt := range e.equityCurve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak == 0 {
			continue
		}
		drawdown := (peak - pt.Equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown * 100.0
}

// calculateSharpeRatio mirrors calculate_sharpe_ratio in engine.rs: simple
// per-tick returns, mean/stddev, annualized by sqrt(252) assuming daily
// bars. No risk-free rate subtraction, matching the original's
// simplification.
func (e *Engine) calculateSharpeRatio() float64 {
	if len(e.equityCurve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(e.equityCurve)-1)
	for i := 1; i < len(e.equityCurve); i++ {
		prev := e.equityCurve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (e.equityCurve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(252.0)
}

func (e *Engine) RunID() string                       { return e.runID }
func (e *Engine) AccountStatus() types.AccountStatus  { return e.gw.QueryAccount() }
func (e *Engine) EquityCurve() []types.EquityPoint    { return e.equityCurve }
func (e *Engine) DataReport() types.DataQualityReport { return e.dataReport }
func (e *Engine) LatencyStats() latency.Stats         { return e.lat.GetStats() }
