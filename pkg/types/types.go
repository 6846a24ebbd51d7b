// Package types defines shared data structures used across the backtest engine.
//
// This package is the common vocabulary for the engine — ticks, orders, fills,
// positions, and account state. It has no dependency on internal packages, so
// it can be imported from any layer.
package types

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

const (
	DirectionBuy  = 1
	DirectionSell = -1
)

const (
	OrderTypeMarket = 0
	OrderTypeLimit  = 1
)

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// Tick is one price observation for the traded symbol.
type Tick struct {
	Timestamp int64   // unix nanoseconds
	Price     float64
	Volume    float64
}

// OrderBookLevel is a single bid or ask level in an L1 snapshot.
type OrderBookLevel struct {
	Price      float64
	Quantity   float64
	OrderCount int32
}

func (l OrderBookLevel) IsEmpty() bool { return l.Quantity <= 0 }

// MaxBookLevels bounds the order book snapshot to its top-of-book depth.
const MaxBookLevels = 10

// OrderBookSnapshot is a point-in-time L1 depth view: up to MaxBookLevels on
// each side, best-first.
type OrderBookSnapshot struct {
	Bids      [MaxBookLevels]OrderBookLevel
	Asks      [MaxBookLevels]OrderBookLevel
	BidCount  int
	AskCount  int
	LastPrice float64
	Timestamp int64
}

// ————————————————————————————————————————————————————————————————————————
// Orders and fills
// ————————————————————————————————————————————————————————————————————————

// OrderRequest is a strategy-generated order before execution.
type OrderRequest struct {
	Symbol     string
	Quantity   float64 // always positive; Direction carries the sign
	Direction  int     // DirectionBuy or DirectionSell
	OrderType  int     // OrderTypeMarket or OrderTypeLimit
	LimitPrice float64 // only meaningful for OrderTypeLimit
}

// Fill is one execution report returned by a gateway for an OrderRequest.
// Each accepted order produces one Fill; an L1 order that walks several book
// levels is reported as a single Fill at its volume-weighted average price.
type Fill struct {
	OrderID        string
	Symbol         string
	Direction      int
	Price          float64
	Quantity       float64
	Commission     float64
	Timestamp      int64
	RealizedDelta  float64 // realized P&L contributed by this specific fill
}

// ————————————————————————————————————————————————————————————————————————
// Position and account state
// ————————————————————————————————————————————————————————————————————————

// Position is the engine's internal, per-symbol holding record.
type Position struct {
	Symbol        string
	Quantity      float64 // positive = long, negative = short
	AveragePrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// AccountStatus is the exported, point-in-time account snapshot a strategy or
// risk manager reads before deciding on an order.
type AccountStatus struct {
	Balance       float64
	Equity        float64
	Available     float64
	PositionCount int32
	TotalPnL      float64
}

// ————————————————————————————————————————————————————————————————————————
// Strategy and risk configuration
// ————————————————————————————————————————————————————————————————————————

// StrategyParams tunes the Dual-MA crossover strategy.
type StrategyParams struct {
	ShortMAPeriod   int
	LongMAPeriod    int
	PositionSize    float64
	StopLossPct     float64
	TakeProfitPct   float64
	WarmupBars      int
}

// DefaultStrategyParams mirrors the original implementation's defaults.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		ShortMAPeriod: 5,
		LongMAPeriod:  20,
		PositionSize:  100.0,
		StopLossPct:   0.02,
		TakeProfitPct: 0.05,
		WarmupBars:    0,
	}
}

// RiskConfig bounds order rate, position size, order value, and drawdown.
// MaxDrawdownPct is a fraction (0.1 == 10%); it is never converted to a
// percentage except when formatting a human-readable message.
type RiskConfig struct {
	MaxOrderRate   int
	MaxPositionSize float64
	MaxOrderValue   float64
	MaxDrawdownPct  float64
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxOrderRate:    10,
		MaxPositionSize: 1000.0,
		MaxOrderValue:   100000.0,
		MaxDrawdownPct:  0.1,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Results and reports
// ————————————————————————————————————————————————————————————————————————

// DataQualityReport summarizes a cleansing pass over raw tabular ticks.
type DataQualityReport struct {
	TotalTicks     int64
	ValidTicks     int64
	InvalidTicks   int64
	AnomalyTicks   int64
	FirstTimestamp int64
	LastTimestamp  int64
}

// BacktestResult is the aggregate output of a single engine run.
type BacktestResult struct {
	FinalEquity         float64
	TotalReturnPct      float64
	MaxDrawdownPct      float64
	SharpeRatio         float64
	TotalTrades         int32
	WinningTrades       int32
	LosingTrades        int32
	ActualStartBar      int32
	FirstTradeTimestamp int64
}

// EquityPoint is a single sample on the engine's equity curve.
type EquityPoint struct {
	Timestamp int64
	Equity    float64
}

// ————————————————————————————————————————————————————————————————————————
// Events
// ————————————————————————————————————————————————————————————————————————

// EventType tags the payload carried by an Event.
type EventType int

const (
	EventTick EventType = iota
	EventTimer
	EventOrderUpdate
	EventAccountUpdate
	EventSignal
	EventCustom
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventTimer:
		return "timer"
	case EventOrderUpdate:
		return "order_update"
	case EventAccountUpdate:
		return "account_update"
	case EventSignal:
		return "signal"
	case EventCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// OrderStatus is the lifecycle state carried by an EventOrderUpdate.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderPartiallyFilled:
		return "partially_filled"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	case OrderRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event is the tagged-variant payload published on the event bus. Exactly one
// of the typed fields is populated, selected by Type.
type Event struct {
	Type      EventType
	Timestamp int64

	Tick           Tick
	TimerID        uint64
	OrderID        string
	OrderStatus    OrderStatus
	FilledQuantity float64
	FillPrice      float64
	Account        AccountStatus
	SignalSymbol   string
	SignalDirection int
	SignalStrength  float64
	CustomType     string
	CustomPayload  []byte
}

// EventFilter selects which event types a subscription receives.
type EventFilter struct {
	Tick          bool
	Timer         bool
	OrderUpdate   bool
	AccountUpdate bool
	Signal        bool
	Custom        bool
}

func AllEvents() EventFilter {
	return EventFilter{true, true, true, true, true, true}
}

func TickOnly() EventFilter {
	return EventFilter{Tick: true}
}

func (f EventFilter) Matches(evt Event) bool {
	switch evt.Type {
	case EventTick:
		return f.Tick
	case EventTimer:
		return f.Timer
	case EventOrderUpdate:
		return f.OrderUpdate
	case EventAccountUpdate:
		return f.AccountUpdate
	case EventSignal:
		return f.Signal
	case EventCustom:
		return f.Custom
	default:
		return false
	}
}

// TimerEntry is a scheduled wake-up registered with the timer manager.
type TimerEntry struct {
	ID       uint64
	FireAt   int64
	Interval int64 // 0 = one-shot
}

// Candlestick summarizes volume/price over one indicator window. No package
// in this module produces or consumes it; warmup and the
// indicators work from individual ticks and prices.
type Candlestick struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
