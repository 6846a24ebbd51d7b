// Package strategy implements the Dual-MA crossover strategy: a short and a
// long simple moving average are tracked per tick, and a Buy/Sell signal
// fires on a crossover. No original_source/*.rs file for this strategy
// survived retrieval (only tests/strategy_tests.rs did, and that file
// carries no implementation) — the crossover math below follows spec.md
// §4.4's textual contract directly. The surrounding per-tick loop shape
// (compute signal, build an order, let the caller risk-check and execute)
// is grounded on the teacher's strategy.Maker.Run/quoteUpdate structure in
// _examples/0xtitan6-polymarket-mm/internal/strategy/maker.go, adapted from
// continuous AS quoting to a discrete crossover signal.
package strategy

import (
	"aegisgo/internal/indicators"
	"aegisgo/pkg/types"
)

// Signal is the crossover decision produced on a given tick.
type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

// DualMA tracks the short/long SMA pair and the previous tick's values so it
// can detect a crossover between consecutive ticks.
type DualMA struct {
	params types.StrategyParams
	short  *indicators.SMA
	long   *indicators.SMA

	havePrev    bool
	prevShort   float64
	prevLong    float64

	// lastSignal guards the alternation invariant: a crossover cannot
	// legitimately repeat the same direction without an opposite crossover
	// in between, but OnTick checks it explicitly rather than relying on
	// that arithmetic fact alone.
	lastSignal Signal
}

func NewDualMA(params types.StrategyParams) *DualMA {
	return &DualMA{
		params: params,
		short:  indicators.NewSMA(params.ShortMAPeriod),
		long:   indicators.NewSMA(params.LongMAPeriod),
	}
}

// OnTick feeds one price through both averages and returns the crossover
// signal, if any, implied by this tick relative to the previous one.
//
//	Buy:  previousShort <= previousLong && currentShort > currentLong  (golden cross)
//	Sell: previousShort >= previousLong && currentShort < currentLong  (death cross)
//
// No signal is produced until both averages are warmed up, nor on the very
// first warmed-up tick (there is no previous pair to compare against yet).
func (d *DualMA) OnTick(tick types.Tick) Signal {
	curShort := d.short.Next(tick.Price)
	curLong := d.long.Next(tick.Price)

	if !d.short.Ready() || !d.long.Ready() {
		d.havePrev = false
		return SignalNone
	}

	signal := SignalNone
	if d.havePrev {
		if d.prevShort <= d.prevLong && curShort > curLong && d.lastSignal != SignalBuy {
			signal = SignalBuy
		} else if d.prevShort >= d.prevLong && curShort < curLong && d.lastSignal != SignalSell {
			signal = SignalSell
		}
	}

	d.prevShort, d.prevLong = curShort, curLong
	d.havePrev = true

	if signal != SignalNone {
		d.lastSignal = signal
	}
	return signal
}

// GenerateOrder turns a non-None signal into an OrderRequest sized at the
// strategy's configured PositionSize.
func (d *DualMA) GenerateOrder(symbol string, signal Signal) (types.OrderRequest, bool) {
	switch signal {
	case SignalBuy:
		return types.OrderRequest{
			Symbol:    symbol,
			Quantity:  d.params.PositionSize,
			Direction: types.DirectionBuy,
			OrderType: types.OrderTypeMarket,
		}, true
	case SignalSell:
		return types.OrderRequest{
			Symbol:    symbol,
			Quantity:  d.params.PositionSize,
			Direction: types.DirectionSell,
			OrderType: types.OrderTypeMarket,
		}, true
	default:
		return types.OrderRequest{}, false
	}
}

func (d *DualMA) Reset() {
	*d = *NewDualMA(d.params)
}
