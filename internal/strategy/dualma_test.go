package strategy

import (
	"testing"

	"aegisgo/pkg/types"
)

func newTestParams() types.StrategyParams {
	return types.StrategyParams{
		ShortMAPeriod: 2,
		LongMAPeriod:  4,
		PositionSize:  100,
	}
}

func TestDualMANoSignalBeforeWarmup(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())
	prices := []float64{100, 101, 102}
	for _, p := range prices {
		if sig := d.OnTick(types.Tick{Price: p}); sig != SignalNone {
			t.Fatalf("OnTick(%v) = %v before warmup, want SignalNone", p, sig)
		}
	}
}

func TestDualMAGoldenCrossProducesBuy(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())
	// Drive the short MA below the long MA, then cross it above.
	prices := []float64{100, 100, 100, 100, 110, 120}
	var last Signal
	for _, p := range prices {
		last = d.OnTick(types.Tick{Price: p})
		if last == SignalBuy {
			break
		}
	}
	if last != SignalBuy {
		t.Fatalf("final signal = %v, want SignalBuy", last)
	}
}

func TestDualMADeathCrossProducesSell(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())
	prices := []float64{100, 100, 100, 100, 110, 120, 10, 5}
	var last Signal
	for _, p := range prices {
		s := d.OnTick(types.Tick{Price: p})
		if s != SignalNone {
			last = s
		}
	}
	if last != SignalSell {
		t.Fatalf("final signal = %v, want SignalSell", last)
	}
}

func TestDualMASignalsAlternate(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())
	prices := []float64{
		100, 100, 100, 100, // warm up flat
		110, 120, 130, // golden cross -> buy
		125, 135, 140, // still above -> no repeat buy
		60, 50, 40, // death cross -> sell
		45, 55, 60, // still below -> no repeat sell
		130, 140, 150, // golden cross again -> buy
	}

	var signals []Signal
	for _, p := range prices {
		if s := d.OnTick(types.Tick{Price: p}); s != SignalNone {
			signals = append(signals, s)
		}
	}

	for i := 1; i < len(signals); i++ {
		if signals[i] == signals[i-1] {
			t.Fatalf("signals[%d] = %v repeats signals[%d], non-None signals must alternate: %v", i, signals[i], i-1, signals)
		}
	}
	if len(signals) < 2 {
		t.Fatalf("expected at least a buy and a sell, got %v", signals)
	}
}

func TestDualMAGenerateOrder(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())

	order, ok := d.GenerateOrder("BTCUSDT", SignalBuy)
	if !ok {
		t.Fatal("GenerateOrder(SignalBuy) ok = false, want true")
	}
	if order.Direction != types.DirectionBuy || order.Quantity != 100 || order.Symbol != "BTCUSDT" {
		t.Fatalf("buy order = %+v", order)
	}

	order, ok = d.GenerateOrder("BTCUSDT", SignalSell)
	if !ok || order.Direction != types.DirectionSell {
		t.Fatalf("sell order = %+v, ok=%v", order, ok)
	}

	_, ok = d.GenerateOrder("BTCUSDT", SignalNone)
	if ok {
		t.Fatal("GenerateOrder(SignalNone) ok = true, want false")
	}
}

func TestDualMAReset(t *testing.T) {
	t.Parallel()

	d := NewDualMA(newTestParams())
	for _, p := range []float64{100, 101, 102, 103, 104} {
		d.OnTick(types.Tick{Price: p})
	}
	d.Reset()

	if sig := d.OnTick(types.Tick{Price: 200}); sig != SignalNone {
		t.Fatalf("first tick after Reset = %v, want SignalNone", sig)
	}
}
