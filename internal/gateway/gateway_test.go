package gateway

import (
	"errors"
	"testing"

	"aegisgo/pkg/types"
)

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestValidateOrderRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()
	err := validateOrder(types.OrderRequest{Quantity: 0, Direction: types.DirectionBuy})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("validateOrder() = %v, want ErrInvalidOrder", err)
	}
}

func TestValidateOrderRejectsBadDirection(t *testing.T) {
	t.Parallel()
	err := validateOrder(types.OrderRequest{Quantity: 1, Direction: 0})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("validateOrder() = %v, want ErrInvalidOrder", err)
	}
}

func TestApplyFillOpenLongThenCloseRealizesPnL(t *testing.T) {
	t.Parallel()

	book := newAccountBook(10000)

	fill1 := book.applyFill("BTCUSDT", types.DirectionBuy, 100, 1, 0, 1, 1000)
	if fill1.RealizedDelta != 0 {
		t.Fatalf("opening fill RealizedDelta = %v, want 0", fill1.RealizedDelta)
	}

	fill2 := book.applyFill("BTCUSDT", types.DirectionSell, 110, 1, 0, 2, 2000)
	if !almostEqual(fill2.RealizedDelta, 10, 1e-9) {
		t.Fatalf("closing fill RealizedDelta = %v, want 10", fill2.RealizedDelta)
	}

	pos, ok := book.queryPosition("BTCUSDT")
	if !ok {
		t.Fatal("expected position to exist")
	}
	if !almostEqual(pos.RealizedPnL, 10, 1e-9) {
		t.Fatalf("RealizedPnL = %v, want 10", pos.RealizedPnL)
	}
	if !precisionAlmostZero(pos.Quantity) {
		t.Fatalf("Quantity after full close = %v, want ~0", pos.Quantity)
	}
}

func precisionAlmostZero(q float64) bool {
	return q > -1e-8 && q < 1e-8
}

func TestApplyFillShortThenPartialCover(t *testing.T) {
	t.Parallel()

	book := newAccountBook(10000)
	book.applyFill("BTCUSDT", types.DirectionSell, 100, 10, 0, 1, 1000)
	fill := book.applyFill("BTCUSDT", types.DirectionBuy, 90, 4, 0, 2, 2000)

	wantDelta := (100 - 90.0) * 4
	if !almostEqual(fill.RealizedDelta, wantDelta, 1e-9) {
		t.Fatalf("RealizedDelta = %v, want %v", fill.RealizedDelta, wantDelta)
	}

	pos, _ := book.queryPosition("BTCUSDT")
	if !almostEqual(pos.Quantity, -6, 1e-9) {
		t.Fatalf("remaining short Quantity = %v, want -6", pos.Quantity)
	}
}

func TestApplyFillSignFlipResetsAveragePrice(t *testing.T) {
	t.Parallel()

	book := newAccountBook(10000)
	book.applyFill("BTCUSDT", types.DirectionBuy, 100, 5, 0, 1, 1000)
	book.applyFill("BTCUSDT", types.DirectionSell, 110, 8, 0, 2, 2000)

	pos, _ := book.queryPosition("BTCUSDT")
	if !almostEqual(pos.Quantity, -3, 1e-9) {
		t.Fatalf("Quantity after flip = %v, want -3", pos.Quantity)
	}
	if !almostEqual(pos.AveragePrice, 110, 1e-9) {
		t.Fatalf("AveragePrice after flip = %v, want 110 (the flipping fill's price)", pos.AveragePrice)
	}
}

func TestQueryAccountReflectsBalanceAndUnrealized(t *testing.T) {
	t.Parallel()

	book := newAccountBook(10000)
	book.applyFill("BTCUSDT", types.DirectionBuy, 100, 10, 1, 1, 1000)
	book.updatePrice("BTCUSDT", 105)

	status := book.queryAccount()
	wantBalance := 10000.0 - 100*10 - 1
	if !almostEqual(status.Balance, wantBalance, 1e-9) {
		t.Fatalf("Balance = %v, want %v", status.Balance, wantBalance)
	}
	wantEquity := wantBalance + (105-100)*10
	if !almostEqual(status.Equity, wantEquity, 1e-9) {
		t.Fatalf("Equity = %v, want %v", status.Equity, wantEquity)
	}
	if status.PositionCount != 1 {
		t.Fatalf("PositionCount = %d, want 1", status.PositionCount)
	}
}

func TestGetFillsDrainsPending(t *testing.T) {
	t.Parallel()

	book := newAccountBook(10000)
	book.applyFill("BTCUSDT", types.DirectionBuy, 100, 1, 0, 1, 1000)

	fills := book.getFills()
	if len(fills) != 1 {
		t.Fatalf("len(fills) = %d, want 1", len(fills))
	}
	if fills := book.getFills(); len(fills) != 0 {
		t.Fatalf("second GetFills() = %d entries, want 0 (already drained)", len(fills))
	}
}

func TestSimpleSubmitOrderAppliesSlippage(t *testing.T) {
	t.Parallel()

	gw := NewSimple(10000, 0.01, 0)
	orderID, err := gw.SubmitOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 1, Direction: types.DirectionBuy}, 100, 1000)
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if orderID != 1 {
		t.Fatalf("orderID = %d, want 1", orderID)
	}

	fills := gw.GetFills()
	if len(fills) != 1 {
		t.Fatalf("len(fills) = %d, want 1", len(fills))
	}
	if !almostEqual(fills[0].Price, 101, 1e-9) {
		t.Fatalf("fill price = %v, want 101 (100 + 1%% slippage)", fills[0].Price)
	}
}

func TestSimpleSubmitOrderInsufficientFunds(t *testing.T) {
	t.Parallel()

	gw := NewSimple(50, 0, 0)
	_, err := gw.SubmitOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 1, Direction: types.DirectionBuy}, 100, 1000)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("SubmitOrder() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestSimpleCancelOrderAlwaysFails(t *testing.T) {
	t.Parallel()
	gw := NewSimple(10000, 0, 0)
	if err := gw.CancelOrder(1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("CancelOrder() = %v, want ErrOrderNotFound", err)
	}
}

func TestSlippageModelCalculateCapsAtMax(t *testing.T) {
	t.Parallel()
	m := SlippageModel{BaseSlippage: 0.001, ImpactFactor: 0.01, MaxSlippage: 0.02}
	if got := m.Calculate(1000); got != 0.02 {
		t.Fatalf("Calculate(1000) = %v, want capped 0.02", got)
	}
	if got := m.Calculate(0); got != 0.001 {
		t.Fatalf("Calculate(0) = %v, want base 0.001", got)
	}
}

func TestL1ExecuteOrderWalksBookDepth(t *testing.T) {
	t.Parallel()

	gw := NewL1(100000, SlippageModel{}, 0)
	gw.SetFillRatio(1.0)

	var snap types.OrderBookSnapshot
	snap.Asks[0] = types.OrderBookLevel{Price: 100, Quantity: 5}
	snap.Asks[1] = types.OrderBookLevel{Price: 101, Quantity: 5}
	snap.AskCount = 2
	gw.UpdateOrderBook(snap)

	result := gw.ExecuteOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 8, Direction: types.DirectionBuy})
	if result.Unfilled != 0 {
		t.Fatalf("Unfilled = %v, want 0", result.Unfilled)
	}
	if !almostEqual(result.FilledQuantity, 8, 1e-9) {
		t.Fatalf("FilledQuantity = %v, want 8", result.FilledQuantity)
	}
	wantAvg := (100*5 + 101*3) / 8.0
	if !almostEqual(result.AveragePrice, wantAvg, 1e-9) {
		t.Fatalf("AveragePrice = %v, want %v", result.AveragePrice, wantAvg)
	}
}

func TestL1ExecuteOrderReturnsUnfilledWhenDepthExhausted(t *testing.T) {
	t.Parallel()

	gw := NewL1(100000, SlippageModel{}, 0)
	gw.SetFillRatio(1.0)

	var snap types.OrderBookSnapshot
	snap.Bids[0] = types.OrderBookLevel{Price: 100, Quantity: 2}
	snap.BidCount = 1
	gw.UpdateOrderBook(snap)

	result := gw.ExecuteOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 5, Direction: types.DirectionSell})
	if !almostEqual(result.Unfilled, 3, 1e-9) {
		t.Fatalf("Unfilled = %v, want 3", result.Unfilled)
	}
}

func TestL1SubmitOrderPartialFillUsesFilledQuantityForBalance(t *testing.T) {
	t.Parallel()

	gw := NewL1(100000, SlippageModel{}, 0.01)
	gw.SetFillRatio(1.0)

	var snap types.OrderBookSnapshot
	snap.Asks[0] = types.OrderBookLevel{Price: 100, Quantity: 2}
	snap.AskCount = 1
	gw.UpdateOrderBook(snap)

	before := gw.QueryAccount().Balance

	_, err := gw.SubmitOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 10, Direction: types.DirectionBuy}, 100, 1000)
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}

	after := gw.QueryAccount().Balance

	fills := gw.GetFills()
	if len(fills) != 1 {
		t.Fatalf("len(fills) = %d, want 1", len(fills))
	}
	fillQty := fills[0].Quantity
	fillPrice := fills[0].Price
	if !almostEqual(fillQty, 2, 1e-9) {
		t.Fatalf("fill quantity = %v, want 2 (only depth available)", fillQty)
	}

	wantSpend := fillQty*fillPrice + fills[0].Commission
	gotSpend := before - after
	if !almostEqual(gotSpend, wantSpend, 1e-6) {
		t.Fatalf("balance delta = %v, want %v (filled_qty * fill_price + commission, not order.Quantity)", gotSpend, wantSpend)
	}
}

func TestL1SubmitOrderFallsBackToSlippageWithNoDepth(t *testing.T) {
	t.Parallel()

	gw := NewL1(100000, SlippageModel{BaseSlippage: 0.01, MaxSlippage: 0.05}, 0)
	orderID, err := gw.SubmitOrder(types.OrderRequest{Symbol: "BTCUSDT", Quantity: 1, Direction: types.DirectionBuy}, 100, 1000)
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if orderID == 0 {
		t.Fatal("expected a nonzero order ID")
	}
	fills := gw.GetFills()
	if len(fills) != 1 {
		t.Fatalf("len(fills) = %d, want 1", len(fills))
	}
	if !almostEqual(fills[0].Price, 101, 1e-9) {
		t.Fatalf("fallback fill price = %v, want 101 (100 + 1%% slippage)", fills[0].Price)
	}
}

func TestL1SetFillRatioClamps(t *testing.T) {
	t.Parallel()
	gw := NewL1(10000, SlippageModel{}, 0)
	gw.SetFillRatio(1.5)
	if gw.FillRatio() != 1 {
		t.Fatalf("FillRatio() = %v, want clamped 1", gw.FillRatio())
	}
	gw.SetFillRatio(-0.5)
	if gw.FillRatio() != 0 {
		t.Fatalf("FillRatio() = %v, want clamped 0", gw.FillRatio())
	}
}
