package orderbook

import (
	"testing"

	"aegisgo/pkg/types"
)

func bookFixture() types.OrderBookSnapshot {
	bids := []types.OrderBookLevel{
		{Price: 99, Quantity: 10, OrderCount: 2},
		{Price: 98, Quantity: 5, OrderCount: 1},
	}
	asks := []types.OrderBookLevel{
		{Price: 101, Quantity: 8, OrderCount: 3},
		{Price: 102, Quantity: 4, OrderCount: 1},
	}
	return WithLevels(bids, asks, 100, 1000)
}

func TestWithLevelsTruncatesToMaxDepth(t *testing.T) {
	t.Parallel()

	bids := make([]types.OrderBookLevel, types.MaxBookLevels+5)
	for i := range bids {
		bids[i] = types.OrderBookLevel{Price: float64(100 - i), Quantity: 1}
	}
	snap := WithLevels(bids, nil, 100, 0)
	if snap.BidCount != types.MaxBookLevels {
		t.Fatalf("BidCount = %d, want %d", snap.BidCount, types.MaxBookLevels)
	}
}

func TestBestBidAsk(t *testing.T) {
	t.Parallel()

	snap := bookFixture()
	bid, ok := BestBid(snap)
	if !ok || bid.Price != 99 {
		t.Fatalf("BestBid = %+v, %v, want price 99", bid, ok)
	}
	ask, ok := BestAsk(snap)
	if !ok || ask.Price != 101 {
		t.Fatalf("BestAsk = %+v, %v, want price 101", ask, ok)
	}
}

func TestBestBidAskEmptySide(t *testing.T) {
	t.Parallel()
	var snap types.OrderBookSnapshot
	if _, ok := BestBid(snap); ok {
		t.Fatal("BestBid on empty snapshot should report false")
	}
	if _, ok := BestAsk(snap); ok {
		t.Fatal("BestAsk on empty snapshot should report false")
	}
}

func TestMidPriceAndSpread(t *testing.T) {
	t.Parallel()

	snap := bookFixture()
	mid, ok := MidPrice(snap)
	if !ok || mid != 100 {
		t.Fatalf("MidPrice = %v, %v, want 100", mid, ok)
	}
	spread, ok := Spread(snap)
	if !ok || spread != 2 {
		t.Fatalf("Spread = %v, %v, want 2", spread, ok)
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	snap := bookFixture()
	st := GetStats(snap)

	if st.TotalBidVolume != 15 {
		t.Fatalf("TotalBidVolume = %v, want 15", st.TotalBidVolume)
	}
	if st.TotalAskVolume != 12 {
		t.Fatalf("TotalAskVolume = %v, want 12", st.TotalAskVolume)
	}
	if st.TotalBidOrders != 3 {
		t.Fatalf("TotalBidOrders = %d, want 3", st.TotalBidOrders)
	}
	if st.TotalAskOrders != 4 {
		t.Fatalf("TotalAskOrders = %d, want 4", st.TotalAskOrders)
	}
	if st.Spread != 2 {
		t.Fatalf("Spread = %v, want 2", st.Spread)
	}
	wantRatio := 15.0 / 12.0
	if st.BidAskRatio != wantRatio {
		t.Fatalf("BidAskRatio = %v, want %v", st.BidAskRatio, wantRatio)
	}
	if st.BidLevels != 2 || st.AskLevels != 2 {
		t.Fatalf("levels = %d/%d, want 2/2", st.BidLevels, st.AskLevels)
	}
}

func TestSetBidSetAskExtendCount(t *testing.T) {
	t.Parallel()

	var snap types.OrderBookSnapshot
	SetBid(&snap, 0, types.OrderBookLevel{Price: 99, Quantity: 1})
	SetBid(&snap, 2, types.OrderBookLevel{Price: 97, Quantity: 1})
	if snap.BidCount != 3 {
		t.Fatalf("BidCount = %d, want 3", snap.BidCount)
	}

	SetAsk(&snap, types.MaxBookLevels, types.OrderBookLevel{Price: 200, Quantity: 1})
	if snap.AskCount != 0 {
		t.Fatalf("out-of-range SetAsk should be a no-op, AskCount = %d", snap.AskCount)
	}
}
