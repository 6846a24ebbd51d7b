// Package orderbook models an L1 depth snapshot and the statistics derived
// from it. Grounded on original_source/aegisquant-core/src/orderbook.rs: the
// original uses fixed-size [OrderBookLevel; 10] arrays for FFI layout
// stability; this port keeps the same fixed-capacity invariant via
// types.OrderBookSnapshot's [10]OrderBookLevel arrays, the idiomatic Go
// equivalent once the FFI-layout requirement itself is out of scope.
package orderbook

import "aegisgo/pkg/types"

// WithLevels builds a snapshot from slices of levels, truncating each side
// to types.MaxBookLevels.
func WithLevels(bids, asks []types.OrderBookLevel, lastPrice float64, timestamp int64) types.OrderBookSnapshot {
	var snap types.OrderBookSnapshot
	snap.LastPrice = lastPrice
	snap.Timestamp = timestamp

	n := len(bids)
	if n > types.MaxBookLevels {
		n = types.MaxBookLevels
	}
	copy(snap.Bids[:n], bids[:n])
	snap.BidCount = n

	n = len(asks)
	if n > types.MaxBookLevels {
		n = types.MaxBookLevels
	}
	copy(snap.Asks[:n], asks[:n])
	snap.AskCount = n

	return snap
}

func BestBid(s types.OrderBookSnapshot) (types.OrderBookLevel, bool) {
	if s.BidCount == 0 {
		return types.OrderBookLevel{}, false
	}
	return s.Bids[0], true
}

func BestAsk(s types.OrderBookSnapshot) (types.OrderBookLevel, bool) {
	if s.AskCount == 0 {
		return types.OrderBookLevel{}, false
	}
	return s.Asks[0], true
}

// MidPrice is the average of the best bid and best ask. Returns false if
// either side is empty.
func MidPrice(s types.OrderBookSnapshot) (float64, bool) {
	bid, ok1 := BestBid(s)
	ask, ok2 := BestAsk(s)
	if !ok1 || !ok2 {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

func Spread(s types.OrderBookSnapshot) (float64, bool) {
	bid, ok1 := BestBid(s)
	ask, ok2 := BestAsk(s)
	if !ok1 || !ok2 {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Stats summarizes volume, spread, and order-count depth on both sides.
type Stats struct {
	TotalBidVolume float64
	TotalAskVolume float64
	Spread         float64
	SpreadBps      float64
	BidAskRatio    float64
	TotalBidOrders int32
	TotalAskOrders int32
	BidLevels      int
	AskLevels      int
}

func GetStats(s types.OrderBookSnapshot) Stats {
	var st Stats
	st.BidLevels = s.BidCount
	st.AskLevels = s.AskCount

	for i := 0; i < s.BidCount; i++ {
		st.TotalBidVolume += s.Bids[i].Quantity
		st.TotalBidOrders += s.Bids[i].OrderCount
	}
	for i := 0; i < s.AskCount; i++ {
		st.TotalAskVolume += s.Asks[i].Quantity
		st.TotalAskOrders += s.Asks[i].OrderCount
	}

	if spread, ok := Spread(s); ok {
		st.Spread = spread
	}
	if bid, ok1 := BestBid(s); ok1 {
		if ask, ok2 := BestAsk(s); ok2 {
			mid := (bid.Price + ask.Price) / 2
			if mid > 0 {
				st.SpreadBps = (st.Spread / mid) * 10000
			}
		}
	}

	if st.TotalAskVolume > 0 {
		st.BidAskRatio = st.TotalBidVolume / st.TotalAskVolume
	}

	return st
}

// SetBid writes a level at index, extending BidCount if needed.
func SetBid(s *types.OrderBookSnapshot, index int, level types.OrderBookLevel) {
	if index < 0 || index >= types.MaxBookLevels {
		return
	}
	s.Bids[index] = level
	if index >= s.BidCount {
		s.BidCount = index + 1
	}
}

func SetAsk(s *types.OrderBookSnapshot, index int, level types.OrderBookLevel) {
	if index < 0 || index >= types.MaxBookLevels {
		return
	}
	s.Asks[index] = level
	if index >= s.AskCount {
		s.AskCount = index + 1
	}
}
