// Package gateway executes orders against simulated venues and tracks the
// resulting positions and account balance. Grounded on
// original_source/aegisquant-core/src/gateway.rs and l1_gateway.rs: both
// Rust gateways share one position-accounting state machine (average price
// on add, realize PnL on reduce, reset average price on a sign flip) which
// this file factors out into accountBook so Simple and L1 don't duplicate
// it, the way the teacher's internal/strategy/inventory.go separated
// position bookkeeping from its quoting logic.
package gateway

import (
	"errors"
	"fmt"

	"aegisgo/internal/precision"
	"aegisgo/pkg/types"
)

// Closed error taxonomy, matching GatewayError in gateway.rs.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInsufficientFunds = errors.New("insufficient funds for order")
	ErrAlreadyCancelled  = errors.New("order already cancelled")
)

// Gateway abstracts order execution for the engine; Simple and L1 are the
// only implementations, both purely simulated — there is no live-trading
// gateway in scope for a backtest engine.
type Gateway interface {
	SubmitOrder(order types.OrderRequest, currentPrice float64, timestamp int64) (orderID uint64, err error)
	CancelOrder(orderID uint64) error
	QueryPosition(symbol string) (types.Position, bool)
	QueryAccount() types.AccountStatus
	GetFills() []types.Fill
	UpdatePrice(symbol string, price float64)
}

// position is the internal per-symbol bookkeeping record. Unlike
// types.Position, it carries no UnrealizedPnL field — that is derived on
// read from the gateway's current-price map, matching the Rust structs'
// split between stored and computed fields.
type position struct {
	symbol       string
	quantity     float64
	averagePrice float64
	realizedPnL  float64
}

// accountBook holds the shared balance/position/price state both gateway
// modes mutate identically; only fill-price derivation differs between
// Simple and L1.
type accountBook struct {
	balance       float64
	initialBalance float64
	positions     map[string]*position
	currentPrices map[string]float64
	nextOrderID   uint64
	pendingFills  []types.Fill
}

func newAccountBook(initialBalance float64) accountBook {
	return accountBook{
		balance:        initialBalance,
		initialBalance: initialBalance,
		positions:      make(map[string]*position),
		currentPrices:  make(map[string]float64),
		nextOrderID:    1,
	}
}

// applyFill updates balance and position state for one fill and returns the
// types.Fill record to publish, including RealizedDelta: the realized-PnL
// contribution of exactly this fill, not the position's running total. This
// is the fix for the win/loss classification open question — callers (the
// strategy/engine layer) must classify a trade's outcome from this delta,
// never by re-inspecting cumulative realized PnL after the fact.
func (b *accountBook) applyFill(symbol string, direction int, fillPrice, fillQty, commission float64, orderID uint64, timestamp int64) types.Fill {
	pos, ok := b.positions[symbol]
	if !ok {
		pos = &position{symbol: symbol}
		b.positions[symbol] = pos
	}

	tradeValue := fillQty * fillPrice
	var realizedDelta float64

	if direction == types.DirectionBuy {
		newQuantity := pos.quantity + fillQty
		switch {
		case pos.quantity > 0:
			pos.averagePrice = (pos.averagePrice*pos.quantity + fillPrice*fillQty) / newQuantity
		case pos.quantity < 0:
			coverQty := fillQty
			if -pos.quantity < coverQty {
				coverQty = -pos.quantity
			}
			realizedDelta = (pos.averagePrice - fillPrice) * coverQty
			pos.realizedPnL += realizedDelta
			if fillQty > -pos.quantity {
				pos.averagePrice = fillPrice
			}
		default:
			pos.averagePrice = fillPrice
		}
		pos.quantity = newQuantity
		b.balance -= tradeValue + commission
	} else {
		newQuantity := pos.quantity - fillQty
		switch {
		case pos.quantity > 0:
			closeQty := fillQty
			if pos.quantity < closeQty {
				closeQty = pos.quantity
			}
			realizedDelta = (fillPrice - pos.averagePrice) * closeQty
			pos.realizedPnL += realizedDelta
			if fillQty > pos.quantity {
				pos.averagePrice = fillPrice
			}
		case pos.quantity < 0:
			pos.averagePrice = (pos.averagePrice*(-pos.quantity) + fillPrice*fillQty) / (-newQuantity)
		default:
			pos.averagePrice = fillPrice
		}
		pos.quantity = newQuantity
		b.balance += tradeValue - commission
	}

	b.currentPrices[symbol] = fillPrice

	fill := types.Fill{
		OrderID:       fmt.Sprintf("%d", orderID),
		Symbol:        symbol,
		Direction:     direction,
		Price:         fillPrice,
		Quantity:      fillQty,
		Commission:    commission,
		Timestamp:     timestamp,
		RealizedDelta: realizedDelta,
	}
	b.pendingFills = append(b.pendingFills, fill)
	return fill
}

func (b *accountBook) unrealizedPnL(p *position) float64 {
	price, ok := b.currentPrices[p.symbol]
	if !ok {
		return 0
	}
	return (price - p.averagePrice) * p.quantity
}

func (b *accountBook) totalUnrealizedPnL() float64 {
	var total float64
	for _, p := range b.positions {
		total += b.unrealizedPnL(p)
	}
	return total
}

func (b *accountBook) totalRealizedPnL() float64 {
	var total float64
	for _, p := range b.positions {
		total += p.realizedPnL
	}
	return total
}

func (b *accountBook) queryPosition(symbol string) (types.Position, bool) {
	p, ok := b.positions[symbol]
	if !ok {
		return types.Position{}, false
	}
	return types.Position{
		Symbol:        p.symbol,
		Quantity:      p.quantity,
		AveragePrice:  p.averagePrice,
		UnrealizedPnL: b.unrealizedPnL(p),
		RealizedPnL:   p.realizedPnL,
	}, true
}

func (b *accountBook) queryAccount() types.AccountStatus {
	unrealized := b.totalUnrealizedPnL()
	realized := b.totalRealizedPnL()

	count := int32(0)
	for _, p := range b.positions {
		if !precision.AlmostZeroQuantity(p.quantity) {
			count++
		}
	}

	return types.AccountStatus{
		Balance:       b.balance,
		Equity:        b.balance + unrealized,
		Available:     b.balance,
		PositionCount: count,
		TotalPnL:      realized + unrealized,
	}
}

func (b *accountBook) getFills() []types.Fill {
	fills := b.pendingFills
	b.pendingFills = nil
	return fills
}

func (b *accountBook) updatePrice(symbol string, price float64) {
	b.currentPrices[symbol] = price
}

func validateOrder(order types.OrderRequest) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if order.Direction != types.DirectionBuy && order.Direction != types.DirectionSell {
		return fmt.Errorf("%w: invalid direction", ErrInvalidOrder)
	}
	return nil
}

// hasSufficientFunds applies the original's rule: a buy only needs a funds
// check when it opens or adds to a long position; covering an existing
// short never requires new funds since it is closing exposure.
func hasSufficientFunds(b *accountBook, symbol string, direction int, tradeValue, commission float64) bool {
	if direction != types.DirectionBuy {
		return true
	}
	currentQty := 0.0
	if p, ok := b.positions[symbol]; ok {
		currentQty = p.quantity
	}
	if currentQty >= 0 {
		return tradeValue+commission <= b.balance
	}
	return true
}
