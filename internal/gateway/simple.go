package gateway

import (
	"fmt"

	"aegisgo/pkg/types"
)

// Simple fills every order immediately at the current price plus a fixed
// slippage fraction, grounded on SimulatedGateway in gateway.rs.
type Simple struct {
	book       accountBook
	slippage   float64 // fraction, e.g. 0.001 = 0.1%
	commission float64 // fraction, e.g. 0.0001 = 0.01%
}

func NewSimple(initialBalance, slippage, commissionRate float64) *Simple {
	return &Simple{
		book:       newAccountBook(initialBalance),
		slippage:   slippage,
		commission: commissionRate,
	}
}

func (g *Simple) fillPrice(basePrice float64, direction int) float64 {
	slip := basePrice * g.slippage
	if direction == types.DirectionBuy {
		return basePrice + slip
	}
	return basePrice - slip
}

func (g *Simple) SubmitOrder(order types.OrderRequest, currentPrice float64, timestamp int64) (uint64, error) {
	if err := validateOrder(order); err != nil {
		return 0, err
	}

	fillPrice := g.fillPrice(currentPrice, order.Direction)
	tradeValue := order.Quantity * fillPrice
	commission := tradeValue * g.commission

	if !hasSufficientFunds(&g.book, order.Symbol, order.Direction, tradeValue, commission) {
		return 0, ErrInsufficientFunds
	}

	orderID := g.book.nextOrderID
	g.book.nextOrderID++

	g.book.applyFill(order.Symbol, order.Direction, fillPrice, order.Quantity, commission, orderID, timestamp)
	return orderID, nil
}

// CancelOrder always fails: Simple fills synchronously, so there is never an
// open order left to cancel by the time a caller could call this.
func (g *Simple) CancelOrder(orderID uint64) error {
	return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
}

func (g *Simple) QueryPosition(symbol string) (types.Position, bool) { return g.book.queryPosition(symbol) }
func (g *Simple) QueryAccount() types.AccountStatus                  { return g.book.queryAccount() }
func (g *Simple) GetFills() []types.Fill                             { return g.book.getFills() }
func (g *Simple) UpdatePrice(symbol string, price float64)           { g.book.updatePrice(symbol, price) }
