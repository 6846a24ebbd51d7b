package gateway

import (
	"fmt"

	"aegisgo/pkg/types"
)

// SlippageModel scales slippage with order size, grounded on SlippageModel
// in l1_gateway.rs: base_slippage + impact_factor*quantity, capped at
// max_slippage.
type SlippageModel struct {
	BaseSlippage float64
	ImpactFactor float64
	MaxSlippage  float64
}

func DefaultSlippageModel() SlippageModel {
	return SlippageModel{BaseSlippage: 0.0001, ImpactFactor: 0.00001, MaxSlippage: 0.01}
}

func (m SlippageModel) Calculate(quantity float64) float64 {
	s := m.BaseSlippage + m.ImpactFactor*quantity
	if s > m.MaxSlippage {
		return m.MaxSlippage
	}
	return s
}

// LevelFill is one fill against a single order-book level.
type LevelFill struct {
	Price    float64
	Quantity float64
	Level    int
}

// FillResult is the outcome of walking an order through book depth.
type FillResult struct {
	Fills          []LevelFill
	Unfilled       float64
	AveragePrice   float64
	FilledQuantity float64
}

// L1 fills orders by walking live order-book depth, capped per level by
// FillRatio of that level's quantity, falling back to a simple
// slippage-at-current-price fill when the book has no depth on the
// relevant side. Grounded on L1SimulatedGateway in l1_gateway.rs.
type L1 struct {
	book          accountBook
	orderbook     types.OrderBookSnapshot
	slippageModel SlippageModel
	commission    float64
	fillRatio     float64
}

func NewL1(initialBalance float64, slippageModel SlippageModel, commissionRate float64) *L1 {
	return &L1{
		book:          newAccountBook(initialBalance),
		slippageModel: slippageModel,
		commission:    commissionRate,
		fillRatio:     0.5,
	}
}

func (g *L1) SetFillRatio(ratio float64) {
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	g.fillRatio = ratio
}

func (g *L1) FillRatio() float64 { return g.fillRatio }

func (g *L1) UpdateOrderBook(snap types.OrderBookSnapshot) { g.orderbook = snap }
func (g *L1) OrderBook() types.OrderBookSnapshot           { return g.orderbook }

// ExecuteOrder walks the relevant book side (asks for a buy, bids for a
// sell) level by level, filling up to FillRatio of each level's quantity
// until the order is satisfied or depth runs out.
func (g *L1) ExecuteOrder(order types.OrderRequest) FillResult {
	remaining := order.Quantity
	var totalCost float64
	var fills []LevelFill

	var levels []types.OrderBookLevel
	if order.Direction == types.DirectionBuy {
		levels = g.orderbook.Asks[:g.orderbook.AskCount]
	} else {
		levels = g.orderbook.Bids[:g.orderbook.BidCount]
	}

	for idx, level := range levels {
		if remaining <= 0 || level.IsEmpty() {
			break
		}

		available := level.Quantity * g.fillRatio
		fillQty := remaining
		if available < fillQty {
			fillQty = available
		}

		slippage := g.slippageModel.Calculate(fillQty)
		var fillPrice float64
		if order.Direction == types.DirectionBuy {
			fillPrice = level.Price * (1 + slippage)
		} else {
			fillPrice = level.Price * (1 - slippage)
		}

		fills = append(fills, LevelFill{Price: fillPrice, Quantity: fillQty, Level: idx})
		totalCost += fillPrice * fillQty
		remaining -= fillQty
	}

	filledQuantity := order.Quantity - remaining
	var avgPrice float64
	if filledQuantity > 0 {
		avgPrice = totalCost / filledQuantity
	}

	return FillResult{Fills: fills, Unfilled: remaining, AveragePrice: avgPrice, FilledQuantity: filledQuantity}
}

func (g *L1) SubmitOrder(order types.OrderRequest, currentPrice float64, timestamp int64) (uint64, error) {
	if err := validateOrder(order); err != nil {
		return 0, err
	}

	result := g.ExecuteOrder(order)

	var fillPrice, fillQty float64
	if result.FilledQuantity > 0 {
		fillPrice, fillQty = result.AveragePrice, result.FilledQuantity
	} else {
		slippage := g.slippageModel.Calculate(order.Quantity)
		if order.Direction == types.DirectionBuy {
			fillPrice = currentPrice * (1 + slippage)
		} else {
			fillPrice = currentPrice * (1 - slippage)
		}
		fillQty = order.Quantity
	}

	// Open Question #2 (SPEC_FULL.md): both the balance delta and the
	// commission must use filled_quantity * average_fill_price, never the
	// originally requested order.Quantity, so a partial fill never moves
	// more cash than was actually traded.
	tradeValue := fillQty * fillPrice
	commission := tradeValue * g.commission

	if !hasSufficientFunds(&g.book, order.Symbol, order.Direction, tradeValue, commission) {
		return 0, ErrInsufficientFunds
	}

	orderID := g.book.nextOrderID
	g.book.nextOrderID++

	g.book.applyFill(order.Symbol, order.Direction, fillPrice, fillQty, commission, orderID, timestamp)
	return orderID, nil
}

func (g *L1) CancelOrder(orderID uint64) error {
	return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
}

func (g *L1) QueryPosition(symbol string) (types.Position, bool) { return g.book.queryPosition(symbol) }
func (g *L1) QueryAccount() types.AccountStatus                  { return g.book.queryAccount() }
func (g *L1) GetFills() []types.Fill                             { return g.book.getFills() }
func (g *L1) UpdatePrice(symbol string, price float64)           { g.book.updatePrice(symbol, price) }
