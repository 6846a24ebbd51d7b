// Package emergency implements the process-wide trading halt flag.
// Grounded on original_source/aegisquant-core/src/emergency.rs, which uses a
// global AtomicBool; this port uses sync/atomic.Bool, Go's direct equivalent.
package emergency

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"aegisgo/pkg/types"
)

var halted atomic.Bool

// IsHalted reports whether the global emergency stop is active.
func IsHalted() bool {
	return halted.Load()
}

// Activate engages the halt for every engine in the process until Reset is
// called. While it is set, an engine stops acting on strategy signals and
// instead submits orders that close its open position, once per run; the
// gateways themselves do not consult the flag.
func Activate(logger *slog.Logger) {
	halted.Store(true)
	if logger != nil {
		logger.Error("EMERGENCY STOP ACTIVATED - all trading halted")
	}
}

// Reset clears the halt.
func Reset(logger *slog.Logger) {
	halted.Store(false)
	if logger != nil {
		logger.Info("emergency stop reset")
	}
}

// CheckHalt returns an error if the halt is active, nil otherwise.
func CheckHalt() error {
	if IsHalted() {
		return fmt.Errorf("emergency halt is active")
	}
	return nil
}

// GenerateCloseAllOrders builds one market order per open position that
// flattens it: the opposite direction of the position's sign, sized at the
// position's absolute quantity.
func GenerateCloseAllOrders(positions []types.Position) []types.OrderRequest {
	var orders []types.OrderRequest
	for _, pos := range positions {
		qty := pos.Quantity
		if qty < 0 {
			qty = -qty
		}
		if qty <= 0 {
			continue
		}

		direction := types.DirectionSell
		if pos.Quantity < 0 {
			direction = types.DirectionBuy
		}

		orders = append(orders, types.OrderRequest{
			Symbol:    pos.Symbol,
			Quantity:  qty,
			Direction: direction,
			OrderType: types.OrderTypeMarket,
		})
	}
	return orders
}
