package dashboard

import (
	"time"

	"aegisgo/pkg/types"
)

// DashboardEvent is the wrapper every event sent to a dashboard client is
// marshaled into.
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot", "tick", "signal", "fill", "account"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// TickEvent mirrors the Tick payload of an EventTick.
type TickEvent struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// SignalEvent mirrors the signal payload of an EventSignal.
type SignalEvent struct {
	Symbol    string  `json:"symbol"`
	Direction int     `json:"direction"`
	Strength  float64 `json:"strength"`
}

// FillEvent mirrors the fill payload of an EventOrderUpdate.
type FillEvent struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	FilledQuantity float64 `json:"filled_quantity"`
	FillPrice      float64 `json:"fill_price"`
}

// AccountEvent mirrors the account payload of an EventAccountUpdate.
type AccountEvent struct {
	Account AccountSnapshot `json:"account"`
}

// toDashboardEvent converts a bus event into the wire format the websocket
// hub broadcasts. Unrecognized event types (timers, custom payloads) are
// dropped rather than forwarded, since the dashboard has no use for them.
func toDashboardEvent(evt types.Event) (DashboardEvent, bool) {
	ts := time.UnixMilli(evt.Timestamp).UTC()

	switch evt.Type {
	case types.EventTick:
		return DashboardEvent{
			Type: "tick", Timestamp: ts,
			Data: TickEvent{Timestamp: evt.Tick.Timestamp, Price: evt.Tick.Price, Volume: evt.Tick.Volume},
		}, true

	case types.EventSignal:
		return DashboardEvent{
			Type: "signal", Timestamp: ts,
			Data: SignalEvent{Symbol: evt.SignalSymbol, Direction: evt.SignalDirection, Strength: evt.SignalStrength},
		}, true

	case types.EventOrderUpdate:
		return DashboardEvent{
			Type: "fill", Timestamp: ts,
			Data: FillEvent{
				OrderID:        evt.OrderID,
				Status:         evt.OrderStatus.String(),
				FilledQuantity: evt.FilledQuantity,
				FillPrice:      evt.FillPrice,
			},
		}, true

	case types.EventAccountUpdate:
		return DashboardEvent{
			Type: "account", Timestamp: ts,
			Data: AccountEvent{Account: newAccountSnapshot(evt.Account)},
		}, true

	default:
		return DashboardEvent{}, false
	}
}
