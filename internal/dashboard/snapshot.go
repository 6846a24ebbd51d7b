package dashboard

import (
	"time"

	"aegisgo/internal/config"
	"aegisgo/internal/latency"
	"aegisgo/pkg/types"
)

// Provider is the subset of *engine.Engine the dashboard needs to read a
// point-in-time snapshot. Declared here rather than imported from
// internal/engine so the dashboard package never depends on concrete
// gateway/risk/strategy wiring, only the read-only view of it.
type Provider interface {
	AccountStatus() types.AccountStatus
	EquityCurve() []types.EquityPoint
	DataReport() types.DataQualityReport
	LatencyStats() latency.Stats
}

// BuildSnapshot aggregates the engine's current state into one payload
// for the /api/snapshot endpoint and for a client's first websocket frame.
func BuildSnapshot(provider Provider, symbol string, cfg config.Config) DashboardSnapshot {
	return DashboardSnapshot{
		Timestamp:   time.Now(),
		Symbol:      symbol,
		Account:     newAccountSnapshot(provider.AccountStatus()),
		EquityCurve: provider.EquityCurve(),
		DataReport:  provider.DataReport(),
		Latency:     provider.LatencyStats(),
		Config:      NewConfigSummary(cfg),
	}
}
