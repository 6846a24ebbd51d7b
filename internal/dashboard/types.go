package dashboard

import (
	"time"

	"aegisgo/internal/config"
	"aegisgo/internal/latency"
	"aegisgo/pkg/types"
)

// DashboardSnapshot represents the complete replay dashboard state at one
// point in time: account status, the equity curve so far, and latency
// percentiles, plus a summary of the config the run was launched with.
type DashboardSnapshot struct {
	Timestamp   time.Time           `json:"timestamp"`
	Symbol      string              `json:"symbol"`
	Account     AccountSnapshot     `json:"account"`
	EquityCurve []types.EquityPoint `json:"equity_curve"`
	DataReport  types.DataQualityReport `json:"data_report"`
	Latency     latency.Stats       `json:"latency"`
	Config      ConfigSummary       `json:"config"`
}

// AccountSnapshot mirrors types.AccountStatus for JSON transport.
type AccountSnapshot struct {
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	Available     float64 `json:"available"`
	PositionCount int32   `json:"position_count"`
	TotalPnL      float64 `json:"total_pnl"`
}

func newAccountSnapshot(a types.AccountStatus) AccountSnapshot {
	return AccountSnapshot{
		Balance:       a.Balance,
		Equity:        a.Equity,
		Available:     a.Available,
		PositionCount: a.PositionCount,
		TotalPnL:      a.TotalPnL,
	}
}

// ConfigSummary is the subset of the run configuration worth showing on the
// dashboard: strategy and risk parameters, not secrets or file paths.
type ConfigSummary struct {
	ShortMAPeriod   int     `json:"short_ma_period"`
	LongMAPeriod    int     `json:"long_ma_period"`
	PositionSize    float64 `json:"position_size"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	MaxOrderRate    int     `json:"max_order_rate"`
	MaxPositionSize float64 `json:"max_position_size"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	GatewayMode     string  `json:"gateway_mode"`
	InitialBalance  float64 `json:"initial_balance"`
}

func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		ShortMAPeriod:   cfg.Strategy.ShortMAPeriod,
		LongMAPeriod:    cfg.Strategy.LongMAPeriod,
		PositionSize:    cfg.Strategy.PositionSize,
		StopLossPct:     cfg.Strategy.StopLossPct,
		TakeProfitPct:   cfg.Strategy.TakeProfitPct,
		MaxOrderRate:    cfg.Risk.MaxOrderRate,
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxDrawdownPct:  cfg.Risk.MaxDrawdownPct,
		GatewayMode:     cfg.Gateway.Mode,
		InitialBalance:  cfg.Gateway.InitialBalance,
	}
}
