// Package config defines all configuration for the backtest engine. Config
// is loaded from a YAML file (default: configs/config.yaml) with sensitive
// or deployment-specific fields overridable via AEGIS_* environment
// variables. Grounded on the teacher's internal/config/config.go for the
// viper Load/Validate shape; section names and fields are replaced to match
// a backtest engine instead of a market-making bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Symbol      string            `mapstructure:"symbol"`
	Strategy    StrategyConfig    `mapstructure:"strategy"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Data        DataConfig        `mapstructure:"data"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
}

// StrategyConfig tunes the Dual-MA crossover strategy.
type StrategyConfig struct {
	ShortMAPeriod int     `mapstructure:"short_ma_period"`
	LongMAPeriod  int     `mapstructure:"long_ma_period"`
	PositionSize  float64 `mapstructure:"position_size"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	WarmupBars    int     `mapstructure:"warmup_bars"`
}

// RiskConfig sets hard limits enforced before every order reaches a gateway.
type RiskConfig struct {
	MaxOrderRate    int     `mapstructure:"max_order_rate"`
	MaxPositionSize float64 `mapstructure:"max_position_size"`
	MaxOrderValue   float64 `mapstructure:"max_order_value"`
	MaxDrawdownPct  float64 `mapstructure:"max_drawdown_pct"`
}

// DataConfig points at the tick source: a local CSV file, or a
// resty-backed remote CSV endpoint when RemoteURL is set.
type DataConfig struct {
	FilePath               string        `mapstructure:"file_path"`
	RemoteURL              string        `mapstructure:"remote_url"`
	RemoteTimeout          time.Duration `mapstructure:"remote_timeout"`
	OutlierZScoreThreshold float64       `mapstructure:"outlier_zscore_threshold"`
	FillMissing            bool          `mapstructure:"fill_missing"`
	AdjustPrices           bool          `mapstructure:"adjust_prices"`
}

// GatewayConfig selects and parameterizes order execution simulation.
type GatewayConfig struct {
	Mode               string  `mapstructure:"mode"` // "simple" or "l1"
	InitialBalance     float64 `mapstructure:"initial_balance"`
	Slippage           float64 `mapstructure:"slippage"`
	CommissionRate     float64 `mapstructure:"commission_rate"`
	L1BaseSlippage     float64 `mapstructure:"l1_base_slippage"`
	L1ImpactFactor     float64 `mapstructure:"l1_impact_factor"`
	L1MaxSlippage      float64 `mapstructure:"l1_max_slippage"`
	L1FillRatio        float64 `mapstructure:"l1_fill_ratio"`
	LatencySampleRate  int64   `mapstructure:"latency_sample_rate"`
}

// PersistenceConfig controls the SQLite trade/account sink.
type PersistenceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional live websocket replay dashboard.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with AEGIS_*-prefixed env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("AEGIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("AEGIS_DATA_REMOTE_URL"); url != "" {
		cfg.Data.RemoteURL = url
	}
	if path := os.Getenv("AEGIS_DATA_FILE_PATH"); path != "" {
		cfg.Data.FilePath = path
	}
	if dbPath := os.Getenv("AEGIS_PERSISTENCE_DB_PATH"); dbPath != "" {
		cfg.Persistence.DBPath = dbPath
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Strategy.ShortMAPeriod <= 0 || c.Strategy.LongMAPeriod <= 0 {
		return fmt.Errorf("strategy.short_ma_period and strategy.long_ma_period must be > 0")
	}
	if c.Strategy.ShortMAPeriod >= c.Strategy.LongMAPeriod {
		return fmt.Errorf("strategy.short_ma_period must be less than strategy.long_ma_period")
	}
	if c.Strategy.PositionSize <= 0 {
		return fmt.Errorf("strategy.position_size must be > 0")
	}
	if c.Risk.MaxOrderRate <= 0 {
		return fmt.Errorf("risk.max_order_rate must be > 0")
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be > 0")
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct >= 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be a fraction in (0, 1)")
	}
	if c.Data.FilePath == "" && c.Data.RemoteURL == "" {
		return fmt.Errorf("one of data.file_path or data.remote_url is required")
	}
	switch c.Gateway.Mode {
	case "simple", "l1", "":
	default:
		return fmt.Errorf("gateway.mode must be one of: simple, l1")
	}
	if c.Gateway.InitialBalance <= 0 {
		return fmt.Errorf("gateway.initial_balance must be > 0")
	}
	return nil
}
