package config

import "testing"

func validConfig() Config {
	return Config{
		Symbol: "BTCUSDT",
		Strategy: StrategyConfig{
			ShortMAPeriod: 5,
			LongMAPeriod:  20,
			PositionSize:  100,
		},
		Risk: RiskConfig{
			MaxOrderRate:    10,
			MaxPositionSize: 1000,
			MaxDrawdownPct:  0.1,
		},
		Data: DataConfig{
			FilePath: "data/ticks.csv",
		},
		Gateway: GatewayConfig{
			Mode:           "simple",
			InitialBalance: 100000,
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsMissingSymbol(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Symbol = ""
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing symbol")
	}
}

func TestValidateRejectsShortNotLessThanLong(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Strategy.ShortMAPeriod = 20
	c.Strategy.LongMAPeriod = 20
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error when short_ma_period >= long_ma_period")
	}
}

func TestValidateRejectsZeroPositionSize(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Strategy.PositionSize = 0
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for zero position size")
	}
}

func TestValidateRejectsDrawdownOutOfFractionRange(t *testing.T) {
	t.Parallel()

	tests := []float64{0, 1, 1.5, -0.1}
	for _, v := range tests {
		c := validConfig()
		c.Risk.MaxDrawdownPct = v
		if err := c.Validate(); err == nil {
			t.Fatalf("Validate() with MaxDrawdownPct=%v = nil, want error", v)
		}
	}
}

func TestValidateRequiresDataSource(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Data.FilePath = ""
	c.Data.RemoteURL = ""
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error when neither file_path nor remote_url is set")
	}
}

func TestValidateRejectsUnknownGatewayMode(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Gateway.Mode = "exotic"
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for unknown gateway mode")
	}
}

func TestValidateAcceptsEmptyGatewayModeAsDefault(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Gateway.Mode = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for empty gateway mode", err)
	}
}

func TestValidateRejectsNonPositiveInitialBalance(t *testing.T) {
	t.Parallel()
	c := validConfig()
	c.Gateway.InitialBalance = 0
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for non-positive initial balance")
	}
}
