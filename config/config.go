// Package config loads the process configuration: YAML file, struct-tag
// defaults, validation and a small set of environment overrides. A .env file
// next to the binary is honored for local runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"algo-trading-engine/marketdata"
	"algo-trading-engine/risk"
)

var validate = validator.New()

// Config is the full process configuration.
type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Engine struct {
		Symbol            string             `yaml:"symbol" default:"BTCUSDT" validate:"required"`
		Mode              string             `yaml:"mode" default:"paper" validate:"oneof=paper live"`
		Strategy          string             `yaml:"strategy" validate:"required"`
		TickInterval      time.Duration      `yaml:"tick_interval" default:"1m"`
		HeartbeatInterval time.Duration      `yaml:"heartbeat_interval" default:"30s"`
		MaxHistory        int                `yaml:"max_history" default:"500" validate:"gt=0"`
		EvalTimeout       time.Duration      `yaml:"eval_timeout" default:"5s"`
		AutoTrading       bool               `yaml:"auto_trading" default:"true"`
		InitialCapital    float64            `yaml:"initial_capital" default:"10000" validate:"gt=0"`
		Parameters        map[string]float64 `yaml:"parameters"`
	} `yaml:"engine"`

	Risk risk.Limits `yaml:"risk"`

	Costs struct {
		FeeRate      float64 `yaml:"fee_rate" default:"0.001" validate:"gte=0,lt=1"`
		SlippageRate float64 `yaml:"slippage_rate" default:"0.0005" validate:"gte=0,lt=1"`
	} `yaml:"costs"`

	Backtest struct {
		DataFile        string  `yaml:"data_file"`
		PositionSizePct float64 `yaml:"position_size_pct" default:"1.0" validate:"gt=0,lte=1"`
	} `yaml:"backtest"`

	ClickHouse marketdata.ClickHouseConfig `yaml:"clickhouse"`

	Stream struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":8081"`
	} `yaml:"stream"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9090"`
	} `yaml:"metrics"`
}

// Default returns the configuration with every default applied and no file
// loaded. Engine.Strategy is left empty and must be set before use.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads the YAML file at path, applies defaults for everything the
// file omits, overlays environment variables and validates the result.
// A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overlays the secrets and deployment knobs that come from the
// environment rather than the checked-in YAML.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRADING_SYMBOL"); v != "" {
		c.Engine.Symbol = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		c.Engine.Mode = v
	}
	if v := os.Getenv("CLICKHOUSE_ADDR"); v != "" {
		c.ClickHouse.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
}

// Validate checks the struct tags plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Risk.MaxPositionSize > c.Risk.MaxTotalExposure {
		return fmt.Errorf("risk.max_position_size %.2f exceeds risk.max_total_exposure %.2f",
			c.Risk.MaxPositionSize, c.Risk.MaxTotalExposure)
	}
	return nil
}

// InitialCapital returns the starting balance as a decimal.
func (c *Config) InitialCapital() decimal.Decimal {
	return decimal.NewFromFloat(c.Engine.InitialCapital)
}
