package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultAppliesTags(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "BTCUSDT", c.Engine.Symbol)
	assert.Equal(t, "paper", c.Engine.Mode)
	assert.Equal(t, 500, c.Engine.MaxHistory)
	assert.Equal(t, 0.001, c.Costs.FeeRate)
	assert.Equal(t, 0.05, c.Risk.MaxDailyLoss)
	assert.Equal(t, 100, c.Risk.MaxOrdersPerDay)
	assert.Equal(t, "localhost:9000", c.ClickHouse.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
engine:
  symbol: ETHUSDT
  strategy: momentum
  initial_capital: 25000
risk:
  max_daily_loss: 0.03
costs:
  fee_rate: 0.002
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "ETHUSDT", c.Engine.Symbol)
	assert.Equal(t, "momentum", c.Engine.Strategy)
	assert.Equal(t, 0.03, c.Risk.MaxDailyLoss)
	assert.Equal(t, 0.002, c.Costs.FeeRate)
	// Untouched sections keep their defaults.
	assert.Equal(t, "paper", c.Engine.Mode)
	assert.Equal(t, 0.10, c.Risk.MaxPositionSize)
	assert.True(t, c.InitialCapital().Equal(decimal.NewFromInt(25000)))
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing strategy": `
engine:
  symbol: BTCUSDT
`,
		"bad mode": `
engine:
  strategy: momentum
  mode: dryrun
`,
		"position size above exposure": `
engine:
  strategy: momentum
risk:
  max_position_size: 0.9
  max_total_exposure: 0.5
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRADING_SYMBOL", "SOLUSDT")
	t.Setenv("CLICKHOUSE_PASSWORD", "secret")

	path := writeConfig(t, `
engine:
  strategy: momentum
  symbol: BTCUSDT
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", c.Engine.Symbol)
	assert.Equal(t, "secret", c.ClickHouse.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
