package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-trading-engine/domain"
)

func TestParams(t *testing.T) {
	p := Params{"stop_loss_pct": 0.02}

	assert.Equal(t, 0.02, p.Get("stop_loss_pct", 0.05))
	assert.Equal(t, 0.05, p.Get("missing", 0.05))

	v, ok := p.Lookup("stop_loss_pct")
	assert.True(t, ok)
	assert.Equal(t, 0.02, v)
	_, ok = p.Lookup("missing")
	assert.False(t, ok)

	clone := p.Clone()
	clone["stop_loss_pct"] = 0.10
	assert.Equal(t, 0.02, p["stop_loss_pct"], "clone must not alias the original")
}

func TestBase(t *testing.T) {
	b := NewBase("demo", nil)
	assert.Equal(t, "demo", b.Name())
	assert.NotNil(t, b.Parameters())
	assert.Equal(t, 1, b.RequiredHistoryLength())

	b.State["count"] = 3
	b.Reset()
	assert.Empty(t, b.State)
}

type stubStrategy struct {
	Base
}

func (s *stubStrategy) GenerateSignal(bar domain.MarketData, history []domain.MarketData, current *domain.Position) (domain.Signal, error) {
	return domain.Hold(bar), nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("stub", func(name string, params Params) Strategy {
		return &stubStrategy{Base: NewBase(name, params)}
	})

	strat, err := reg.Create("stub", Params{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "stub", strat.Name())
	assert.Equal(t, 1.0, strat.Parameters().Get("x", 0))

	_, err = reg.Create("missing", nil)
	assert.Error(t, err)

	reg.Register("another", func(name string, params Params) Strategy {
		return &stubStrategy{Base: NewBase(name, params)}
	})
	assert.Equal(t, []string{"another", "stub"}, reg.Names())
}

func TestSignalMetadataExtraction(t *testing.T) {
	sig := domain.Signal{
		Type:      domain.SignalBuy,
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
		Metadata: map[string]interface{}{
			"stop_loss":   98.0,
			"take_profit": "105.5",
		},
	}

	sl, ok := sig.StopLoss()
	require.True(t, ok)
	assert.True(t, sl.Equal(decimal.NewFromInt(98)))

	tp, ok := sig.TakeProfit()
	require.True(t, ok)
	assert.True(t, tp.Equal(decimal.RequireFromString("105.5")))

	_, ok = domain.Hold(domain.MarketData{}).StopLoss()
	assert.False(t, ok)
}
