package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-backtester/internal/backtest"
	"stock-backtester/internal/config"
)

func baseStrategyConfig(name string) config.StrategyConfig {
	return config.StrategyConfig{
		Name:       name,
		MACross:    config.MACrossConfig{Short: 10, Long: 30},
		RSI:        config.RSIConfig{Period: 14, Oversold: 30, Overbought: 70},
		Stochastic: config.StochasticConfig{KPeriod: 14, SlowK: 3, DPeriod: 3, Oversold: 20, Overbought: 80},
		MACD:       config.MACDConfig{Fast: 12, Slow: 26, Signal: 9},
	}
}

func TestFromConfig(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := FromConfig(baseStrategyConfig(name))
			require.NoError(t, err)
			assert.Equal(t, name, s.Name())
		})
	}

	s, err := FromConfig(baseStrategyConfig("  RSI "))
	require.NoError(t, err)
	assert.Equal(t, NameRSI, s.Name())

	_, err = FromConfig(baseStrategyConfig("bollinger"))
	assert.ErrorIs(t, err, backtest.ErrConfig)

	bad := baseStrategyConfig(NameMACross)
	bad.MACross.Short = 40
	_, err = FromConfig(bad)
	assert.ErrorIs(t, err, backtest.ErrConfig)
}

func TestExpandGrid_SkipsInvalidCombos(t *testing.T) {
	grid := map[string][]float64{
		"short": {5, 10, 40},
		"long":  {20, 30},
	}
	candidates, err := ExpandGrid(baseStrategyConfig(NameMACross), grid)
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{
		"ma_cross(long=20,short=5)",
		"ma_cross(long=20,short=10)",
		"ma_cross(long=30,short=5)",
		"ma_cross(long=30,short=10)",
	}, labels)
	assert.Equal(t, map[string]float64{"short": 5, "long": 20}, candidates[0].Params)
	assert.NotNil(t, candidates[0].Source)
}

func TestExpandGrid_Errors(t *testing.T) {
	base := baseStrategyConfig(NameMACross)

	cases := map[string]map[string][]float64{
		"empty grid":    {},
		"no values":     {"short": {}},
		"non integer":   {"short": {2.5}},
		"unknown param": {"period": {14}},
		"all invalid":   {"short": {30, 50}},
	}
	for name, grid := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExpandGrid(base, grid)
			assert.ErrorIs(t, err, backtest.ErrConfig)
		})
	}
}

func TestExpandGrid_RSIThresholds(t *testing.T) {
	grid := map[string][]float64{
		"oversold":   {20, 30},
		"overbought": {70},
	}
	candidates, err := ExpandGrid(baseStrategyConfig(NameRSI), grid)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "rsi(overbought=70,oversold=20,period=14)", candidates[0].Label)
	assert.Equal(t, 30.0, candidates[1].Params["oversold"])
}
