package strategy

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-backtester/internal/backtest"
)

func TestLatch(t *testing.T) {
	got := Latch(sig(0, 1, 0, 0, -1, 0, 1))
	assert.Equal(t, sig(0, 1, 1, 1, -1, -1, 1), got)
	assert.Empty(t, Latch(nil))
}

func TestMovingAverageCross(t *testing.T) {
	s, err := NewMovingAverageCross(2, 3)
	require.NoError(t, err)

	got, err := s.Signals(makeSeries(1, 2, 3, 4, 5, 4, 3, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, sig(0, 0, 1, 1, 1, 1, -1, -1, -1), got)
}

func TestMovingAverageCross_EqualAveragesHold(t *testing.T) {
	s := &MovingAverageCross{Short: 2, Long: 4}
	got, err := s.Signals(makeSeries(5, 5, 5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, sig(0, 0, 0, 0, 0), got)
}

func TestRSI_CrossesThresholds(t *testing.T) {
	s, err := NewRSI(2, 30, 70)
	require.NoError(t, err)

	// RSI: NaN NaN 0 50 100 100 50 0
	got, err := s.Signals(makeSeries(10, 9, 8, 9, 10, 11, 10, 9))
	require.NoError(t, err)
	assert.Equal(t, sig(0, 0, 0, 1, 1, 1, -1, -1), got)
}

func TestRSI_NoEntryBeforeFullWindow(t *testing.T) {
	s, err := NewRSI(2, 30, 70)
	require.NoError(t, err)

	// RSI: NaN NaN 33.3 100，第 2 根没有可比较的前值
	got, err := s.Signals(makeSeries(10, 9, 9.5, 9.6))
	require.NoError(t, err)
	assert.Equal(t, sig(0, 0, 0, 0), got)
}

func TestStochastic_CrossesInZones(t *testing.T) {
	s, err := NewStochastic(3, 1, 2, 55, 58)
	require.NoError(t, err)

	closes := []float64{20, 18, 16, 14, 12, 10, 11, 13, 16, 19, 22, 25, 24, 21, 18, 15}
	got, err := s.Signals(makeSeries(closes...))
	require.NoError(t, err)

	want := sig(0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1)
	assert.Equal(t, want, got)
}

func TestMACD_FollowsHistogramSign(t *testing.T) {
	closes := make([]float64, 0, 40)
	price := 100.0
	for i := 0; i < 20; i++ {
		price *= 1.05
		closes = append(closes, price)
	}
	peak := price
	for k := 1; k <= 20; k++ {
		// 加速下跌，MACD 持续走低
		closes = append(closes, peak-0.5*float64(k*k))
	}

	s, err := NewMACD(3, 6, 3)
	require.NoError(t, err)
	got, err := s.Signals(makeSeries(closes...))
	require.NoError(t, err)
	require.Len(t, got, len(closes))

	for i := 0; i < 6+3-2; i++ {
		assert.Equal(t, backtest.SignalHold, got[i], "warm-up index %d", i)
	}
	assert.Equal(t, backtest.SignalLongEntry, got[19])
	assert.Equal(t, backtest.SignalLongExit, got[len(got)-1])
}

func TestInvalidParameters(t *testing.T) {
	cases := map[string]func() error{
		"ma short >= long": func() error { _, err := NewMovingAverageCross(30, 10); return err },
		"ma zero":          func() error { _, err := NewMovingAverageCross(0, 10); return err },
		"rsi period":       func() error { _, err := NewRSI(0, 30, 70); return err },
		"rsi band":         func() error { _, err := NewRSI(14, 70, 30); return err },
		"rsi range":        func() error { _, err := NewRSI(14, -1, 101); return err },
		"stoch period":     func() error { _, err := NewStochastic(14, 0, 3, 20, 80); return err },
		"macd order":       func() error { _, err := NewMACD(26, 12, 9); return err },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			err := build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, backtest.ErrConfig), "unexpected error: %v", err)
		})
	}

	_, err := (&MACD{Fast: 5, Slow: 5, Signal: 1}).Signals(makeSeries(1, 2, 3))
	assert.True(t, errors.Is(err, backtest.ErrConfig))
}

func TestStrategiesDoNotMutateInput(t *testing.T) {
	series := makeSeries(10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 12, 11)
	before := series.Clone()

	for _, s := range []Strategy{
		&MovingAverageCross{Short: 2, Long: 4},
		&RSI{Period: 3, Oversold: 30, Overbought: 70},
		&Stochastic{KPeriod: 3, SlowK: 2, DPeriod: 2, Oversold: 20, Overbought: 80},
		&MACD{Fast: 2, Slow: 4, Signal: 2},
	} {
		got, err := s.Signals(series)
		require.NoError(t, err, s.Name())
		assert.Len(t, got, series.Len(), s.Name())
		for _, v := range got {
			assert.True(t, v.Valid(), s.Name())
		}
	}
	assert.Equal(t, before, series)
}

func TestStrategyDrivesEngine(t *testing.T) {
	engine, err := backtest.NewEngine(backtest.Config{InitialCash: 1000, ForceLiquidateAtEnd: true}, nil)
	require.NoError(t, err)

	s, err := NewMovingAverageCross(2, 3)
	require.NoError(t, err)
	series := makeSeries(1, 2, 3, 4, 5, 4, 3, 2, 1)

	result, err := engine.Run(context.Background(), series, s)
	require.NoError(t, err)
	require.Equal(t, 1, result.Journal.Len())

	// 第 2 根以 3 买入，第 6 根以 3 卖出
	trade := result.Journal.Trades()[0]
	assert.Equal(t, 3.0, trade.EntryPrice)
	assert.Equal(t, 3.0, trade.ExitPrice)
	assert.InDelta(t, 1000.0, result.FinalCash, 1e-9)
	assert.False(t, math.IsNaN(result.Portfolio[len(result.Portfolio)-1].Value))
}
