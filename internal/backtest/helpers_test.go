package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stock-backtester/internal/market"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(closes ...float64) market.Series {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: testStart.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return market.NewSeries("TEST", bars)
}

func signals(values ...int) StaticSignals {
	out := make(StaticSignals, len(values))
	for i, v := range values {
		out[i] = Signal(v)
	}
	return out
}

func newTestEngine(t *testing.T, cash, fee float64) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InitialCash = cash
	cfg.FeeRate = fee
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	return engine
}
