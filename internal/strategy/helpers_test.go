package strategy

import (
	"time"

	"stock-backtester/internal/backtest"
	"stock-backtester/internal/market"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// makeSeries 以收盘价构造日线，高低价为收盘价上下各 1。
func makeSeries(closes ...float64) market.Series {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: testStart.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return market.NewSeries("TEST", bars)
}

func sig(values ...int) []backtest.Signal {
	out := make([]backtest.Signal, len(values))
	for i, v := range values {
		out[i] = backtest.Signal(v)
	}
	return out
}
