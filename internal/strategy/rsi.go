package strategy

import (
	"stock-backtester/internal/backtest"
	"stock-backtester/internal/indicator"
	"stock-backtester/internal/market"
)

// RSI 在指标上穿超卖线时入场、下穿超买线时离场，信号前向填充。
//
// 平均跌幅为 0 时 RSI 饱和为 100，涨跌均为 0 时取 50。
type RSI struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSI 创建 RSI 策略并校验参数。
func NewRSI(period int, oversold, overbought float64) (*RSI, error) {
	s := &RSI{Period: period, Oversold: oversold, Overbought: overbought}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RSI) Name() string { return NameRSI }

func (s *RSI) Params() map[string]float64 {
	return map[string]float64{
		"period":     float64(s.Period),
		"oversold":   s.Oversold,
		"overbought": s.Overbought,
	}
}

// Validate 要求 Period > 0 且 0 <= Oversold < Overbought <= 100。
func (s *RSI) Validate() error {
	if s.Period <= 0 {
		return invalidParam(NameRSI, "period 必须大于0, 实际 %d", s.Period)
	}
	return validateBand(NameRSI, s.Oversold, s.Overbought)
}

func (s *RSI) Signals(series market.Series) ([]backtest.Signal, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	rsi, err := indicator.RSI(series.Closes(), s.Period)
	if err != nil {
		return nil, err
	}

	n := len(rsi)
	lower := indicator.Constant(n, s.Oversold)
	upper := indicator.Constant(n, s.Overbought)
	events := make([]backtest.Signal, n)
	for i := 1; i < n; i++ {
		switch {
		case indicator.CrossedAbove(rsi, lower, i):
			events[i] = backtest.SignalLongEntry
		case indicator.CrossedBelow(rsi, upper, i):
			events[i] = backtest.SignalLongExit
		}
	}
	return Latch(events), nil
}

func validateBand(name string, oversold, overbought float64) error {
	if oversold < 0 || overbought > 100 {
		return invalidParam(name, "阈值必须位于[0,100] (oversold=%v overbought=%v)", oversold, overbought)
	}
	if oversold >= overbought {
		return invalidParam(name, "oversold(%v) 必须小于 overbought(%v)", oversold, overbought)
	}
	return nil
}
