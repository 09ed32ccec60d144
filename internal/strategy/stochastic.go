package strategy

import (
	"stock-backtester/internal/backtest"
	"stock-backtester/internal/indicator"
	"stock-backtester/internal/market"
)

// Stochastic 基于 KD 指标：%K 在超卖区上穿 %D 时入场，在超买区下穿 %D 时离场，
// 信号前向填充。区间高低价相等时 %K 饱和为 100。
type Stochastic struct {
	KPeriod    int
	SlowK      int
	DPeriod    int
	Oversold   float64
	Overbought float64
}

// NewStochastic 创建 KD 策略并校验参数。
func NewStochastic(kPeriod, slowK, dPeriod int, oversold, overbought float64) (*Stochastic, error) {
	s := &Stochastic{KPeriod: kPeriod, SlowK: slowK, DPeriod: dPeriod, Oversold: oversold, Overbought: overbought}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stochastic) Name() string { return NameStochastic }

func (s *Stochastic) Params() map[string]float64 {
	return map[string]float64{
		"k_period":   float64(s.KPeriod),
		"slow_k":     float64(s.SlowK),
		"d_period":   float64(s.DPeriod),
		"oversold":   s.Oversold,
		"overbought": s.Overbought,
	}
}

func (s *Stochastic) Validate() error {
	if s.KPeriod <= 0 || s.SlowK <= 0 || s.DPeriod <= 0 {
		return invalidParam(NameStochastic, "周期必须大于0 (k=%d slow_k=%d d=%d)", s.KPeriod, s.SlowK, s.DPeriod)
	}
	return validateBand(NameStochastic, s.Oversold, s.Overbought)
}

func (s *Stochastic) Signals(series market.Series) ([]backtest.Signal, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	k, d, err := indicator.Stochastic(series.Highs(), series.Lows(), series.Closes(), s.KPeriod, s.SlowK, s.DPeriod)
	if err != nil {
		return nil, err
	}

	events := make([]backtest.Signal, len(k))
	for i := 1; i < len(k); i++ {
		switch {
		case indicator.CrossedAbove(k, d, i) && k[i] < s.Oversold:
			events[i] = backtest.SignalLongEntry
		case indicator.CrossedBelow(k, d, i) && k[i] > s.Overbought:
			events[i] = backtest.SignalLongExit
		}
	}
	return Latch(events), nil
}
