package strategy

import (
	"stock-backtester/internal/backtest"
	"stock-backtester/internal/indicator"
	"stock-backtester/internal/market"
)

// MACD 在 MACD 线高于信号线时给出 +1，低于时给出 -1。
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func NewMACD(fast, slow, signal int) (*MACD, error) {
	s := &MACD{Fast: fast, Slow: slow, Signal: signal}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MACD) Name() string { return NameMACD }

func (s *MACD) Params() map[string]float64 {
	return map[string]float64{
		"fast":   float64(s.Fast),
		"slow":   float64(s.Slow),
		"signal": float64(s.Signal),
	}
}

func (s *MACD) Validate() error {
	if s.Fast <= 0 || s.Slow <= 0 || s.Signal <= 0 {
		return invalidParam(NameMACD, "周期必须大于0 (fast=%d slow=%d signal=%d)", s.Fast, s.Slow, s.Signal)
	}
	if s.Fast >= s.Slow {
		return invalidParam(NameMACD, "fast(%d) 必须小于 slow(%d)", s.Fast, s.Slow)
	}
	return nil
}

func (s *MACD) Signals(series market.Series) ([]backtest.Signal, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	macd, signal, _, err := indicator.MACD(series.Closes(), s.Fast, s.Slow, s.Signal)
	if err != nil {
		return nil, err
	}

	out := make([]backtest.Signal, len(macd))
	for i := range macd {
		if !indicator.Valid(macd, i) || !indicator.Valid(signal, i) {
			continue
		}
		switch {
		case macd[i] > signal[i]:
			out[i] = backtest.SignalLongEntry
		case macd[i] < signal[i]:
			out[i] = backtest.SignalLongExit
		}
	}
	return out, nil
}
