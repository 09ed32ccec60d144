package strategy

import (
	"stock-backtester/internal/backtest"
	"stock-backtester/internal/indicator"
	"stock-backtester/internal/market"
)

// MovingAverageCross 在短均线高于长均线时给出 +1，低于时给出 -1，
// 预热期或两线相等时为 0。
type MovingAverageCross struct {
	Short int
	Long  int
}

// NewMovingAverageCross 创建均线交叉策略并校验参数。
func NewMovingAverageCross(short, long int) (*MovingAverageCross, error) {
	s := &MovingAverageCross{Short: short, Long: long}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MovingAverageCross) Name() string { return NameMACross }

func (s *MovingAverageCross) Params() map[string]float64 {
	return map[string]float64{"short": float64(s.Short), "long": float64(s.Long)}
}

// Validate 要求 0 < Short < Long。
func (s *MovingAverageCross) Validate() error {
	if s.Short <= 0 || s.Long <= 0 {
		return invalidParam(NameMACross, "均线周期必须大于0 (short=%d long=%d)", s.Short, s.Long)
	}
	if s.Short >= s.Long {
		return invalidParam(NameMACross, "short(%d) 必须小于 long(%d)", s.Short, s.Long)
	}
	return nil
}

func (s *MovingAverageCross) Signals(series market.Series) ([]backtest.Signal, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	closes := series.Closes()
	shortMA, err := indicator.SMA(closes, s.Short)
	if err != nil {
		return nil, err
	}
	longMA, err := indicator.SMA(closes, s.Long)
	if err != nil {
		return nil, err
	}

	out := make([]backtest.Signal, len(closes))
	for i := range closes {
		if !indicator.Valid(shortMA, i) || !indicator.Valid(longMA, i) {
			continue
		}
		switch {
		case shortMA[i] > longMA[i]:
			out[i] = backtest.SignalLongEntry
		case shortMA[i] < longMA[i]:
			out[i] = backtest.SignalLongExit
		}
	}
	return out, nil
}
