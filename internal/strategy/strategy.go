package strategy

import (
	"fmt"

	"stock-backtester/internal/backtest"
)

// Strategy 为带名称与参数的信号源。
type Strategy interface {
	backtest.SignalSource
	Name() string
	Params() map[string]float64
}

func invalidParam(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", backtest.ErrConfig, name, fmt.Sprintf(format, args...))
}
