package backtest

import (
	"fmt"

	"stock-backtester/internal/market"
)

// SignalSource 根据价格序列生成逐K线信号。
//
// 实现方必须是确定且因果的（第 i 个信号只能依赖前 i 根K线），
// 返回的信号需已完成前向填充（latched）。引擎交给实现方的是独立副本，
// 实现方不得把派生指标写回输入，也不得复用输入切片作为返回值。
type SignalSource interface {
	Signals(series market.Series) ([]Signal, error)
}

// SignalSourceFunc 允许使用函数作为信号源。
type SignalSourceFunc func(series market.Series) ([]Signal, error)

func (f SignalSourceFunc) Signals(series market.Series) ([]Signal, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: 信号函数未实现", ErrConfig)
	}
	return f(series)
}

// StaticSignals 以固定序列提供信号，常用于测试与回放。
type StaticSignals []Signal

func (s StaticSignals) Signals(market.Series) ([]Signal, error) {
	return append([]Signal(nil), s...), nil
}
