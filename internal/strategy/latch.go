package strategy

import "stock-backtester/internal/backtest"

// Latch 将离散事件（入场 +1 / 离场 -1，其余为 0）前向填充为持续信号。
// 首个事件出现之前保持 0。
func Latch(events []backtest.Signal) []backtest.Signal {
	out := make([]backtest.Signal, len(events))
	current := backtest.SignalHold
	for i, ev := range events {
		if ev != backtest.SignalHold {
			current = ev
		}
		out[i] = current
	}
	return out
}
