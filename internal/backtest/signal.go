package backtest

import "fmt"

// Signal 为单根K线上的目标指令。
type Signal int8

const (
	// SignalLongExit 平多。
	SignalLongExit Signal = -1
	// SignalHold 本根K线无指令。
	SignalHold Signal = 0
	// SignalLongEntry 开多。
	SignalLongEntry Signal = 1
)

// Valid 判断信号是否属于 {-1, 0, +1}。
func (s Signal) Valid() bool {
	return s >= SignalLongExit && s <= SignalLongEntry
}

func (s Signal) String() string {
	switch s {
	case SignalLongEntry:
		return "LONG_ENTRY"
	case SignalLongExit:
		return "LONG_EXIT"
	case SignalHold:
		return "HOLD"
	default:
		return fmt.Sprintf("Signal(%d)", int8(s))
	}
}

// PositionState 表示账户当前持仓状态。
type PositionState uint8

const (
	PositionFlat PositionState = iota
	PositionLong
)

func (p PositionState) String() string {
	if p == PositionLong {
		return "LONG"
	}
	return "FLAT"
}
