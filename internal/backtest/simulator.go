package backtest

import "time"

// 平仓原因。
const (
	ExitReasonSignal    = "signal"
	ExitReasonEndOfData = "end_of_data"
)

// simulator 维护单次回测的账户状态机。
// 任一时刻 cash 与 position 至多一个为正：开仓时全部现金换成持仓，平仓时全部持仓换回现金。
type simulator struct {
	feeRate float64

	cash       float64
	position   float64
	entryPrice float64
	entryTime  time.Time
	state      PositionState
}

func newSimulator(initialCash, feeRate float64) *simulator {
	return &simulator{
		feeRate: feeRate,
		cash:    initialCash,
		state:   PositionFlat,
	}
}

// apply 按状态转移表处理一个信号，产生完整交易时返回 trade 与 true。
//
//	FLAT + LONG_ENTRY -> LONG
//	LONG + LONG_EXIT  -> FLAT (记录一笔交易)
//	其余组合不改变状态
func (s *simulator) apply(signal Signal, price float64, ts time.Time) (Trade, bool) {
	switch {
	case s.state == PositionFlat && signal == SignalLongEntry:
		s.position = (s.cash / price) * (1 - s.feeRate)
		s.cash = 0
		s.entryPrice = price
		s.entryTime = ts
		s.state = PositionLong
		return Trade{}, false
	case s.state == PositionLong && signal == SignalLongExit:
		return s.close(price, ts, ExitReasonSignal, s.feeRate), true
	default:
		return Trade{}, false
	}
}

// liquidate 期末强制平仓。按最后收盘价折算且不收手续费，只改变账户的表示形式，不改变总值。
func (s *simulator) liquidate(price float64, ts time.Time) (Trade, bool) {
	if s.state != PositionLong {
		return Trade{}, false
	}
	return s.close(price, ts, ExitReasonEndOfData, 0), true
}

func (s *simulator) close(price float64, ts time.Time, reason string, fee float64) Trade {
	trade := newTrade(s.entryPrice, price, s.position, s.entryTime, ts, reason)
	s.cash = (s.position * price) * (1 - fee)
	s.position = 0
	s.entryPrice = 0
	s.entryTime = time.Time{}
	s.state = PositionFlat
	return trade
}

// value 返回以给定价格计价的账户总值。
func (s *simulator) value(price float64) float64 {
	return s.cash + s.position*price
}
