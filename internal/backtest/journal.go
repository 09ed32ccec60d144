package backtest

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Trade 记录一笔完整的开平仓往返。
type Trade struct {
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnLPct     float64   `json:"pnl_pct"`
	Quantity   float64   `json:"quantity"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	ExitReason string    `json:"exit_reason"`
}

func newTrade(entry, exit, qty float64, entryTime, exitTime time.Time, reason string) Trade {
	return Trade{
		EntryPrice: entry,
		ExitPrice:  exit,
		PnLPct:     (exit - entry) / entry,
		Quantity:   qty,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		ExitReason: reason,
	}
}

// Win 收益为正视为盈利。
func (t Trade) Win() bool { return t.PnLPct > 0 }

// Loss 收益为负视为亏损，等于0既非盈利也非亏损。
func (t Trade) Loss() bool { return t.PnLPct < 0 }

// Journal 为单次回测的只追加交易日志，回测结束后封存。
type Journal struct {
	trades []Trade
	sealed bool
}

func newJournal() *Journal {
	return &Journal{trades: make([]Trade, 0, 16)}
}

func (j *Journal) append(trade Trade) error {
	if j.sealed {
		return fmt.Errorf("%w: 交易日志已封存", ErrState)
	}
	j.trades = append(j.trades, trade)
	return nil
}

func (j *Journal) seal() {
	j.sealed = true
}

// Len 返回交易笔数。
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.trades)
}

// Trades 返回交易记录副本。
func (j *Journal) Trades() []Trade {
	if j == nil {
		return nil
	}
	return append([]Trade(nil), j.trades...)
}

// Last 返回最后一笔交易。
func (j *Journal) Last() (Trade, bool) {
	if j.Len() == 0 {
		return Trade{}, false
	}
	return j.trades[len(j.trades)-1], true
}

// Wins 返回盈利笔数。
func (j *Journal) Wins() int {
	if j == nil {
		return 0
	}
	return lo.CountBy(j.trades, Trade.Win)
}

// Losses 返回亏损笔数。
func (j *Journal) Losses() int {
	if j == nil {
		return 0
	}
	return lo.CountBy(j.trades, Trade.Loss)
}

// MeanPnLPct 返回平均单笔收益率，无交易时为0。
func (j *Journal) MeanPnLPct() float64 {
	if j.Len() == 0 {
		return 0
	}
	sum := lo.SumBy(j.trades, func(t Trade) float64 { return t.PnLPct })
	return sum / float64(len(j.trades))
}

// MaxPnLPct 返回最大单笔收益率，无交易时为0。
func (j *Journal) MaxPnLPct() float64 {
	if j.Len() == 0 {
		return 0
	}
	return lo.MaxBy(j.trades, func(a, b Trade) bool { return a.PnLPct > b.PnLPct }).PnLPct
}

// MinPnLPct 返回最小单笔收益率（最大亏损），无交易时为0。
func (j *Journal) MinPnLPct() float64 {
	if j.Len() == 0 {
		return 0
	}
	return lo.MinBy(j.trades, func(a, b Trade) bool { return a.PnLPct < b.PnLPct }).PnLPct
}
