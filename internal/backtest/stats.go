package backtest

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 汇总输出的键名，Raw 与 Formatted 共用。
const (
	KeyFinalValue       = "final_value"
	KeyTotalReturn      = "total_return"
	KeyBuyAndHoldReturn = "buy_and_hold_return"
	KeyTotalTrades      = "total_trades"
	KeyWinRate          = "win_rate"
	KeyAveragePnLPct    = "average_pnl_pct"
	KeyMaxProfitPct     = "max_profit_pct"
	KeyMaxLossPct       = "max_loss_pct"
)

// SummaryKeys 按展示顺序列出汇总键。
var SummaryKeys = []string{
	KeyFinalValue,
	KeyTotalReturn,
	KeyBuyAndHoldReturn,
	KeyTotalTrades,
	KeyWinRate,
	KeyAveragePnLPct,
	KeyMaxProfitPct,
	KeyMaxLossPct,
}

// Summary 为回测绩效汇总。收益率均为小数形式（0.05 表示 5%）。
type Summary struct {
	FinalValue       float64 `json:"final_value"`
	TotalReturn      float64 `json:"total_return"`
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	WinRate          float64 `json:"win_rate"`
	AveragePnLPct    float64 `json:"average_pnl_pct"`
	MaxProfitPct     float64 `json:"max_profit_pct"`
	MaxLossPct       float64 `json:"max_loss_pct"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
}

// Summarize 由回测结果推导绩效汇总。result 为空（尚未回测）时返回 ErrState。
func Summarize(result *Result) (Summary, error) {
	if result == nil || len(result.Portfolio) == 0 {
		return Summary{}, fmt.Errorf("%w: 尚未完成回测，无估值序列", ErrState)
	}

	values := result.Values()
	first, last := values[0], values[len(values)-1]

	summary := Summary{
		FinalValue:  last,
		MaxDrawdown: computeDrawdown(values),
		SharpeRatio: computeSharpe(periodReturns(values), result.Config.periodsPerYear()),
	}
	if first > 0 {
		summary.TotalReturn = last/first - 1
	}

	firstBar, ok := result.Bars.First()
	lastBar, _ := result.Bars.Last()
	if ok && firstBar.Close > 0 {
		summary.BuyAndHoldReturn = lastBar.Close/firstBar.Close - 1
	}

	journal := result.Journal
	if journal.Len() == 0 {
		return summary, nil
	}

	summary.TotalTrades = journal.Len()
	summary.WinningTrades = journal.Wins()
	summary.LosingTrades = journal.Losses()
	summary.WinRate = float64(summary.WinningTrades) / float64(summary.TotalTrades)
	summary.AveragePnLPct = journal.MeanPnLPct()
	summary.MaxProfitPct = journal.MaxPnLPct()
	summary.MaxLossPct = journal.MinPnLPct()

	return summary, nil
}

// Raw 返回数值形式的汇总，便于参数扫描时比较。
func (s Summary) Raw() map[string]float64 {
	return map[string]float64{
		KeyFinalValue:       s.FinalValue,
		KeyTotalReturn:      s.TotalReturn,
		KeyBuyAndHoldReturn: s.BuyAndHoldReturn,
		KeyTotalTrades:      float64(s.TotalTrades),
		KeyWinRate:          s.WinRate,
		KeyAveragePnLPct:    s.AveragePnLPct,
		KeyMaxProfitPct:     s.MaxProfitPct,
		KeyMaxLossPct:       s.MaxLossPct,
	}
}

// Formatted 返回展示用的汇总：金额带千分位，比率为百分比。
// 与 Raw 读取同一个 Summary，不重新计算。
func (s Summary) Formatted() map[string]string {
	p := message.NewPrinter(language.English)
	pct := func(v float64) string { return p.Sprintf("%.2f%%", v*100) }

	return map[string]string{
		KeyFinalValue:       p.Sprintf("%.2f", s.FinalValue),
		KeyTotalReturn:      pct(s.TotalReturn),
		KeyBuyAndHoldReturn: pct(s.BuyAndHoldReturn),
		KeyTotalTrades:      p.Sprintf("%d", s.TotalTrades),
		KeyWinRate:          pct(s.WinRate),
		KeyAveragePnLPct:    pct(s.AveragePnLPct),
		KeyMaxProfitPct:     pct(s.MaxProfitPct),
		KeyMaxLossPct:       pct(s.MaxLossPct),
	}
}
