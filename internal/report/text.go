package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stock-backtester/internal/backtest"
)

const defaultLastTrades = 10

var (
	gainColor  = lipgloss.Color("#00FF87")
	lossColor  = lipgloss.Color("#FF5555")
	mutedColor = lipgloss.Color("#6272A4")

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Bold(true)

	gainStyle = lipgloss.NewStyle().Foreground(gainColor)
	lossStyle = lipgloss.NewStyle().Foreground(lossColor)
)

// Text 以终端友好的方式渲染回测报告。
type Text struct {
	LastTrades int
}

// NewText 创建文本报告渲染器，lastTrades<=0 时展示最近 10 笔交易。
func NewText(lastTrades int) *Text {
	if lastTrades <= 0 {
		lastTrades = defaultLastTrades
	}
	return &Text{LastTrades: lastTrades}
}

var summaryLabels = map[string]string{
	backtest.KeyFinalValue:       "期末资产",
	backtest.KeyTotalReturn:      "总收益率",
	backtest.KeyBuyAndHoldReturn: "买入持有收益率",
	backtest.KeyTotalTrades:      "交易次数",
	backtest.KeyWinRate:          "胜率",
	backtest.KeyAveragePnLPct:    "平均单笔收益",
	backtest.KeyMaxProfitPct:     "最大单笔盈利",
	backtest.KeyMaxLossPct:       "最大单笔亏损",
}

// Render 输出总体表现、风险指标与最近交易。
func (r *Text) Render(title string, result *backtest.Result, summary backtest.Summary) string {
	formatted := summary.Formatted()

	var overall strings.Builder
	overall.WriteString(sectionStyle.Render("总体表现") + "\n")
	for _, key := range backtest.SummaryKeys {
		value := formatted[key]
		switch key {
		case backtest.KeyTotalReturn, backtest.KeyAveragePnLPct:
			value = colorBySign(summary.Raw()[key], value)
		}
		overall.WriteString(fmt.Sprintf("%-16s %s\n", summaryLabels[key], value))
	}

	var risk strings.Builder
	risk.WriteString(sectionStyle.Render("风险指标") + "\n")
	risk.WriteString(fmt.Sprintf("%-16s %.2f%%\n", "最大回撤", summary.MaxDrawdown*100))
	risk.WriteString(fmt.Sprintf("%-16s %.2f\n", "夏普比率", summary.SharpeRatio))
	risk.WriteString(fmt.Sprintf("%-16s %d / %d\n", "盈利/亏损笔数", summary.WinningTrades, summary.LosingTrades))

	sections := []string{
		titleStyle.Render(title),
		"",
		overall.String(),
		risk.String(),
	}
	if result != nil {
		if trades := r.recentTrades(result.Journal.Trades()); trades != "" {
			sections = append(sections, trades)
		}
	}

	return boxStyle.Render(strings.TrimRight(strings.Join(sections, "\n"), "\n"))
}

func (r *Text) recentTrades(trades []backtest.Trade) string {
	if len(trades) == 0 {
		return ""
	}
	limit := r.LastTrades
	if limit <= 0 {
		limit = defaultLastTrades
	}
	start := max(len(trades)-limit, 0)

	var sb strings.Builder
	sb.WriteString(sectionStyle.Render(fmt.Sprintf("最近交易（%d 笔）", len(trades)-start)) + "\n")
	for _, trade := range trades[start:] {
		line := fmt.Sprintf("%s → %s  买入 %.2f  卖出 %.2f  %+.2f%%  %s",
			trade.EntryTime.Format("2006-01-02"),
			trade.ExitTime.Format("2006-01-02"),
			trade.EntryPrice,
			trade.ExitPrice,
			trade.PnLPct*100,
			trade.ExitReason,
		)
		sb.WriteString(colorBySign(trade.PnLPct, line) + "\n")
	}
	return sb.String()
}

// RenderSweep 输出参数扫描的前 topN 名（按总收益率）。
func (r *Text) RenderSweep(outcomes []backtest.Outcome, topN int) string {
	ranked := backtest.RankByTotalReturn(outcomes)
	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("参数扫描结果（共 %d 组）", len(outcomes))) + "\n")
	for i, o := range ranked {
		formatted := o.Summary.Formatted()
		line := fmt.Sprintf("%2d. %-40s 收益 %9s  交易 %4s  胜率 %8s  回撤 %.2f%%",
			i+1,
			o.Candidate.Label,
			formatted[backtest.KeyTotalReturn],
			formatted[backtest.KeyTotalTrades],
			formatted[backtest.KeyWinRate],
			o.Summary.MaxDrawdown*100,
		)
		sb.WriteString(colorBySign(o.Summary.TotalReturn, line) + "\n")
	}
	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

func colorBySign(v float64, text string) string {
	switch {
	case v > 0:
		return gainStyle.Render(text)
	case v < 0:
		return lossStyle.Render(text)
	default:
		return text
	}
}
