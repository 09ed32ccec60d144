package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stock-backtester/internal/log"
	"stock-backtester/internal/market"
)

// PortfolioPoint 为某根K线收盘时的账户估值。
type PortfolioPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Cash      float64   `json:"cash"`
	Position  float64   `json:"position"`
	Value     float64   `json:"value"`
}

// Row 为逐K线输出视图：原始K线 + 信号 + 账户估值。
type Row struct {
	market.Bar
	Signal    Signal  `json:"signal"`
	Portfolio float64 `json:"portfolio"`
}

// Result 汇总单次回测的输出。输入序列以副本形式保存，调用方的数据不会被修改。
type Result struct {
	Config        Config
	Bars          market.Series
	Signals       []Signal
	Portfolio     []PortfolioPoint
	Journal       *Journal
	FinalState    PositionState
	FinalCash     float64
	FinalPosition float64
}

// Rows 返回与输入一一对齐的逐K线视图。
func (r *Result) Rows() []Row {
	if r == nil {
		return nil
	}
	rows := make([]Row, len(r.Bars.Bars))
	for i, bar := range r.Bars.Bars {
		rows[i] = Row{Bar: bar, Signal: r.Signals[i], Portfolio: r.Portfolio[i].Value}
	}
	return rows
}

// Values 返回账户估值序列。
func (r *Result) Values() []float64 {
	if r == nil {
		return nil
	}
	values := make([]float64, len(r.Portfolio))
	for i, p := range r.Portfolio {
		values[i] = p.Value
	}
	return values
}

// Engine 将价格序列与信号序列转换为账户估值曲线与交易日志。
// Engine 只持有配置，可被多个 goroutine 同时调用 Run。
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine 构建回测引擎。
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: log.OrNop(logger)}, nil
}

// Run 执行一次完整回测。
//
// 所有输入校验在状态变更前完成：序列非法返回 ErrData，信号数量或取值不匹配返回 ErrSchema。
// 同样的输入重复调用得到逐位相同的结果。
func (e *Engine) Run(ctx context.Context, series market.Series, source SignalSource) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: signal source 不能为空", ErrConfig)
	}

	bars := series.Clone()
	if err := bars.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrData, err)
	}

	raw, err := source.Signals(bars.Clone())
	if err != nil {
		return nil, fmt.Errorf("backtest: 生成信号失败: %w", err)
	}
	signals, err := alignSignals(raw, bars.Len())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("开始回测",
		zap.String("symbol", bars.Symbol),
		zap.Int("bars", bars.Len()),
		zap.Float64("initial_cash", e.cfg.InitialCash),
		zap.Float64("fee_rate", e.cfg.FeeRate),
	)

	sim := newSimulator(e.cfg.InitialCash, e.cfg.FeeRate)
	journal := newJournal()
	portfolio := make([]PortfolioPoint, 0, bars.Len())

	for i, bar := range bars.Bars {
		price := bar.Close
		if trade, closed := sim.apply(signals[i], price, bar.Timestamp); closed {
			if err := journal.append(trade); err != nil {
				return nil, err
			}
		}
		portfolio = append(portfolio, PortfolioPoint{
			Timestamp: bar.Timestamp,
			Cash:      sim.cash,
			Position:  sim.position,
			Value:     sim.value(price),
		})
	}

	if e.cfg.ForceLiquidateAtEnd {
		last, _ := bars.Last()
		if trade, closed := sim.liquidate(last.Close, last.Timestamp); closed {
			if err := journal.append(trade); err != nil {
				return nil, err
			}
			e.logger.Debug("期末强制平仓",
				zap.Time("timestamp", last.Timestamp),
				zap.Float64("price", last.Close),
				zap.Float64("pnl_pct", trade.PnLPct),
			)
		}
	}
	journal.seal()

	result := &Result{
		Config:        e.cfg,
		Bars:          bars,
		Signals:       signals,
		Portfolio:     portfolio,
		Journal:       journal,
		FinalState:    sim.state,
		FinalCash:     sim.cash,
		FinalPosition: sim.position,
	}

	e.logger.Debug("回测完成",
		zap.String("symbol", bars.Symbol),
		zap.Int("trades", journal.Len()),
		zap.Float64("final_value", portfolio[len(portfolio)-1].Value),
	)

	return result, nil
}

func alignSignals(raw []Signal, bars int) ([]Signal, error) {
	if len(raw) != bars {
		return nil, fmt.Errorf("%w: 信号数量 %d 与K线数量 %d 不一致", ErrSchema, len(raw), bars)
	}
	signals := make([]Signal, len(raw))
	for i, s := range raw {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: 第 %d 个信号取值 %d 非法", ErrSchema, i, int8(s))
		}
		signals[i] = s
	}
	return signals, nil
}
