package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"stock-backtester/internal/backtest"
	"stock-backtester/internal/config"
	"stock-backtester/internal/exchange"
	"stock-backtester/internal/market"
	"stock-backtester/internal/monitor"
	"stock-backtester/internal/report"
	"stock-backtester/internal/strategy"
)

// pipeline 串联数据加载、回测、报告与记录。
type pipeline struct {
	cfg     *config.Config
	engine  *backtest.Engine
	monitor *monitor.Service
	text    *report.Text
	out     io.Writer
	logger  *zap.Logger
}

func newPipeline(cfg *config.Config, svc *monitor.Service, out io.Writer, logger *zap.Logger) (*pipeline, error) {
	engine, err := backtest.NewEngine(backtest.Config{
		InitialCash:         cfg.Backtest.InitialCash,
		FeeRate:             cfg.Backtest.FeeRate,
		ForceLiquidateAtEnd: cfg.Backtest.ForceLiquidateAtEnd,
		PeriodsPerYear:      cfg.Backtest.PeriodsPerYear,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:     cfg,
		engine:  engine,
		monitor: svc,
		text:    report.NewText(cfg.Report.LastTrades),
		out:     out,
		logger:  logger,
	}, nil
}

func (p *pipeline) loadSeries(ctx context.Context) (market.Series, error) {
	since, until, err := p.cfg.Data.Window()
	if err != nil {
		return market.Series{}, err
	}

	switch p.cfg.Data.Source {
	case config.DataSourceExchange:
		client, err := exchange.NewClient(p.cfg.Exchange, p.cfg.Data.Symbol, p.logger)
		if err != nil {
			return market.Series{}, err
		}
		history := exchange.NewHistoryService(client, p.cfg.Exchange.PageLimit, p.logger)
		return history.Download(ctx, exchange.HistoryRequest{
			Symbol:    p.cfg.Data.Symbol,
			Timeframe: p.cfg.Data.Timeframe,
			Since:     since,
			Until:     until,
		})
	default:
		series, err := market.LoadCSVFile(p.cfg.Data.Path, p.cfg.Data.Symbol)
		if err != nil {
			return market.Series{}, err
		}
		windowed := series.Between(since, until)
		if windowed.Len() == 0 {
			return market.Series{}, fmt.Errorf("%w: %s 在 %s ~ %s 区间内没有数据",
				market.ErrEmptySeries, p.cfg.Data.Symbol, p.cfg.Data.Since, p.cfg.Data.Until)
		}
		return windowed, nil
	}
}

// runSingle 以配置中的策略执行一次回测。
func (p *pipeline) runSingle(ctx context.Context, series market.Series) (*backtest.Result, backtest.Summary, error) {
	strat, err := strategy.FromConfig(p.cfg.Strategy)
	if err != nil {
		return nil, backtest.Summary{}, err
	}

	session, err := backtest.NewBacktester(p.engine)
	if err != nil {
		return nil, backtest.Summary{}, err
	}
	result, err := session.Run(ctx, series, strat)
	if err != nil {
		return nil, backtest.Summary{}, err
	}
	summary, err := session.Summary()
	if err != nil {
		return nil, backtest.Summary{}, err
	}

	label := strategy.Label(strat)
	p.logger.Info("回测完成",
		zap.String("symbol", series.Symbol),
		zap.String("strategy", label),
		zap.Float64("final_value", summary.FinalValue),
		zap.Float64("total_return", summary.TotalReturn),
		zap.Int("trades", summary.TotalTrades),
	)

	if p.monitor != nil {
		if _, err := p.monitor.RecordRun(ctx, monitor.RunInput{
			Strategy: strat.Name(),
			Label:    label,
			Symbol:   series.Symbol,
			Params:   strat.Params(),
			Result:   result,
			Summary:  summary,
		}); err != nil {
			p.logger.Warn("记录回测结果失败", zap.Error(err))
		}
	}

	fmt.Fprintln(p.out, p.text.Render(fmt.Sprintf("%s  %s", series.Symbol, label), result, summary))
	if err := p.exportCSV(series.Symbol, strat.Name(), result); err != nil {
		return nil, backtest.Summary{}, err
	}
	return result, summary, nil
}

// runSweep 展开参数网格并发回测，输出排名并展示最优组合的完整报告。
func (p *pipeline) runSweep(ctx context.Context, series market.Series) ([]backtest.Outcome, error) {
	candidates, err := strategy.ExpandGrid(p.cfg.Strategy, p.cfg.Sweep.Grid)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	outcomes, err := backtest.Sweep(ctx, p.engine, series, candidates, p.cfg.Sweep.Parallelism)
	if err != nil {
		return nil, err
	}
	p.logger.Info("参数扫描完成",
		zap.String("strategy", p.cfg.Strategy.Name),
		zap.Int("candidates", len(outcomes)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if p.monitor != nil {
		if _, err := p.monitor.RecordOutcomes(ctx, p.cfg.Strategy.Name, series.Symbol, outcomes); err != nil {
			p.logger.Warn("记录参数扫描结果失败", zap.Error(err))
		}
	}

	fmt.Fprintln(p.out, p.text.RenderSweep(outcomes, p.cfg.Sweep.TopN))
	if best, ok := backtest.Best(outcomes); ok {
		fmt.Fprintln(p.out, p.text.Render(fmt.Sprintf("%s  最优 %s", series.Symbol, best.Candidate.Label), best.Result, best.Summary))
		if err := p.exportCSV(series.Symbol, p.cfg.Strategy.Name, best.Result); err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

func (p *pipeline) exportCSV(symbol, strategyName string, result *backtest.Result) error {
	if !p.cfg.Report.WriteCSV {
		return nil
	}
	prefix := sanitize(symbol) + "_" + strategyName
	rowsPath, tradesPath, err := report.WriteFiles(p.cfg.Report.OutputDir, prefix, result)
	if err != nil {
		return err
	}
	p.logger.Info("已导出回测明细",
		zap.String("rows", filepath.Clean(rowsPath)),
		zap.String("trades", filepath.Clean(tradesPath)),
	)
	return nil
}

// sanitize 将交易对中的路径分隔符等字符替换为下划线。
func sanitize(symbol string) string {
	return strings.NewReplacer("/", "_", ":", "_", "\\", "_", " ", "_").Replace(symbol)
}
