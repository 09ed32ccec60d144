package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"stock-backtester/internal/config"
	"stock-backtester/internal/log"
	"stock-backtester/internal/monitor"
	"stock-backtester/internal/store"
)

// Options 为命令行覆盖项。
type Options struct {
	Sweep bool // 强制启用参数扫描
}

// App 聚合核心依赖并驱动一次回测任务。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	out    io.Writer
}

// New 创建 App 实例，报告输出到标准输出。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: log.OrNop(logger),
		store:  store,
		out:    os.Stdout,
	}
}

// SetOutput 替换报告输出目标。
func (a *App) SetOutput(w io.Writer) {
	if w != nil {
		a.out = w
	}
}

// Run 加载数据并执行单次回测或参数扫描。
// 开启 monitor 时，回测完成后继续提供查询接口直至 ctx 结束。
func (a *App) Run(ctx context.Context, opts Options) error {
	a.logger.Info("回测任务启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("source", a.cfg.Data.Source),
		zap.String("symbol", a.cfg.Data.Symbol),
		zap.String("strategy", a.cfg.Strategy.Name),
	)

	var svc *monitor.Service
	if a.store != nil {
		var err error
		if svc, err = monitor.NewService(a.store, a.logger); err != nil {
			return err
		}
	}

	p, err := newPipeline(a.cfg, svc, a.out, a.logger)
	if err != nil {
		return err
	}

	series, err := p.loadSeries(ctx)
	if err != nil {
		return fmt.Errorf("加载行情失败: %w", err)
	}
	a.logger.Info("行情加载完成", zap.String("symbol", series.Symbol), zap.Int("bars", series.Len()))

	if opts.Sweep || a.cfg.Sweep.Enabled {
		if _, err := p.runSweep(ctx, series); err != nil {
			return fmt.Errorf("参数扫描失败: %w", err)
		}
	} else if _, _, err := p.runSingle(ctx, series); err != nil {
		return fmt.Errorf("回测失败: %w", err)
	}

	if !a.cfg.Monitor.Enabled || svc == nil {
		return nil
	}
	if err := startMonitorServer(ctx, svc, a.cfg.Monitor.Port, a.logger); err != nil {
		return err
	}
	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("收到退出信号，正在停止")
	return nil
}
