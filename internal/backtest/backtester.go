package backtest

import (
	"context"
	"fmt"
	"sync"

	"stock-backtester/internal/market"
)

// Backtester 在 Engine 之上保存最近一次回测结果，供后续查询汇总。
// 每次 Run 都会整体替换上一次的结果；Run 失败时保留旧结果。
type Backtester struct {
	engine *Engine

	mu   sync.RWMutex
	last *Result
}

// NewBacktester 创建回测会话。
func NewBacktester(engine *Engine) (*Backtester, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine 不能为空", ErrConfig)
	}
	return &Backtester{engine: engine}, nil
}

// Run 执行回测并记录结果。
func (b *Backtester) Run(ctx context.Context, series market.Series, source SignalSource) (*Result, error) {
	result, err := b.engine.Run(ctx, series, source)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.last = result
	b.mu.Unlock()
	return result, nil
}

// Result 返回最近一次回测结果。
func (b *Backtester) Result() (*Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return nil, fmt.Errorf("%w: 尚未执行回测", ErrState)
	}
	return b.last, nil
}

// Journal 返回最近一次回测的交易日志。
func (b *Backtester) Journal() (*Journal, error) {
	result, err := b.Result()
	if err != nil {
		return nil, err
	}
	return result.Journal, nil
}

// Summary 返回最近一次回测的绩效汇总。
func (b *Backtester) Summary() (Summary, error) {
	result, err := b.Result()
	if err != nil {
		return Summary{}, err
	}
	return Summarize(result)
}
