package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"stock-backtester/internal/market"
)

// Candidate 为参数扫描中的一组参数。
type Candidate struct {
	Label  string
	Params map[string]float64
	Source SignalSource
}

// Outcome 为单个候选参数的回测结果。
type Outcome struct {
	Candidate Candidate
	Result    *Result
	Summary   Summary
}

// Sweep 并发地对每个候选参数执行独立回测，结果按候选顺序返回。
//
// 每次回测都由 Engine.Run 拷贝输入序列并创建全新的账户与交易日志，
// 因此候选之间不共享可变状态。任一候选失败时整体返回错误。
func Sweep(ctx context.Context, engine *Engine, series market.Series, candidates []Candidate, parallelism int) ([]Outcome, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine 不能为空", ErrConfig)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for i, candidate := range candidates {
		group.Go(func() error {
			result, err := engine.Run(groupCtx, series, candidate.Source)
			if err != nil {
				return fmt.Errorf("参数组 %q 回测失败: %w", candidate.Label, err)
			}
			summary, err := Summarize(result)
			if err != nil {
				return err
			}
			outcomes[i] = Outcome{Candidate: candidate, Result: result, Summary: summary}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// RankByTotalReturn 返回按总收益率降序排列的新切片。
func RankByTotalReturn(outcomes []Outcome) []Outcome {
	ranked := append([]Outcome(nil), outcomes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Summary.TotalReturn > ranked[j].Summary.TotalReturn
	})
	return ranked
}

// Best 返回总收益率最高的结果。
func Best(outcomes []Outcome) (Outcome, bool) {
	if len(outcomes) == 0 {
		return Outcome{}, false
	}
	return lo.MaxBy(outcomes, func(a, b Outcome) bool {
		return a.Summary.TotalReturn > b.Summary.TotalReturn
	}), true
}
