package exchange

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stock-backtester/internal/log"
	"stock-backtester/internal/market"
)

const maxHistoryPages = 10000

// candleFetcher 抽象单页K线拉取，便于替换为测试实现。
type candleFetcher interface {
	FetchCandles(ctx context.Context, timeframe string, since time.Time, limit int64) ([]market.Bar, error)
}

// HistoryRequest 描述一次历史数据下载。
type HistoryRequest struct {
	Symbol    string
	Timeframe string
	Since     time.Time // 为零值时只取最近一页
	Until     time.Time // 为零值时不设上限，区间为 [Since, Until)
}

// HistoryService 分页下载历史K线并拼接为连续序列。
type HistoryService struct {
	fetcher   candleFetcher
	pageLimit int
	logger    *zap.Logger
}

// NewHistoryService 创建历史数据服务。
func NewHistoryService(fetcher candleFetcher, pageLimit int, logger *zap.Logger) *HistoryService {
	if pageLimit <= 0 {
		pageLimit = 500
	}
	return &HistoryService{
		fetcher:   fetcher,
		pageLimit: pageLimit,
		logger:    log.OrNop(logger),
	}
}

// Download 从 Since 开始逐页拉取，直到到达 Until、返回不足一页或游标不再前进。
// 相邻页重叠的K线按时间戳去重。
func (s *HistoryService) Download(ctx context.Context, req HistoryRequest) (market.Series, error) {
	var (
		bars   []market.Bar
		last   time.Time
		cursor = req.Since
	)

	for page := 0; page < maxHistoryPages; page++ {
		if err := ctx.Err(); err != nil {
			return market.Series{}, err
		}

		batch, err := s.fetcher.FetchCandles(ctx, req.Timeframe, cursor, int64(s.pageLimit))
		if err != nil {
			return market.Series{}, fmt.Errorf("下载 %s %s K线失败: %w", req.Symbol, req.Timeframe, err)
		}

		reachedEnd := false
		for _, bar := range batch {
			if !req.Until.IsZero() && !bar.Timestamp.Before(req.Until) {
				reachedEnd = true
				break
			}
			if !last.IsZero() && !bar.Timestamp.After(last) {
				continue
			}
			bars = append(bars, bar)
			last = bar.Timestamp
		}

		s.logger.Debug("已下载K线分页",
			zap.String("symbol", req.Symbol),
			zap.Int("page", page),
			zap.Int("batch", len(batch)),
			zap.Int("total", len(bars)),
		)

		if reachedEnd || len(batch) < s.pageLimit || req.Since.IsZero() {
			break
		}
		next := last.Add(time.Millisecond)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}

	if len(bars) == 0 {
		return market.Series{}, fmt.Errorf("%w: %s %s", ErrNoHistory, req.Symbol, req.Timeframe)
	}

	series := market.NewSeries(req.Symbol, bars)
	if err := series.Validate(); err != nil {
		return market.Series{}, err
	}

	s.logger.Info("历史K线下载完成",
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe),
		zap.Int("bars", series.Len()),
	)
	return series, nil
}
