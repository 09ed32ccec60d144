package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSeries 表示K线序列不满足回测要求（字段缺失、非正价格、时间乱序等）。
	ErrInvalidSeries = errors.New("invalid price series")
	// ErrEmptySeries 表示序列为空。
	ErrEmptySeries = fmt.Errorf("%w: empty series", ErrInvalidSeries)
)

// Series 为单一标的按时间升序排列的K线序列。
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries 以拷贝方式构建序列，调用方后续修改 bars 不会影响 Series。
func NewSeries(symbol string, bars []Bar) Series {
	return Series{Symbol: symbol, Bars: append([]Bar(nil), bars...)}
}

// Len 返回K线数量。
func (s Series) Len() int {
	return len(s.Bars)
}

// Clone 返回深拷贝。
func (s Series) Clone() Series {
	return NewSeries(s.Symbol, s.Bars)
}

// Validate 检查序列非空、字段合法且时间严格递增。
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return ErrEmptySeries
	}
	var prev time.Time
	for i, bar := range s.Bars {
		if err := bar.Validate(); err != nil {
			return fmt.Errorf("第 %d 根K线: %w", i, err)
		}
		if i > 0 && !bar.Timestamp.After(prev) {
			return fmt.Errorf("%w: 第 %d 根K线时间 %s 未晚于前一根 %s",
				ErrInvalidSeries, i, bar.Timestamp.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = bar.Timestamp
	}
	return nil
}

// Between 返回 [since, until) 区间内的子序列，零值表示该端不设限。
func (s Series) Between(since, until time.Time) Series {
	bars := make([]Bar, 0, len(s.Bars))
	for _, bar := range s.Bars {
		if !since.IsZero() && bar.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && !bar.Timestamp.Before(until) {
			continue
		}
		bars = append(bars, bar)
	}
	return Series{Symbol: s.Symbol, Bars: bars}
}

// Closes 返回收盘价序列（新切片）。
func (s Series) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

// Highs 返回最高价序列。
func (s Series) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

// Lows 返回最低价序列。
func (s Series) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

// First 返回第一根K线，序列为空时 ok 为 false。
func (s Series) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Last 返回最后一根K线，序列为空时 ok 为 false。
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

func (s Series) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		out[i] = pick(bar)
	}
	return out
}
