package market

import (
	"fmt"
	"math"
	"time"
)

// Bar 代表单根K线（一个交易日或一个周期）。
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate 检查单根K线的字段取值。
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return fmt.Errorf("%w: 时间戳缺失", ErrInvalidSeries)
	}
	prices := [...]struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return fmt.Errorf("%w: %s 必须为正数, 实际 %v", ErrInvalidSeries, p.name, p.value)
		}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return fmt.Errorf("%w: volume 不能为负, 实际 %v", ErrInvalidSeries, b.Volume)
	}
	return nil
}
