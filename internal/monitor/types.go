package monitor

import (
	"errors"
	"time"

	"stock-backtester/internal/backtest"
)

// ErrRunNotFound 表示查询的回测记录不存在。
var ErrRunNotFound = errors.New("backtest run not found")

// RunInput 为写入一次回测记录所需的信息。
type RunInput struct {
	Strategy string
	Label    string
	Symbol   string
	Params   map[string]float64
	Result   *backtest.Result
	Summary  backtest.Summary
}

// RunRecord 为持久化后的回测记录。列表查询不加载 Trades。
type RunRecord struct {
	ID          string             `json:"id"`
	Strategy    string             `json:"strategy"`
	Label       string             `json:"label"`
	Symbol      string             `json:"symbol"`
	Params      map[string]float64 `json:"params"`
	Summary     backtest.Summary   `json:"summary"`
	Bars        int                `json:"bars"`
	InitialCash float64            `json:"initial_cash"`
	FeeRate     float64            `json:"fee_rate"`
	Trades      []backtest.Trade   `json:"trades,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
