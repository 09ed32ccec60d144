package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stock-backtester/internal/backtest"
)

var (
	rowsHeader   = []string{"date", "open", "high", "low", "close", "volume", "signal", "cash", "position", "portfolio"}
	tradesHeader = []string{"entry_time", "exit_time", "entry_price", "exit_price", "quantity", "pnl_pct", "exit_reason"}
)

// fixed 以定点小数输出，避免浮点在 CSV 中出现科学计数法。
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// WriteRows 输出逐K线明细：行情、信号与账户估值。
func WriteRows(w io.Writer, result *backtest.Result) error {
	if result == nil {
		return fmt.Errorf("report: %w", backtest.ErrState)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(rowsHeader); err != nil {
		return fmt.Errorf("report: 写入表头失败: %w", err)
	}
	for i, row := range result.Rows() {
		point := result.Portfolio[i]
		record := []string{
			row.Timestamp.Format(time.RFC3339),
			fixed(row.Open, 4),
			fixed(row.High, 4),
			fixed(row.Low, 4),
			fixed(row.Close, 4),
			fixed(row.Volume, 0),
			strconv.Itoa(int(row.Signal)),
			fixed(point.Cash, 2),
			fixed(point.Position, 8),
			fixed(row.Portfolio, 2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: 写入明细失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrades 输出交易日志。
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return fmt.Errorf("report: 写入表头失败: %w", err)
	}
	for _, t := range trades {
		record := []string{
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			fixed(t.EntryPrice, 4),
			fixed(t.ExitPrice, 4),
			fixed(t.Quantity, 8),
			fixed(t.PnLPct, 6),
			t.ExitReason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: 写入交易失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles 在 dir 下写入 <prefix>_rows.csv 与 <prefix>_trades.csv，返回两个文件路径。
func WriteFiles(dir, prefix string, result *backtest.Result) (string, string, error) {
	if result == nil {
		return "", "", fmt.Errorf("report: %w", backtest.ErrState)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("report: 创建目录 %q 失败: %w", dir, err)
	}

	rowsPath := filepath.Join(dir, prefix+"_rows.csv")
	if err := writeFile(rowsPath, func(w io.Writer) error { return WriteRows(w, result) }); err != nil {
		return "", "", err
	}
	tradesPath := filepath.Join(dir, prefix+"_trades.csv")
	if err := writeFile(tradesPath, func(w io.Writer) error { return WriteTrades(w, result.Journal.Trades()) }); err != nil {
		return "", "", err
	}
	return rowsPath, tradesPath, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: 创建文件 %q 失败: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("report: 关闭文件 %q 失败: %w", path, closeErr)
		}
	}()
	return write(f)
}
