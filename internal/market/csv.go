package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	fieldDate   = "date"
	fieldOpen   = "open"
	fieldHigh   = "high"
	fieldLow    = "low"
	fieldClose  = "close"
	fieldVolume = "volume"
)

var requiredFields = []string{fieldDate, fieldOpen, fieldHigh, fieldLow, fieldClose, fieldVolume}

var dateAliases = map[string]struct{}{
	"date":      {},
	"datetime":  {},
	"time":      {},
	"timestamp": {},
}

var priceFields = map[string]struct{}{
	fieldOpen:   {},
	fieldHigh:   {},
	fieldLow:    {},
	fieldClose:  {},
	fieldVolume: {},
}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// LoadCSVFile 从文件读取K线，见 LoadCSV。
func LoadCSVFile(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("打开行情文件 %q 失败: %w", path, err)
	}
	defer f.Close()

	series, err := LoadCSV(f, symbol)
	if err != nil {
		return Series{}, fmt.Errorf("读取行情文件 %q 失败: %w", path, err)
	}
	return series, nil
}

// LoadCSV 解析 OHLCV CSV 并归一化为扁平表结构。
//
// 支持三种表头：扁平的 date,open,high,low,close,volume；
// 带代码后缀的 Close_2330.TW 形式；以及 yfinance 导出的两级表头
// （Price,Close,... / Ticker,2330.TW,... / Date,,,...）。
// 返回前会执行 Series.Validate，乱序或重复时间戳直接报错，不做排序。
func LoadCSV(r io.Reader, symbol string) (Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Series{}, ErrEmptySeries
		}
		return Series{}, fmt.Errorf("读取表头失败: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return Series{}, err
	}

	bars := make([]Bar, 0, 256)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Series{}, fmt.Errorf("%w: 第 %d 行解析失败: %v", ErrInvalidSeries, line, err)
		}
		if isPreambleRow(record) {
			continue
		}

		bar, err := parseRecord(record, columns)
		if err != nil {
			return Series{}, fmt.Errorf("第 %d 行: %w", line, err)
		}
		bars = append(bars, bar)
	}

	series := NewSeries(symbol, bars)
	if err := series.Validate(); err != nil {
		return Series{}, err
	}
	return series, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(requiredFields))
	for i, raw := range header {
		name := normalizeColumn(raw, i)
		if name == "" {
			continue
		}
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("%w: 列 %q 重复，仅支持单一标的", ErrInvalidSeries, name)
		}
		columns[name] = i
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: 缺少必需列 %s", ErrInvalidSeries, strings.Join(missing, ","))
	}
	return columns, nil
}

// normalizeColumn 将列名折叠为标准字段名，无法识别时返回空串。
func normalizeColumn(raw string, index int) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "\ufeff")

	switch name {
	case "adj close", "adj_close", "adjclose":
		return ""
	}
	if _, ok := dateAliases[name]; ok {
		return fieldDate
	}
	// yfinance 两级表头的首列名为 "Price"，实际承载日期。
	if index == 0 && name == "price" {
		return fieldDate
	}
	if _, ok := priceFields[name]; ok {
		return name
	}

	for _, sep := range []string{"_", " ", ":", "|"} {
		idx := strings.Index(name, sep)
		if idx <= 0 {
			continue
		}
		head, tail := name[:idx], name[idx+len(sep):]
		if head == "adj" {
			return ""
		}
		if _, ok := priceFields[head]; ok {
			return head
		}
		if _, ok := dateAliases[head]; ok {
			return fieldDate
		}
		lastIdx := strings.LastIndex(tail, sep)
		last := tail
		if lastIdx >= 0 {
			last = tail[lastIdx+len(sep):]
		}
		if _, ok := priceFields[last]; ok {
			return last
		}
	}
	return ""
}

func isPreambleRow(record []string) bool {
	if len(record) == 0 {
		return true
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	if first == "ticker" {
		return true
	}
	if _, ok := dateAliases[first]; ok {
		return true
	}
	return false
}

func parseRecord(record []string, columns map[string]int) (Bar, error) {
	cell := func(field string) (string, error) {
		idx := columns[field]
		if idx >= len(record) {
			return "", fmt.Errorf("%w: 缺少字段 %s", ErrInvalidSeries, field)
		}
		value := strings.TrimSpace(record[idx])
		if value == "" {
			return "", fmt.Errorf("%w: 字段 %s 为空", ErrInvalidSeries, field)
		}
		return value, nil
	}

	rawDate, err := cell(fieldDate)
	if err != nil {
		return Bar{}, err
	}
	ts, err := parseTimestamp(rawDate)
	if err != nil {
		return Bar{}, err
	}

	values := make(map[string]float64, len(priceFields))
	for field := range priceFields {
		raw, err := cell(field)
		if err != nil {
			return Bar{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("%w: 字段 %s 无法解析为数字: %q", ErrInvalidSeries, field, raw)
		}
		values[field] = v
	}

	return Bar{
		Timestamp: ts,
		Open:      values[fieldOpen],
		High:      values[fieldHigh],
		Low:       values[fieldLow],
		Close:     values[fieldClose],
		Volume:    values[fieldVolume],
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// 13 位视为毫秒时间戳
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: 无法解析时间 %q", ErrInvalidSeries, raw)
}
