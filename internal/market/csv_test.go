package market

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV_FlatSchema(t *testing.T) {
	input := `date,open,high,low,close,volume
2024-01-02,100,105,99,104,1200
2024-01-03,104,106,101,102,900
`
	series, err := LoadCSV(strings.NewReader(input), "2330.TW")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "2330.TW", series.Symbol)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.Bars[0].Timestamp)
	assert.Equal(t, []float64{104, 102}, series.Closes())
	assert.Equal(t, 900.0, series.Bars[1].Volume)
}

func TestLoadCSV_TickerNamespacedHeader(t *testing.T) {
	input := `Price,Close,High,Low,Open,Volume
Ticker,2330.TW,2330.TW,2330.TW,2330.TW,2330.TW
Date,,,,,
2019-07-04,238.5,240,236,239,31000
2019-07-05,240,241.5,238,238.5,28000
`
	series, err := LoadCSV(strings.NewReader(input), "2330.TW")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	first := series.Bars[0]
	assert.Equal(t, 238.5, first.Close)
	assert.Equal(t, 240.0, first.High)
	assert.Equal(t, 236.0, first.Low)
	assert.Equal(t, 239.0, first.Open)
}

func TestLoadCSV_SuffixedColumnsAndAdjClose(t *testing.T) {
	input := `Date,Adj Close_2330.TW,Close_2330.TW,High_2330.TW,Low_2330.TW,Open_2330.TW,Volume_2330.TW
2024-02-01,99,100,101,98,99.5,10
`
	series, err := LoadCSV(strings.NewReader(input), "2330.TW")
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 100.0, series.Bars[0].Close)
}

func TestLoadCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"missing column": "date,open,high,low,close\n2024-01-02,1,1,1,1\n",
		"non monotonic":  "date,open,high,low,close,volume\n2024-01-03,1,1,1,1,1\n2024-01-02,1,1,1,1,1\n",
		"duplicate ts":   "date,open,high,low,close,volume\n2024-01-02,1,1,1,1,1\n2024-01-02,1,1,1,1,1\n",
		"bad number":     "date,open,high,low,close,volume\n2024-01-02,1,1,1,abc,1\n",
		"non positive":   "date,open,high,low,close,volume\n2024-01-02,1,1,1,0,1\n",
		"no rows":        "date,open,high,low,close,volume\n",
		"empty":          "",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(input), "X")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSeries), "unexpected error: %v", err)
		})
	}
}

func TestSeriesCloneIsIndependent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	original := NewSeries("X", []Bar{{Timestamp: ts, Open: 1, High: 1, Low: 1, Close: 1}})

	clone := original.Clone()
	clone.Bars[0].Close = 42

	assert.Equal(t, 1.0, original.Bars[0].Close)
}

func TestParseTimestamp_Unix(t *testing.T) {
	ts, err := parseTimestamp("1704153600000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseTimestamp("1704153600")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts)
}

func TestSeriesBetween(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	bars := make([]Bar, 5)
	for i := range bars {
		bars[i] = Bar{Timestamp: day(i + 1), Open: 1, High: 1, Low: 1, Close: float64(i + 1)}
	}
	series := NewSeries("X", bars)

	assert.Equal(t, []float64{2, 3}, series.Between(day(2), day(4)).Closes())
	assert.Equal(t, []float64{4, 5}, series.Between(day(4), time.Time{}).Closes())
	assert.Equal(t, 5, series.Between(time.Time{}, time.Time{}).Len())
	assert.Zero(t, series.Between(day(9), time.Time{}).Len())
}
