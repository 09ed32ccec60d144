package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-backtester/internal/config"
	"stock-backtester/internal/monitor"
	"stock-backtester/internal/store"
)

func writeSampleCSV(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("date,open,high,low,close,volume\n")
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/4)
		fmt.Fprintf(&sb, "%s,%.4f,%.4f,%.4f,%.4f,%d\n",
			start.AddDate(0, 0, i).Format("2006-01-02"), c, c+1, c-1, c, 1000+i)
	}
	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func testConfig(t *testing.T, csvPath string) *config.Config {
	t.Helper()
	return &config.Config{
		App:  config.AppConfig{Environment: "test"},
		Data: config.DataConfig{Source: config.DataSourceCSV, Path: csvPath, Symbol: "2330.TW"},
		Backtest: config.BacktestConfig{
			InitialCash:         100000,
			FeeRate:             0.001425,
			ForceLiquidateAtEnd: true,
			PeriodsPerYear:      252,
		},
		Strategy: config.StrategyConfig{
			Name:    "ma_cross",
			MACross: config.MACrossConfig{Short: 3, Long: 8},
		},
		Sweep: config.SweepConfig{
			Parallelism: 2,
			TopN:        3,
			Grid:        map[string][]float64{"short": {2, 3}, "long": {5, 8}},
		},
		Report: config.ReportConfig{OutputDir: filepath.Join(t.TempDir(), "reports"), LastTrades: 5},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *store.Store, *bytes.Buffer) {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	a := New(cfg, nil, st)
	var out bytes.Buffer
	a.SetOutput(&out)
	return a, st, &out
}

func TestRun_SingleBacktest(t *testing.T) {
	cfg := testConfig(t, writeSampleCSV(t, 80))
	cfg.Report.WriteCSV = true
	a, st, out := newTestApp(t, cfg)

	require.NoError(t, a.Run(context.Background(), Options{}))
	assert.Contains(t, out.String(), "2330.TW")
	assert.Contains(t, out.String(), "ma_cross(long=8,short=3)")

	svc, err := monitor.NewService(st, nil)
	require.NoError(t, err)
	runs, err := svc.ListRuns(context.Background(), "ma_cross", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 80, runs[0].Bars)

	_, err = os.Stat(filepath.Join(cfg.Report.OutputDir, "2330.TW_ma_cross_rows.csv"))
	assert.NoError(t, err)
}

func TestRun_Sweep(t *testing.T) {
	cfg := testConfig(t, writeSampleCSV(t, 80))
	a, st, out := newTestApp(t, cfg)

	require.NoError(t, a.Run(context.Background(), Options{Sweep: true}))
	assert.Contains(t, out.String(), "共 4 组")

	svc, err := monitor.NewService(st, nil)
	require.NoError(t, err)
	runs, err := svc.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestRun_WindowWithoutData(t *testing.T) {
	cfg := testConfig(t, writeSampleCSV(t, 10))
	cfg.Data.Since = "2030-01-01"
	a, _, _ := newTestApp(t, cfg)

	err := a.Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestRun_UnknownStrategy(t *testing.T) {
	cfg := testConfig(t, writeSampleCSV(t, 30))
	cfg.Strategy.Name = "martingale"
	a, _, _ := newTestApp(t, cfg)

	require.Error(t, a.Run(context.Background(), Options{}))
}

func TestMonitorHandler(t *testing.T) {
	cfg := testConfig(t, writeSampleCSV(t, 60))
	a, st, _ := newTestApp(t, cfg)
	require.NoError(t, a.Run(context.Background(), Options{}))

	svc, err := monitor.NewService(st, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(newMonitorHandler(svc, a.logger))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs?strategy=MA_CROSS&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []monitor.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)

	detail, err := http.Get(srv.URL + "/runs/" + runs[0].ID)
	require.NoError(t, err)
	defer detail.Body.Close()
	assert.Equal(t, http.StatusOK, detail.StatusCode)

	missing, err := http.Get(srv.URL + "/runs/does-not-exist")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "BTC_USDT_USDT", sanitize("BTC/USDT:USDT"))
}
