package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
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

type testPaths struct {
	config string
	data   string
	db     string
	log    string
}

func writeTestConfig(t *testing.T, withData bool) testPaths {
	t.Helper()
	dir := t.TempDir()
	paths := testPaths{
		config: filepath.Join(dir, "config.yaml"),
		data:   filepath.Join(dir, "prices.csv"),
		db:     filepath.Join(dir, "db", "backtest.db"),
		log:    filepath.Join(dir, "logs", "backtester.log"),
	}

	if withData {
		var sb strings.Builder
		sb.WriteString("date,open,high,low,close,volume\n")
		start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 60; i++ {
			c := 100 + 10*math.Sin(float64(i)/4)
			fmt.Fprintf(&sb, "%s,%.4f,%.4f,%.4f,%.4f,1000\n", start.AddDate(0, 0, i).Format("2006-01-02"), c, c+1, c-1, c)
		}
		require.NoError(t, os.WriteFile(paths.data, []byte(sb.String()), 0o600))
	}

	yaml := fmt.Sprintf(`data:
  source: csv
  path: %q
  symbol: TEST
strategy:
  name: ma_cross
  ma_cross:
    short: 3
    long: 8
database:
  path: %q
logging:
  level: info
  encoding: json
  output_paths: [%q]
  error_output_paths: ["stderr"]
report:
  output_dir: %q
  write_csv: false
`, paths.data, paths.db, paths.log, filepath.Join(dir, "reports"))
	require.NoError(t, os.WriteFile(paths.config, []byte(yaml), 0o600))
	return paths
}

func TestRun_FlagErrors(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-unknown"}, &stderr))
	assert.Equal(t, 0, run([]string{"-h"}, &stderr))
}

func TestRun_MissingConfig(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "-env", filepath.Join(t.TempDir(), ".env")}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "加载配置失败")
}

func TestRun_AppFailureReturnsCodeAndClosesStore(t *testing.T) {
	paths := writeTestConfig(t, false)

	var stderr bytes.Buffer
	code := run([]string{"-config", paths.config, "-env", filepath.Join(t.TempDir(), ".env")}, &stderr)
	assert.Equal(t, 1, code)

	logged, err := os.ReadFile(paths.log)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "回测运行异常")

	// 数据库已正常关闭，可以被重新打开
	st, err := store.NewSQLite(config.DatabaseConfig{Path: paths.db, MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestRun_SingleBacktestRecordsRun(t *testing.T) {
	paths := writeTestConfig(t, true)

	var stderr bytes.Buffer
	code := run([]string{"-config", paths.config, "-env", filepath.Join(t.TempDir(), ".env")}, &stderr)
	require.Equal(t, 0, code, stderr.String())

	logged, err := os.ReadFile(paths.log)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "回测任务结束")

	st, err := store.NewSQLite(config.DatabaseConfig{Path: paths.db, MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := monitor.NewService(st, nil)
	require.NoError(t, err)
	runs, err := svc.ListRuns(context.Background(), "ma_cross", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
