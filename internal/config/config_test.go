package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/2330.csv
  symbol: 2330.TW
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DataSourceCSV, cfg.Data.Source)
	assert.Equal(t, 100000.0, cfg.Backtest.InitialCash)
	assert.Equal(t, 0.001425, cfg.Backtest.FeeRate)
	assert.True(t, cfg.Backtest.ForceLiquidateAtEnd)
	assert.Equal(t, 252, cfg.Backtest.PeriodsPerYear)
	assert.Equal(t, "ma_cross", cfg.Strategy.Name)
	assert.Equal(t, MACrossConfig{Short: 10, Long: 30}, cfg.Strategy.MACross)
	assert.Equal(t, 14, cfg.Strategy.RSI.Period)
	assert.Equal(t, 1, cfg.Strategy.Stochastic.SlowK)
	assert.Equal(t, MACDConfig{Fast: 12, Slow: 26, Signal: 9}, cfg.Strategy.MACD)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
}

func TestLoad_SweepGridAndOverrides(t *testing.T) {
	path := writeConfig(t, `
data:
  source: CSV
  path: data/2330.csv
  symbol: 2330.TW
  since: "2020-01-01"
  until: "2024-01-01"
backtest:
  fee_rate: 0
  force_liquidate_at_end: false
strategy:
  name: RSI
sweep:
  enabled: true
  parallelism: 2
  grid:
    period: [7, 14]
    oversold: [25, 30.5]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, "rsi", cfg.Strategy.Name)
	assert.False(t, cfg.Backtest.ForceLiquidateAtEnd)
	assert.Zero(t, cfg.Backtest.FeeRate)
	assert.Equal(t, []float64{7, 14}, cfg.Sweep.Grid["period"])
	assert.Equal(t, []float64{25, 30.5}, cfg.Sweep.Grid["oversold"])

	since, until, err := cfg.Data.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), since)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), until)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	path := writeConfig(t, `
data:
  source: ftp
backtest:
  initial_cash: -1
  fee_rate: 1.5
`)
	_, err := Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "data.source")
	assert.Contains(t, msg, "data.symbol")
	assert.Contains(t, msg, "backtest.initial_cash")
	assert.Contains(t, msg, "backtest.fee_rate")
}

func TestDataWindow(t *testing.T) {
	since, until, err := DataConfig{}.Window()
	require.NoError(t, err)
	assert.True(t, since.IsZero())
	assert.True(t, until.IsZero())

	_, _, err = DataConfig{Since: "2024-02-01", Until: "2024-01-01"}.Window()
	assert.Error(t, err)

	_, _, err = DataConfig{Since: "01/02/2024"}.Window()
	assert.Error(t, err)
}
