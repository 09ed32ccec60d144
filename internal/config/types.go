package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	// DataSourceCSV 从本地 CSV 文件读取K线。
	DataSourceCSV = "csv"
	// DataSourceExchange 通过交易所接口下载历史K线。
	DataSourceExchange = "exchange"
)

// dateLayout 为 data.since / data.until 的日期格式。
const dateLayout = "2006-01-02"

// Config 聚合了回测系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Data     DataConfig     `mapstructure:"data"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Report   ReportConfig   `mapstructure:"report"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// DataConfig 描述行情数据来源。
type DataConfig struct {
	Source    string `mapstructure:"source"`
	Path      string `mapstructure:"path"`
	Symbol    string `mapstructure:"symbol"`
	Timeframe string `mapstructure:"timeframe"`
	Since     string `mapstructure:"since"`
	Until     string `mapstructure:"until"`
}

// Window 解析 since/until，未配置的一端返回零值。
func (d DataConfig) Window() (time.Time, time.Time, error) {
	var since, until time.Time
	var err error
	if s := strings.TrimSpace(d.Since); s != "" {
		if since, err = time.Parse(dateLayout, s); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.since 格式错误: %w", err)
		}
	}
	if s := strings.TrimSpace(d.Until); s != "" {
		if until, err = time.Parse(dateLayout, s); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.until 格式错误: %w", err)
		}
	}
	if !since.IsZero() && !until.IsZero() && !until.After(since) {
		return time.Time{}, time.Time{}, errors.New("data.until 必须晚于 data.since")
	}
	return since, until, nil
}

// ExchangeConfig 描述交易所连接信息，仅在 data.source=exchange 时使用。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	PageLimit  int         `mapstructure:"page_limit"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// BacktestConfig 对应回测引擎的运行参数。
type BacktestConfig struct {
	InitialCash         float64 `mapstructure:"initial_cash"`
	FeeRate             float64 `mapstructure:"fee_rate"`
	ForceLiquidateAtEnd bool    `mapstructure:"force_liquidate_at_end"`
	PeriodsPerYear      int     `mapstructure:"periods_per_year"`
}

// StrategyConfig 选择信号源并携带各策略参数。
type StrategyConfig struct {
	Name       string           `mapstructure:"name"`
	MACross    MACrossConfig    `mapstructure:"ma_cross"`
	RSI        RSIConfig        `mapstructure:"rsi"`
	Stochastic StochasticConfig `mapstructure:"stochastic"`
	MACD       MACDConfig       `mapstructure:"macd"`
}

// MACrossConfig 均线交叉参数。
type MACrossConfig struct {
	Short int `mapstructure:"short"`
	Long  int `mapstructure:"long"`
}

// RSIConfig RSI 阈值参数。
type RSIConfig struct {
	Period     int     `mapstructure:"period"`
	Oversold   float64 `mapstructure:"oversold"`
	Overbought float64 `mapstructure:"overbought"`
}

// StochasticConfig KD 指标参数。
type StochasticConfig struct {
	KPeriod    int     `mapstructure:"k_period"`
	SlowK      int     `mapstructure:"slow_k"`
	DPeriod    int     `mapstructure:"d_period"`
	Oversold   float64 `mapstructure:"oversold"`
	Overbought float64 `mapstructure:"overbought"`
}

// MACDConfig MACD 参数。
type MACDConfig struct {
	Fast   int `mapstructure:"fast"`
	Slow   int `mapstructure:"slow"`
	Signal int `mapstructure:"signal"`
}

// SweepConfig 控制参数扫描。Grid 的键为当前策略的参数名（如 short、long）。
type SweepConfig struct {
	Enabled     bool                 `mapstructure:"enabled"`
	Parallelism int                  `mapstructure:"parallelism"`
	TopN        int                  `mapstructure:"top_n"`
	Grid        map[string][]float64 `mapstructure:"grid"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制回测记录查询接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ReportConfig 控制报告输出。
type ReportConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	WriteCSV   bool   `mapstructure:"write_csv"`
	LastTrades int    `mapstructure:"last_trades"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}

	switch strings.ToLower(c.Data.Source) {
	case DataSourceCSV:
		if c.Data.Path == "" {
			err = multierr.Append(err, errors.New("data.path 不能为空"))
		}
	case DataSourceExchange:
		if c.Exchange.Name == "" {
			err = multierr.Append(err, errors.New("exchange.name 不能为空"))
		}
		if c.Data.Timeframe == "" {
			err = multierr.Append(err, errors.New("data.timeframe 不能为空"))
		}
		if c.Exchange.PageLimit <= 0 {
			err = multierr.Append(err, errors.New("exchange.page_limit 必须大于0"))
		}
		if c.Exchange.Retry.MaxAttempts <= 0 {
			err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
		}
		if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
			err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
		}
		if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
			err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("data.source 仅支持 csv 或 exchange, 实际 %q", c.Data.Source))
	}
	if c.Data.Symbol == "" {
		err = multierr.Append(err, errors.New("data.symbol 不能为空"))
	}
	if _, _, werr := c.Data.Window(); werr != nil {
		err = multierr.Append(err, werr)
	}

	if c.Backtest.InitialCash <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_cash 必须大于0"))
	}
	if c.Backtest.FeeRate < 0 || c.Backtest.FeeRate >= 1 {
		err = multierr.Append(err, errors.New("backtest.fee_rate 必须位于[0,1)"))
	}
	if c.Backtest.PeriodsPerYear < 0 {
		err = multierr.Append(err, errors.New("backtest.periods_per_year 不能为负"))
	}

	if c.Strategy.Name == "" {
		err = multierr.Append(err, errors.New("strategy.name 不能为空"))
	}

	if c.Sweep.Enabled && len(c.Sweep.Grid) == 0 {
		err = multierr.Append(err, errors.New("sweep.grid 不能为空"))
	}
	for key, values := range c.Sweep.Grid {
		if len(values) == 0 {
			err = multierr.Append(err, fmt.Errorf("sweep.grid.%s 至少包含一个取值", key))
		}
	}
	if c.Sweep.Parallelism < 0 {
		err = multierr.Append(err, errors.New("sweep.parallelism 不能为负"))
	}
	if c.Sweep.TopN < 0 {
		err = multierr.Append(err, errors.New("sweep.top_n 不能为负"))
	}

	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于(0,65535]"))
	}
	if c.Report.WriteCSV && c.Report.OutputDir == "" {
		err = multierr.Append(err, errors.New("report.output_dir 不能为空"))
	}
	if c.Report.LastTrades < 0 {
		err = multierr.Append(err, errors.New("report.last_trades 不能为负"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
