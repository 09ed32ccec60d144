package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "backtest"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.Data.Source = strings.ToLower(strings.TrimSpace(cfg.Data.Source))
	cfg.Strategy.Name = strings.ToLower(strings.TrimSpace(cfg.Strategy.Name))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("data.source", DataSourceCSV)
	v.SetDefault("data.timeframe", "1d")

	v.SetDefault("exchange.name", "binanceusdm")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.page_limit", 500)
	v.SetDefault("exchange.retry.max_attempts", 5)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("backtest.initial_cash", 100000)
	v.SetDefault("backtest.fee_rate", 0.001425)
	v.SetDefault("backtest.force_liquidate_at_end", true)
	v.SetDefault("backtest.periods_per_year", 252)

	v.SetDefault("strategy.name", "ma_cross")
	v.SetDefault("strategy.ma_cross.short", 10)
	v.SetDefault("strategy.ma_cross.long", 30)
	v.SetDefault("strategy.rsi.period", 14)
	v.SetDefault("strategy.rsi.oversold", 30)
	v.SetDefault("strategy.rsi.overbought", 70)
	v.SetDefault("strategy.stochastic.k_period", 14)
	v.SetDefault("strategy.stochastic.slow_k", 1)
	v.SetDefault("strategy.stochastic.d_period", 3)
	v.SetDefault("strategy.stochastic.oversold", 20)
	v.SetDefault("strategy.stochastic.overbought", 80)
	v.SetDefault("strategy.macd.fast", 12)
	v.SetDefault("strategy.macd.slow", 26)
	v.SetDefault("strategy.macd.signal", 9)

	v.SetDefault("sweep.enabled", false)
	v.SetDefault("sweep.parallelism", 0)
	v.SetDefault("sweep.top_n", 5)

	v.SetDefault("database.path", "data/backtest.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 8090)

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.write_csv", false)
	v.SetDefault("report.last_trades", 10)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
