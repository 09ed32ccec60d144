package backtest

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

const defaultPeriodsPerYear = 252

// Config 定义回测参数。
type Config struct {
	InitialCash         float64 // 初始资金
	FeeRate             float64 // 单边手续费率, 位于 [0,1)
	ForceLiquidateAtEnd bool    // 期末仍持仓时是否按最后收盘价强制平仓
	PeriodsPerYear      int     // 年化夏普使用的每年K线数量, 0 表示 252
}

// DefaultConfig 返回台股日线常用的默认参数。
func DefaultConfig() Config {
	return Config{
		InitialCash:         100000,
		FeeRate:             0.001425,
		ForceLiquidateAtEnd: true,
		PeriodsPerYear:      defaultPeriodsPerYear,
	}
}

// Validate 校验配置，所有问题一次性返回并包装为 ErrConfig。
func (c Config) Validate() error {
	var err error
	if math.IsNaN(c.InitialCash) || math.IsInf(c.InitialCash, 0) || c.InitialCash <= 0 {
		err = multierr.Append(err, fmt.Errorf("initial_cash 必须大于0, 实际 %v", c.InitialCash))
	}
	if math.IsNaN(c.FeeRate) || c.FeeRate < 0 || c.FeeRate >= 1 {
		err = multierr.Append(err, fmt.Errorf("fee_rate 必须位于[0,1), 实际 %v", c.FeeRate))
	}
	if c.PeriodsPerYear < 0 {
		err = multierr.Append(err, errors.New("periods_per_year 不能为负"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

func (c Config) periodsPerYear() int {
	if c.PeriodsPerYear <= 0 {
		return defaultPeriodsPerYear
	}
	return c.PeriodsPerYear
}
