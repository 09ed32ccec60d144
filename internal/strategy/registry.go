package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"stock-backtester/internal/backtest"
	"stock-backtester/internal/config"
)

const (
	NameMACross    = "ma_cross"
	NameRSI        = "rsi"
	NameStochastic = "stochastic"
	NameMACD       = "macd"
)

// Names 返回已注册的策略名称。
func Names() []string {
	return []string{NameMACross, NameRSI, NameStochastic, NameMACD}
}

// FromConfig 按 cfg.Name 构建策略，未知名称或参数非法时返回 ErrConfig。
func FromConfig(cfg config.StrategyConfig) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case NameMACross:
		return NewMovingAverageCross(cfg.MACross.Short, cfg.MACross.Long)
	case NameRSI:
		return NewRSI(cfg.RSI.Period, cfg.RSI.Oversold, cfg.RSI.Overbought)
	case NameStochastic:
		p := cfg.Stochastic
		return NewStochastic(p.KPeriod, p.SlowK, p.DPeriod, p.Oversold, p.Overbought)
	case NameMACD:
		return NewMACD(cfg.MACD.Fast, cfg.MACD.Slow, cfg.MACD.Signal)
	default:
		return nil, fmt.Errorf("%w: 未知策略 %q, 可选 %s", backtest.ErrConfig, cfg.Name, strings.Join(Names(), ","))
	}
}

// ExpandGrid 以 base 为基准展开参数网格的笛卡尔积，生成扫描候选。
//
// 参数名按字典序展开，候选顺序因此稳定。参数组合非法（如 short >= long）的
// 候选会被跳过；全部非法或参数名未知时返回 ErrConfig。
func ExpandGrid(base config.StrategyConfig, grid map[string][]float64) ([]backtest.Candidate, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: 参数网格为空", backtest.ErrConfig)
	}
	keys := lo.Keys(grid)
	sort.Strings(keys)

	combos := [][]float64{{}}
	for _, key := range keys {
		values := grid[key]
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: 参数 %s 没有取值", backtest.ErrConfig, key)
		}
		next := make([][]float64, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				next = append(next, append(append([]float64(nil), combo...), v))
			}
		}
		combos = next
	}

	candidates := make([]backtest.Candidate, 0, len(combos))
	for _, combo := range combos {
		cfg := base
		for i, key := range keys {
			if err := setParam(&cfg, key, combo[i]); err != nil {
				return nil, err
			}
		}
		strat, err := FromConfig(cfg)
		if err != nil {
			if errors.Is(err, backtest.ErrConfig) && isKnown(cfg.Name) {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, backtest.Candidate{
			Label:  Label(strat),
			Params: strat.Params(),
			Source: strat,
		})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: 参数网格中没有合法组合", backtest.ErrConfig)
	}
	return candidates, nil
}

// Label 生成形如 ma_cross(long=30,short=10) 的可读标签。
func Label(s Strategy) string {
	params := s.Params()
	keys := lo.Keys(params)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		return k + "=" + strconv.FormatFloat(params[k], 'f', -1, 64)
	})
	return s.Name() + "(" + strings.Join(parts, ",") + ")"
}

func isKnown(name string) bool {
	return lo.Contains(Names(), strings.ToLower(strings.TrimSpace(name)))
}

func setParam(cfg *config.StrategyConfig, key string, value float64) error {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	intValue := func() (int, error) {
		if value != math.Trunc(value) || math.IsInf(value, 0) || math.IsNaN(value) {
			return 0, fmt.Errorf("%w: %s.%s 必须为整数, 实际 %v", backtest.ErrConfig, name, key, value)
		}
		return int(value), nil
	}

	var err error
	switch name + "." + key {
	case NameMACross + ".short":
		cfg.MACross.Short, err = intValue()
	case NameMACross + ".long":
		cfg.MACross.Long, err = intValue()
	case NameRSI + ".period":
		cfg.RSI.Period, err = intValue()
	case NameRSI + ".oversold":
		cfg.RSI.Oversold = value
	case NameRSI + ".overbought":
		cfg.RSI.Overbought = value
	case NameStochastic + ".k_period":
		cfg.Stochastic.KPeriod, err = intValue()
	case NameStochastic + ".slow_k":
		cfg.Stochastic.SlowK, err = intValue()
	case NameStochastic + ".d_period":
		cfg.Stochastic.DPeriod, err = intValue()
	case NameStochastic + ".oversold":
		cfg.Stochastic.Oversold = value
	case NameStochastic + ".overbought":
		cfg.Stochastic.Overbought = value
	case NameMACD + ".fast":
		cfg.MACD.Fast, err = intValue()
	case NameMACD + ".slow":
		cfg.MACD.Slow, err = intValue()
	case NameMACD + ".signal":
		cfg.MACD.Signal, err = intValue()
	default:
		return fmt.Errorf("%w: 策略 %q 不支持参数 %q", backtest.ErrConfig, name, key)
	}
	return err
}
