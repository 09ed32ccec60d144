package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// 所有函数返回与输入等长的新切片，预热期内为 NaN，不修改输入。

// SMA 计算简单移动平均。
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicator: SMA 周期必须大于0, 实际 %d", period)
	}
	return smaFrom(values, period), nil
}

// smaFrom 跳过前导 NaN 后计算 SMA，避免 NaN 进入 talib 的滚动求和。
func smaFrom(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	start := firstValid(values)
	if len(values)-start < period {
		return out
	}
	if period == 1 {
		copy(out[start:], values[start:])
		return out
	}
	sma := talib.Sma(values[start:], period)
	for i := period - 1; i < len(sma); i++ {
		out[start+i] = sma[i]
	}
	return out
}

// RSI 以简单滚动均值计算相对强弱指标。
//
// 第 0 根K线没有涨跌，记为 NaN，首个有效值因此落在第 period 根。
// 平均跌幅为 0 时 RSI 取 100（饱和）；
// 涨跌均为 0 时取中性值 50，避免 NaN 传入信号计算。
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicator: RSI 周期必须大于0, 实际 %d", period)
	}
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	if n > 0 {
		gains[0], losses[0] = math.NaN(), math.NaN()
	}
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := smaFrom(gains, period)
	avgLoss := smaFrom(losses, period)

	out := nanSeries(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			if avgGain[i] == 0 {
				out[i] = 50
			}
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out, nil
}

// Stochastic 计算慢速随机指标 %K 与 %D。
//
// 原始 %K = (close - 最低价) / (最高价 - 最低价) × 100，区间高低价相等时取 100（饱和）。
// 慢速 %K 为原始 %K 的 slowK 期 SMA，%D 为慢速 %K 的 dPeriod 期 SMA。
func Stochastic(highs, lows, closes []float64, kPeriod, slowK, dPeriod int) ([]float64, []float64, error) {
	if kPeriod <= 0 || slowK <= 0 || dPeriod <= 0 {
		return nil, nil, fmt.Errorf("indicator: Stochastic 周期必须大于0 (k=%d slowK=%d d=%d)", kPeriod, slowK, dPeriod)
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil, nil, fmt.Errorf("indicator: Stochastic 输入长度不一致 (%d/%d/%d)", len(highs), len(lows), n)
	}

	rawK := nanSeries(n)
	if n >= kPeriod {
		highest := highs
		lowest := lows
		if kPeriod > 1 {
			highest = talib.Max(highs, kPeriod)
			lowest = talib.Min(lows, kPeriod)
		}
		for i := kPeriod - 1; i < n; i++ {
			rng := highest[i] - lowest[i]
			if rng == 0 {
				rawK[i] = 100
				continue
			}
			rawK[i] = (closes[i] - lowest[i]) / rng * 100
		}
	}

	k := smaFrom(rawK, slowK)
	d := smaFrom(k, dPeriod)
	return k, d, nil
}

// MACD 计算 MACD 线、信号线与柱状图。
func MACD(closes []float64, fast, slow, signal int) ([]float64, []float64, []float64, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil, nil, fmt.Errorf("indicator: MACD 周期必须大于0 (fast=%d slow=%d signal=%d)", fast, slow, signal)
	}
	if fast >= slow {
		return nil, nil, nil, fmt.Errorf("indicator: MACD fast(%d) 必须小于 slow(%d)", fast, slow)
	}

	n := len(closes)
	macdOut, signalOut, histOut := nanSeries(n), nanSeries(n), nanSeries(n)
	lookback := slow + signal - 2
	if n <= lookback {
		return macdOut, signalOut, histOut, nil
	}

	macd, sig, hist := talib.Macd(closes, fast, slow, signal)
	for i := lookback; i < n; i++ {
		macdOut[i] = macd[i]
		signalOut[i] = sig[i]
		histOut[i] = hist[i]
	}
	return macdOut, signalOut, histOut, nil
}
