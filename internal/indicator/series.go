package indicator

import "math"

// Valid 判断第 i 个值是否已过预热期。
func Valid(values []float64, i int) bool {
	return i >= 0 && i < len(values) && !math.IsNaN(values[i])
}

// CrossedAbove 判断 a 在第 i 根K线由下向上穿越 b（前一根 a<=b，当前 a>b）。
func CrossedAbove(a, b []float64, i int) bool {
	if i < 1 || !Valid(a, i) || !Valid(b, i) || !Valid(a, i-1) || !Valid(b, i-1) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

// CrossedBelow 判断 a 在第 i 根K线由上向下穿越 b。
func CrossedBelow(a, b []float64, i int) bool {
	if i < 1 || !Valid(a, i) || !Valid(b, i) || !Valid(a, i-1) || !Valid(b, i-1) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

// Constant 返回长度为 n、值均为 v 的序列，用于与阈值比较。
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func nanSeries(n int) []float64 {
	return Constant(n, math.NaN())
}

// firstValid 返回第一个非 NaN 值的位置，全为 NaN 时返回 len(values)。
func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(values)
}
