package backtest

import "errors"

// 回测错误分类，调用方使用 errors.Is 判断。
var (
	// ErrData 表示价格序列为空或不合法。
	ErrData = errors.New("backtest: data error")
	// ErrConfig 表示初始资金、手续费率等配置非法。
	ErrConfig = errors.New("backtest: config error")
	// ErrSchema 表示信号序列与价格序列无法对齐。
	ErrSchema = errors.New("backtest: schema error")
	// ErrState 表示在回测完成前请求了统计或交易记录。
	ErrState = errors.New("backtest: state error")
)
