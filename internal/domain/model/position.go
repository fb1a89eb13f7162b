package model

// Position 单个合约持仓
// Base 为带符号数量：正数做多，负数做空。每次查询都重新拉取，从不缓存。
type Position struct {
	Coin       string  // 币种 (symbol with the _USDT_PERP suffix stripped)
	Base       float64 // 持仓数量（带符号）
	Value      float64 // 名义价值 (USDT)
	PnL        float64 // 未实现盈亏
	EntryPrice float64 // 平均开仓价
	MarkPrice  float64 // 标记价格
	Leverage   float64 // value / initialMargin，initialMargin 为 0 时记 0
}

// Long reports whether the exposure is long.
func (p Position) Long() bool { return p.Base > 0 }
