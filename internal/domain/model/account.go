package model

// Stats 账户统计快照（最后一次成功读取的值）
type Stats struct {
	Balance     float64 // 账户余额 (USDT)
	Volume      float64 // 现货+合约累计交易量
	Points      int64   // 积分
	MarginFee   float64 // 手续费返还额度 (feeCredit)
	MarginBonus float64 // 附加保证金 (marginBonus)
}

// AccountRow is the durable, whole-row representation of one account.
// The account name is the unique key across persistence.
type AccountRow struct {
	Name      string
	Email     string
	Password  string
	APIKey    string // exchange-issued, optional
	APISecret string // exchange-issued, optional
	Proxy     string // scheme://[user:pass@]host:port, optional
	Cookies   *CookieSet
	Stats     Stats
}
