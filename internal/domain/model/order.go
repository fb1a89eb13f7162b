package model

// Side 订单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType requested order type. Anything that is not market maps to the
// exchange's limit-GTC discriminator and requires a price.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// MarketType 市场类型
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// OrderIntent is a trading intent before exchange-specific construction:
// no symbol suffixes, no size rounding applied yet.
type OrderIntent struct {
	Coin       string
	Side       Side
	Type       OrderType
	Market     MarketType
	ReduceOnly bool    // futures only
	Size       float64 // base quantity
	Price      float64 // required for limit orders
}

// SpotSymbol / FuturesSymbol build the exchange symbol for a coin.
func SpotSymbol(coin string) string    { return coin + "_USDT" }
func FuturesSymbol(coin string) string { return coin + "_USDT_PERP" }
