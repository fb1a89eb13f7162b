package arkham

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

var (
	// openStep 开仓量精度，向下取整避免超出可用保证金
	openStep = decimal.New(1, -5)
	// reduceStep 平仓量精度，四舍五入贴合实际持仓
	reduceStep = decimal.New(1, -4)
)

// OrderClient 构造并提交订单，平仓单会按需查询当前持仓解析数量
type OrderClient struct {
	*APIClient

	positions *PositionClient
}

type orderPayload struct {
	SubaccountID  int     `json:"subaccountId"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Price         string  `json:"price"`
	Size          string  `json:"size"`
	ClientOrderID *string `json:"clientOrderId"`
	PostOnly      bool    `json:"postOnly"`
	ReduceOnly    bool    `json:"reduceOnly"`
}

func roundOpenSize(size float64) decimal.Decimal {
	d := decimal.NewFromFloat(size)
	return d.Div(openStep).Floor().Mul(openStep)
}

// roundReduceSize 数量不足一个步长时返回零值，表示无可平仓量。
// 恰好半步长按远离零方向进位，0.00005 会平掉 0.0001。
func roundReduceSize(size float64) decimal.Decimal {
	d := decimal.NewFromFloat(size).Div(reduceStep).Round(0).Mul(reduceStep)
	if d.Abs().LessThan(reduceStep) {
		return decimal.Zero
	}
	return d
}

func validateIntent(intent model.OrderIntent) error {
	if strings.TrimSpace(intent.Coin) == "" {
		return &svc.ValidationError{Field: "coin", Reason: "required"}
	}
	switch intent.Side {
	case model.SideBuy, model.SideSell:
	default:
		return &svc.ValidationError{Field: "side", Reason: "must be buy or sell"}
	}
	switch intent.Type {
	case model.OrderMarket, model.OrderLimit:
	default:
		return &svc.ValidationError{Field: "type", Reason: "must be market or limit"}
	}
	switch intent.Market {
	case model.MarketSpot, model.MarketFutures:
	default:
		return &svc.ValidationError{Field: "market", Reason: "must be spot or futures"}
	}
	if intent.ReduceOnly && intent.Market == model.MarketSpot {
		return &svc.ValidationError{Field: "reduceOnly", Reason: "only valid for futures"}
	}
	if intent.Type == model.OrderLimit && intent.Price <= 0 {
		return &svc.ValidationError{Field: "price", Reason: "required for limit orders"}
	}
	if !intent.ReduceOnly && intent.Size <= 0 {
		return &svc.ValidationError{Field: "size", Reason: "must be positive"}
	}
	return nil
}

// PlaceOrder submits one order. The bool reports whether an order was
// actually sent: a reduce-only size that rounds below the step is a no-op.
func (c *OrderClient) PlaceOrder(ctx context.Context, intent model.OrderIntent) (bool, error) {
	if err := validateIntent(intent); err != nil {
		return false, err
	}

	var symbol string
	if intent.Market == model.MarketFutures {
		symbol = model.FuturesSymbol(intent.Coin)
	} else {
		symbol = model.SpotSymbol(intent.Coin)
	}

	var sizeStr string
	if intent.ReduceOnly {
		d := roundReduceSize(math.Abs(intent.Size))
		if d.IsZero() {
			log.Warn().Str("coin", intent.Coin).Float64("size", intent.Size).
				Msg("reduce size below minimum step, nothing to close")
			return false, nil
		}
		sizeStr = d.String()
	} else {
		sizeStr = roundOpenSize(intent.Size).StringFixed(5)
	}

	orderType := "market"
	price := "0"
	if intent.Type == model.OrderLimit {
		orderType = "limitGtc"
		price = strconv.FormatFloat(intent.Price, 'f', -1, 64)
	}

	payload := orderPayload{
		SubaccountID: c.subaccountID,
		Symbol:       symbol,
		Side:         string(intent.Side),
		Type:         orderType,
		Price:        price,
		Size:         sizeStr,
		ReduceOnly:   intent.ReduceOnly,
	}

	resp, err := c.postJSON(ctx, "/api/orders/new", c.baseURL+"/trade/"+symbol, payload)
	if err != nil {
		return false, err
	}
	if resp.StatusCode() != http.StatusOK {
		return false, &svc.TransportError{
			Op:     "place order " + symbol,
			Status: resp.StatusCode(),
			Err:    errors.New(strings.TrimSpace(resp.String())),
		}
	}

	log.Info().Str("symbol", symbol).Str("side", string(intent.Side)).
		Str("type", orderType).Str("size", sizeStr).Bool("reduceOnly", intent.ReduceOnly).
		Msg("order placed")
	return true, nil
}

// CloseAll 对每个非零持仓发送一笔市价只减仓单，返回各币种提交结果。
// 单个币种失败不影响其余币种。
func (c *OrderClient) CloseAll(ctx context.Context) (map[string]bool, error) {
	positions, err := c.positions.Positions(ctx)
	if err != nil {
		return nil, err
	}
	results := make(map[string]bool, len(positions))
	if len(positions) == 0 {
		log.Info().Msg("no open positions to close")
		return results, nil
	}

	for _, p := range positions {
		side := model.SideSell
		if p.Base < 0 {
			side = model.SideBuy
		}
		_, err := c.PlaceOrder(ctx, model.OrderIntent{
			Coin:       p.Coin,
			Side:       side,
			Type:       model.OrderMarket,
			Market:     model.MarketFutures,
			ReduceOnly: true,
			Size:       math.Abs(p.Base),
		})
		if err != nil {
			log.Error().Err(err).Str("coin", p.Coin).Msg("close position failed")
		}
		results[p.Coin] = err == nil
	}
	return results, nil
}

// CloseLong closes a long position. A non-positive size means "resolve the
// amount from the current position's base"; holding no long is a logged no-op.
func (c *OrderClient) CloseLong(ctx context.Context, coin string, size float64) (bool, error) {
	if size <= 0 {
		base, err := c.positions.Base(ctx, coin)
		if err != nil {
			return false, err
		}
		if base <= 0 {
			log.Info().Str("coin", coin).Float64("base", base).Msg("no long position to close")
			return false, nil
		}
		size = base
	}
	return c.PlaceOrder(ctx, model.OrderIntent{
		Coin:       coin,
		Side:       model.SideSell,
		Type:       model.OrderMarket,
		Market:     model.MarketFutures,
		ReduceOnly: true,
		Size:       size,
	})
}

// CloseShort closes a short position, mirroring CloseLong.
func (c *OrderClient) CloseShort(ctx context.Context, coin string, size float64) (bool, error) {
	if size <= 0 {
		base, err := c.positions.Base(ctx, coin)
		if err != nil {
			return false, err
		}
		if base >= 0 {
			log.Info().Str("coin", coin).Float64("base", base).Msg("no short position to close")
			return false, nil
		}
		size = -base
	}
	return c.PlaceOrder(ctx, model.OrderIntent{
		Coin:       coin,
		Side:       model.SideBuy,
		Type:       model.OrderMarket,
		Market:     model.MarketFutures,
		ReduceOnly: true,
		Size:       size,
	})
}
