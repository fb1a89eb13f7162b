package arkham

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"arkx/internal/domain/model"
)

// PositionClient 通过签名接口读取合约持仓
type PositionClient struct {
	*APIClient
}

type positionResp struct {
	Symbol            string   `json:"symbol"`
	Base              apiFloat `json:"base"`
	Value             apiFloat `json:"value"`
	PnL               apiFloat `json:"pnl"`
	AverageEntryPrice apiFloat `json:"averageEntryPrice"`
	MarkPrice         apiFloat `json:"markPrice"`
	InitialMargin     apiFloat `json:"initialMargin"`
	OpenBuySize       apiFloat `json:"openBuySize"`
	OpenSellSize      apiFloat `json:"openSellSize"`
}

func (c *PositionClient) raw(ctx context.Context) ([]positionResp, error) {
	q := url.Values{}
	q.Set("subaccountId", strconv.Itoa(c.subaccountID))
	body, err := c.signedGet(ctx, "/api/account/positions", q)
	if err != nil {
		return nil, err
	}
	var rows []positionResp
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode positions")
	}
	return rows, nil
}

// Positions returns all open positions. Rows with a zero base are phantom
// entries the API keeps around after a close and are skipped.
func (c *PositionClient) Positions(ctx context.Context) ([]model.Position, error) {
	rows, err := c.raw(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Position, 0, len(rows))
	for _, r := range rows {
		if r.Base == 0 {
			continue
		}
		leverage := 0.0
		if r.InitialMargin != 0 {
			leverage = round2(float64(r.Value) / float64(r.InitialMargin))
		}
		out = append(out, model.Position{
			Coin:       strings.TrimSuffix(r.Symbol, "_USDT_PERP"),
			Base:       float64(r.Base),
			Value:      round3(float64(r.Value)),
			PnL:        round3(float64(r.PnL)),
			EntryPrice: float64(r.AverageEntryPrice),
			MarkPrice:  float64(r.MarkPrice),
			Leverage:   leverage,
		})
	}
	return out, nil
}

// Base 返回指定币种持仓的带符号数量，无持仓记录时为 0
func (c *PositionClient) Base(ctx context.Context, coin string) (float64, error) {
	rows, err := c.raw(ctx)
	if err != nil {
		return 0, err
	}
	symbol := model.FuturesSymbol(coin)
	for _, r := range rows {
		if r.Symbol == symbol {
			return float64(r.Base), nil
		}
	}
	return 0, nil
}

// NetSize 返回指定币种的净挂单量（买单减卖单），无持仓记录时为 0。
// 这是挂单口径，不是持仓口径，平仓数量要用 Base。
func (c *PositionClient) NetSize(ctx context.Context, coin string) (float64, error) {
	rows, err := c.raw(ctx)
	if err != nil {
		return 0, err
	}
	symbol := model.FuturesSymbol(coin)
	for _, r := range rows {
		if r.Symbol == symbol {
			return float64(r.OpenBuySize) - float64(r.OpenSellSize), nil
		}
	}
	return 0, nil
}
