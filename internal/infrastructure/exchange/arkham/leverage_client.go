package arkham

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"arkx/internal/domain/model"
	"arkx/internal/domain/service"
	"arkx/internal/infrastructure/svc"
)

// LeverageClient 读写单币种合约杠杆
type LeverageClient struct {
	*APIClient
}

type leverageRow struct {
	Symbol   string   `json:"symbol"`
	Leverage apiFloat `json:"leverage"`
}

// Leverage 返回币种当前杠杆，交易所无该币种记录时返回 svc.ErrNotFound
func (c *LeverageClient) Leverage(ctx context.Context, coin string) (int, error) {
	symbol := model.FuturesSymbol(coin)
	resp, err := c.get(ctx, "/api/account/leverage", c.baseURL+"/trade/"+symbol, map[string]string{
		"subaccountId": strconv.Itoa(c.subaccountID),
	})
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, &svc.TransportError{Op: "get leverage", Status: resp.StatusCode()}
	}

	var rows []leverageRow
	if err := unmarshalList(resp.Body(), &rows); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if r.Symbol == symbol {
			return int(r.Leverage), nil
		}
	}
	return 0, svc.ErrNotFound
}

type leverageRequest struct {
	SubaccountID int    `json:"subaccountId"`
	Symbol       string `json:"symbol"`
	Leverage     string `json:"leverage"`
}

// SetLeverage writes the leverage and reads it back. The returned value is
// what the exchange actually applied, which can differ from the request.
func (c *LeverageClient) SetLeverage(ctx context.Context, coin string, leverage int) (int, error) {
	if leverage < service.MinLeverage || leverage > service.MaxLeverage {
		return 0, &svc.ValidationError{Field: "leverage", Reason: "must be between 1 and 25"}
	}

	symbol := model.FuturesSymbol(coin)
	body := leverageRequest{
		SubaccountID: c.subaccountID,
		Symbol:       symbol,
		Leverage:     strconv.Itoa(leverage),
	}
	resp, err := c.postJSON(ctx, "/api/account/leverage", c.baseURL+"/trade/"+symbol, body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return 0, &svc.TransportError{Op: "set leverage", Status: resp.StatusCode()}
	}

	applied, err := c.Leverage(ctx, coin)
	if err != nil {
		return 0, err
	}
	if applied != leverage {
		log.Warn().Str("coin", coin).Int("requested", leverage).Int("applied", applied).
			Msg("exchange applied a different leverage")
	}
	return applied, nil
}
