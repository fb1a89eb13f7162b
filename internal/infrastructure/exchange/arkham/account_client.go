package arkham

import (
	"context"
	"net/http"

	"arkx/internal/infrastructure/svc"
)

// AccountClient reads account-level figures over the cookie session.
// Every category sends the referer the web app would send.
type AccountClient struct {
	*APIClient
}

func (c *AccountClient) refererFor(category string) string {
	switch category {
	case "balance":
		return c.baseURL + "/balance"
	case "volume":
		return c.baseURL + "/affiliate-dashboard/volume"
	case "points":
		return c.baseURL + "/affiliate-dashboard/points"
	case "rewards":
		return c.baseURL + "/rewards"
	default:
		return c.baseURL
	}
}

func (c *AccountClient) fetch(ctx context.Context, path, category string, out any) error {
	resp, err := c.get(ctx, path, c.refererFor(category), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return &svc.TransportError{Op: category, Status: resp.StatusCode()}
	}
	return unmarshalFirst(resp.Body(), out)
}

// Balance 返回账户总资产估值（USDT），保留 3 位小数
func (c *AccountClient) Balance(ctx context.Context) (float64, error) {
	var out struct {
		TotalAssetValue *apiFloat `json:"totalAssetValue"`
	}
	if err := c.fetch(ctx, "/api/account/margin/all", "balance", &out); err != nil {
		return 0, err
	}
	if out.TotalAssetValue == nil {
		return 0, svc.ErrNotFound
	}
	return round3(float64(*out.TotalAssetValue)), nil
}

// Volume 返回本赛季现货+合约累计成交额
func (c *AccountClient) Volume(ctx context.Context) (float64, error) {
	var out struct {
		SpotVolume apiFloat `json:"spotVolume"`
		PerpVolume apiFloat `json:"perpVolume"`
	}
	if err := c.fetch(ctx, "/api/affiliate-dashboard/volume-season-2", "volume", &out); err != nil {
		return 0, err
	}
	return round3(float64(out.SpotVolume) + float64(out.PerpVolume)), nil
}

// Points 返回本赛季积分
func (c *AccountClient) Points(ctx context.Context) (float64, error) {
	var out struct {
		Points *apiFloat `json:"points"`
	}
	if err := c.fetch(ctx, "/api/affiliate-dashboard/points-season-2", "points", &out); err != nil {
		return 0, err
	}
	if out.Points == nil {
		return 0, svc.ErrNotFound
	}
	return round3(float64(*out.Points)), nil
}

// Rewards 返回保证金补贴与手续费返还
func (c *AccountClient) Rewards(ctx context.Context) (marginBonus, feeCredit float64, err error) {
	var out struct {
		MarginBonus apiFloat `json:"marginBonus"`
		FeeCredit   apiFloat `json:"feeCredit"`
	}
	if err = c.fetch(ctx, "/api/rewards/info", "rewards", &out); err != nil {
		return 0, 0, err
	}
	return round3(float64(out.MarginBonus)), round3(float64(out.FeeCredit)), nil
}
