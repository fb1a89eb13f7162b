package service

import (
	"errors"

	"github.com/shopspring/decimal"
)

// SizeStep 开仓数量步长
var SizeStep = decimal.New(1, -5) // 0.00001

var (
	ErrLeverageRange = errors.New("leverage must be between 1 and 25")
	ErrRiskRange     = errors.New("risk percent must be in (0, 100]")
	ErrPriceRange    = errors.New("price must be positive")
	ErrBalanceRange  = errors.New("balance must not be negative")
)

const (
	MinLeverage = 1
	MaxLeverage = 25
)

// PositionSize computes the order quantity for a given balance share.
//
//	quantity = floor((balance * riskPct/100 * leverage) / price / step) * step
//
// Pure and deterministic; out-of-range inputs are rejected, never clamped.
func PositionSize(balance float64, leverage int, price, riskPct float64) (float64, error) {
	if leverage < MinLeverage || leverage > MaxLeverage {
		return 0, ErrLeverageRange
	}
	if riskPct <= 0 || riskPct > 100 {
		return 0, ErrRiskRange
	}
	if price <= 0 {
		return 0, ErrPriceRange
	}
	if balance < 0 {
		return 0, ErrBalanceRange
	}

	capital := decimal.NewFromFloat(balance).
		Mul(decimal.NewFromFloat(riskPct)).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(leverage)))

	size := capital.Div(decimal.NewFromFloat(price))
	size = size.Div(SizeStep).Floor().Mul(SizeStep)

	f, _ := size.Float64()
	return f, nil
}
