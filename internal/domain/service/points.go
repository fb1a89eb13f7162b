package service

import (
	"math"

	"arkx/internal/domain/model"
)

// Taker fee rates used when estimating the cost of grinding volume.
const (
	SpotFeeRate    = 0.001
	FuturesFeeRate = 0.0005
)

// PointsTier 积分档位：达到 Volume 及以上（到下一档之前）记 Points 分
type PointsTier struct {
	Tier   int
	Volume float64 // tier threshold, cumulative volume
	Points int64
}

// Beyond the last bracket points accrue linearly per extra volume chunk.
const (
	overflowPoints        = 300
	spotOverflowPerVol    = 100_000.0
	futuresOverflowPerVol = 200_000.0
)

var spotTiers = []PointsTier{
	{1, 100_000, 200},
	{2, 250_000, 500},
	{3, 500_000, 1_000},
	{4, 1_000_000, 2_000},
	{5, 2_500_000, 5_000},
	{6, 5_000_000, 10_000},
	{7, 10_000_000, 20_000},
}

var futuresTiers = []PointsTier{
	{1, 200_000, 200},
	{2, 500_000, 500},
	{3, 1_000_000, 1_000},
	{4, 2_000_000, 2_000},
	{5, 5_000_000, 5_000},
	{6, 10_000_000, 10_000},
	{7, 20_000_000, 20_000},
}

func tiersFor(market model.MarketType) ([]PointsTier, float64) {
	if market == model.MarketFutures {
		return futuresTiers, futuresOverflowPerVol
	}
	return spotTiers, spotOverflowPerVol
}

// PointsForVolume returns the points earned at the given cumulative volume.
func PointsForVolume(market model.MarketType, volume float64) int64 {
	tiers, perVol := tiersFor(market)
	if volume < tiers[0].Volume {
		return 0
	}

	last := tiers[len(tiers)-1]
	if volume >= last.Volume {
		extra := int64(math.Floor((volume-last.Volume)/perVol)) * overflowPoints
		return last.Points + extra
	}

	points := int64(0)
	for _, t := range tiers {
		if volume >= t.Volume {
			points = t.Points
		}
	}
	return points
}

// NextTier returns the first tier still above the given volume.
// ok is false once the bracketed tiers are exhausted (overflow accrual only).
func NextTier(market model.MarketType, volume float64) (PointsTier, bool) {
	tiers, _ := tiersFor(market)
	for _, t := range tiers {
		if volume < t.Volume {
			return t, true
		}
	}
	return PointsTier{}, false
}

// VolumeToNextTier returns how much more volume is needed to reach the next
// bracket, and the fee that grinding it would cost at the market's taker rate.
func VolumeToNextTier(market model.MarketType, volume float64) (remaining, feeCost float64, ok bool) {
	next, ok := NextTier(market, volume)
	if !ok {
		return 0, 0, false
	}
	remaining = next.Volume - volume
	rate := SpotFeeRate
	if market == model.MarketFutures {
		rate = FuturesFeeRate
	}
	return remaining, remaining * rate, true
}
