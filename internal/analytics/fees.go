package analytics

import (
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// FeeEstimator estimates the fees a position earned from a set of
// swaps observed on its pool. It is a seam: the default estimator
// below is a volume-share approximation, and exact in-range
// liquidity-share accounting can replace it without touching the rest
// of the P&L pipeline.
type FeeEstimator interface {
	EstimateFees(position model.Position, swaps []model.Swap) decimal.Decimal
}

// Default policy constants for the volume-share approximation. These
// are policy choices, not derived values; override them through the
// VolumeShareEstimator fields or the fee-rate / pool-share config keys.
var (
	DefaultFeeRate   = decimal.RequireFromString("0.003") // 0.3% fee tier
	DefaultPoolShare = decimal.RequireFromString("0.01")  // assume 1% of pool liquidity
)

// VolumeShareEstimator approximates fees as
//
//	feeRate * poolShare * sum(|amount0| + |amount1|)
//
// over the provided swaps. This is an approximation, not a replay of
// the AMM's fee accrual: exact accounting would require tracking the
// position's in-range liquidity share over time.
type VolumeShareEstimator struct {
	FeeRate   decimal.Decimal
	PoolShare decimal.Decimal
}

// NewVolumeShareEstimator returns an estimator with the default fee
// rate and pool share.
func NewVolumeShareEstimator() VolumeShareEstimator {
	return VolumeShareEstimator{
		FeeRate:   DefaultFeeRate,
		PoolShare: DefaultPoolShare,
	}
}

// EstimateFees implements FeeEstimator.
func (e VolumeShareEstimator) EstimateFees(_ model.Position, swaps []model.Swap) decimal.Decimal {
	if len(swaps) == 0 {
		return decimal.Zero
	}

	totalVolume := decimal.Zero
	for _, swap := range swaps {
		totalVolume = totalVolume.Add(swap.Amount0.Abs()).Add(swap.Amount1.Abs())
	}

	return totalVolume.Mul(e.FeeRate).Mul(e.PoolShare)
}
