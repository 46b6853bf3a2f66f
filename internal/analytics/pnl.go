package analytics

import (
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// NetPnL combines the three P&L inputs: net = fees - il - gas.
// A direct linear combination with no weighting; all three inputs must
// arrive in the same (token1) denomination.
func NetPnL(feesEarned, impermanentLoss, gasSpent decimal.Decimal) decimal.Decimal {
	return feesEarned.Sub(impermanentLoss).Sub(gasSpent)
}

// Calculator computes full P&L records. The fee estimator is the only
// pluggable piece; everything else is fixed arithmetic.
type Calculator struct {
	fees FeeEstimator
}

// NewCalculator returns a Calculator using the given fee estimator,
// or the default volume-share estimator when nil.
func NewCalculator(fees FeeEstimator) *Calculator {
	if fees == nil {
		fees = NewVolumeShareEstimator()
	}
	return &Calculator{fees: fees}
}

// PositionPnL computes the complete P&L breakdown for a position over
// the given swaps and price pair. The returned record is freshly built
// on every call.
func (c *Calculator) PositionPnL(
	position model.Position,
	swaps []model.Swap,
	initialPrice, currentPrice, gasSpent decimal.Decimal,
) model.PositionPnL {
	feesEarned := c.fees.EstimateFees(position, swaps)
	impermanentLoss := ImpermanentLoss(position, initialPrice, currentPrice)

	return model.PositionPnL{
		FeesEarned:      feesEarned,
		ImpermanentLoss: impermanentLoss,
		GasSpent:        gasSpent,
		NetPnL:          NetPnL(feesEarned, impermanentLoss, gasSpent),
	}
}
