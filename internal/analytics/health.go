package analytics

import (
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// Default classifier thresholds. Policy choices, overridable through
// the Classifier fields or the warn-proximity / critical-loss config
// keys.
var (
	// DefaultWarnProximity flags a position when its distance to the
	// nearest range edge falls below this fraction of the range width.
	DefaultWarnProximity = decimal.RequireFromString("0.10")

	// DefaultCriticalLoss is the net P&L at or below which a position
	// is critical rather than merely warning.
	DefaultCriticalLoss = decimal.RequireFromString("0.05")
)

// IsInRange reports whether tick lies in [tickLower, tickUpper).
func IsInRange(tick, tickLower, tickUpper int32) bool {
	return tick >= tickLower && tick < tickUpper
}

// DistanceToRangeEdge returns the tick distance to the nearest range
// boundary, or 0 when the tick is outside the range.
func DistanceToRangeEdge(tick, tickLower, tickUpper int32) int32 {
	if !IsInRange(tick, tickLower, tickUpper) {
		return 0
	}

	distToLower := tick - tickLower
	distToUpper := tickUpper - tick
	if distToLower < distToUpper {
		return distToLower
	}
	return distToUpper
}

// RangeWidthPercent expresses a range's width as a percentage of its
// lower price: (Pb - Pa) / Pa * 100.
func RangeWidthPercent(tickLower, tickUpper int32) decimal.Decimal {
	priceLower := TickToPrice(tickLower)
	priceUpper := TickToPrice(tickUpper)

	if priceLower.Sign() == 0 {
		return decimal.Zero
	}

	return priceUpper.Sub(priceLower).Div(priceLower).Mul(decimal.NewFromInt(100))
}

// Classifier maps a position's range state and net P&L to a health
// status.
type Classifier struct {
	WarnProximity decimal.Decimal
	CriticalLoss  decimal.Decimal
}

// NewClassifier returns a Classifier with default thresholds.
func NewClassifier() Classifier {
	return Classifier{
		WarnProximity: DefaultWarnProximity,
		CriticalLoss:  DefaultCriticalLoss,
	}
}

// PositionHealth classifies a position. Evaluation order is fixed:
//
//  1. Out of range is always critical, even with positive P&L: the
//     position has stopped earning fees and holds one-sided exposure.
//  2. Net P&L at or below the critical loss threshold is critical.
//  3. In range but within the proximity threshold of either edge is a
//     warning, regardless of P&L sign.
//  4. Any remaining negative net P&L is a warning.
//  5. Otherwise healthy.
//
// Each call evaluates from scratch; there is no transition history.
func (c Classifier) PositionHealth(position model.Position, currentTick int32, netPnL decimal.Decimal) model.HealthStatus {
	if !IsInRange(currentTick, position.TickLower, position.TickUpper) {
		return model.HealthCritical
	}

	if netPnL.LessThanOrEqual(c.CriticalLoss.Neg()) {
		return model.HealthCritical
	}

	distance := DistanceToRangeEdge(currentTick, position.TickLower, position.TickUpper)
	width := position.TickUpper - position.TickLower
	threshold := c.WarnProximity.Mul(decimal.NewFromInt32(width))
	if decimal.NewFromInt32(distance).LessThan(threshold) {
		return model.HealthWarning
	}

	if netPnL.Sign() < 0 {
		return model.HealthWarning
	}

	return model.HealthHealthy
}
