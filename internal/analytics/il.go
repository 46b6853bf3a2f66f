package analytics

import (
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// priceMoveTolerance is the absolute price delta below which the price
// is treated as unmoved and IL short-circuits to zero.
var priceMoveTolerance = decimal.RequireFromString("0.000001")

// ImpermanentLoss computes the fractional shortfall of a position's
// current value versus holding its initial token composition, both
// revalued at the current price:
//
//	(x0, y0)   = amounts at initialPrice
//	(x, y)     = amounts at currentPrice
//	V_hodl     = x0*currentPrice + y0
//	V_current  = x*currentPrice + y
//	IL         = (V_hodl - V_current) / V_hodl
//
// The result is a fraction, not a percentage, and is clamped to zero.
// Degenerate inputs - non-positive prices, zero liquidity, zero hodl
// value - return zero rather than an error: a transient bad price
// observation must not take down a monitoring pipeline.
//
// IL depends only on the two prices and the position's range and
// liquidity, never on the path the price took between them.
func ImpermanentLoss(position model.Position, initialPrice, currentPrice decimal.Decimal) decimal.Decimal {
	if initialPrice.Sign() <= 0 || currentPrice.Sign() <= 0 {
		return decimal.Zero
	}
	if currentPrice.Sub(initialPrice).Abs().LessThan(priceMoveTolerance) {
		return decimal.Zero
	}
	if position.Liquidity.Sign() <= 0 {
		return decimal.Zero
	}

	initialTick := PriceToTick(initialPrice)
	currentTick := PriceToTick(currentPrice)

	x0, y0 := TokenAmountsFromLiquidity(position.Liquidity, initialTick, position.TickLower, position.TickUpper)
	x, y := TokenAmountsFromLiquidity(position.Liquidity, currentTick, position.TickLower, position.TickUpper)

	hodlValue := PositionValue(x0, y0, currentPrice)
	currentValue := PositionValue(x, y, currentPrice)

	if hodlValue.Sign() <= 0 {
		return decimal.Zero
	}

	il := hodlValue.Sub(currentValue).Div(hodlValue)
	if il.Sign() < 0 {
		return decimal.Zero
	}
	return il
}
