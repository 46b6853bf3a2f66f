package analytics

import "github.com/shopspring/decimal"

// RangePosition tags where the current tick sits relative to a
// position's range. The three cases select mutually exclusive
// token-amount formulas.
type RangePosition int

const (
	BelowRange RangePosition = iota
	InRange
	AboveRange
)

func (rp RangePosition) String() string {
	switch rp {
	case BelowRange:
		return "below_range"
	case InRange:
		return "in_range"
	case AboveRange:
		return "above_range"
	default:
		return "unknown"
	}
}

// ClassifyRange places currentTick against [tickLower, tickUpper).
// The lower bound is inclusive and the upper bound exclusive, matching
// the AMM's active-range semantics.
func ClassifyRange(currentTick, tickLower, tickUpper int32) RangePosition {
	switch {
	case currentTick < tickLower:
		return BelowRange
	case currentTick >= tickUpper:
		return AboveRange
	default:
		return InRange
	}
}

// TokenAmountsFromLiquidity reconstructs the pair of token amounts a
// position holds at the given current tick.
//
// From the Uniswap v3 whitepaper (equations 6.29 and 6.30), with
// Pa = price(tickLower) and Pb = price(tickUpper):
//
//	P < Pa:       amount0 = L*(√Pb-√Pa)/(√Pa*√Pb),  amount1 = 0
//	Pa <= P < Pb: amount0 = L*(√Pb-√P)/(√P*√Pb),    amount1 = L*(√P-√Pa)
//	P >= Pb:      amount0 = 0,                      amount1 = L*(√Pb-√Pa)
//
// Zero liquidity short-circuits to (0, 0) without touching the price
// branches. An inverted or empty range is invalid input and also
// yields (0, 0).
func TokenAmountsFromLiquidity(liquidity decimal.Decimal, currentTick, tickLower, tickUpper int32) (amount0, amount1 decimal.Decimal) {
	if liquidity.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	if tickLower >= tickUpper {
		return decimal.Zero, decimal.Zero
	}

	sqrtLower := TickToSqrtPrice(tickLower)
	sqrtUpper := TickToSqrtPrice(tickUpper)

	switch ClassifyRange(currentTick, tickLower, tickUpper) {
	case BelowRange:
		amount0 = liquidity.Mul(sqrtUpper.Sub(sqrtLower)).Div(sqrtLower.Mul(sqrtUpper))
		return amount0, decimal.Zero
	case AboveRange:
		amount1 = liquidity.Mul(sqrtUpper.Sub(sqrtLower))
		return decimal.Zero, amount1
	default:
		sqrtPrice := TickToSqrtPrice(currentTick)
		amount0 = liquidity.Mul(sqrtUpper.Sub(sqrtPrice)).Div(sqrtPrice.Mul(sqrtUpper))
		amount1 = liquidity.Mul(sqrtPrice.Sub(sqrtLower))
		return amount0, amount1
	}
}

// PositionValue expresses a pair of token amounts as a single value
// denominated in token1: value = amount0*price + amount1. The same
// denomination is used for every valuation in the package; mixing
// denominations within one computation would corrupt the result.
func PositionValue(amount0, amount1, price decimal.Decimal) decimal.Decimal {
	return amount0.Mul(price).Add(amount1)
}
