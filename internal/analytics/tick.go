// Package analytics implements P&L analytics for concentrated-liquidity
// positions: tick/price conversion, token-amount reconstruction,
// impermanent loss, fee estimation, and health classification.
//
// Every function here is pure: no I/O, no shared state, no blocking.
// Callers may evaluate positions in parallel without synchronization.
// All monetary quantities are decimal.Decimal; float64 is never used.
package analytics

import "github.com/shopspring/decimal"

// MinTick and MaxTick bound the supported tick domain, matching the
// valid tick range of Uniswap v3/v4 pools.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// decimalPrecision is the number of decimal places carried through the
// exp/ln series used for tick conversion.
const decimalPrecision = 32

var (
	// ln(1.0001), the natural log of one tick's price increment.
	lnTickBase = decimal.RequireFromString("0.00009999500033330834")

	half = decimal.RequireFromString("0.5")

	// Exponents beyond this magnitude are capped to the sqrt-price
	// sentinels below instead of being evaluated. Ticks inside the
	// supported domain never reach it; the cap exists so that out-of-domain
	// inputs degrade to a bounded value rather than overflow.
	maxExponent = decimal.NewFromInt(100)

	sqrtPriceCapHigh = decimal.NewFromInt(1000000)
	sqrtPriceCapLow  = decimal.RequireFromString("0.000001")
)

// ClampTick restricts a tick to the supported domain. Clamping is a
// deliberate, documented approximation for out-of-domain inputs; ticks
// seen in normal operation are unaffected.
func ClampTick(tick int32) int32 {
	if tick < MinTick {
		return MinTick
	}
	if tick > MaxTick {
		return MaxTick
	}
	return tick
}

// TickToSqrtPrice converts a tick to its square-root price:
// sqrt_price = 1.0001^(tick/2), computed as e^(tick/2 * ln 1.0001) for
// numerical stability at extreme tick magnitudes.
func TickToSqrtPrice(tick int32) decimal.Decimal {
	tick = ClampTick(tick)

	exponent := decimal.NewFromInt32(tick).Mul(half).Mul(lnTickBase)
	if exponent.Abs().GreaterThan(maxExponent) {
		if tick > 0 {
			return sqrtPriceCapHigh
		}
		return sqrtPriceCapLow
	}

	sqrtPrice, err := exponent.ExpTaylor(decimalPrecision)
	if err != nil {
		if tick > 0 {
			return sqrtPriceCapHigh
		}
		return sqrtPriceCapLow
	}
	return sqrtPrice
}

// TickToPrice converts a tick to its price: price = 1.0001^tick.
func TickToPrice(tick int32) decimal.Decimal {
	sqrtPrice := TickToSqrtPrice(tick)
	return sqrtPrice.Mul(sqrtPrice)
}

// PriceToTick converts a price to the nearest tick:
// tick = round(ln(price) / ln(1.0001)). Round-tripping a tick through
// TickToPrice and back reproduces it to within 1 due to rounding.
// Non-positive prices are invalid input and map to tick 0.
func PriceToTick(price decimal.Decimal) int32 {
	if price.Sign() <= 0 {
		return 0
	}

	lnPrice, err := price.Ln(decimalPrecision)
	if err != nil {
		return 0
	}

	tick := lnPrice.Div(lnTickBase).Round(0).IntPart()
	if tick < int64(MinTick) {
		return MinTick
	}
	if tick > int64(MaxTick) {
		return MaxTick
	}
	return int32(tick)
}

// PriceFromSqrtX96 converts a Q64.96 fixed-point sqrt price, as read
// from a pool's slot0, to a plain decimal price.
func PriceFromSqrtX96(sqrtPriceX96 decimal.Decimal) decimal.Decimal {
	if sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero
	}
	sqrtPrice := sqrtPriceX96.Div(q96)
	return sqrtPrice.Mul(sqrtPrice)
}

// q96 is 2^96, the scaling factor of Uniswap's sqrtPriceX96.
var q96 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(96))
