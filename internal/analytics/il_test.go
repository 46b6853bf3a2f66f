package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"positionScope/internal/model"
)

func testPosition(tickLower, tickUpper int32) model.Position {
	return model.Position{
		ID:        1,
		NFTID:     "1",
		Owner:     "0xtest",
		PoolID:    "0xpool",
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: decimal.NewFromInt(1000000),
		CreatedAt: time.Now().UTC(),
	}
}

func TestImpermanentLossUnmovedPrice(t *testing.T) {
	position := testPosition(-1000, 1000)
	price := decimal.NewFromInt(100)

	require.True(t, ImpermanentLoss(position, price, price).IsZero())
}

func TestImpermanentLossTenPercentMove(t *testing.T) {
	position := testPosition(-1000, 1000)

	il := ImpermanentLoss(position, decimal.RequireFromString("1.0"), decimal.RequireFromString("1.1"))

	// A 10% move against a +/-1000 tick range lands around 2.3% IL.
	require.True(t, il.GreaterThan(decimal.RequireFromString("0.01")), "IL too small: %s", il)
	require.True(t, il.LessThan(decimal.RequireFromString("0.05")), "IL too large: %s", il)
}

func TestImpermanentLossPriceDecrease(t *testing.T) {
	position := testPosition(-1000, 1000)

	il := ImpermanentLoss(position, decimal.RequireFromString("1.0"), decimal.RequireFromString("0.9"))
	require.True(t, il.Sign() > 0)
	require.True(t, il.LessThan(decimal.RequireFromString("0.1")))
}

func TestImpermanentLossFarAboveRange(t *testing.T) {
	position := testPosition(-1000, 1000)

	ilNear := ImpermanentLoss(position, decimal.RequireFromString("1.0"), decimal.RequireFromString("1.1"))
	ilFar := ImpermanentLoss(position, decimal.RequireFromString("1.0"), decimal.RequireFromString("2.0"))

	// At price 2.0 the range is far behind: the position is all token1.
	amount0, _ := TokenAmountsFromLiquidity(position.Liquidity, PriceToTick(decimal.NewFromInt(2)), position.TickLower, position.TickUpper)
	require.True(t, amount0.IsZero())

	require.True(t, ilFar.GreaterThan(decimal.RequireFromString("0.2")), "far-out IL should be substantial, got %s", ilFar)
	require.True(t, ilFar.GreaterThan(ilNear))
	require.True(t, ilFar.LessThan(decimal.NewFromInt(1)))
}

func TestImpermanentLossSymmetry(t *testing.T) {
	position := testPosition(-1000, 1000)
	base := decimal.RequireFromString("1.0")

	ilUp := ImpermanentLoss(position, base, decimal.RequireFromString("1.05"))
	ilDown := ImpermanentLoss(position, base, decimal.NewFromInt(1).Div(decimal.RequireFromString("1.05")))

	require.True(t, ilUp.Sign() > 0)
	require.True(t, ilDown.Sign() > 0)

	// Reciprocal moves of equal magnitude land close together; IL is
	// not perfectly linear so allow a loose band.
	ratio := ilUp.Div(ilDown)
	if ratio.LessThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1).Div(ratio)
	}
	require.True(t, ratio.LessThan(decimal.NewFromInt(2)), "up/down IL ratio too large: %s", ratio)
}

func TestImpermanentLossPathIndependence(t *testing.T) {
	position := testPosition(-1000, 1000)
	initial := decimal.RequireFromString("1.0")
	final := decimal.RequireFromString("1.2")

	direct := ImpermanentLoss(position, initial, final)

	// An evaluation at an intermediate price must not change the result
	// for the same endpoint pair.
	_ = ImpermanentLoss(position, initial, decimal.RequireFromString("1.1"))
	again := ImpermanentLoss(position, initial, final)

	require.True(t, direct.Equal(again))
}

func TestImpermanentLossNarrowVsWideRange(t *testing.T) {
	narrow := testPosition(-100, 100)
	wide := testPosition(-10000, 10000)

	initial := decimal.RequireFromString("1.0")
	current := decimal.RequireFromString("1.05")

	ilNarrow := ImpermanentLoss(narrow, initial, current)
	ilWide := ImpermanentLoss(wide, initial, current)

	require.True(t, ilNarrow.GreaterThan(ilWide),
		"narrow range IL %s should exceed wide range IL %s", ilNarrow, ilWide)
}

func TestImpermanentLossDegenerateInputs(t *testing.T) {
	position := testPosition(-1000, 1000)

	require.True(t, ImpermanentLoss(position, decimal.Zero, decimal.NewFromInt(110)).IsZero())
	require.True(t, ImpermanentLoss(position, decimal.NewFromInt(100), decimal.Zero).IsZero())
	require.True(t, ImpermanentLoss(position, decimal.NewFromInt(-1), decimal.NewFromInt(2)).IsZero())

	zeroLiquidity := position
	zeroLiquidity.Liquidity = decimal.Zero
	require.True(t, ImpermanentLoss(zeroLiquidity, decimal.NewFromInt(100), decimal.NewFromInt(110)).IsZero())
}

func TestImpermanentLossInitialPriceAtBoundary(t *testing.T) {
	position := testPosition(-1000, 1000)

	initial := TickToPrice(position.TickLower)
	current := TickToPrice(0)

	il := ImpermanentLoss(position, initial, current)
	require.True(t, il.Sign() >= 0)
}

func TestImpermanentLossOutOfRangeMove(t *testing.T) {
	// Range entirely above the current price after the move.
	position := testPosition(10000, 20000)

	initial := TickToPrice(15000)
	current := TickToPrice(5000)

	il := ImpermanentLoss(position, initial, current)
	require.True(t, il.Sign() >= 0)
}
