package valuation

import (
	"math/big"

	"github.com/shopspring/decimal"

	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/ticks"
)

var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// PositionAmounts returns the token amounts a position holds at the pool
// price recorded in its snapshot, scaled by token decimals.
func PositionAmounts(s model.PositionSnapshot) (decimal.Decimal, decimal.Decimal) {
	if s.Liquidity == nil || s.Liquidity.Sign() == 0 || s.TickLower >= s.TickUpper {
		return decimal.Zero, decimal.Zero
	}

	sqrtA := ticks.SqrtRatioAtTick(s.TickLower)
	sqrtB := ticks.SqrtRatioAtTick(s.TickUpper)
	sqrtP := s.SqrtPrice
	if sqrtP == nil || sqrtP.Sign() == 0 {
		sqrtP = ticks.SqrtRatioAtTick(s.Tick)
	}

	raw0, raw1 := new(big.Int), new(big.Int)
	switch {
	case s.Tick < s.TickLower:
		raw0 = amount0Delta(sqrtA, sqrtB, s.Liquidity)
	case s.Tick >= s.TickUpper:
		raw1 = amount1Delta(sqrtA, sqrtB, s.Liquidity)
	default:
		raw0 = amount0Delta(sqrtP, sqrtB, s.Liquidity)
		raw1 = amount1Delta(sqrtA, sqrtP, s.Liquidity)
	}

	return decimal.NewFromBigInt(raw0, -int32(s.Token0Decimals)),
		decimal.NewFromBigInt(raw1, -int32(s.Token1Decimals))
}

// amount0Delta is L * (sqrtHigh - sqrtLow) * 2^96 / (sqrtHigh * sqrtLow).
func amount0Delta(sqrtLow, sqrtHigh, liquidity *big.Int) *big.Int {
	if sqrtLow.Sign() == 0 || sqrtHigh.Cmp(sqrtLow) <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Sub(sqrtHigh, sqrtLow)
	num.Mul(num, liquidity)
	num.Mul(num, q96)
	den := new(big.Int).Mul(sqrtHigh, sqrtLow)
	return num.Quo(num, den)
}

// amount1Delta is L * (sqrtHigh - sqrtLow) / 2^96.
func amount1Delta(sqrtLow, sqrtHigh, liquidity *big.Int) *big.Int {
	if sqrtHigh.Cmp(sqrtLow) <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Sub(sqrtHigh, sqrtLow)
	num.Mul(num, liquidity)
	return num.Quo(num, q96)
}

// positionETH values a snapshot's holdings and collected fees in ETH.
func positionETH(s model.PositionSnapshot) (value, fees decimal.Decimal) {
	amount0, amount1 := PositionAmounts(s)
	value = amount0.Mul(s.Token0DerivedETH).Add(amount1.Mul(s.Token1DerivedETH))
	fees = s.CollectedFeesToken0.Mul(s.Token0DerivedETH).Add(s.CollectedFeesToken1.Mul(s.Token1DerivedETH))
	return value, fees
}
