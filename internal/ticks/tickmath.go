package ticks

import (
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// MinTick and MaxTick bound the protocol's tick space.
	MinTick = -887272
	MaxTick = 887272

	// PriceDigits is the number of fractional digits in tick prices.
	PriceDigits = 18
)

var (
	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	maxUint256 = new(uint256.Int).SetAllOne()
	lowMask32  = uint256.NewInt(0xffffffff)
	q192       = new(big.Int).Lsh(big.NewInt(1), 192)

	// sqrtRatioFactors[i] applies when bit i of |tick| is set; each is
	// 2^128 / sqrt(1.0001)^(2^i).
	sqrtRatioFactors = []*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}
)

// ClampTick limits tick to [MinTick, MaxTick].
func ClampTick(tick int) int {
	if tick < MinTick {
		return MinTick
	}
	if tick > MaxTick {
		return MaxTick
	}
	return tick
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed point number,
// rounded up. tick is clamped to the valid range first.
func SqrtRatioAtTick(tick int) *big.Int {
	tick = ClampTick(tick)
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(uint256.Int).Set(q128)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatioFactors[0])
	}
	for bit := 1; bit < len(sqrtRatioFactors); bit++ {
		if absTick&(1<<bit) != 0 {
			ratio.Mul(ratio, sqrtRatioFactors[bit])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	remainder := new(uint256.Int).And(ratio, lowMask32)
	ratio.Rsh(ratio, 32)
	if !remainder.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio.ToBig()
}

// TickToPrices returns price0 (token1 per token0) and price1 (token0 per
// token1) at tick, adjusted for token decimals.
func TickToPrices(tick int, decimals0, decimals1 uint8) (string, string) {
	sqrt := SqrtRatioAtTick(tick)
	num := new(big.Int).Mul(sqrt, sqrt)
	den := new(big.Int).Set(q192)

	if decimals0 > decimals1 {
		num.Mul(num, pow10(decimals0-decimals1))
	} else if decimals1 > decimals0 {
		den.Mul(den, pow10(decimals1-decimals0))
	}

	price0 := new(big.Rat).SetFrac(num, den)
	price1 := new(big.Rat).Inv(price0)
	return price0.FloatString(PriceDigits), price1.FloatString(PriceDigits)
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
