package ticks

import (
	"math/big"
	"strings"
	"testing"
)

func TestSqrtRatioAtTickBounds(t *testing.T) {
	cases := []struct {
		tick int
		want string
	}{
		{0, "79228162514264337593543950336"},
		{MinTick, "4295128739"},
		{MaxTick, "1461446703485210103287273052203988822378723970342"},
		{MinTick - 100, "4295128739"},
		{MaxTick + 100, "1461446703485210103287273052203988822378723970342"},
	}
	for _, tc := range cases {
		got := SqrtRatioAtTick(tc.tick)
		if got.String() != tc.want {
			t.Fatalf("tick %d: got %s want %s", tc.tick, got, tc.want)
		}
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev := SqrtRatioAtTick(-1000)
	for tick := -999; tick <= 1000; tick += 37 {
		cur := SqrtRatioAtTick(tick)
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d", tick)
		}
		prev = cur
	}
}

func TestTickToPrices(t *testing.T) {
	price0, price1 := TickToPrices(0, 18, 18)
	if !strings.HasPrefix(price0, "1.000000") || !strings.HasPrefix(price1, "1.000000") {
		t.Fatalf("tick 0 prices: %s %s", price0, price1)
	}

	// token0 has 12 more decimals than token1: 1 raw unit ratio becomes 1e12.
	price0, _ = TickToPrices(0, 18, 6)
	if !strings.HasPrefix(price0, "1000000000000.") {
		t.Fatalf("decimal adjusted price0: %s", price0)
	}

	// 1.0001^6932 is roughly 2.
	price0, price1 = TickToPrices(6932, 18, 18)
	p0, _ := new(big.Rat).SetString(price0)
	p1, _ := new(big.Rat).SetString(price1)
	f0, _ := p0.Float64()
	f1, _ := p1.Float64()
	if f0 < 1.99 || f0 > 2.01 {
		t.Fatalf("price0 at 6932: %v", f0)
	}
	if f1 < 0.49 || f1 > 0.51 {
		t.Fatalf("price1 at 6932: %v", f1)
	}
}
