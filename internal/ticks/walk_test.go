package ticks

import (
	"math/big"
	"testing"

	"elasticAnalytics/internal/model"
)

func tick(idx int, net int64) model.Tick {
	gross := big.NewInt(net)
	gross.Abs(gross)
	return model.Tick{TickIdx: idx, LiquidityGross: gross, LiquidityNet: big.NewInt(net)}
}

func testPool() model.PoolState {
	return model.PoolState{
		Address:        "0xPool",
		Tick:           63,
		FeeTier:        300,
		Liquidity:      big.NewInt(1000),
		Token0Decimals: 18,
		Token1Decimals: 18,
	}
}

func TestBuildProcessedTicksScenario(t *testing.T) {
	pool := testPool()
	out := BuildProcessedTicks(pool, []model.Tick{tick(120, 500)}, 60, 2, NewCache())

	if len(out) != 5 {
		t.Fatalf("expected 5 ticks, got %d", len(out))
	}
	wantIdx := []int{-60, 0, 60, 120, 180}
	wantActive := []int64{1000, 1000, 1000, 1500, 1500}
	for i, pt := range out {
		if pt.TickIdx != wantIdx[i] {
			t.Fatalf("tick %d: idx %d want %d", i, pt.TickIdx, wantIdx[i])
		}
		if pt.LiquidityActive.Int64() != wantActive[i] {
			t.Fatalf("tick %d: active %s want %d", pt.TickIdx, pt.LiquidityActive, wantActive[i])
		}
		if pt.IsCurrent != (pt.TickIdx == 60) {
			t.Fatalf("tick %d: unexpected IsCurrent=%v", pt.TickIdx, pt.IsCurrent)
		}
	}
	if out[3].LiquidityNet.Int64() != 500 {
		t.Fatalf("tick 120 net: %s", out[3].LiquidityNet)
	}
}

func TestBuildProcessedTicksActiveOnInitializedTick(t *testing.T) {
	pool := testPool()
	pool.Tick = 123
	out := BuildProcessedTicks(pool, []model.Tick{tick(120, 500)}, 60, 1, NewCache())

	wantIdx := []int{60, 120, 180}
	wantActive := []int64{500, 1000, 1000}
	for i, pt := range out {
		if pt.TickIdx != wantIdx[i] || pt.LiquidityActive.Int64() != wantActive[i] {
			t.Fatalf("tick %d: got idx %d active %s, want idx %d active %d",
				i, pt.TickIdx, pt.LiquidityActive, wantIdx[i], wantActive[i])
		}
	}
	if !out[1].IsCurrent || out[1].LiquidityNet.Int64() != 500 {
		t.Fatalf("active tick should carry its own net: %+v", out[1])
	}
}

func TestBuildProcessedTicksWalkInvariant(t *testing.T) {
	pool := testPool()
	initialized := []model.Tick{
		tick(-120, 50),
		tick(0, 100),
		tick(60, 300),
		tick(120, 500),
		tick(240, -200),
	}
	nets := map[int]int64{}
	for _, it := range initialized {
		nets[it.TickIdx] = it.LiquidityNet.Int64()
	}

	const n = 6
	out := BuildProcessedTicks(pool, initialized, 60, n, NewCache())
	if len(out) != 2*n+1 {
		t.Fatalf("expected %d ticks, got %d", 2*n+1, len(out))
	}

	active := ActiveTick(pool.Tick, 60)
	for i, pt := range out {
		if i > 0 && out[i-1].TickIdx >= pt.TickIdx {
			t.Fatalf("ticks not strictly ascending at %d", pt.TickIdx)
		}
		if pt.TickIdx%60 != 0 {
			t.Fatalf("tick %d off spacing", pt.TickIdx)
		}

		want := int64(1000)
		switch {
		case pt.TickIdx > active:
			// Above: add every net in (active, T].
			for idx, net := range nets {
				if idx > active && idx <= pt.TickIdx {
					want += net
				}
			}
		case pt.TickIdx < active:
			// Below: remove every net in (T, active].
			for idx, net := range nets {
				if idx > pt.TickIdx && idx <= active {
					want -= net
				}
			}
		}
		if pt.LiquidityActive.Int64() != want {
			t.Fatalf("tick %d: active %s want %d", pt.TickIdx, pt.LiquidityActive, want)
		}
	}
}

func TestBuildProcessedTicksUsesCachedPrices(t *testing.T) {
	pool := testPool()
	cache := NewCache()
	cache.Set(pool.Address, model.ProcessedTick{TickIdx: 120, Price0: "cached0", Price1: "cached1"})

	out := BuildProcessedTicks(pool, nil, 60, 1, cache)
	if out[2].Price0 != "cached0" || out[2].Price1 != "cached1" {
		t.Fatalf("expected cached prices, got %s %s", out[2].Price0, out[2].Price1)
	}
	if out[0].Price0 == "" {
		t.Fatalf("expected computed price for tick %d", out[0].TickIdx)
	}
	if cache.Len() != 3 {
		t.Fatalf("expected 3 cached ticks, got %d", cache.Len())
	}
	if _, ok := cache.Get("0xpool", 0); !ok {
		t.Fatalf("cache lookup should ignore address case")
	}
}

func TestBuildProcessedTicksClampsPriceOnly(t *testing.T) {
	pool := testPool()
	pool.Tick = MaxTick - 10
	pool.FeeTier = 1000
	out := BuildProcessedTicks(pool, nil, 200, 2, nil)

	last := out[len(out)-1]
	if last.TickIdx <= MaxTick {
		t.Fatalf("expected tick beyond MaxTick, got %d", last.TickIdx)
	}
	p0, _ := TickToPrices(MaxTick, 18, 18)
	if last.Price0 != p0 {
		t.Fatalf("price beyond MaxTick should equal MaxTick price")
	}
	if last.LiquidityActive.Int64() != 1000 {
		t.Fatalf("liquidity should carry past MaxTick, got %s", last.LiquidityActive)
	}
}
