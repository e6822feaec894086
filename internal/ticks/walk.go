package ticks

import (
	"math/big"

	"elasticAnalytics/internal/model"
)

// BuildProcessedTicks walks numSurrounding spacing steps to each side of the
// pool's active tick and returns the ticks in ascending order with the active
// liquidity carried across initialized ticks.
func BuildProcessedTicks(pool model.PoolState, initialized []model.Tick, spacing, numSurrounding int, cache *Cache) []model.ProcessedTick {
	byIdx := make(map[int]model.Tick, len(initialized))
	for _, t := range initialized {
		byIdx[t.TickIdx] = t
	}

	activeIdx := ActiveTick(pool.Tick, spacing)
	active := newProcessedTick(pool, activeIdx, cloneInt(pool.Liquidity), cache)
	active.IsCurrent = true
	if t, ok := byIdx[activeIdx]; ok {
		active.LiquidityGross = cloneInt(t.LiquidityGross)
		active.LiquidityNet = cloneInt(t.LiquidityNet)
	}
	cache.Set(pool.Address, active)

	ascending := walk(pool, active, byIdx, spacing, numSurrounding, true, cache)
	descending := walk(pool, active, byIdx, spacing, numSurrounding, false, cache)

	out := make([]model.ProcessedTick, 0, len(descending)+1+len(ascending))
	for i := len(descending) - 1; i >= 0; i-- {
		out = append(out, descending[i])
	}
	out = append(out, active)
	out = append(out, ascending...)
	return out
}

func walk(pool model.PoolState, active model.ProcessedTick, byIdx map[int]model.Tick, spacing, steps int, ascending bool, cache *Cache) []model.ProcessedTick {
	out := make([]model.ProcessedTick, 0, steps)
	prev := active
	for i := 0; i < steps; i++ {
		idx := prev.TickIdx - spacing
		if ascending {
			idx = prev.TickIdx + spacing
		}
		cur := newProcessedTick(pool, idx, cloneInt(prev.LiquidityActive), cache)

		initTick, initialized := byIdx[idx]
		if initialized {
			cur.LiquidityGross = cloneInt(initTick.LiquidityGross)
			cur.LiquidityNet = cloneInt(initTick.LiquidityNet)
		}

		// Crossing upward adds the net of the tick entered; crossing
		// downward removes the net of the tick left behind.
		if ascending && initialized {
			cur.LiquidityActive.Add(prev.LiquidityActive, cur.LiquidityNet)
		} else if !ascending && prev.LiquidityNet.Sign() != 0 {
			cur.LiquidityActive.Sub(prev.LiquidityActive, prev.LiquidityNet)
		}

		cache.Set(pool.Address, cur)
		out = append(out, cur)
		prev = cur
	}
	return out
}

func newProcessedTick(pool model.PoolState, idx int, activeLiquidity *big.Int, cache *Cache) model.ProcessedTick {
	tick := model.ProcessedTick{
		TickIdx:         idx,
		LiquidityActive: activeLiquidity,
		LiquidityGross:  new(big.Int),
		LiquidityNet:    new(big.Int),
	}
	if cached, ok := cache.Get(pool.Address, idx); ok {
		tick.Price0, tick.Price1 = cached.Price0, cached.Price1
		return tick
	}
	tick.Price0, tick.Price1 = TickToPrices(idx, pool.Token0Decimals, pool.Token1Decimals)
	return tick
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
