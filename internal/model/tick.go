package model

import "math/big"

// Tick is an initialized tick as stored by the subgraph.
type Tick struct {
	TickIdx        int      `json:"tick_idx"`
	LiquidityGross *big.Int `json:"liquidity_gross"`
	LiquidityNet   *big.Int `json:"liquidity_net"`
	Price0         string   `json:"price0"`
	Price1         string   `json:"price1"`
}

// ProcessedTick is a tick annotated with the liquidity active around it.
type ProcessedTick struct {
	TickIdx         int      `json:"tick_idx"`
	LiquidityActive *big.Int `json:"liquidity_active"`
	LiquidityGross  *big.Int `json:"liquidity_gross"`
	LiquidityNet    *big.Int `json:"liquidity_net"`
	Price0          string   `json:"price0"`
	Price1          string   `json:"price1"`
	IsCurrent       bool     `json:"is_current"`
}

// PoolTickData is the liquidity distribution around a pool's active tick.
type PoolTickData struct {
	PoolAddress    string          `json:"pool_address"`
	TicksProcessed []ProcessedTick `json:"ticks_processed"`
	FeeTier        int             `json:"fee_tier"`
	TickSpacing    int             `json:"tick_spacing"`
	ActiveTickIdx  int             `json:"active_tick_idx"`
}

// PoolState is the subset of pool fields the tick engine needs.
type PoolState struct {
	Address        string
	Tick           int
	FeeTier        int
	Liquidity      *big.Int
	SqrtPrice      *big.Int
	Token0Decimals uint8
	Token1Decimals uint8
}
