package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is a point-in-time record of a liquidity position, emitted
// by the subgraph on every on-chain update of that position.
type PositionSnapshot struct {
	ID          string `json:"id"`
	PositionID  string `json:"position_id"`
	Owner       string `json:"owner"`
	PoolAddress string `json:"pool_address"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`

	TickLower int      `json:"tick_lower"`
	TickUpper int      `json:"tick_upper"`
	Liquidity *big.Int `json:"liquidity"`

	// Pool state at Timestamp.
	SqrtPrice        *big.Int        `json:"sqrt_price"`
	Tick             int             `json:"tick"`
	Token0Decimals   uint8           `json:"token0_decimals"`
	Token1Decimals   uint8           `json:"token1_decimals"`
	Token0DerivedETH decimal.Decimal `json:"token0_derived_eth"`
	Token1DerivedETH decimal.Decimal `json:"token1_derived_eth"`

	CollectedFeesToken0 decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1 decimal.Decimal `json:"collected_fees_token1"`
}
