package model

import "time"

// GlobalTotals are cumulative protocol counters read at one block.
type GlobalTotals struct {
	TVLUSD    float64 `json:"tvl_usd"`
	VolumeUSD float64 `json:"volume_usd"`
	FeesUSD   float64 `json:"fees_usd"`
	TxCount   float64 `json:"tx_count"`
}

// GlobalData is the protocol overview for one network (or the merged view).
type GlobalData struct {
	Current    GlobalTotals `json:"current"`
	OneDayAgo  GlobalTotals `json:"one_day_ago"`
	TwoDaysAgo GlobalTotals `json:"two_days_ago"`

	TVLChange     float64 `json:"tvl_change"`
	VolumeUSD24h  float64 `json:"volume_usd_24h"`
	VolumeChange  float64 `json:"volume_change"`
	FeesUSD24h    float64 `json:"fees_usd_24h"`
	FeesChange    float64 `json:"fees_change"`
	TxCount24h    float64 `json:"tx_count_24h"`
	TxCountChange float64 `json:"tx_count_change"`
}

// TokenRef is the token metadata embedded in pool records.
type TokenRef struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// PoolData holds derived metrics for one pool.
type PoolData struct {
	Address      string   `json:"address"`
	NetworkID    string   `json:"network_id"`
	FeeTier      int      `json:"fee_tier"`
	Token0       TokenRef `json:"token0"`
	Token1       TokenRef `json:"token1"`
	Tick         int      `json:"tick"`
	Liquidity    string   `json:"liquidity"`
	SqrtPrice    string   `json:"sqrt_price"`
	TVLUSD       float64  `json:"tvl_usd"`
	TVLUSDChange float64  `json:"tvl_usd_change"`
	VolumeUSD24h float64  `json:"volume_usd_24h"`
	VolumeChange float64  `json:"volume_change"`
	FeesUSD24h   float64  `json:"fees_usd_24h"`
	APR          float64  `json:"apr"`
}

// TokenData holds derived metrics for one token.
type TokenData struct {
	Address        string  `json:"address"`
	NetworkID      string  `json:"network_id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Decimals       uint8   `json:"decimals"`
	PriceUSD       float64 `json:"price_usd"`
	PriceUSDChange float64 `json:"price_usd_change"`
	TVLUSD         float64 `json:"tvl_usd"`
	TVLUSDChange   float64 `json:"tvl_usd_change"`
	VolumeUSD24h   float64 `json:"volume_usd_24h"`
	VolumeChange   float64 `json:"volume_change"`
}

// Transaction is a swap, mint or burn shown in explorer tables.
type Transaction struct {
	Hash      string  `json:"hash"`
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
	Sender    string  `json:"sender"`
	AmountUSD float64 `json:"amount_usd"`
	Amount0   string  `json:"amount0"`
	Amount1   string  `json:"amount1"`
}

// CacheEntry is what the explorer keeps per (network, address). LastUpdated is
// the last write time; entries do not expire.
type CacheEntry[T any] struct {
	Data         *T            `json:"data,omitempty"`
	ChartData    []DayDatum    `json:"chart_data,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
	TickData     *PoolTickData `json:"tick_data,omitempty"`
	LastUpdated  time.Time     `json:"last_updated"`
}
