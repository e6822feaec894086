// Package ticks reconstructs the liquidity distribution around a pool's
// current price from the subgraph's initialized ticks.
package ticks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/subgraph"
)

// DefaultSurroundingTicks is the number of spacing steps walked to each side
// of the active tick when the caller does not ask for a specific count.
const DefaultSurroundingTicks = 300

const poolQuery = `query pool($poolAddress: String!) {
  pool(id: $poolAddress) {
    tick
    feeTier
    liquidity
    sqrtPrice
    token0 { id symbol decimals }
    token1 { id symbol decimals }
  }
}`

const surroundingTicksQuery = `query surroundingTicks($poolAddress: String!, $tickIdxLowerBound: BigInt!, $tickIdxUpperBound: BigInt!, $skip: Int!) {
  ticks(
    subgraphError: allow
    first: 1000
    skip: $skip
    where: { poolAddress: $poolAddress, tickIdx_lte: $tickIdxUpperBound, tickIdx_gte: $tickIdxLowerBound }
  ) {
    tickIdx
    liquidityGross
    liquidityNet
    price0
    price1
  }
}`

type tokenRow struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type poolRow struct {
	Tick      string   `json:"tick"`
	FeeTier   string   `json:"feeTier"`
	Liquidity string   `json:"liquidity"`
	SqrtPrice string   `json:"sqrtPrice"`
	Token0    tokenRow `json:"token0"`
	Token1    tokenRow `json:"token1"`
}

type tickRow struct {
	TickIdx        string `json:"tickIdx"`
	LiquidityGross string `json:"liquidityGross"`
	LiquidityNet   string `json:"liquidityNet"`
	Price0         string `json:"price0"`
	Price1         string `json:"price1"`
}

// Engine fetches pool state and ticks for one network's subgraph.
type Engine struct {
	client subgraph.Querier
	cache  *Cache
	logger *zap.Logger
}

// NewEngine creates a tick engine. A nil cache disables price reuse.
func NewEngine(client subgraph.Querier, cache *Cache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, cache: cache, logger: logger}
}

// FetchSurroundingTicks returns numSurrounding ticks to each side of the
// pool's active tick. Any fetch failure returns an error and no data.
func (e *Engine) FetchSurroundingTicks(ctx context.Context, poolAddress string, numSurrounding int) (*model.PoolTickData, error) {
	if numSurrounding <= 0 {
		numSurrounding = DefaultSurroundingTicks
	}
	poolAddress = strings.ToLower(poolAddress)
	start := time.Now()

	pool, err := e.fetchPool(ctx, poolAddress)
	if err != nil {
		return nil, err
	}
	spacing, err := TickSpacing(pool.FeeTier)
	if err != nil {
		return nil, err
	}

	activeIdx := ActiveTick(pool.Tick, spacing)
	lower := activeIdx - numSurrounding*spacing
	upper := activeIdx + numSurrounding*spacing

	initialized, err := e.fetchTicks(ctx, poolAddress, lower, upper)
	if err != nil {
		return nil, err
	}

	processed := BuildProcessedTicks(pool, initialized, spacing, numSurrounding, e.cache)
	e.logger.Debug("fetch ticks",
		zap.String("pool", poolAddress),
		zap.Int("initialized", len(initialized)),
		zap.Int("processed", len(processed)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.PoolTickData{
		PoolAddress:    poolAddress,
		TicksProcessed: processed,
		FeeTier:        pool.FeeTier,
		TickSpacing:    spacing,
		ActiveTickIdx:  activeIdx,
	}, nil
}

func (e *Engine) fetchPool(ctx context.Context, poolAddress string) (model.PoolState, error) {
	var resp struct {
		Pool *poolRow `json:"pool"`
	}
	vars := map[string]interface{}{"poolAddress": poolAddress}
	if err := e.client.Query(ctx, poolQuery, vars, &resp); err != nil {
		return model.PoolState{}, abort.Wrap(ctx, fmt.Errorf("query pool %s: %w", poolAddress, err))
	}
	if resp.Pool == nil {
		return model.PoolState{}, fmt.Errorf("pool %s not found", poolAddress)
	}
	return parsePool(poolAddress, *resp.Pool)
}

func parsePool(address string, row poolRow) (model.PoolState, error) {
	tick, err := subgraph.ParseInt(row.Tick)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s tick: %w", address, err)
	}
	feeTier, err := subgraph.ParseInt(row.FeeTier)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s fee tier: %w", address, err)
	}
	liquidity, err := subgraph.ParseBigInt(row.Liquidity)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s liquidity: %w", address, err)
	}
	sqrtPrice, err := subgraph.ParseBigInt(row.SqrtPrice)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s sqrt price: %w", address, err)
	}
	dec0, err := parseDecimals(row.Token0.Decimals)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s token0: %w", address, err)
	}
	dec1, err := parseDecimals(row.Token1.Decimals)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool %s token1: %w", address, err)
	}
	return model.PoolState{
		Address:        address,
		Tick:           tick,
		FeeTier:        feeTier,
		Liquidity:      liquidity,
		SqrtPrice:      sqrtPrice,
		Token0Decimals: dec0,
		Token1Decimals: dec1,
	}, nil
}

func parseDecimals(value string) (uint8, error) {
	d, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid decimals %q", value)
	}
	return uint8(d), nil
}

func (e *Engine) fetchTicks(ctx context.Context, poolAddress string, lower, upper int) ([]model.Tick, error) {
	rows, err := subgraph.Paginate(ctx, subgraph.PageSize, func(ctx context.Context, skip int) ([]tickRow, error) {
		var resp struct {
			Ticks []tickRow `json:"ticks"`
		}
		vars := map[string]interface{}{
			"poolAddress":       poolAddress,
			"tickIdxLowerBound": strconv.Itoa(lower),
			"tickIdxUpperBound": strconv.Itoa(upper),
			"skip":              skip,
		}
		if err := e.client.Query(ctx, surroundingTicksQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("query ticks %s: %w", poolAddress, err)
		}
		return resp.Ticks, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Tick, 0, len(rows))
	for _, row := range rows {
		idx, err := subgraph.ParseInt(row.TickIdx)
		if err != nil {
			return nil, fmt.Errorf("tick idx: %w", err)
		}
		gross, err := subgraph.ParseBigInt(row.LiquidityGross)
		if err != nil {
			return nil, fmt.Errorf("tick %d gross: %w", idx, err)
		}
		net, err := subgraph.ParseBigInt(row.LiquidityNet)
		if err != nil {
			return nil, fmt.Errorf("tick %d net: %w", idx, err)
		}
		out = append(out, model.Tick{
			TickIdx:        idx,
			LiquidityGross: gross,
			LiquidityNet:   net,
			Price0:         row.Price0,
			Price1:         row.Price1,
		})
	}
	return out, nil
}
