package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"elasticAnalytics/internal/metric"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/restapi"
	"elasticAnalytics/internal/subgraph"
)

const poolFields = `{
    id
    feeTier
    tick
    liquidity
    sqrtPrice
    totalValueLockedUSD
    volumeUSD
    feesUSD
    token0 { id symbol name decimals }
    token1 { id symbol name decimals }
  }`

const poolHistoryFields = `{ id totalValueLockedUSD volumeUSD feesUSD }`

const poolDayDatasQuery = `query poolDayDatas($pool: String!, $skip: Int!) {
  poolDayDatas(first: 1000, skip: $skip, where: { pool: $pool }, orderBy: date, orderDirection: asc, subgraphError: allow) {
    date
    volumeUSD
    tvlUSD
    feesUSD
  }
}`

const poolSwapsQuery = `query poolSwaps($pool: String!) {
  swaps(first: 100, orderBy: timestamp, orderDirection: desc, where: { pool: $pool }, subgraphError: allow) {
    id
    timestamp
    origin
    amount0
    amount1
    amountUSD
    transaction { id }
  }
}`

type tokenRow struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals string `json:"decimals"`
}

func (r tokenRow) ref() model.TokenRef {
	dec, _ := strconv.ParseUint(r.Decimals, 10, 8)
	return model.TokenRef{Address: strings.ToLower(r.ID), Symbol: r.Symbol, Name: r.Name, Decimals: uint8(dec)}
}

type poolRow struct {
	ID                  string   `json:"id"`
	FeeTier             string   `json:"feeTier"`
	Tick                string   `json:"tick"`
	Liquidity           string   `json:"liquidity"`
	SqrtPrice           string   `json:"sqrtPrice"`
	TotalValueLockedUSD string   `json:"totalValueLockedUSD"`
	VolumeUSD           string   `json:"volumeUSD"`
	FeesUSD             string   `json:"feesUSD"`
	Token0              tokenRow `json:"token0"`
	Token1              tokenRow `json:"token1"`
}

type swapRow struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Origin      string `json:"origin"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	AmountUSD   string `json:"amountUSD"`
	Transaction struct {
		ID string `json:"id"`
	} `json:"transaction"`
}

// TopPools returns the largest pools by TVL per network, unioned by address.
func (s *Service) TopPools(ctx context.Context) (Results[map[string]model.PoolData], error) {
	return FetchAcrossNetworks(ctx, s.pool, s.networks, func(ctx context.Context, network model.Network) (map[string]model.PoolData, error) {
		b := s.backends[network.ID]
		return Memo(ctx, &s.memo, MemoKey("topPools", network.ID), func(ctx context.Context) (map[string]model.PoolData, error) {
			pools, err := s.fetchPools(ctx, b)
			if err != nil {
				return nil, err
			}
			for addr, p := range pools {
				s.pools.SetData(network.ID, addr, p)
			}
			return pools, nil
		})
	}, MergePools(s.logger), s.logger)
}

func (s *Service) fetchPools(ctx context.Context, b Backend) (map[string]model.PoolData, error) {
	if b.Pools != nil && b.Network.PoolServiceRoute != "" {
		page, err := b.Pools.ElasticPools(ctx, b.Network.PoolServiceRoute, 1, s.topN)
		if err != nil {
			return nil, fmt.Errorf("pool service: %w", err)
		}
		out := make(map[string]model.PoolData, len(page.Pools))
		for _, p := range page.Pools {
			data := poolFromService(b.Network.ID, p)
			out[data.Address] = data
		}
		return out, nil
	}
	return s.fetchPoolsFromSubgraph(ctx, b)
}

func numberFloat(n interface{ Float64() (float64, error) }) float64 {
	v, err := n.Float64()
	if err != nil {
		return 0
	}
	return v
}

func poolFromService(networkID string, p restapi.ElasticPool) model.PoolData {
	feeTier, _ := p.FeeTier.Int64()
	tick, _ := p.Tick.Int64()
	dec0, _ := p.Token0.Decimals.Int64()
	dec1, _ := p.Token1.Decimals.Int64()

	tvl := numberFloat(p.TVLUSD)
	volume24h, volumeChange := metric.TwoWindowChange(numberFloat(p.VolumeUSD), numberFloat(p.VolumeUSDOneDayAgo), numberFloat(p.VolumeUSDTwoDayAgo))
	fees24h := numberFloat(p.FeesUSD) - numberFloat(p.FeesUSDOneDayAgo)

	return model.PoolData{
		Address:   strings.ToLower(p.Address),
		NetworkID: networkID,
		FeeTier:   int(feeTier),
		Token0: model.TokenRef{
			Address: strings.ToLower(p.Token0.Address), Symbol: p.Token0.Symbol, Name: p.Token0.Name, Decimals: uint8(dec0),
		},
		Token1: model.TokenRef{
			Address: strings.ToLower(p.Token1.Address), Symbol: p.Token1.Symbol, Name: p.Token1.Name, Decimals: uint8(dec1),
		},
		Tick:         int(tick),
		Liquidity:    p.Liquidity,
		SqrtPrice:    p.SqrtPrice,
		TVLUSD:       tvl,
		TVLUSDChange: metric.PercentChangeOf(tvl, numberFloat(p.TVLUSDOneDayAgo)),
		VolumeUSD24h: volume24h,
		VolumeChange: volumeChange,
		FeesUSD24h:   fees24h,
		APR:          metric.FeeAPR(fees24h, tvl),
	}
}

type poolHistoryRow struct {
	ID                  string `json:"id"`
	TotalValueLockedUSD string `json:"totalValueLockedUSD"`
	VolumeUSD           string `json:"volumeUSD"`
	FeesUSD             string `json:"feesUSD"`
}

func poolHistoryQuery(ids []string, block24, block48 uint64) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, strconv.Quote(id))
	}
	where := "[" + strings.Join(quoted, ", ") + "]"

	var q strings.Builder
	q.WriteString("query poolsHistory {")
	if block24 > 0 {
		fmt.Fprintf(&q, "\n  oneDay: pools(first: %d, where: { id_in: %s }, block: { number: %d }, subgraphError: allow) %s", len(ids), where, block24, poolHistoryFields)
	}
	if block48 > 0 {
		fmt.Fprintf(&q, "\n  twoDay: pools(first: %d, where: { id_in: %s }, block: { number: %d }, subgraphError: allow) %s", len(ids), where, block48, poolHistoryFields)
	}
	q.WriteString("\n}")
	return q.String()
}

func (s *Service) fetchPoolsFromSubgraph(ctx context.Context, b Backend) (map[string]model.PoolData, error) {
	var current struct {
		Pools []poolRow `json:"pools"`
	}
	query := fmt.Sprintf("query topPools {\n  pools(first: %d, orderBy: totalValueLockedUSD, orderDirection: desc, subgraphError: allow) %s\n}", s.topN, poolFields)
	if err := b.Subgraph.Query(ctx, query, nil, &current); err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	if len(current.Pools) == 0 {
		return map[string]model.PoolData{}, nil
	}

	block24, block48, err := s.historicalBlocks(ctx, b)
	if err != nil {
		return nil, err
	}
	oneDayAgo, twoDaysAgo := map[string]poolHistoryRow{}, map[string]poolHistoryRow{}
	if block24 > 0 || block48 > 0 {
		ids := make([]string, 0, len(current.Pools))
		for _, p := range current.Pools {
			ids = append(ids, strings.ToLower(p.ID))
		}
		var hist struct {
			OneDay []poolHistoryRow `json:"oneDay"`
			TwoDay []poolHistoryRow `json:"twoDay"`
		}
		if err := b.Subgraph.Query(ctx, poolHistoryQuery(ids, block24, block48), nil, &hist); err != nil {
			return nil, fmt.Errorf("query pool history: %w", err)
		}
		for _, r := range hist.OneDay {
			oneDayAgo[strings.ToLower(r.ID)] = r
		}
		for _, r := range hist.TwoDay {
			twoDaysAgo[strings.ToLower(r.ID)] = r
		}
	}

	out := make(map[string]model.PoolData, len(current.Pools))
	for _, p := range current.Pools {
		addr := strings.ToLower(p.ID)
		self := poolHistoryRow{ID: p.ID, TotalValueLockedUSD: p.TotalValueLockedUSD, VolumeUSD: p.VolumeUSD, FeesUSD: p.FeesUSD}
		one, ok := oneDayAgo[addr]
		if !ok {
			one = self
		}
		two, ok := twoDaysAgo[addr]
		if !ok {
			two = one
		}
		feeTier, _ := subgraph.ParseInt(p.FeeTier)
		tick, _ := subgraph.ParseInt(p.Tick)

		tvl := subgraph.ParseFloat(p.TotalValueLockedUSD)
		volume24h, volumeChange := metric.TwoWindowChange(subgraph.ParseFloat(p.VolumeUSD), subgraph.ParseFloat(one.VolumeUSD), subgraph.ParseFloat(two.VolumeUSD))
		fees24h, _ := metric.TwoWindowChange(subgraph.ParseFloat(p.FeesUSD), subgraph.ParseFloat(one.FeesUSD), subgraph.ParseFloat(two.FeesUSD))

		out[addr] = model.PoolData{
			Address:      addr,
			NetworkID:    b.Network.ID,
			FeeTier:      feeTier,
			Token0:       p.Token0.ref(),
			Token1:       p.Token1.ref(),
			Tick:         tick,
			Liquidity:    p.Liquidity,
			SqrtPrice:    p.SqrtPrice,
			TVLUSD:       tvl,
			TVLUSDChange: metric.PercentChangeOf(tvl, subgraph.ParseFloat(one.TotalValueLockedUSD)),
			VolumeUSD24h: volume24h,
			VolumeChange: volumeChange,
			FeesUSD24h:   fees24h,
			APR:          metric.FeeAPR(fees24h, tvl),
		}
	}
	s.logger.Debug("fetch pools", zap.String("network", b.Network.ID), zap.Int("pools", len(out)))
	return out, nil
}

// PoolTicks returns the tick distribution around a pool's price and caches it
// with the pool's explorer data.
func (s *Service) PoolTicks(ctx context.Context, networkID, poolAddress string, numSurrounding int) (*model.PoolTickData, error) {
	b, err := s.backend(networkID)
	if err != nil {
		return nil, err
	}
	if b.Ticks == nil {
		return nil, fmt.Errorf("tick engine not configured for %s", networkID)
	}
	poolAddress = strings.ToLower(poolAddress)
	return Memo(ctx, &s.memo, MemoKey("poolTicks", networkID, poolAddress, numSurrounding), func(ctx context.Context) (*model.PoolTickData, error) {
		data, err := b.Ticks.FetchSurroundingTicks(ctx, poolAddress, numSurrounding)
		if err != nil {
			return nil, err
		}
		s.pools.Update(networkID, poolAddress, func(entry *model.CacheEntry[model.PoolData]) {
			entry.TickData = data
		})
		return data, nil
	})
}

// PoolChart returns a pool's daily volume, TVL and fees.
func (s *Service) PoolChart(ctx context.Context, networkID, poolAddress string) ([]model.DayDatum, error) {
	b, err := s.backend(networkID)
	if err != nil {
		return nil, err
	}
	poolAddress = strings.ToLower(poolAddress)
	return Memo(ctx, &s.memo, MemoKey("poolChart", networkID, poolAddress), func(ctx context.Context) ([]model.DayDatum, error) {
		chart, err := fetchDayData(ctx, b.Subgraph, poolDayDatasQuery, "poolDayDatas", map[string]interface{}{"pool": poolAddress})
		if err != nil {
			return nil, err
		}
		s.pools.Update(networkID, poolAddress, func(entry *model.CacheEntry[model.PoolData]) {
			entry.ChartData = chart
		})
		return chart, nil
	})
}

// PoolTransactions returns a pool's most recent swaps.
func (s *Service) PoolTransactions(ctx context.Context, networkID, poolAddress string) ([]model.Transaction, error) {
	b, err := s.backend(networkID)
	if err != nil {
		return nil, err
	}
	poolAddress = strings.ToLower(poolAddress)
	return Memo(ctx, &s.memo, MemoKey("poolTransactions", networkID, poolAddress), func(ctx context.Context) ([]model.Transaction, error) {
		var resp struct {
			Swaps []swapRow `json:"swaps"`
		}
		if err := b.Subgraph.Query(ctx, poolSwapsQuery, map[string]interface{}{"pool": poolAddress}, &resp); err != nil {
			return nil, fmt.Errorf("query swaps: %w", err)
		}
		txs := make([]model.Transaction, 0, len(resp.Swaps))
		for _, sw := range resp.Swaps {
			ts, _ := strconv.ParseInt(sw.Timestamp, 10, 64)
			txs = append(txs, model.Transaction{
				Hash:      sw.Transaction.ID,
				Type:      "swap",
				Timestamp: ts,
				Sender:    sw.Origin,
				AmountUSD: subgraph.ParseFloat(sw.AmountUSD),
				Amount0:   sw.Amount0,
				Amount1:   sw.Amount1,
			})
		}
		s.pools.Update(networkID, poolAddress, func(entry *model.CacheEntry[model.PoolData]) {
			entry.Transactions = txs
		})
		return txs, nil
	})
}
