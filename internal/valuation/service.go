package valuation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/blocks"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/subgraph"
)

// PriceChunkSize is the number of aliased bundle lookups per query.
const PriceChunkSize = 100

const positionSnapshotsQuery = `query positionSnapshots($owner: String!, $skip: Int!) {
  positionSnapshots(
    first: 1000
    skip: $skip
    orderBy: blockNumber
    orderDirection: desc
    where: { owner: $owner }
  ) {
    id
    owner
    blockNumber
    timestamp
    liquidity
    sqrtPrice
    tick
    token0DerivedETH
    token1DerivedETH
    collectedFeesToken0
    collectedFeesToken1
    position {
      id
      tickLower { tickIdx }
      tickUpper { tickIdx }
    }
    pool {
      id
      token0 { decimals }
      token1 { decimals }
    }
  }
}`

// BlockResolver maps timestamps to blocks.
type BlockResolver interface {
	Resolve(ctx context.Context, timestamps []int64) ([]model.BlockRef, error)
}

type tickRef struct {
	TickIdx string `json:"tickIdx"`
}

type decimalsRef struct {
	Decimals string `json:"decimals"`
}

type snapshotRow struct {
	ID                  string `json:"id"`
	Owner               string `json:"owner"`
	BlockNumber         string `json:"blockNumber"`
	Timestamp           string `json:"timestamp"`
	Liquidity           string `json:"liquidity"`
	SqrtPrice           string `json:"sqrtPrice"`
	Tick                string `json:"tick"`
	Token0DerivedETH    string `json:"token0DerivedETH"`
	Token1DerivedETH    string `json:"token1DerivedETH"`
	CollectedFeesToken0 string `json:"collectedFeesToken0"`
	CollectedFeesToken1 string `json:"collectedFeesToken1"`
	Position            struct {
		ID        string  `json:"id"`
		TickLower tickRef `json:"tickLower"`
		TickUpper tickRef `json:"tickUpper"`
	} `json:"position"`
	Pool struct {
		ID     string      `json:"id"`
		Token0 decimalsRef `json:"token0"`
		Token1 decimalsRef `json:"token1"`
	} `json:"pool"`
}

// Service builds account value series for one network.
type Service struct {
	client   subgraph.Querier
	resolver BlockResolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a valuation service.
func NewService(client subgraph.Querier, resolver BlockResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, resolver: resolver, logger: logger, now: time.Now}
}

// AccountSeries returns the daily USD value of every position account has
// held since windowStart.
func (s *Service) AccountSeries(ctx context.Context, account string, windowStart int64) ([]model.SeriesPoint, error) {
	snapshots, err := s.Snapshots(ctx, account)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	now := s.now().Unix()
	earliest := snapshots[len(snapshots)-1].Timestamp
	for _, snap := range snapshots {
		if snap.Timestamp < earliest {
			earliest = snap.Timestamp
		}
	}
	prices, err := s.EthPrices(ctx, Buckets(windowStart, earliest, now))
	if err != nil {
		return nil, err
	}

	series := BuildValueSeries(snapshots, windowStart, now, MapPrices(prices))
	s.logger.Debug("account series",
		zap.String("account", account),
		zap.Int("snapshots", len(snapshots)),
		zap.Int("days", len(series)),
		zap.Int("priced_days", len(prices)),
	)
	return series, nil
}

// Snapshots returns every position snapshot owned by account, newest block
// first.
func (s *Service) Snapshots(ctx context.Context, account string) ([]model.PositionSnapshot, error) {
	owner := strings.ToLower(account)
	rows, err := subgraph.Paginate(ctx, subgraph.PageSize, func(ctx context.Context, skip int) ([]snapshotRow, error) {
		var resp struct {
			PositionSnapshots []snapshotRow `json:"positionSnapshots"`
		}
		vars := map[string]interface{}{"owner": owner, "skip": skip}
		if err := s.client.Query(ctx, positionSnapshotsQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("query position snapshots: %w", err)
		}
		return resp.PositionSnapshots, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.PositionSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := parseSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func parseSnapshot(row snapshotRow) (model.PositionSnapshot, error) {
	blockNumber, err := strconv.ParseUint(row.BlockNumber, 10, 64)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("snapshot %s block: %w", row.ID, err)
	}
	ts, err := strconv.ParseInt(row.Timestamp, 10, 64)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("snapshot %s timestamp: %w", row.ID, err)
	}
	liquidity, err := subgraph.ParseBigInt(row.Liquidity)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("snapshot %s liquidity: %w", row.ID, err)
	}
	sqrtPrice, err := subgraph.ParseBigInt(row.SqrtPrice)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("snapshot %s sqrt price: %w", row.ID, err)
	}
	ints := make([]int, 5)
	for i, v := range []string{row.Tick, row.Position.TickLower.TickIdx, row.Position.TickUpper.TickIdx, row.Pool.Token0.Decimals, row.Pool.Token1.Decimals} {
		if ints[i], err = subgraph.ParseInt(v); err != nil {
			return model.PositionSnapshot{}, fmt.Errorf("snapshot %s: %w", row.ID, err)
		}
	}

	return model.PositionSnapshot{
		ID:                  row.ID,
		PositionID:          row.Position.ID,
		Owner:               row.Owner,
		PoolAddress:         row.Pool.ID,
		BlockNumber:         blockNumber,
		Timestamp:           ts,
		TickLower:           ints[1],
		TickUpper:           ints[2],
		Liquidity:           liquidity,
		SqrtPrice:           sqrtPrice,
		Tick:                ints[0],
		Token0Decimals:      uint8(ints[3]),
		Token1Decimals:      uint8(ints[4]),
		Token0DerivedETH:    subgraph.ParseDecimal(row.Token0DerivedETH),
		Token1DerivedETH:    subgraph.ParseDecimal(row.Token1DerivedETH),
		CollectedFeesToken0: subgraph.ParseDecimal(row.CollectedFeesToken0),
		CollectedFeesToken1: subgraph.ParseDecimal(row.CollectedFeesToken1),
	}, nil
}

// EthPrices resolves one ETH-USD price per day start. Days whose block or
// price cannot be found are left out of the result. Only cancellation fails
// the call.
func (s *Service) EthPrices(ctx context.Context, days []int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(days))
	if len(days) == 0 {
		return out, nil
	}

	refs, err := s.resolver.Resolve(ctx, days)
	if err != nil {
		if abort.Is(err) {
			return nil, err
		}
		s.logger.Warn("resolve price blocks", zap.Error(err))
		return out, nil
	}

	chunks, err := blocks.SplitChunks(refs, PriceChunkSize)
	if err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if err := abort.Check(ctx); err != nil {
			return nil, err
		}
		var resp map[string]*struct {
			EthPriceUSD string `json:"ethPriceUSD"`
		}
		if err := s.client.Query(ctx, bundlesQuery(chunk), nil, &resp); err != nil {
			if wrapped := abort.Wrap(ctx, err); abort.Is(wrapped) {
				return nil, wrapped
			}
			s.logger.Warn("query eth prices", zap.Int("blocks", len(chunk)), zap.Error(err))
			continue
		}
		for _, ref := range chunk {
			row := resp[bundleAlias(ref.Timestamp)]
			if row == nil || row.EthPriceUSD == "" {
				continue
			}
			price, err := decimal.NewFromString(row.EthPriceUSD)
			if err != nil {
				continue
			}
			out[ref.Timestamp] = price
		}
	}
	return out, nil
}

func bundleAlias(ts int64) string {
	return "t" + strconv.FormatInt(ts, 10)
}

func bundlesQuery(refs []model.BlockRef) string {
	var b strings.Builder
	b.WriteString("query ethPrices {")
	for _, ref := range refs {
		fmt.Fprintf(&b, "\n  %s: bundle(id: \"1\", block: { number: %d }) { ethPriceUSD }", bundleAlias(ref.Timestamp), ref.Number)
	}
	b.WriteString("\n}")
	return b.String()
}
