package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/blocks"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/restapi"
	"elasticAnalytics/internal/subgraph"
)

const (
	// DefaultTopN is how many pools or tokens the explorer lists per network.
	DefaultTopN = 100

	oneDay = 24 * 60 * 60
)

// ErrUnknownNetwork is returned for network ids that are not configured.
var ErrUnknownNetwork = errors.New("unknown network")

// BlockResolver maps timestamps to blocks.
type BlockResolver interface {
	Resolve(ctx context.Context, timestamps []int64) ([]model.BlockRef, error)
}

// PoolService lists pools from the pool REST service.
type PoolService interface {
	ElasticPools(ctx context.Context, route string, page, perPage int) (restapi.ElasticPoolsPage, error)
}

// TickFetcher reconstructs a pool's tick distribution.
type TickFetcher interface {
	FetchSurroundingTicks(ctx context.Context, poolAddress string, numSurrounding int) (*model.PoolTickData, error)
}

// SeriesBuilder builds account value series.
type SeriesBuilder interface {
	AccountSeries(ctx context.Context, account string, windowStart int64) ([]model.SeriesPoint, error)
}

// Backend is everything the service talks to for one network. Pools,
// Ticks and Valuation are optional.
type Backend struct {
	Network   model.Network
	Subgraph  subgraph.Querier
	Blocks    BlockResolver
	Pools     PoolService
	Ticks     TickFetcher
	Valuation SeriesBuilder
}

// Service serves merged multi-network analytics. Every per-network fetch
// goes through the memoizer so concurrent identical requests share one call.
type Service struct {
	backends map[string]Backend
	networks []model.Network
	pool     pond.Pool
	memo     Memoizer
	pools    *DataCache[model.PoolData]
	tokens   *DataCache[model.TokenData]
	logger   *zap.Logger
	now      func() time.Time
	topN     int
}

// NewService builds the service. pool runs the per-network fan-out and must
// not be the pool used by the block resolvers.
func NewService(backends []Backend, pool pond.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = pond.NewPool(len(backends) + 1)
	}
	s := &Service{
		backends: make(map[string]Backend, len(backends)),
		pool:     pool,
		pools:    NewDataCache[model.PoolData](),
		tokens:   NewDataCache[model.TokenData](),
		logger:   logger,
		now:      time.Now,
		topN:     DefaultTopN,
	}
	for _, b := range backends {
		s.backends[b.Network.ID] = b
		s.networks = append(s.networks, b.Network)
	}
	return s
}

// Networks returns the configured networks in order.
func (s *Service) Networks() []model.Network {
	return s.networks
}

// PoolCache exposes cached pool data.
func (s *Service) PoolCache() *DataCache[model.PoolData] {
	return s.pools
}

// TokenCache exposes cached token data.
func (s *Service) TokenCache() *DataCache[model.TokenData] {
	return s.tokens
}

func (s *Service) backend(networkID string) (Backend, error) {
	b, ok := s.backends[networkID]
	if !ok || !b.Network.Enabled {
		return Backend{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, networkID)
	}
	return b, nil
}

// historicalBlocks resolves the blocks one and two days before now. A block
// that cannot be found is returned as 0; only cancellation is an error.
func (s *Service) historicalBlocks(ctx context.Context, b Backend) (uint64, uint64, error) {
	if b.Blocks == nil {
		return 0, 0, nil
	}
	now := s.now().Unix()
	t24, t48 := now-oneDay, now-2*oneDay
	refs, err := b.Blocks.Resolve(ctx, []int64{t24, t48})
	if err != nil {
		if abort.Is(err) {
			return 0, 0, err
		}
		s.logger.Warn("resolve historical blocks", zap.String("network", b.Network.ID), zap.Error(err))
		return 0, 0, nil
	}
	byTs := blocks.ByTimestamp(refs)
	return byTs[t24], byTs[t48], nil
}

// ResolveBlocks maps timestamps to blocks on one network.
func (s *Service) ResolveBlocks(ctx context.Context, networkID string, timestamps []int64) ([]model.BlockRef, error) {
	b, err := s.backend(networkID)
	if err != nil {
		return nil, err
	}
	if b.Blocks == nil {
		return nil, fmt.Errorf("no block source for %s", networkID)
	}
	return b.Blocks.Resolve(ctx, timestamps)
}

// AccountSeries returns an account's daily position value on one network.
func (s *Service) AccountSeries(ctx context.Context, networkID, account string, windowStart int64) ([]model.SeriesPoint, error) {
	b, err := s.backend(networkID)
	if err != nil {
		return nil, err
	}
	if b.Valuation == nil {
		return nil, fmt.Errorf("valuation not configured for %s", networkID)
	}
	return Memo(ctx, &s.memo, MemoKey("accountSeries", networkID, account, windowStart), func(ctx context.Context) ([]model.SeriesPoint, error) {
		return b.Valuation.AccountSeries(ctx, account, windowStart)
	})
}
