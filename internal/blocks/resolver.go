// Package blocks maps UNIX timestamps to block numbers.
package blocks

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/chain"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/subgraph"
)

const (
	// SubgraphChunkSize is the number of aliased sub-queries per block-subgraph request.
	SubgraphChunkSize = 500
	// ServiceChunkSize is the number of timestamps per block-service GET.
	ServiceChunkSize = 50
	// MatchWindow is how far past a timestamp a block may be and still match.
	MatchWindow = 600

	defaultWorkers = 8
)

// Service resolves timestamps through the block-index REST service.
type Service interface {
	Blocks(ctx context.Context, route string, timestamps []int64) ([]model.BlockRef, error)
}

// Source selects where a Resolver looks blocks up.
type Source struct {
	Subgraph subgraph.Querier
	Service  Service
	RPC      chain.TimestampSource
}

// Resolver resolves timestamps for one network.
type Resolver struct {
	network model.Network
	source  Source
	pool    pond.Pool
	logger  *zap.Logger
}

// NewResolver builds a resolver. pool runs the parallel block-service requests
// and must not be shared with callers that wait on Resolve from inside it.
func NewResolver(network model.Network, source Source, pool pond.Pool, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = pond.NewPool(defaultWorkers)
	}
	return &Resolver{
		network: network,
		source:  source,
		pool:    pool,
		logger:  logger,
	}
}

// Resolve returns one BlockRef per timestamp that matched a block, sorted by
// timestamp. Unmatched timestamps are dropped. A cancelled ctx yields
// abort.ErrAborted and never partial results.
func (r *Resolver) Resolve(ctx context.Context, timestamps []int64) ([]model.BlockRef, error) {
	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	timestamps = uniqueSorted(timestamps)
	if len(timestamps) == 0 {
		return nil, nil
	}

	var (
		refs []model.BlockRef
		err  error
	)
	switch {
	case r.network.UseBlockService && r.source.Service != nil:
		refs, err = r.fromService(ctx, timestamps)
	case r.source.Subgraph != nil:
		refs, err = r.fromSubgraph(ctx, timestamps)
	case r.source.RPC != nil:
		refs, err = r.fromRPC(ctx, timestamps)
	default:
		return nil, fmt.Errorf("network %s: no block source configured", r.network.ID)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Timestamp < refs[j].Timestamp })
	if dropped := len(timestamps) - len(refs); dropped > 0 {
		r.logger.Debug("timestamps without block", zap.String("network", r.network.ID), zap.Int("dropped", dropped))
	}
	return refs, nil
}

func (r *Resolver) fromSubgraph(ctx context.Context, timestamps []int64) ([]model.BlockRef, error) {
	chunks, err := SplitChunks(timestamps, SubgraphChunkSize)
	if err != nil {
		return nil, err
	}

	out := make([]model.BlockRef, 0, len(timestamps))
	for _, chunk := range chunks {
		if err := abort.Check(ctx); err != nil {
			return nil, err
		}

		var resp map[string][]struct {
			Number string `json:"number"`
		}
		if err := r.source.Subgraph.Query(ctx, blocksQuery(chunk), nil, &resp); err != nil {
			return nil, abort.Wrap(ctx, fmt.Errorf("query blocks: %w", err))
		}
		if err := abort.Check(ctx); err != nil {
			return nil, err
		}

		for alias, rows := range resp {
			if len(rows) == 0 {
				continue
			}
			ts, err := strconv.ParseInt(strings.TrimPrefix(alias, "t"), 10, 64)
			if err != nil {
				r.logger.Warn("unexpected block alias", zap.String("alias", alias))
				continue
			}
			number, err := strconv.ParseUint(rows[0].Number, 10, 64)
			if err != nil {
				r.logger.Warn("invalid block number", zap.String("alias", alias), zap.String("number", rows[0].Number))
				continue
			}
			out = append(out, model.BlockRef{Timestamp: ts, Number: number})
		}
	}
	return out, nil
}

func blocksQuery(timestamps []int64) string {
	var b strings.Builder
	b.WriteString("query blocks {")
	for _, ts := range timestamps {
		fmt.Fprintf(&b, "\n  t%d: blocks(first: 1, orderBy: timestamp, orderDirection: asc, where: { timestamp_gt: %d, timestamp_lt: %d }) { number }",
			ts, ts, ts+MatchWindow)
	}
	b.WriteString("\n}")
	return b.String()
}

func (r *Resolver) fromService(ctx context.Context, timestamps []int64) ([]model.BlockRef, error) {
	chunks, err := SplitChunks(timestamps, ServiceChunkSize)
	if err != nil {
		return nil, err
	}

	results := make([][]model.BlockRef, len(chunks))
	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.SubmitErr(func() error {
			if err := abort.Check(groupCtx); err != nil {
				return err
			}
			refs, err := r.source.Service.Blocks(groupCtx, r.network.BlockServiceRoute, chunk)
			if err != nil {
				return err
			}
			results[i] = refs
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if aerr := abort.Check(ctx); aerr != nil {
			return nil, aerr
		}
		return nil, fmt.Errorf("block service: %w", err)
	}
	if err := abort.Check(ctx); err != nil {
		return nil, err
	}

	out := make([]model.BlockRef, 0, len(timestamps))
	for _, refs := range results {
		out = append(out, refs...)
	}
	return out, nil
}

func (r *Resolver) fromRPC(ctx context.Context, timestamps []int64) ([]model.BlockRef, error) {
	latest, err := r.source.RPC.LatestBlockNumber(ctx)
	if err != nil {
		return nil, abort.Wrap(ctx, fmt.Errorf("latest block: %w", err))
	}

	out := make([]model.BlockRef, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts < 0 {
			continue
		}
		number, blockTs, ok, err := chain.SearchFirstBlockAfter(ctx, r.source.RPC, uint64(ts), latest)
		if err != nil {
			return nil, err
		}
		if !ok || blockTs >= uint64(ts+MatchWindow) {
			continue
		}
		out = append(out, model.BlockRef{Timestamp: ts, Number: number})
	}
	return out, nil
}
