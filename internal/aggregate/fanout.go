// Package aggregate fans fetches out across networks, de-duplicates
// in-flight requests and merges per-network results into one view.
package aggregate

import (
	"context"
	"errors"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/model"
)

// Results holds one value per network plus the merged view. Networks whose
// fetch failed carry the zero value and are listed in Failed.
type Results[T any] struct {
	PerNetwork map[string]T     `json:"per_network"`
	AllChains  T                `json:"all_chains"`
	Failed     map[string]error `json:"-"`
}

// FetchFunc fetches one network's value.
type FetchFunc[T any] func(ctx context.Context, network model.Network) (T, error)

// MergeFunc combines per-network values, in network order.
type MergeFunc[T any] func(values []T) T

// FetchAcrossNetworks runs fetch for every enabled network on pool and waits
// for all of them. One network failing never fails the others. If ctx ends
// the call returns abort.ErrAborted and no results.
func FetchAcrossNetworks[T any](ctx context.Context, pool pond.Pool, networks []model.Network, fetch FetchFunc[T], merge MergeFunc[T], logger *zap.Logger) (Results[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := abort.Check(ctx); err != nil {
		return Results[T]{}, err
	}

	active := model.ActiveNetworks(networks)
	values := make([]T, len(active))
	errs := make([]error, len(active))

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, network := range active {
		i, network := i, network
		group.Submit(func() {
			if err := abort.Check(groupCtx); err != nil {
				errs[i] = err
				return
			}
			values[i], errs[i] = fetch(groupCtx, network)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("network fan-out group error", zap.Error(err))
	}
	if err := abort.Check(ctx); err != nil {
		return Results[T]{}, err
	}

	out := Results[T]{
		PerNetwork: make(map[string]T, len(active)),
		Failed:     make(map[string]error),
	}
	for i, network := range active {
		if errs[i] != nil {
			logger.Warn("network fetch failed", zap.String("network", network.ID), zap.Error(errs[i]))
			var zero T
			values[i] = zero
			out.Failed[network.ID] = errs[i]
		}
		out.PerNetwork[network.ID] = values[i]
	}
	if merge != nil {
		out.AllChains = merge(values)
	}
	return out, nil
}
