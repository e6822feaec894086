package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"elasticAnalytics/internal/aggregate"
	"elasticAnalytics/internal/blocks"
	"elasticAnalytics/internal/chain"
	"elasticAnalytics/internal/config"
	"elasticAnalytics/internal/restapi"
	"elasticAnalytics/internal/subgraph"
	"elasticAnalytics/internal/ticks"
	"elasticAnalytics/internal/valuation"
)

// app holds the per-network clients every command builds from config.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	backends []aggregate.Backend
	closers  []func()
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if len(cfg.Networks) == 0 {
		return nil, fmt.Errorf("no networks configured")
	}
	return &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}, nil
}

// connect builds subgraph, block and REST clients for every enabled network.
// Block-service requests run on their own worker pool so they never wait on
// slots held by the network fan-out.
func (a *app) connect(ctx context.Context) error {
	httpClient := &http.Client{Timeout: a.cfg.HTTPTimeout}
	metrics := subgraph.NewMetrics(a.registry)
	rest := restapi.NewClient(a.cfg.BlockServiceURL, a.cfg.PoolServiceURL, httpClient)
	blockPool := pond.NewPool(a.cfg.MaxWorkers)
	a.closers = append(a.closers, blockPool.StopAndWait)
	tickCache := ticks.NewCache()

	for _, network := range a.cfg.Networks {
		if !network.Enabled {
			continue
		}
		logger := a.logger.With(zap.String("network", network.ID))
		client := subgraph.NewClient(network.ID, network.Subgraph, httpClient, metrics, logger)

		var source blocks.Source
		if network.BlockSubgraph != "" {
			source.Subgraph = subgraph.NewClient(network.ID+"-blocks", network.BlockSubgraph, httpClient, metrics, logger)
		}
		if a.cfg.BlockServiceURL != "" && network.BlockServiceRoute != "" {
			source.Service = rest
		}
		if network.RPC != "" {
			rpc, err := chain.NewClient(ctx, network.RPC)
			if err != nil {
				return fmt.Errorf("connect rpc for %s: %w", network.ID, err)
			}
			a.closers = append(a.closers, rpc.Close)
			source.RPC = rpc
		}
		resolver := blocks.NewResolver(network, source, blockPool, logger)

		backend := aggregate.Backend{
			Network:   network,
			Subgraph:  client,
			Blocks:    resolver,
			Ticks:     ticks.NewEngine(client, tickCache, logger),
			Valuation: valuation.NewService(client, resolver, logger),
		}
		if a.cfg.PoolServiceURL != "" {
			backend.Pools = rest
		}
		a.backends = append(a.backends, backend)

		logger.Debug("network ready",
			zap.Bool("block_subgraph", source.Subgraph != nil),
			zap.Bool("block_service", source.Service != nil),
			zap.Bool("rpc", source.RPC != nil),
		)
	}
	return nil
}

func (a *app) backend(networkID string) (aggregate.Backend, error) {
	for _, b := range a.backends {
		if b.Network.ID == networkID {
			return b, nil
		}
	}
	_, err := a.cfg.FindNetwork(networkID)
	if err != nil {
		return aggregate.Backend{}, err
	}
	return aggregate.Backend{}, fmt.Errorf("network %q is not connected", networkID)
}

func (a *app) service() *aggregate.Service {
	pool := pond.NewPool(a.cfg.MaxWorkers)
	a.closers = append(a.closers, pool.StopAndWait)
	return aggregate.NewService(a.backends, pool, a.logger)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
