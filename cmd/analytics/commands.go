package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"elasticAnalytics/internal/config"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/storage"
	"elasticAnalytics/internal/storage/postgres"
	"elasticAnalytics/internal/valuation"
)

// overviewRecord is one JSONL line of the overview command.
type overviewRecord struct {
	Kind    string      `json:"kind"`
	Network string      `json:"network"`
	Data    interface{} `json:"data"`
}

func setup(cmd *cobra.Command) (*app, context.Context, context.CancelFunc, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := a.connect(ctx); err != nil {
		stop()
		a.close()
		return nil, nil, nil, err
	}
	return a, ctx, stop, nil
}

func runTicks(cmd *cobra.Command, _ []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer a.close()

	pool, err := config.ParseAddress(a.cfg.Pool)
	if err != nil {
		return err
	}
	b, err := a.backend(a.cfg.Network)
	if err != nil {
		return err
	}
	data, err := b.Ticks.FetchSurroundingTicks(ctx, pool, a.cfg.Surrounding)
	if err != nil {
		return err
	}
	a.logger.Info("ticks fetched",
		zap.String("pool", pool),
		zap.Int("active_tick", data.ActiveTickIdx),
		zap.Int("ticks", len(data.TicksProcessed)),
	)
	return storage.NewJsonlStorage(a.cfg.Out).Put(data)
}

func runBlocks(cmd *cobra.Command, _ []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer a.close()

	if len(a.cfg.Timestamps) == 0 {
		return fmt.Errorf("timestamps required")
	}
	b, err := a.backend(a.cfg.Network)
	if err != nil {
		return err
	}
	refs, err := b.Blocks.Resolve(ctx, a.cfg.Timestamps)
	if err != nil {
		return err
	}
	if len(refs) < len(a.cfg.Timestamps) {
		a.logger.Warn("some timestamps had no matching block",
			zap.Int("requested", len(a.cfg.Timestamps)),
			zap.Int("resolved", len(refs)),
		)
	}
	records := make([]interface{}, 0, len(refs))
	for _, ref := range refs {
		records = append(records, ref)
	}
	return storage.NewJsonlStorage(a.cfg.Out).Put(records...)
}

func runPositions(cmd *cobra.Command, _ []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer a.close()

	account, err := config.ParseAddress(a.cfg.Account)
	if err != nil {
		return err
	}
	start, err := valuation.WindowStart(a.cfg.Window, time.Now())
	if err != nil {
		return err
	}
	svc := a.service()
	points, err := svc.AccountSeries(ctx, a.cfg.Network, account, start)
	if err != nil {
		return err
	}
	records := make([]interface{}, 0, len(points))
	for _, p := range points {
		records = append(records, p)
	}
	return storage.NewJsonlStorage(a.cfg.Out).Put(records...)
}

func runOverview(cmd *cobra.Command, _ []string) error {
	a, ctx, stop, err := setup(cmd)
	if err != nil {
		return err
	}
	defer stop()
	defer a.close()

	var store *postgres.Store
	if a.cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, a.cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	var start int64
	if store != nil {
		ids := make([]string, 0, len(a.backends))
		for _, b := range a.backends {
			ids = append(ids, b.Network.ID)
		}
		if start, err = dayDataStart(ctx, store, ids); err != nil {
			return err
		}
	}

	svc := a.service()
	global, err := svc.GlobalOverview(ctx)
	if err != nil {
		return err
	}
	days, err := svc.DayData(ctx, start)
	if err != nil {
		return err
	}
	pools, err := svc.TopPools(ctx)
	if err != nil {
		return err
	}
	tokens, err := svc.TopTokens(ctx)
	if err != nil {
		return err
	}
	logFailures(a.logger, "global", global.Failed)
	logFailures(a.logger, "day_data", days.Failed)
	logFailures(a.logger, "pools", pools.Failed)
	logFailures(a.logger, "tokens", tokens.Failed)

	records := []interface{}{
		overviewRecord{Kind: "global", Network: model.AllChainsID, Data: global.AllChains},
		overviewRecord{Kind: "day_data", Network: model.AllChainsID, Data: days.AllChains},
		overviewRecord{Kind: "pools", Network: model.AllChainsID, Data: pools.AllChains},
		overviewRecord{Kind: "tokens", Network: model.AllChainsID, Data: tokens.AllChains},
	}
	for _, id := range sortedKeys(global.PerNetwork) {
		records = append(records, overviewRecord{Kind: "global", Network: id, Data: global.PerNetwork[id]})
	}
	if err := storage.NewJsonlStorage(a.cfg.Out).Put(records...); err != nil {
		return err
	}

	if store == nil {
		return nil
	}
	observedAt := time.Now().UTC()
	for id, series := range days.PerNetwork {
		if _, failed := days.Failed[id]; failed || len(series) == 0 {
			continue
		}
		if err := store.UpsertDayData(ctx, id, series); err != nil {
			return fmt.Errorf("store day data for %s: %w", id, err)
		}
		if err := store.SaveState(ctx, stateName(id), series[len(series)-1].Date); err != nil {
			return fmt.Errorf("save state for %s: %w", id, err)
		}
	}
	var poolRows []model.PoolData
	for _, id := range sortedKeys(pools.PerNetwork) {
		for _, p := range pools.PerNetwork[id] {
			poolRows = append(poolRows, p)
		}
	}
	if err := store.UpsertPoolMetrics(ctx, poolRows, observedAt); err != nil {
		return fmt.Errorf("store pool metrics: %w", err)
	}
	a.logger.Info("overview stored",
		zap.Int("pools", len(poolRows)),
		zap.Int("days", len(days.AllChains)),
	)
	return nil
}

// stateLoader reads per-network day-data resume points.
type stateLoader interface {
	LoadState(ctx context.Context, name string) (int64, bool, error)
}

// dayDataStart returns the start for the day-data query, which only returns
// days strictly after it. It backs off one day from the oldest stored day
// across networks so the newest stored day, usually still accumulating, is
// fetched again. Any network without state forces a full fetch.
func dayDataStart(ctx context.Context, states stateLoader, networkIDs []string) (int64, error) {
	var oldest int64
	for i, id := range networkIDs {
		ts, ok, err := states.LoadState(ctx, stateName(id))
		if err != nil {
			return 0, fmt.Errorf("load state for %s: %w", id, err)
		}
		if !ok {
			return 0, nil
		}
		if i == 0 || ts < oldest {
			oldest = ts
		}
	}
	if oldest <= valuation.DaySeconds {
		return 0, nil
	}
	return oldest - valuation.DaySeconds, nil
}

func stateName(networkID string) string {
	return "daydata:" + networkID
}

func logFailures(logger *zap.Logger, what string, failed map[string]error) {
	for id, err := range failed {
		logger.Warn("network fetch failed", zap.String("data", what), zap.String("network", id), zap.Error(err))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
