package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elasticAnalytics/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS day_data (
	network_id TEXT NOT NULL,
	date BIGINT NOT NULL,
	volume_usd DOUBLE PRECISION NOT NULL,
	tvl_usd DOUBLE PRECISION NOT NULL,
	fees_usd DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network_id, date)
);
CREATE TABLE IF NOT EXISTS pool_metrics (
	network_id TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	fee_tier INTEGER NOT NULL,
	token0 TEXT NOT NULL,
	token1 TEXT NOT NULL,
	tick INTEGER NOT NULL,
	tvl_usd DOUBLE PRECISION NOT NULL,
	tvl_usd_change DOUBLE PRECISION NOT NULL,
	volume_usd_24h DOUBLE PRECISION NOT NULL,
	volume_change DOUBLE PRECISION NOT NULL,
	fees_usd_24h DOUBLE PRECISION NOT NULL,
	apr DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (network_id, pool_address, observed_at)
);
CREATE TABLE IF NOT EXISTS sync_state (
	name TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store persists explorer snapshots to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool for dsn.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// UpsertDayData inserts or updates one network's daily series.
func (s *Store) UpsertDayData(ctx context.Context, networkID string, days []model.DayDatum) error {
	if len(days) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(`
			INSERT INTO day_data (network_id, date, volume_usd, tvl_usd, fees_usd, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (network_id, date)
			DO UPDATE SET
				volume_usd = EXCLUDED.volume_usd,
				tvl_usd = EXCLUDED.tvl_usd,
				fees_usd = EXCLUDED.fees_usd,
				updated_at = now()
		`, networkID, d.Date, d.VolumeUSD, d.TVLUSD, d.FeesUSD)
	}
	return s.sendBatch(ctx, batch, len(days))
}

// UpsertPoolMetrics records pool metrics observed at observedAt.
func (s *Store) UpsertPoolMetrics(ctx context.Context, pools []model.PoolData, observedAt time.Time) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pool_metrics (
				network_id, pool_address, observed_at, fee_tier, token0, token1, tick,
				tvl_usd, tvl_usd_change, volume_usd_24h, volume_change, fees_usd_24h, apr, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
			ON CONFLICT (network_id, pool_address, observed_at)
			DO UPDATE SET
				tick = EXCLUDED.tick,
				tvl_usd = EXCLUDED.tvl_usd,
				tvl_usd_change = EXCLUDED.tvl_usd_change,
				volume_usd_24h = EXCLUDED.volume_usd_24h,
				volume_change = EXCLUDED.volume_change,
				fees_usd_24h = EXCLUDED.fees_usd_24h,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			p.NetworkID,
			p.Address,
			observedAt.UTC(),
			p.FeeTier,
			p.Token0.Address,
			p.Token1.Address,
			p.Tick,
			p.TVLUSD,
			p.TVLUSDChange,
			p.VolumeUSD24h,
			p.VolumeChange,
			p.FeesUSD24h,
			p.APR,
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts int64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
