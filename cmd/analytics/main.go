package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "analytics",
		Short:        "KyberSwap Elastic analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Duration("http-timeout", 30*time.Second, "timeout for subgraph and REST requests")
	root.PersistentFlags().String("block-service-url", "", "block-index service base URL")
	root.PersistentFlags().String("pool-service-url", "", "pool service base URL")
	root.PersistentFlags().Int("max-workers", 8, "concurrent network and block-service requests")

	ticksCmd := &cobra.Command{
		Use:   "ticks",
		Short: "Reconstruct the liquidity distribution around a pool's price",
		RunE:  runTicks,
	}
	ticksCmd.Flags().String("network", "", "network id")
	ticksCmd.Flags().String("pool", "", "pool address")
	ticksCmd.Flags().Int("surrounding", 300, "ticks to walk on each side of the active tick")
	ticksCmd.Flags().String("out", "-", "output JSONL path (- for stdout)")
	root.AddCommand(ticksCmd)

	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "Resolve timestamps to block numbers",
		RunE:  runBlocks,
	}
	blocksCmd.Flags().String("network", "", "network id")
	blocksCmd.Flags().StringSlice("timestamps", nil, "timestamps (unix seconds or RFC3339, comma-separated)")
	blocksCmd.Flags().String("out", "-", "output JSONL path (- for stdout)")
	root.AddCommand(blocksCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Build an account's daily position value series",
		RunE:  runPositions,
	}
	positionsCmd.Flags().String("network", "", "network id")
	positionsCmd.Flags().String("account", "", "owner address")
	positionsCmd.Flags().String("window", "30d", "window (24h, 7d, 30d, 90d, 1y, all)")
	positionsCmd.Flags().String("out", "-", "output JSONL path (- for stdout)")
	root.AddCommand(positionsCmd)

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Fetch the multi-network overview, day data and top pools",
		RunE:  runOverview,
	}
	overviewCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	overviewCmd.Flags().String("out", "-", "output JSONL path (- for stdout)")
	root.AddCommand(overviewCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve explorer data over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
