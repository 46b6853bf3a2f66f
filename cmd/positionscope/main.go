package main

import (
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"positionScope/internal/analytics"
	"positionScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "positionscope",
		Short:        "Concentrated liquidity position P&L analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics API server",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("rpc", "", "ethereum RPC URL (optional, enables live pool state)")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addAnalyticsFlags(serveCmd)

	root.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync positions and swaps from the subgraph",
		RunE:  runSync,
	}

	syncCmd.Flags().String("graph-url", "", "subgraph GraphQL endpoint URL")
	syncCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	syncCmd.Flags().Int("page-size", 100, "records per subgraph page")
	syncCmd.Flags().Duration("interval", 5*time.Minute, "polling interval")
	syncCmd.Flags().Bool("once", false, "sync once and exit")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	syncCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(syncCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute and persist P&L snapshots for all positions",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("rpc", "", "ethereum RPC URL")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	snapshotCmd.Flags().String("out", "", "optional JSONL export path")
	snapshotCmd.Flags().Int("batch-size", 100, "snapshots per DB batch")
	snapshotCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	snapshotCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addAnalyticsFlags(snapshotCmd)

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addAnalyticsFlags(cmd *cobra.Command) {
	cmd.Flags().String("fee-rate", "0.003", "pool fee rate for fee estimation")
	cmd.Flags().String("pool-share", "0.01", "assumed share of pool liquidity")
	cmd.Flags().String("warn-proximity", "0.10", "range-edge proximity warning threshold")
	cmd.Flags().String("critical-loss", "0.05", "net P&L critical loss threshold")
	cmd.Flags().Int("lookback-hours", 24, "swap lookback window in hours")
}

func buildAnalytics(cfg config.Analytics) (*analytics.Calculator, analytics.Classifier) {
	calc := analytics.NewCalculator(analytics.VolumeShareEstimator{
		FeeRate:   cfg.FeeRate,
		PoolShare: cfg.PoolShare,
	})
	classifier := analytics.Classifier{
		WarnProximity: cfg.WarnProximity,
		CriticalLoss:  cfg.CriticalLoss,
	}
	return calc, classifier
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

// redactDSN strips credentials from a DSN before it reaches the logs.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	return u.Redacted()
}
