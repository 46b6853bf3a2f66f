package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/chain"
	"positionScope/internal/config"
	"positionScope/internal/snapshot"
	"positionScope/internal/storage"
	"positionScope/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("query chain id: %w", err)
	}
	latest, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("query latest block: %w", err)
	}

	var sink storage.SnapshotSink
	if cfg.Out != "" {
		sink = storage.NewJsonlSink(cfg.Out)
	}

	calc, classifier := buildAnalytics(cfg.Analytics)

	runner := snapshot.NewRunner(snapshot.Config{
		Lookback:     time.Duration(cfg.Analytics.LookbackHours) * time.Hour,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, store, chainClient, calc, classifier, sink, logger)

	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("latest_block", latest),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("out", cfg.Out),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("lookback_hours", cfg.Analytics.LookbackHours),
	)

	return runner.Run(ctx)
}
