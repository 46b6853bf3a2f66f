package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/config"
	"positionScope/internal/graph"
	"positionScope/internal/storage/postgres"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.GraphURL == "" {
		return fmt.Errorf("graph-url is required")
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

	syncer := graph.NewSyncer(graph.SyncConfig{
		PageSize: cfg.PageSize,
		Interval: cfg.Interval,
	}, graph.NewClient(cfg.GraphURL), store, logger)

	logger.Info("sync start",
		zap.String("graph_url", cfg.GraphURL),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("page_size", cfg.PageSize),
		zap.Duration("interval", cfg.Interval),
		zap.Bool("once", cfg.Once),
	)

	if cfg.Once {
		return syncer.SyncOnce(ctx)
	}

	if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
