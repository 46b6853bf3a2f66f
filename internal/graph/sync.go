package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"positionScope/internal/model"
)

// swapCursorName keys the sync cursor in the store's state table.
const swapCursorName = "graph:swaps"

// SyncStore is the persistence surface the syncer writes to.
type SyncStore interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
	UpsertPositions(ctx context.Context, positions []model.Position) error
	UpsertSwaps(ctx context.Context, swaps []model.Swap) error
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}

// SyncConfig holds syncer settings.
type SyncConfig struct {
	PageSize int
	Interval time.Duration
}

// Syncer polls the subgraph and persists positions and swaps. Swaps
// are fetched incrementally from a stored cursor; positions are paged
// in full each round (the store keeps them immutable on conflict).
type Syncer struct {
	cfg    SyncConfig
	client *Client
	store  SyncStore
	logger *zap.Logger
}

// NewSyncer builds a Syncer with its dependencies.
func NewSyncer(cfg SyncConfig, client *Client, store SyncStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Syncer{cfg: cfg, client: client, store: store, logger: logger}
}

// Run polls until the context is cancelled, syncing immediately on
// start and then on every interval tick.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("sync failed", zap.Error(err))
			}
		}
	}
}

// SyncOnce performs a single full sync round: pools, then positions,
// then swaps, so foreign records always land after their pool row.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	poolCount, err := s.syncPools(ctx)
	if err != nil {
		return err
	}

	positionCount, err := s.syncPositions(ctx)
	if err != nil {
		return err
	}

	swapCount, err := s.syncSwaps(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("sync complete",
		zap.Int("pools", poolCount),
		zap.Int("positions", positionCount),
		zap.Int("swaps", swapCount),
	)
	return nil
}

func (s *Syncer) syncPools(ctx context.Context) (int, error) {
	total := 0
	for skip := 0; ; skip += s.cfg.PageSize {
		pools, err := s.client.FetchPools(ctx, s.cfg.PageSize, skip)
		if err != nil {
			return total, err
		}
		if len(pools) == 0 {
			return total, nil
		}

		if err := s.store.UpsertPools(ctx, pools); err != nil {
			return total, err
		}
		total += len(pools)

		if len(pools) < s.cfg.PageSize {
			return total, nil
		}
	}
}

func (s *Syncer) syncPositions(ctx context.Context) (int, error) {
	total := 0
	for skip := 0; ; skip += s.cfg.PageSize {
		positions, err := s.client.FetchPositions(ctx, s.cfg.PageSize, skip)
		if err != nil {
			return total, err
		}
		if len(positions) == 0 {
			return total, nil
		}

		if err := s.store.UpsertPositions(ctx, positions); err != nil {
			return total, err
		}
		total += len(positions)

		if len(positions) < s.cfg.PageSize {
			return total, nil
		}
	}
}

func (s *Syncer) syncSwaps(ctx context.Context) (int, error) {
	since, _, err := s.store.LoadState(ctx, swapCursorName)
	if err != nil {
		return 0, err
	}

	total := 0
	maxTs := since
	for skip := 0; ; skip += s.cfg.PageSize {
		swaps, err := s.client.FetchSwaps(ctx, since, s.cfg.PageSize, skip)
		if err != nil {
			return total, err
		}
		if len(swaps) == 0 {
			break
		}

		if err := s.store.UpsertSwaps(ctx, swaps); err != nil {
			return total, err
		}
		total += len(swaps)

		for _, swap := range swaps {
			if ts := uint64(swap.Timestamp.Unix()); ts > maxTs {
				maxTs = ts
			}
		}

		if len(swaps) < s.cfg.PageSize {
			break
		}
	}

	if maxTs > since {
		if err := s.store.SaveState(ctx, swapCursorName, maxTs); err != nil {
			return total, err
		}
	}
	return total, nil
}
