// Package snapshot computes and persists time-series P&L snapshots
// for every stored position.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"positionScope/internal/analytics"
	"positionScope/internal/chain"
	"positionScope/internal/model"
	"positionScope/internal/storage"
)

// Store is the persistence surface the runner reads and writes.
type Store interface {
	ListPositions(ctx context.Context) ([]model.Position, error)
	SwapsForPoolSince(ctx context.Context, poolID string, since time.Time) ([]model.Swap, error)
	EarliestSnapshotPrice(ctx context.Context, positionID int64) (decimal.Decimal, bool, error)
	InsertSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error
}

// PoolObserver reads a pool's current on-chain state.
type PoolObserver interface {
	ObservePool(ctx context.Context, pool common.Address) (chain.PoolState, error)
}

// Config controls a snapshot run.
type Config struct {
	Lookback     time.Duration
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner walks every stored position, observes its pool, computes P&L
// and health through the analytics core, and persists the results as
// snapshot rows. Each position's computation is independent; failures
// are logged and skipped so one bad pool cannot stall the run.
type Runner struct {
	cfg        Config
	store      Store
	observer   PoolObserver
	calc       *analytics.Calculator
	classifier analytics.Classifier
	sink       storage.SnapshotSink
	logger     *zap.Logger
}

// NewRunner builds a Runner. The sink is optional; when set, snapshot
// rows are mirrored to it (e.g. a JSONL export) in addition to the
// store.
func NewRunner(
	cfg Config,
	store Store,
	observer PoolObserver,
	calc *analytics.Calculator,
	classifier analytics.Classifier,
	sink storage.SnapshotSink,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if calc == nil {
		calc = analytics.NewCalculator(nil)
	}
	return &Runner{
		cfg:        cfg,
		store:      store,
		observer:   observer,
		calc:       calc,
		classifier: classifier,
		sink:       sink,
		logger:     logger,
	}
}

// Run executes one snapshot pass over all positions.
func (r *Runner) Run(ctx context.Context) error {
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if r.observer == nil {
		return fmt.Errorf("pool observer is nil")
	}

	positions, err := r.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	if len(positions) == 0 {
		r.logger.Info("no positions to snapshot")
		return nil
	}

	now := time.Now().UTC()
	since := now.Add(-r.cfg.Lookback)

	poolStates := make(map[string]chain.PoolState)
	batch := make([]model.PositionSnapshot, 0, r.cfg.BatchSize)
	var snapped, skipped int

	for _, position := range positions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		state, ok := poolStates[position.PoolID]
		if !ok {
			state, err = r.observePoolWithRetry(ctx, position.PoolID)
			if err != nil {
				r.logger.Warn("observe pool failed",
					zap.String("pool_id", position.PoolID),
					zap.Error(err),
				)
				skipped++
				continue
			}
			poolStates[position.PoolID] = state
		}

		snap, err := r.snapshotPosition(ctx, position, state, since, now)
		if err != nil {
			r.logger.Warn("snapshot position failed",
				zap.Int64("position_id", position.ID),
				zap.Error(err),
			)
			skipped++
			continue
		}

		batch = append(batch, snap)
		snapped++

		if len(batch) >= r.cfg.BatchSize {
			if err := r.flush(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if err := r.flush(ctx, batch); err != nil {
		return err
	}

	r.logger.Info("snapshot run complete",
		zap.Int("positions", len(positions)),
		zap.Int("snapshots", snapped),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (r *Runner) snapshotPosition(
	ctx context.Context,
	position model.Position,
	state chain.PoolState,
	since, now time.Time,
) (model.PositionSnapshot, error) {
	currentPrice := analytics.PriceFromSqrtX96(decimal.NewFromBigInt(state.SqrtPriceX96, 0))
	currentTick := state.Tick

	swaps, err := r.store.SwapsForPoolSince(ctx, position.PoolID, since)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("load swaps: %w", err)
	}

	// The IL baseline is the price at the position's first snapshot;
	// the first observation itself carries zero IL.
	initialPrice, ok, err := r.store.EarliestSnapshotPrice(ctx, position.ID)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("load baseline price: %w", err)
	}
	if !ok {
		initialPrice = currentPrice
	}

	pnl := r.calc.PositionPnL(position, swaps, initialPrice, currentPrice, decimal.Zero)
	health := r.classifier.PositionHealth(position, currentTick, pnl.NetPnL)

	return model.PositionSnapshot{
		PositionID:      position.ID,
		Timestamp:       now,
		FeesEarned:      pnl.FeesEarned,
		ImpermanentLoss: pnl.ImpermanentLoss,
		GasSpent:        pnl.GasSpent,
		NetPnL:          pnl.NetPnL,
		Price:           currentPrice,
		CurrentTick:     currentTick,
		Health:          health,
	}, nil
}

func (r *Runner) observePoolWithRetry(ctx context.Context, poolID string) (chain.PoolState, error) {
	var state chain.PoolState
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		state, err = r.observer.ObservePool(ctx, common.HexToAddress(poolID))
		return err
	})
	return state, err
}

func (r *Runner) flush(ctx context.Context, batch []model.PositionSnapshot) error {
	if len(batch) == 0 {
		return nil
	}
	if err := r.store.InsertSnapshots(ctx, batch); err != nil {
		return fmt.Errorf("store snapshots: %w", err)
	}
	if r.sink != nil {
		if err := r.sink.PutSnapshotBatch(batch); err != nil {
			return fmt.Errorf("export snapshots: %w", err)
		}
	}
	return nil
}
