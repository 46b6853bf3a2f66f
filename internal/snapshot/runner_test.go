package snapshot

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"positionScope/internal/analytics"
	"positionScope/internal/chain"
	"positionScope/internal/model"
)

type fakeStore struct {
	positions []model.Position
	swaps     map[string][]model.Swap
	baselines map[int64]decimal.Decimal
	inserted  [][]model.PositionSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		swaps:     make(map[string][]model.Swap),
		baselines: make(map[int64]decimal.Decimal),
	}
}

func (f *fakeStore) ListPositions(_ context.Context) ([]model.Position, error) {
	return f.positions, nil
}

func (f *fakeStore) SwapsForPoolSince(_ context.Context, poolID string, _ time.Time) ([]model.Swap, error) {
	return f.swaps[poolID], nil
}

func (f *fakeStore) EarliestSnapshotPrice(_ context.Context, positionID int64) (decimal.Decimal, bool, error) {
	price, ok := f.baselines[positionID]
	return price, ok, nil
}

func (f *fakeStore) InsertSnapshots(_ context.Context, snapshots []model.PositionSnapshot) error {
	batch := make([]model.PositionSnapshot, len(snapshots))
	copy(batch, snapshots)
	f.inserted = append(f.inserted, batch)
	return nil
}

func (f *fakeStore) all() []model.PositionSnapshot {
	var out []model.PositionSnapshot
	for _, batch := range f.inserted {
		out = append(out, batch...)
	}
	return out
}

type fakeObserver struct {
	states map[common.Address]chain.PoolState
	err    error
	calls  int
}

func (f *fakeObserver) ObservePool(_ context.Context, pool common.Address) (chain.PoolState, error) {
	f.calls++
	if f.err != nil {
		return chain.PoolState{}, f.err
	}
	state, ok := f.states[pool]
	if !ok {
		return chain.PoolState{}, errors.New("unknown pool")
	}
	return state, nil
}

// sqrtPriceX96 for price 1.0 is exactly 2^96.
func unitSqrtPriceX96() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 96)
}

func testRunnerPosition(id int64, pool string) model.Position {
	return model.Position{
		ID:        id,
		NFTID:     "42",
		Owner:     "0xowner",
		PoolID:    pool,
		TickLower: -1000,
		TickUpper: 1000,
		Liquidity: decimal.NewFromInt(1000000),
	}
}

func TestRunnerFirstSnapshot(t *testing.T) {
	pool := "0x00000000000000000000000000000000000000aa"
	store := newFakeStore()
	store.positions = []model.Position{testRunnerPosition(1, pool)}
	store.swaps[pool] = []model.Swap{
		{TxHash: "0xtx1", PoolID: pool, Amount0: decimal.NewFromInt(1000), Amount1: decimal.NewFromInt(-2000)},
		{TxHash: "0xtx2", PoolID: pool, Amount0: decimal.NewFromInt(-1000), Amount1: decimal.NewFromInt(2000)},
	}

	observer := &fakeObserver{states: map[common.Address]chain.PoolState{
		common.HexToAddress(pool): {SqrtPriceX96: unitSqrtPriceX96(), Tick: 0},
	}}

	runner := NewRunner(Config{}, store, observer, nil, analytics.NewClassifier(), nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	snapshots := store.all()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	snap := snapshots[0]

	if snap.PositionID != 1 {
		t.Fatalf("expected position id 1, got %d", snap.PositionID)
	}
	if snap.CurrentTick != 0 {
		t.Fatalf("expected tick 0, got %d", snap.CurrentTick)
	}
	if !snap.Price.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected price 1, got %s", snap.Price)
	}

	// No prior snapshot means the baseline is the current price, so the
	// first row carries zero impermanent loss.
	if snap.ImpermanentLoss.Sign() != 0 {
		t.Fatalf("expected zero IL on first snapshot, got %s", snap.ImpermanentLoss)
	}

	// Volume 6000 at the default 0.3% fee and 1% share is 0.18.
	expectedFees := decimal.RequireFromString("0.18")
	if !snap.FeesEarned.Equal(expectedFees) {
		t.Fatalf("expected fees %s, got %s", expectedFees, snap.FeesEarned)
	}
	if !snap.NetPnL.Equal(expectedFees) {
		t.Fatalf("expected net pnl %s, got %s", expectedFees, snap.NetPnL)
	}

	if snap.Health != model.HealthHealthy {
		t.Fatalf("expected healthy, got %s", snap.Health)
	}
}

func TestRunnerObservesEachPoolOnce(t *testing.T) {
	pool := "0x00000000000000000000000000000000000000aa"
	store := newFakeStore()
	store.positions = []model.Position{
		testRunnerPosition(1, pool),
		testRunnerPosition(2, pool),
		testRunnerPosition(3, pool),
	}

	observer := &fakeObserver{states: map[common.Address]chain.PoolState{
		common.HexToAddress(pool): {SqrtPriceX96: unitSqrtPriceX96(), Tick: 0},
	}}

	runner := NewRunner(Config{BatchSize: 2}, store, observer, nil, analytics.NewClassifier(), nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if observer.calls != 1 {
		t.Fatalf("expected 1 pool observation, got %d", observer.calls)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(store.inserted))
	}
	if got := len(store.all()); got != 3 {
		t.Fatalf("expected 3 snapshots, got %d", got)
	}
}

func TestRunnerSkipsUnreachablePool(t *testing.T) {
	store := newFakeStore()
	store.positions = []model.Position{
		testRunnerPosition(1, "0x00000000000000000000000000000000000000aa"),
	}

	observer := &fakeObserver{err: errors.New("rpc unavailable")}

	runner := NewRunner(Config{MaxRetries: 1, RetryBackoff: time.Millisecond}, store, observer, nil, analytics.NewClassifier(), nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run should not fail on a skipped pool: %v", err)
	}

	if len(store.all()) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(store.all()))
	}
	if observer.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", observer.calls)
	}
}

func TestRunnerUsesBaselineForIL(t *testing.T) {
	pool := "0x00000000000000000000000000000000000000aa"
	store := newFakeStore()
	store.positions = []model.Position{testRunnerPosition(1, pool)}
	// Baseline well below the current price of 1.0 forces nonzero IL.
	store.baselines[1] = decimal.RequireFromString("0.5")

	observer := &fakeObserver{states: map[common.Address]chain.PoolState{
		common.HexToAddress(pool): {SqrtPriceX96: unitSqrtPriceX96(), Tick: 0},
	}}

	runner := NewRunner(Config{}, store, observer, nil, analytics.NewClassifier(), nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	snapshots := store.all()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].ImpermanentLoss.Sign() <= 0 {
		t.Fatalf("expected positive IL against a moved baseline, got %s", snapshots[0].ImpermanentLoss)
	}
}
