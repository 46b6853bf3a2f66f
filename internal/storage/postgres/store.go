package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// Store provides Postgres persistence for pools, positions, swaps, and
// P&L snapshots. Numeric columns travel as text to keep arbitrary
// precision end to end.
type Store struct {
	pool *pgxpool.Pool
}

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

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the schema if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			pool_id      text PRIMARY KEY,
			token0       text NOT NULL,
			token1       text NOT NULL,
			fee_tier     integer NOT NULL,
			tick_spacing integer NOT NULL,
			created_at   timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id         bigserial PRIMARY KEY,
			nft_id     text NOT NULL UNIQUE,
			owner      text NOT NULL,
			pool_id    text NOT NULL,
			tick_lower integer NOT NULL,
			tick_upper integer NOT NULL,
			liquidity  numeric NOT NULL,
			created_at timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS positions_owner_idx ON positions (owner)`,
		`CREATE TABLE IF NOT EXISTS swaps (
			id      bigserial PRIMARY KEY,
			tx_hash text NOT NULL,
			pool_id text NOT NULL,
			amount0 numeric NOT NULL,
			amount1 numeric NOT NULL,
			ts      timestamptz NOT NULL,
			UNIQUE (tx_hash, pool_id)
		)`,
		`CREATE INDEX IF NOT EXISTS swaps_pool_ts_idx ON swaps (pool_id, ts)`,
		`CREATE TABLE IF NOT EXISTS position_snapshots (
			id               bigserial PRIMARY KEY,
			position_id      bigint NOT NULL,
			ts               timestamptz NOT NULL,
			fees_earned      numeric NOT NULL,
			impermanent_loss numeric NOT NULL,
			gas_spent        numeric NOT NULL,
			net_pnl          numeric NOT NULL,
			price            numeric NOT NULL,
			current_tick     integer NOT NULL,
			health           text NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS position_snapshots_position_ts_idx ON position_snapshots (position_id, ts)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			name            text PRIMARY KEY,
			last_synced_ts  bigint NOT NULL,
			updated_at      timestamptz NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (pool_id, token0, token1, fee_tier, tick_spacing, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (pool_id) DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee_tier = EXCLUDED.fee_tier,
				tick_spacing = EXCLUDED.tick_spacing
		`,
			pool.PoolID,
			pool.Token0,
			pool.Token1,
			pool.FeeTier,
			pool.TickSpacing,
			pool.CreatedAt,
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertPositions inserts positions, leaving existing rows untouched:
// position records are immutable once ingested.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.Position) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, position := range positions {
		batch.Queue(`
			INSERT INTO positions (nft_id, owner, pool_id, tick_lower, tick_upper, liquidity, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
			ON CONFLICT (nft_id) DO NOTHING
		`,
			position.NFTID,
			position.Owner,
			position.PoolID,
			position.TickLower,
			position.TickUpper,
			position.Liquidity.String(),
			position.CreatedAt,
		)
	}
	return s.sendBatch(ctx, batch, len(positions))
}

// UpsertSwaps inserts swaps, deduplicating on (tx_hash, pool_id).
func (s *Store) UpsertSwaps(ctx context.Context, swaps []model.Swap) error {
	if len(swaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, swap := range swaps {
		batch.Queue(`
			INSERT INTO swaps (tx_hash, pool_id, amount0, amount1, ts)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5)
			ON CONFLICT (tx_hash, pool_id) DO NOTHING
		`,
			swap.TxHash,
			swap.PoolID,
			swap.Amount0.String(),
			swap.Amount1.String(),
			swap.Timestamp,
		)
	}
	return s.sendBatch(ctx, batch, len(swaps))
}

// InsertSnapshots appends P&L snapshot rows.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO position_snapshots (
				position_id, ts, fees_earned, impermanent_loss, gas_spent, net_pnl, price, current_tick, health
			) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9)
		`,
			snap.PositionID,
			snap.Timestamp,
			snap.FeesEarned.String(),
			snap.ImpermanentLoss.String(),
			snap.GasSpent.String(),
			snap.NetPnL.String(),
			snap.Price.String(),
			snap.CurrentTick,
			string(snap.Health),
		)
	}
	return s.sendBatch(ctx, batch, len(snapshots))
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

const positionColumns = `id, nft_id, owner, pool_id, tick_lower, tick_upper, liquidity::text, created_at`

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var liquidity string
	if err := row.Scan(&p.ID, &p.NFTID, &p.Owner, &p.PoolID, &p.TickLower, &p.TickUpper, &liquidity, &p.CreatedAt); err != nil {
		return model.Position{}, err
	}
	parsed, err := decimal.NewFromString(liquidity)
	if err != nil {
		return model.Position{}, fmt.Errorf("parse liquidity: %w", err)
	}
	p.Liquidity = parsed
	return p, nil
}

// GetPositionByNFT returns the position with the given NFT id.
func (s *Store) GetPositionByNFT(ctx context.Context, nftID string) (model.Position, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE nft_id = $1`, nftID)
	position, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Position{}, false, nil
		}
		return model.Position{}, false, err
	}
	return position, true, nil
}

// ListPositionsByOwner returns all positions for an owner, newest
// first.
func (s *Store) ListPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE lower(owner) = lower($1)
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPositions(rows)
}

// ListPositions returns every stored position.
func (s *Store) ListPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPositions(rows)
}

func collectPositions(rows pgx.Rows) ([]model.Position, error) {
	var positions []model.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

// SwapsForPoolSince returns swaps for a pool at or after the given
// time, oldest first.
func (s *Store) SwapsForPoolSince(ctx context.Context, poolID string, since time.Time) ([]model.Swap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tx_hash, pool_id, amount0::text, amount1::text, ts
		FROM swaps
		WHERE pool_id = $1 AND ts >= $2
		ORDER BY ts ASC
	`, poolID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swaps []model.Swap
	for rows.Next() {
		var swap model.Swap
		var amount0, amount1 string
		if err := rows.Scan(&swap.ID, &swap.TxHash, &swap.PoolID, &amount0, &amount1, &swap.Timestamp); err != nil {
			return nil, err
		}
		if swap.Amount0, err = decimal.NewFromString(amount0); err != nil {
			return nil, fmt.Errorf("parse amount0: %w", err)
		}
		if swap.Amount1, err = decimal.NewFromString(amount1); err != nil {
			return nil, fmt.Errorf("parse amount1: %w", err)
		}
		swaps = append(swaps, swap)
	}
	return swaps, rows.Err()
}

// EarliestSnapshotPrice returns the price recorded in a position's
// oldest snapshot, used as the IL baseline for later snapshots.
func (s *Store) EarliestSnapshotPrice(ctx context.Context, positionID int64) (decimal.Decimal, bool, error) {
	var price string
	row := s.pool.QueryRow(ctx, `
		SELECT price::text FROM position_snapshots
		WHERE position_id = $1
		ORDER BY ts ASC
		LIMIT 1
	`, positionID)
	if err := row.Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse price: %w", err)
	}
	return parsed, true, nil
}

// SnapshotsForPosition returns a position's snapshots within a time
// range, oldest first.
func (s *Store) SnapshotsForPosition(ctx context.Context, positionID int64, start, end time.Time) ([]model.PositionSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, position_id, ts, fees_earned::text, impermanent_loss::text,
		       gas_spent::text, net_pnl::text, price::text, current_tick, health
		FROM position_snapshots
		WHERE position_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC
	`, positionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []model.PositionSnapshot
	for rows.Next() {
		var snap model.PositionSnapshot
		var fees, il, gas, net, price, health string
		if err := rows.Scan(&snap.ID, &snap.PositionID, &snap.Timestamp, &fees, &il, &gas, &net, &price, &snap.CurrentTick, &health); err != nil {
			return nil, err
		}
		for _, field := range []struct {
			raw  string
			dest *decimal.Decimal
		}{
			{fees, &snap.FeesEarned},
			{il, &snap.ImpermanentLoss},
			{gas, &snap.GasSpent},
			{net, &snap.NetPnL},
			{price, &snap.Price},
		} {
			parsed, err := decimal.NewFromString(field.raw)
			if err != nil {
				return nil, fmt.Errorf("parse snapshot numeric: %w", err)
			}
			*field.dest = parsed
		}
		snap.Health = model.HealthStatus(health)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// LoadState returns last_synced_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_synced_ts FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_synced_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_synced_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_synced_ts = EXCLUDED.last_synced_ts, updated_at = now()
	`, name, ts)
	return err
}
