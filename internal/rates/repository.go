package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jewelcraft/metalpricing/internal/platform/db"
)

// Repository stores rate snapshots. DeactivateAll must complete before Save
// of the next active snapshot; SwitchActive runs both in one transaction.
type Repository interface {
	GetActive(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot) (Snapshot, error)
	DeactivateAll(ctx context.Context) error
	SwitchActive(ctx context.Context, snapshot Snapshot) (Snapshot, error)
	History(ctx context.Context, page, pageSize int) ([]Snapshot, int, error)
}

// switchLockKey serialises concurrent rate switches inside Postgres.
const switchLockKey = 727011

const snapshotColumns = `id, gold_rate_24k, gold_rate_22k, gold_rate_18k, gold_rate_14k,
	silver_rate_999, silver_rate_925, diamond_rate_per_carat, platinum_rate_950,
	updated_by, notes, is_active, created_at`

// PostgresRepository persists snapshots in the metal_rates table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetActive returns the newest active snapshot. ok is false when rates were never set.
func (r *PostgresRepository) GetActive(ctx context.Context) (Snapshot, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM metal_rates
		WHERE is_active ORDER BY created_at DESC, id DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("rates: get active: %w", err)
	}
	return snap, true, nil
}

// Save inserts snapshot as the latest record.
func (r *PostgresRepository) Save(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	return insertSnapshot(ctx, r.pool, snapshot)
}

// DeactivateAll flags every stored snapshot inactive.
func (r *PostgresRepository) DeactivateAll(ctx context.Context) error {
	return deactivateAll(ctx, r.pool)
}

// SwitchActive deactivates prior snapshots and saves the new active one in a
// single transaction so readers never observe zero active rows after commit.
func (r *PostgresRepository) SwitchActive(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	var saved Snapshot
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, switchLockKey); err != nil {
			return fmt.Errorf("rates: lock: %w", err)
		}
		if err := deactivateAll(ctx, tx); err != nil {
			return err
		}
		var err error
		saved, err = insertSnapshot(ctx, tx, snapshot)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return saved, nil
}

// History lists snapshots newest first.
func (r *PostgresRepository) History(ctx context.Context, page, pageSize int) ([]Snapshot, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM metal_rates`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("rates: count history: %w", err)
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+snapshotColumns+` FROM metal_rates
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("rates: list history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, pageSize)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("rates: scan history: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, total, rows.Err()
}

func deactivateAll(ctx context.Context, q db.Querier) error {
	if _, err := q.Exec(ctx, `UPDATE metal_rates SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("rates: deactivate: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, q db.Querier, s Snapshot) (Snapshot, error) {
	err := q.QueryRow(ctx, `INSERT INTO metal_rates (
			gold_rate_24k, gold_rate_22k, gold_rate_18k, gold_rate_14k,
			silver_rate_999, silver_rate_925, diamond_rate_per_carat, platinum_rate_950,
			updated_by, notes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		s.GoldRate24K, s.GoldRate22K, s.GoldRate18K, s.GoldRate14K,
		s.SilverRate999, s.SilverRate925, s.DiamondRatePerCarat, s.PlatinumRate950,
		s.UpdatedBy, s.Notes, s.IsActive, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rates: insert snapshot: %w", err)
	}
	return s, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	err := row.Scan(
		&s.ID, &s.GoldRate24K, &s.GoldRate22K, &s.GoldRate18K, &s.GoldRate14K,
		&s.SilverRate999, &s.SilverRate925, &s.DiamondRatePerCarat, &s.PlatinumRate950,
		&s.UpdatedBy, &s.Notes, &s.IsActive, &s.CreatedAt,
	)
	return s, err
}
