package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id TEXT PRIMARY KEY,
	holdings_path TEXT NOT NULL,
	trades_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	fund_count INTEGER NOT NULL DEFAULT 0,
	holdings_rows INTEGER NOT NULL DEFAULT 0,
	trades_rows INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dataset_snapshots_status ON dataset_snapshots(status);
CREATE INDEX IF NOT EXISTS idx_dataset_snapshots_created_at ON dataset_snapshots(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Create(ctx context.Context, snap *domain.DatasetSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO dataset_snapshots (
	id, holdings_path, trades_path, status, error_message, fund_count, holdings_rows, trades_rows, chunk_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		snap.ID, snap.HoldingsPath, snap.TradesPath, string(snap.Status), snap.Error,
		snap.FundCount, snap.HoldingsRows, snap.TradesRows, snap.ChunkCount,
		snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*domain.DatasetSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, holdings_path, trades_path, status, error_message, fund_count, holdings_rows, trades_rows, chunk_count, created_at, updated_at
FROM dataset_snapshots
WHERE id = $1
`, id)

	var snap domain.DatasetSnapshot
	var status string

	err := row.Scan(
		&snap.ID, &snap.HoldingsPath, &snap.TradesPath, &status, &snap.Error,
		&snap.FundCount, &snap.HoldingsRows, &snap.TradesRows, &snap.ChunkCount,
		&snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSnapshotNotFound, "get snapshot", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.Status = domain.SnapshotStatus(status)
	return &snap, nil
}

func (r *SnapshotRepository) UpdateStatus(ctx context.Context, id string, status domain.SnapshotStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE dataset_snapshots
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update snapshot status: %w", err)
	}
	return checkAffected(res, id)
}

func (r *SnapshotRepository) SaveStats(ctx context.Context, id string, stats domain.SnapshotStats) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE dataset_snapshots
SET fund_count = $2, holdings_rows = $3, trades_rows = $4, chunk_count = $5, updated_at = $6
WHERE id = $1
`, id, stats.FundCount, stats.HoldingsRows, stats.TradesRows, stats.ChunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot stats: %w", err)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSnapshotNotFound, "update snapshot", fmt.Errorf("id %s", id))
	}
	return nil
}
