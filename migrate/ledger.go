package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/priceaction/dbdeploy"
)

// DefaultLedgerTable is the table holding the schema version ledger.
const DefaultLedgerTable = "schema_version"

// ledger persists the last successfully applied migration ordinal as a
// singleton row. The row is only ever written inside the same transaction
// as the step it records, so a version in the ledger always means the step
// fully committed.
type ledger struct {
	table string
}

// LedgerDDL returns the create-if-absent statement for a version ledger
// table. The singleton constraint lives in the DDL so no code path can grow
// the ledger past one row.
func LedgerDDL(d dbdeploy.Dialect, table string) string {
	switch d {
	case dbdeploy.DialectPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ledger_id INT PRIMARY KEY DEFAULT 1 CHECK (ledger_id = 1),
    version INTEGER NOT NULL DEFAULT 0,
    run_id TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table)
	case dbdeploy.DialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ledger_id INT PRIMARY KEY DEFAULT 1,
    version INT NOT NULL DEFAULT 0,
    run_id VARCHAR(36) NOT NULL DEFAULT '',
    applied_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    CHECK (ledger_id = 1)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ledger_id INTEGER PRIMARY KEY DEFAULT 1 CHECK (ledger_id = 1),
    version INTEGER NOT NULL DEFAULT 0,
    run_id TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, table)
	}
}

// ensure creates the ledger table if absent. DDL runs outside step
// transactions; creation is idempotent.
func (l ledger) ensure(ctx context.Context, db *sql.DB, d dbdeploy.Dialect) error {
	if _, err := db.ExecContext(ctx, LedgerDDL(d, l.table)); err != nil {
		return fmt.Errorf("ensure ledger table: %w", err)
	}
	return nil
}

// read returns the current ledger entry. A missing row means version 0;
// more than one row means the ledger is corrupt.
func (l ledger) read(ctx context.Context, db *sql.DB, d dbdeploy.Dialect) (dbdeploy.LedgerEntry, error) {
	var count int
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", l.table)).Scan(&count); err != nil {
		return dbdeploy.LedgerEntry{}, fmt.Errorf("count ledger rows: %w", err)
	}
	if count > 1 {
		return dbdeploy.LedgerEntry{}, fmt.Errorf("%w: %d rows in %s, expected at most one", dbdeploy.ErrLedgerCorrupt, count, l.table)
	}
	if count == 0 {
		return dbdeploy.LedgerEntry{}, nil
	}

	var entry dbdeploy.LedgerEntry
	query := fmt.Sprintf("SELECT version, run_id, applied_at FROM %s WHERE ledger_id = 1", l.table)
	err := db.QueryRowContext(ctx, query).Scan(&entry.Version, &entry.RunID, &entry.AppliedAt)
	if err == sql.ErrNoRows {
		return dbdeploy.LedgerEntry{}, fmt.Errorf("%w: ledger row exists but is not the singleton", dbdeploy.ErrLedgerCorrupt)
	}
	if err != nil {
		return dbdeploy.LedgerEntry{}, fmt.Errorf("read ledger: %w", err)
	}
	if entry.Version < 0 {
		return dbdeploy.LedgerEntry{}, fmt.Errorf("%w: negative version %d", dbdeploy.ErrLedgerCorrupt, entry.Version)
	}
	return entry, nil
}

// write upserts the singleton row to the given version. It runs against the
// step's transaction so the ledger update and the step's schema changes
// commit atomically together.
func (l ledger) write(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect, version int, runID string) error {
	var query string
	switch d {
	case dbdeploy.DialectPostgres:
		query = fmt.Sprintf(`INSERT INTO %s (ledger_id, version, run_id, applied_at)
VALUES (1, $1, $2, NOW())
ON CONFLICT (ledger_id) DO UPDATE SET version = EXCLUDED.version, run_id = EXCLUDED.run_id, applied_at = NOW()`, l.table)
	case dbdeploy.DialectMySQL:
		query = fmt.Sprintf(`INSERT INTO %s (ledger_id, version, run_id, applied_at)
VALUES (1, ?, ?, CURRENT_TIMESTAMP(6))
ON DUPLICATE KEY UPDATE version = VALUES(version), run_id = VALUES(run_id), applied_at = CURRENT_TIMESTAMP(6)`, l.table)
	default:
		query = fmt.Sprintf(`INSERT INTO %s (ledger_id, version, run_id, applied_at)
VALUES (1, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (ledger_id) DO UPDATE SET version = excluded.version, run_id = excluded.run_id, applied_at = CURRENT_TIMESTAMP`, l.table)
	}

	if _, err := tx.ExecContext(ctx, query, version, runID); err != nil {
		return fmt.Errorf("write ledger version %d: %w", version, err)
	}
	return nil
}
