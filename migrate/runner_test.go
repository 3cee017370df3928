package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/schema"
)

func openTestHandle(t *testing.T) *conn.Handle {
	t.Helper()

	desc := dbdeploy.StorageDescriptor{
		Kind:    dbdeploy.BackendEmbedded,
		Dialect: dbdeploy.DialectSQLite,
		Locator: filepath.Join(t.TempDir(), "migrate_test.db"),
		Pool:    dbdeploy.PoolConfig{MaxConns: 1, IdleTimeout: time.Minute},
	}
	h, err := conn.Open(context.Background(), desc)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func newTestRunner(t *testing.T, h *conn.Handle, plan Plan) *Runner {
	t.Helper()
	r, err := New(Config{Handle: h, Plan: plan})
	require.NoError(t, err)
	return r
}

func TestNew_RequiresHandle(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestMigrate_AppliesStepsInOrder(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	status, err := r.Migrate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateUpToDate, status.State)
	assert.Equal(t, 3, status.Version)

	// Steps 1-3 create the core, content, and commerce tables.
	for _, name := range []string{"users", "courses", "lessons", "orders"} {
		exists, err := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, name)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist at version 3", name)
	}

	// Step 5's tables do not exist yet.
	exists, err := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, "blog_posts")
	require.NoError(t, err)
	assert.False(t, exists)

	// At version 3 the users table still carries the split name columns.
	cols, err := schema.TableColumns(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.Contains(t, cols, "first_name")
	assert.Contains(t, cols, "last_name")
	assert.NotContains(t, cols, "full_name")
}

func TestMigrate_ToCurrentVersionIsNoOp(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, 3)
	require.NoError(t, err)

	status, err := r.Migrate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateUpToDate, status.State)
	assert.Equal(t, 3, status.Version)
}

func TestMigrate_ToHeadConsolidatesFullName(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	// Stop before the consolidation and seed a row in the old shape.
	_, err := r.Migrate(ctx, 3)
	require.NoError(t, err)
	_, err = h.DB().ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, hashed_password) VALUES ('a@b.c', 'Ada', 'Lovelace', 'x')")
	require.NoError(t, err)

	status, err := r.Migrate(ctx, r.Head())
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateUpToDate, status.State)
	assert.Equal(t, r.Head(), status.Version)

	cols, err := schema.TableColumns(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.Contains(t, cols, "full_name")
	assert.NotContains(t, cols, "first_name")

	var full string
	require.NoError(t, h.DB().QueryRowContext(ctx,
		"SELECT full_name FROM users WHERE email = 'a@b.c'").Scan(&full))
	assert.Equal(t, "Ada Lovelace", full)
}

func TestMigrate_TargetOutOfRange(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, r.Head()+1)
	assert.Error(t, err)

	_, err = r.Migrate(ctx, -1)
	assert.Error(t, err)
}

func TestMigrate_RefusesTargetBehindCurrent(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, 3)
	require.NoError(t, err)

	_, err = r.Migrate(ctx, 2)
	assert.ErrorContains(t, err, "downgrade")
}

func TestMigrate_FailedStepLeavesLedgerAtLastCommitted(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	boom := errors.New("boom")
	plan := Plan{
		{Ordinal: 1, Description: "first", Up: rawStep("CREATE TABLE t1 (id INTEGER)")},
		{Ordinal: 2, Description: "second", Up: rawStep("CREATE TABLE t2 (id INTEGER)")},
		{
			Ordinal:     3,
			Description: "third",
			Up: func(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
				if _, err := tx.ExecContext(ctx, "CREATE TABLE t3 (id INTEGER)"); err != nil {
					return err
				}
				return boom
			},
		},
	}
	r := newTestRunner(t, h, plan)

	status, err := r.Migrate(ctx, 3)
	assert.ErrorIs(t, err, dbdeploy.ErrStepFailed)
	assert.Equal(t, dbdeploy.StateFailed, status.State)
	assert.Equal(t, 2, status.Version)

	// The failing step's transaction rolled back in full.
	exists, inspectErr := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, "t3")
	require.NoError(t, inspectErr)
	assert.False(t, exists)

	after, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateBehind, after.State)
	assert.Equal(t, 2, after.Version)
}

func TestDowngrade_ReversesMostRecentStep(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, r.Head())
	require.NoError(t, err)

	status, err := r.Downgrade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateBehind, status.State)
	assert.Equal(t, r.Head()-1, status.Version)

	exists, err := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, "blog_posts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDowngrade_RestoresSplitNameColumns(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, 3)
	require.NoError(t, err)
	_, err = h.DB().ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, hashed_password) VALUES ('a@b.c', 'Ada', 'Lovelace', 'x')")
	require.NoError(t, err)
	_, err = r.Migrate(ctx, 4)
	require.NoError(t, err)

	status, err := r.Downgrade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Version)

	var first, last string
	require.NoError(t, h.DB().QueryRowContext(ctx,
		"SELECT first_name, last_name FROM users WHERE email = 'a@b.c'").Scan(&first, &last))
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	cols, err := schema.TableColumns(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.NotContains(t, cols, "full_name")
}

func TestDowngrade_StopsAtVersionZero(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Migrate(ctx, 2)
	require.NoError(t, err)

	status, err := r.Downgrade(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Version)
	assert.Equal(t, dbdeploy.StateBehind, status.State)

	exists, err := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDowngrade_NoReverseDefined(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	plan := Plan{
		{Ordinal: 1, Description: "irreversible", Up: rawStep("CREATE TABLE t1 (id INTEGER)")},
	}
	r := newTestRunner(t, h, plan)

	_, err := r.Migrate(ctx, 1)
	require.NoError(t, err)

	_, err = r.Downgrade(ctx, 1)
	assert.ErrorIs(t, err, dbdeploy.ErrNoReverseDefined)

	// The ledger is untouched by the refused reversal.
	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Version)
}

func TestDowngrade_RejectsNonPositiveSteps(t *testing.T) {
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	_, err := r.Downgrade(context.Background(), 0)
	assert.Error(t, err)
}

func TestStatus_FreshDatabaseIsBehind(t *testing.T) {
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	status, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateBehind, status.State)
	assert.Equal(t, 0, status.Version)
	assert.Equal(t, r.Head(), status.Target)
}

func TestStamp_RecordsVersionWithoutRunningSteps(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	require.NoError(t, r.Stamp(ctx, r.Head()))

	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateUpToDate, status.State)
	assert.Equal(t, r.Head(), status.Version)

	// No step ran, so no plan table exists.
	exists, err := schema.TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStamp_RejectsVersionOutsidePlan(t *testing.T) {
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	assert.Error(t, r.Stamp(context.Background(), r.Head()+1))
	assert.Error(t, r.Stamp(context.Background(), -1))
}

func TestStatus_LedgerBeyondHeadIsCorrupt(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	r := newTestRunner(t, h, nil)

	require.NoError(t, r.Stamp(ctx, 1))
	_, err := h.DB().ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET version = 99 WHERE ledger_id = 1", DefaultLedgerTable))
	require.NoError(t, err)

	_, err = r.Status(ctx)
	assert.ErrorIs(t, err, dbdeploy.ErrLedgerCorrupt)
}

// A database migrated step by step from empty must end up with the same
// structure as one initialized directly from the declared baseline.
func TestMigrate_HeadMatchesBaseline(t *testing.T) {
	ctx := context.Background()

	migrated := openTestHandle(t)
	r := newTestRunner(t, migrated, nil)
	_, err := r.Migrate(ctx, r.Head())
	require.NoError(t, err)

	baseline := openTestHandle(t)
	require.NoError(t, schema.EnsureBaseline(ctx, baseline))

	for _, e := range schema.Entities {
		migratedCols, err := schema.TableColumns(ctx, migrated.DB(), dbdeploy.DialectSQLite, e.Name)
		require.NoError(t, err)
		baselineCols, err := schema.TableColumns(ctx, baseline.DB(), dbdeploy.DialectSQLite, e.Name)
		require.NoError(t, err)
		assert.ElementsMatch(t, baselineCols, migratedCols, "columns of %s diverge", e.Name)
	}
}

// The consolidation step guards on the live schema, so a baseline-created
// database can walk the plan without tripping over the head-shape users table.
func TestMigrate_PlanRunsOverBaselineSchema(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	require.NoError(t, schema.EnsureBaseline(ctx, h))

	r := newTestRunner(t, h, nil)
	status, err := r.Migrate(ctx, r.Head())
	require.NoError(t, err)
	assert.Equal(t, dbdeploy.StateUpToDate, status.State)

	cols, err := schema.TableColumns(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.Contains(t, cols, "full_name")
	assert.NotContains(t, cols, "first_name")
}

func rawStep(stmts ...string) StepFunc {
	return func(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
