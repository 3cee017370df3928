package schema

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/conn"
)

func openTestHandle(t *testing.T) *conn.Handle {
	t.Helper()

	desc := dbdeploy.StorageDescriptor{
		Kind:    dbdeploy.BackendEmbedded,
		Dialect: dbdeploy.DialectSQLite,
		Locator: filepath.Join(t.TempDir(), "schema_test.db"),
		Pool:    dbdeploy.PoolConfig{MaxConns: 1, IdleTimeout: time.Minute},
	}
	h, err := conn.Open(context.Background(), desc)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestEnsureBaseline_CreatesAllEntities(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	require.NoError(t, EnsureBaseline(ctx, h))

	for _, e := range Entities {
		exists, err := TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, e.Name)
		require.NoError(t, err)
		assert.True(t, exists, "entity %s should exist", e.Name)
	}
}

func TestEnsureBaseline_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	require.NoError(t, EnsureBaseline(ctx, h))

	// Insert a row, then re-run; data and structure must survive.
	_, err := h.DB().ExecContext(ctx,
		"INSERT INTO users (email, full_name, hashed_password) VALUES ('a@b.c', 'Ada Lovelace', 'x')")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, EnsureBaseline(ctx, h))
	}

	var count int
	require.NoError(t, h.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestEnsureBaseline_UsersHasHeadShape(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	require.NoError(t, EnsureBaseline(ctx, h))

	cols, err := TableColumns(ctx, h.DB(), dbdeploy.DialectSQLite, "users")
	require.NoError(t, err)
	assert.Contains(t, cols, "full_name")
	assert.NotContains(t, cols, "first_name")
	assert.NotContains(t, cols, "last_name")
}

func TestResetAll_RequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	require.NoError(t, EnsureBaseline(ctx, h))
	_, err := h.DB().ExecContext(ctx,
		"INSERT INTO users (email, full_name, hashed_password) VALUES ('a@b.c', 'Ada Lovelace', 'x')")
	require.NoError(t, err)

	err = ResetAll(ctx, h, false)
	assert.ErrorIs(t, err, dbdeploy.ErrResetNotConfirmed)

	// Nothing was touched.
	var count int
	require.NoError(t, h.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestResetAll_DropsDataAndRecreates(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	require.NoError(t, EnsureBaseline(ctx, h))
	_, err := h.DB().ExecContext(ctx,
		"INSERT INTO users (email, full_name, hashed_password) VALUES ('a@b.c', 'Ada Lovelace', 'x')")
	require.NoError(t, err)

	require.NoError(t, ResetAll(ctx, h, true))

	var count int
	require.NoError(t, h.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 0, count)

	for _, e := range Entities {
		exists, err := TableExists(ctx, h.DB(), dbdeploy.DialectSQLite, e.Name)
		require.NoError(t, err)
		assert.True(t, exists, "entity %s should be recreated", e.Name)
	}
}
