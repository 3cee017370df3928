package deploy

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/config"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/migrate"
	"github.com/priceaction/dbdeploy/schema"
)

func tempLocator(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "deploy_test.db")
}

func TestRun_FreshDatabaseReachesReady(t *testing.T) {
	ctx := context.Background()
	o := New(Config{Overrides: config.Overrides{Locator: tempLocator(t)}})

	outcome := o.Run(ctx, dbdeploy.EnvDevelopment)
	require.Equal(t, StageReady, outcome.Stage, "outcome error: %v", outcome.Err)
	require.NotNil(t, outcome.Handle)
	defer outcome.Handle.Close()

	assert.Equal(t, ExitOK, outcome.ExitCode())
	assert.Equal(t, dbdeploy.StateUpToDate, outcome.Status.State)
	assert.Equal(t, migrate.DefaultPlan().Head(), outcome.Status.Version)

	// The baseline declarations are all present.
	for _, e := range schema.Entities {
		exists, err := schema.TableExists(ctx, outcome.Handle.DB(), dbdeploy.DialectSQLite, e.Name)
		require.NoError(t, err)
		assert.True(t, exists, "entity %s should exist", e.Name)
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	locator := tempLocator(t)
	o := New(Config{Overrides: config.Overrides{Locator: locator}})

	first := o.Run(ctx, dbdeploy.EnvDevelopment)
	require.Equal(t, StageReady, first.Stage, "outcome error: %v", first.Err)
	first.Handle.Close()

	second := o.Run(ctx, dbdeploy.EnvDevelopment)
	require.Equal(t, StageReady, second.Stage, "outcome error: %v", second.Err)
	defer second.Handle.Close()

	assert.Equal(t, dbdeploy.StateUpToDate, second.Status.State)
	assert.Equal(t, migrate.DefaultPlan().Head(), second.Status.Version)
}

func TestRun_ProductionWithoutLocatorHaltsAtConfig(t *testing.T) {
	o := New(Config{})

	outcome := o.Run(context.Background(), dbdeploy.EnvProduction)
	assert.Equal(t, StageConfig, outcome.Stage)
	assert.Equal(t, ExitConfig, outcome.ExitCode())
	assert.ErrorIs(t, outcome.Err, dbdeploy.ErrMissingLocator)
	assert.Nil(t, outcome.Handle)
}

func TestRun_UnknownEnvironmentHaltsAtConfig(t *testing.T) {
	o := New(Config{})

	outcome := o.Run(context.Background(), dbdeploy.Environment("staging"))
	assert.Equal(t, StageConfig, outcome.Stage)
	assert.ErrorIs(t, outcome.Err, dbdeploy.ErrUnknownEnvironment)
}

func TestRun_MigrationFailureHaltsAtMigrate(t *testing.T) {
	ctx := context.Background()
	locator := tempLocator(t)

	// Seed a non-fresh database so the orchestrator walks the plan instead
	// of stamping a fresh baseline.
	seed, err := conn.Open(ctx, dbdeploy.StorageDescriptor{
		Kind:    dbdeploy.BackendEmbedded,
		Dialect: dbdeploy.DialectSQLite,
		Locator: locator,
		Pool:    dbdeploy.PoolConfig{MaxConns: 1, IdleTimeout: time.Minute},
	})
	require.NoError(t, err)
	_, err = seed.DB().ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	seed.Close()

	boom := errors.New("boom")
	plan := migrate.Plan{
		{
			Ordinal:     1,
			Description: "always fails",
			Up: func(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
				return boom
			},
		},
	}
	o := New(Config{Overrides: config.Overrides{Locator: locator}, Plan: plan})

	outcome := o.Run(ctx, dbdeploy.EnvDevelopment)
	assert.Equal(t, StageMigrate, outcome.Stage)
	assert.Equal(t, ExitMigrate, outcome.ExitCode())
	assert.ErrorIs(t, outcome.Err, dbdeploy.ErrStepFailed)
	assert.Equal(t, dbdeploy.StateFailed, outcome.Status.State)
	assert.Nil(t, outcome.Handle, "handle must be released on failure")
}

func TestOutcome_ExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, Outcome{Stage: StageReady}.ExitCode())
	assert.Equal(t, ExitConfig, Outcome{Stage: StageConfig}.ExitCode())
	assert.Equal(t, ExitConnect, Outcome{Stage: StageConnect}.ExitCode())
	assert.Equal(t, ExitMigrate, Outcome{Stage: StageMigrate}.ExitCode())
}
