// Package migrate applies versioned migration steps to bring a schema to a
// target version. Steps apply in strict ordinal order, each inside its own
// transaction that also records the new version in the ledger, so a partial
// step is never recorded as applied.
//
// Callers must guarantee at most one runner executes against a given backend
// at a time; the runner does not implement distributed locking. Deploy
// pipelines serialize migration attempts across the fleet.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/metrics"
)

// Config holds configuration for the Runner.
type Config struct {
	// Handle is the connection handle to operate on (required).
	Handle *conn.Handle

	// Plan is the ordered migration plan (default: DefaultPlan()).
	Plan Plan

	// LedgerTable is the version ledger table name (default: DefaultLedgerTable).
	LedgerTable string

	// Metrics is for observability (optional).
	Metrics *metrics.Collector
}

// Runner applies migration steps against a single backend.
type Runner struct {
	config Config
	ledger ledger
	runID  string
}

// New creates a Runner with the given configuration, applying defaults for
// Plan and LedgerTable, and validating the plan's ordinal sequence.
func New(cfg Config) (*Runner, error) {
	if cfg.Handle == nil {
		return nil, fmt.Errorf("migrate: Handle is required")
	}
	if cfg.Plan == nil {
		cfg.Plan = DefaultPlan()
	}
	if cfg.LedgerTable == "" {
		cfg.LedgerTable = DefaultLedgerTable
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		config: cfg,
		ledger: ledger{table: cfg.LedgerTable},
		runID:  uuid.NewString(),
	}, nil
}

// Status reports where the schema stands relative to the plan head.
func (r *Runner) Status(ctx context.Context) (dbdeploy.Status, error) {
	current, err := r.currentVersion(ctx)
	if err != nil {
		return dbdeploy.Status{}, err
	}

	head := r.config.Plan.Head()
	state := dbdeploy.StateUpToDate
	if current < head {
		state = dbdeploy.StateBehind
	}
	return dbdeploy.Status{State: state, Version: current, Target: head}, nil
}

// Migrate applies steps from the current version up to target in strict
// ordinal order. Each step's schema changes and its ledger update commit in
// one transaction; on failure the step rolls back and the ledger stays at
// the last committed version.
//
// Migrating to the current version is a no-op returning StateUpToDate.
func (r *Runner) Migrate(ctx context.Context, target int) (dbdeploy.Status, error) {
	head := r.config.Plan.Head()
	if target < 0 || target > head {
		return dbdeploy.Status{}, fmt.Errorf("target version %d outside plan range [0,%d]", target, head)
	}

	current, err := r.currentVersion(ctx)
	if err != nil {
		return dbdeploy.Status{}, err
	}
	if current == target {
		return dbdeploy.Status{State: dbdeploy.StateUpToDate, Version: current, Target: target}, nil
	}
	if current > target {
		return dbdeploy.Status{}, fmt.Errorf("schema at version %d is ahead of target %d: use downgrade", current, target)
	}

	d := r.config.Handle.Descriptor().Dialect
	for _, step := range r.config.Plan.Range(current+1, target) {
		start := time.Now()
		if err := r.applyStep(ctx, step, step.Up, step.Ordinal); err != nil {
			if r.config.Metrics != nil {
				r.config.Metrics.IncStepFailure()
			}
			failed := fmt.Errorf("%w: step %d (%s): %v", dbdeploy.ErrStepFailed, step.Ordinal, step.Description, err)
			return dbdeploy.Status{State: dbdeploy.StateFailed, Version: current, Target: target, Err: failed}, failed
		}
		current = step.Ordinal

		if r.config.Metrics != nil {
			r.config.Metrics.IncStepApplied()
			r.config.Metrics.ObserveStepDuration(time.Since(start))
			r.config.Metrics.SetSchemaVersion(current)
		}
		slog.Info("migration step applied",
			"ordinal", step.Ordinal,
			"description", step.Description,
			"dialect", string(d),
			"elapsed", time.Since(start))
	}

	return dbdeploy.Status{State: dbdeploy.StateUpToDate, Version: current, Target: target}, nil
}

// Downgrade applies the reverse operation of the most recently applied step,
// steps times, decrementing the ledger with each reversal. A step without a
// reverse operation fails with dbdeploy.ErrNoReverseDefined. Downgrading
// stops quietly at version 0 if fewer steps are applied than requested.
func (r *Runner) Downgrade(ctx context.Context, steps int) (dbdeploy.Status, error) {
	if steps <= 0 {
		return dbdeploy.Status{}, fmt.Errorf("downgrade steps must be positive, got %d", steps)
	}

	current, err := r.currentVersion(ctx)
	if err != nil {
		return dbdeploy.Status{}, err
	}

	for i := 0; i < steps && current > 0; i++ {
		step, ok := r.config.Plan.ByOrdinal(current)
		if !ok {
			return dbdeploy.Status{}, fmt.Errorf("%w: no plan step for version %d", dbdeploy.ErrLedgerCorrupt, current)
		}
		if step.Down == nil {
			return dbdeploy.Status{}, fmt.Errorf("%w: step %d (%s)", dbdeploy.ErrNoReverseDefined, step.Ordinal, step.Description)
		}

		if err := r.applyStep(ctx, step, step.Down, step.Ordinal-1); err != nil {
			failed := fmt.Errorf("%w: reverse of step %d (%s): %v", dbdeploy.ErrStepFailed, step.Ordinal, step.Description, err)
			return dbdeploy.Status{State: dbdeploy.StateFailed, Version: current, Err: failed}, failed
		}
		current = step.Ordinal - 1

		if r.config.Metrics != nil {
			r.config.Metrics.IncRollback()
			r.config.Metrics.SetSchemaVersion(current)
		}
		slog.Info("migration step reversed", "ordinal", step.Ordinal, "version", current)
	}

	head := r.config.Plan.Head()
	state := dbdeploy.StateUpToDate
	if current < head {
		state = dbdeploy.StateBehind
	}
	return dbdeploy.Status{State: state, Version: current, Target: head}, nil
}

// Stamp records the given version in the ledger without running any steps.
// Used after a fresh baseline creation or a reset, where the schema is at
// head state by construction.
func (r *Runner) Stamp(ctx context.Context, version int) error {
	head := r.config.Plan.Head()
	if version < 0 || version > head {
		return fmt.Errorf("stamp version %d outside plan range [0,%d]", version, head)
	}

	db := r.config.Handle.DB()
	d := r.config.Handle.Descriptor().Dialect
	if err := r.ledger.ensure(ctx, db, d); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stamp transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.ledger.write(ctx, tx, d, version, r.runID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stamp: %w", err)
	}

	if r.config.Metrics != nil {
		r.config.Metrics.SetSchemaVersion(version)
	}
	slog.Info("ledger stamped", "version", version)
	return nil
}

// Head returns the plan's highest ordinal.
func (r *Runner) Head() int {
	return r.config.Plan.Head()
}

// applyStep runs one step function and the matching ledger write inside a
// single transaction. The ledger version recorded is recordVersion, which is
// the step ordinal for upgrades and ordinal-1 for reversals.
//
// SQLite and PostgreSQL give transactional DDL, so a failed step leaves no
// trace. MySQL commits DDL implicitly; the ledger write still keys recovery
// to the last fully completed step.
func (r *Runner) applyStep(ctx context.Context, step Step, fn StepFunc, recordVersion int) error {
	db := r.config.Handle.DB()
	d := r.config.Handle.Descriptor().Dialect

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx, d); err != nil {
		return err
	}
	if err := r.ledger.write(ctx, tx, d, recordVersion, r.runID); err != nil {
		return err
	}
	return tx.Commit()
}

// currentVersion ensures the ledger exists, reads it, and validates the
// version against the plan.
func (r *Runner) currentVersion(ctx context.Context) (int, error) {
	db := r.config.Handle.DB()
	d := r.config.Handle.Descriptor().Dialect

	if err := r.ledger.ensure(ctx, db, d); err != nil {
		return 0, err
	}
	entry, err := r.ledger.read(ctx, db, d)
	if err != nil {
		return 0, err
	}
	if entry.Version > r.config.Plan.Head() {
		return 0, fmt.Errorf("%w: version %d beyond plan head %d", dbdeploy.ErrLedgerCorrupt, entry.Version, r.config.Plan.Head())
	}
	return entry.Version, nil
}
