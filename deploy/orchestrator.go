// Package deploy sequences configuration resolution, connection
// establishment, baseline creation, and migration for unattended execution.
// Any failure is terminal for the deployment attempt: the dependent service
// never starts against a schema in an unknown state.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/config"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/metrics"
	"github.com/priceaction/dbdeploy/migrate"
	"github.com/priceaction/dbdeploy/schema"
)

// Stage names the phase a deployment attempt ended in.
type Stage string

const (
	// StageConfig means configuration resolution failed.
	StageConfig Stage = "config"

	// StageConnect means the backend could not be reached or authenticated.
	StageConnect Stage = "connect"

	// StageMigrate means baseline creation or migration failed.
	StageMigrate Stage = "migrate"

	// StageReady means the schema is up to date and the handle is live.
	StageReady Stage = "ready"
)

// Exit codes per stage, consumed by the CLI and deploy pipelines.
const (
	ExitOK      = 0
	ExitConfig  = 2
	ExitConnect = 3
	ExitMigrate = 4
)

// DefaultTimeout bounds a whole deployment attempt so an unattended deploy
// cannot hang indefinitely.
const DefaultTimeout = 5 * time.Minute

// Config holds configuration for the Orchestrator.
type Config struct {
	// Overrides are explicit resolution overrides (optional).
	Overrides config.Overrides

	// Plan is the migration plan (default: migrate.DefaultPlan()).
	Plan migrate.Plan

	// Timeout bounds the whole attempt (default: DefaultTimeout).
	Timeout time.Duration
}

// Outcome is the result of a deployment attempt. On StageReady it carries a
// live connection handle for the service process; on any other stage the
// handle is nil and already released.
type Outcome struct {
	Stage      Stage
	Descriptor dbdeploy.StorageDescriptor
	Handle     *conn.Handle
	Status     dbdeploy.Status
	Err        error
}

// ExitCode maps the outcome onto the process exit code contract.
func (o Outcome) ExitCode() int {
	switch o.Stage {
	case StageReady:
		return ExitOK
	case StageConfig:
		return ExitConfig
	case StageConnect:
		return ExitConnect
	default:
		return ExitMigrate
	}
}

// Orchestrator runs the deployment sequence for one environment.
type Orchestrator struct {
	config Config
}

// New creates an Orchestrator, applying defaults for Plan and Timeout.
func New(cfg Config) *Orchestrator {
	if cfg.Plan == nil {
		cfg.Plan = migrate.DefaultPlan()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Orchestrator{config: cfg}
}

// Run resolves the environment, opens a connection, brings the schema to the
// plan head, and returns a ready handle. The caller owns Outcome.Handle on
// StageReady and must close it on shutdown.
//
// A fresh database gets the baseline schema and a ledger stamped at head; an
// existing database is migrated step by step. Cancellation or timeout rolls
// back only the in-flight step; committed steps stay committed.
func (o *Orchestrator) Run(ctx context.Context, env dbdeploy.Environment) Outcome {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	desc, err := config.Resolve(env, o.config.Overrides)
	if err != nil {
		slog.Error("deployment halted at configuration", "environment", string(env), "error", err)
		return Outcome{Stage: StageConfig, Err: err}
	}
	collector := metrics.NewCollector(string(desc.Dialect))

	handle, err := conn.Open(ctx, desc)
	if err != nil {
		collector.IncDeploy(string(StageConnect))
		slog.Error("deployment halted at connection", "locator", desc.Locator, "error", err)
		return Outcome{Stage: StageConnect, Descriptor: desc, Err: err}
	}

	status, err := o.provision(ctx, handle, collector)
	if err != nil {
		handle.Close()
		collector.IncDeploy(string(StageMigrate))
		slog.Error("deployment halted at migration", "error", err)
		return Outcome{Stage: StageMigrate, Descriptor: desc, Status: status, Err: err}
	}

	collector.IncDeploy(string(StageReady))
	slog.Info("deployment ready", "environment", string(env), "version", status.Version)
	return Outcome{Stage: StageReady, Descriptor: desc, Handle: handle, Status: status}
}

// provision brings the schema to the plan head.
//
// A database with no ledger history and no user tables is fresh: it gets the
// baseline declarations directly and the ledger is stamped at head, since
// the baseline is the head state by construction. Anything else walks the
// plan, including pre-ledger databases created before versioning existed.
func (o *Orchestrator) provision(ctx context.Context, handle *conn.Handle, collector *metrics.Collector) (dbdeploy.Status, error) {
	runner, err := migrate.New(migrate.Config{
		Handle:  handle,
		Plan:    o.config.Plan,
		Metrics: collector,
	})
	if err != nil {
		return dbdeploy.Status{}, err
	}

	status, err := runner.Status(ctx)
	if err != nil {
		return dbdeploy.Status{}, err
	}

	if status.Version == 0 {
		hasUsers, err := schema.TableExists(ctx, handle.DB(), handle.Descriptor().Dialect, "users")
		if err != nil {
			return status, err
		}
		if !hasUsers {
			if err := schema.EnsureBaseline(ctx, handle); err != nil {
				return status, err
			}
			head := runner.Head()
			if err := runner.Stamp(ctx, head); err != nil {
				return status, err
			}
			return dbdeploy.Status{State: dbdeploy.StateUpToDate, Version: head, Target: head}, nil
		}
	}

	status, err = runner.Migrate(ctx, runner.Head())
	if err != nil {
		return status, fmt.Errorf("migrate to head: %w", err)
	}
	return status, nil
}
