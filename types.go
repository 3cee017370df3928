package dbdeploy

import "time"

// Environment identifies a deployment environment.
// Only the enumerated values below are accepted; anything else is a
// configuration error, never a silent default.
type Environment string

const (
	// EnvDevelopment runs against an embedded single-file store.
	EnvDevelopment Environment = "development"

	// EnvProduction runs against a networked relational store and
	// requires an explicit connection locator.
	EnvProduction Environment = "production"
)

// BackendKind is the class of storage engine in use.
type BackendKind string

const (
	// BackendEmbedded is a single-file store owned by one process.
	BackendEmbedded BackendKind = "embedded-file"

	// BackendNetworked is a multi-client relational server.
	BackendNetworked BackendKind = "networked-relational"
)

// Dialect selects the SQL dialect and driver for a backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// PoolConfig holds connection pool tuning parameters.
type PoolConfig struct {
	// MaxConns is the maximum number of open connections.
	// Embedded backends are always capped at a single writer.
	MaxConns int

	// IdleTimeout is how long an idle connection may sit in the pool,
	// and also bounds how long acquisition blocks before giving up.
	IdleTimeout time.Duration
}

// StorageDescriptor is a fully-specified storage target.
// It is produced once per process by config.Resolve and never mutated.
type StorageDescriptor struct {
	// Kind is the backend class.
	Kind BackendKind

	// Dialect is the SQL dialect for Kind.
	Dialect Dialect

	// Locator is the DSN or file path used to open the backend.
	Locator string

	// Pool holds pool sizing for the backend.
	Pool PoolConfig

	// RequireTLS forces transport encryption on networked backends.
	RequireTLS bool
}

// LedgerEntry is the persisted record of the last applied migration.
// Exactly one row exists per schema once any migration has run.
type LedgerEntry struct {
	// Version is the ordinal of the last fully committed step.
	Version int

	// RunID identifies the runner invocation that wrote this entry (UUID).
	RunID string

	// AppliedAt is when the entry was last written.
	AppliedAt time.Time
}

// MigrationState describes where a schema stands relative to the plan.
type MigrationState string

const (
	// StateBehind means the applied version is below the target.
	StateBehind MigrationState = "behind"

	// StateUpToDate means the schema is at the requested target.
	StateUpToDate MigrationState = "up-to-date"

	// StateFailed means a step errored and was rolled back.
	StateFailed MigrationState = "failed"
)

// Status is the outcome of a runner operation.
type Status struct {
	// State is the resulting migration state.
	State MigrationState

	// Version is the ledger version after the operation.
	Version int

	// Target is the version the operation aimed for.
	Target int

	// Err is set when State is StateFailed.
	Err error
}
