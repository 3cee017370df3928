package dbdeploy

import "errors"

var (
	// ErrUnknownEnvironment indicates the environment name is not one of the
	// enumerated values. Resolution fails rather than silently defaulting,
	// since a silent default could point a production deploy at a throwaway
	// store.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrMissingLocator indicates a production resolve was attempted without
	// a connection locator. Production never falls back to an embedded file.
	ErrMissingLocator = errors.New("missing connection locator")

	// ErrUnreachable indicates the backend could not be reached within the
	// bounded retry budget.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrAuthRejected indicates the backend refused the supplied credentials.
	// Retrying cannot help, so the factory fails immediately.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrPoolExhausted indicates no connection became available within the
	// acquisition timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrCreateFailed indicates a baseline entity could not be created.
	ErrCreateFailed = errors.New("schema create failed")

	// ErrStepFailed indicates a migration step errored and was rolled back.
	// The ledger is left at the last successfully committed version.
	ErrStepFailed = errors.New("migration step failed")

	// ErrNoReverseDefined indicates a downgrade was requested for a step
	// that has no reverse operation.
	ErrNoReverseDefined = errors.New("no reverse operation defined")

	// ErrLedgerCorrupt indicates the version ledger is in a state the plan
	// cannot explain, such as a version beyond the plan head.
	ErrLedgerCorrupt = errors.New("version ledger corrupt")

	// ErrResetNotConfirmed indicates a destructive reset was invoked without
	// the explicit confirmation input.
	ErrResetNotConfirmed = errors.New("reset not confirmed")
)
