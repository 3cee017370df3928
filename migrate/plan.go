package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/schema"
)

// StepFunc executes one direction of a migration step against an open
// transaction, rendering dialect-appropriate SQL.
type StepFunc func(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error

// Step is one versioned migration. Steps are immutable once authored.
type Step struct {
	// Ordinal is the step's unique, strictly increasing version number.
	Ordinal int

	// Description names what the step does, for logs and errors.
	Description string

	// Up applies the step.
	Up StepFunc

	// Down reverses the step. A nil Down means the step cannot be reversed.
	Down StepFunc
}

// Plan is the ordered sequence of all migration steps.
type Plan []Step

// Validate checks that ordinals run contiguously from 1 and every step has
// an Up operation.
func (p Plan) Validate() error {
	for i, step := range p {
		if step.Ordinal != i+1 {
			return fmt.Errorf("plan step at index %d has ordinal %d, want %d", i, step.Ordinal, i+1)
		}
		if step.Up == nil {
			return fmt.Errorf("plan step %d (%s) has no forward operation", step.Ordinal, step.Description)
		}
	}
	return nil
}

// Head returns the highest ordinal in the plan, or 0 for an empty plan.
func (p Plan) Head() int {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].Ordinal
}

// Range returns the steps with ordinals in [from, to], in order.
func (p Plan) Range(from, to int) []Step {
	var steps []Step
	for _, step := range p {
		if step.Ordinal >= from && step.Ordinal <= to {
			steps = append(steps, step)
		}
	}
	return steps
}

// ByOrdinal returns the step with the given ordinal.
func (p Plan) ByOrdinal(ordinal int) (Step, bool) {
	if ordinal < 1 || ordinal > len(p) {
		return Step{}, false
	}
	return p[ordinal-1], true
}

// execAll builds a StepFunc that runs the statements rendered for the
// dialect, in order.
func execAll(render func(d dbdeploy.Dialect) ([]string, error)) StepFunc {
	return func(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
		stmts, err := render(d)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %.60q: %w", stmt, err)
			}
		}
		return nil
	}
}

// createEntities builds a StepFunc creating the named declared entities if
// absent. Creation reuses the declared head-state definitions, which keeps
// the plan and the baseline declarations from drifting apart.
func createEntities(names ...string) StepFunc {
	return execAll(func(d dbdeploy.Dialect) ([]string, error) {
		return renderCreates(d, names...)
	})
}

// dropEntities builds a StepFunc dropping the named entities in reverse of
// the given order, so referrers go before their targets.
func dropEntities(names ...string) StepFunc {
	return execAll(func(d dbdeploy.Dialect) ([]string, error) {
		stmts := make([]string, 0, len(names))
		for i := len(names) - 1; i >= 0; i-- {
			e, ok := schema.ByName(names[i])
			if !ok {
				return nil, fmt.Errorf("no declared entity %q", names[i])
			}
			stmt, err := schema.DropIfExists(e, d)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
		return stmts, nil
	})
}

// columnExists reports whether table.column exists, per dialect.
func columnExists(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect, table, column string) (bool, error) {
	var query string
	args := []any{table, column}
	switch d {
	case dbdeploy.DialectPostgres:
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2"
	case dbdeploy.DialectMySQL:
		query = "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?"
	default:
		query = "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
