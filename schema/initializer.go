package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/conn"
)

// EnsureBaseline creates the backing table for every declared entity if it
// is absent. It never drops or alters existing structures, so it is safe to
// invoke on every process start; destructive changes belong to the migration
// runner under explicit operator intent.
func EnsureBaseline(ctx context.Context, h *conn.Handle) error {
	d := h.Descriptor().Dialect

	for _, e := range Entities {
		stmt, err := CreateIfAbsent(e, d)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", dbdeploy.ErrCreateFailed, e.Name, err)
		}
		if _, err := h.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create %s: %v", dbdeploy.ErrCreateFailed, e.Name, err)
		}
		slog.Debug("baseline entity ensured", "entity", e.Name)
	}

	slog.Info("baseline schema ensured", "entities", len(Entities), "dialect", string(d))
	return nil
}

// ResetAll drops and recreates every declared entity. It is a destructive
// operator action: confirm must be explicitly true or nothing is touched.
// It never runs as part of normal startup.
func ResetAll(ctx context.Context, h *conn.Handle, confirm bool) error {
	if !confirm {
		return dbdeploy.ErrResetNotConfirmed
	}

	d := h.Descriptor().Dialect

	// Referrers were created last, so drop in reverse declaration order.
	for i := len(Entities) - 1; i >= 0; i-- {
		e := Entities[i]
		stmt, err := DropIfExists(e, d)
		if err != nil {
			return fmt.Errorf("render drop %s: %w", e.Name, err)
		}
		if _, err := h.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop %s: %w", e.Name, err)
		}
		slog.Debug("entity dropped", "entity", e.Name)
	}

	slog.Warn("all entities dropped, recreating baseline", "dialect", string(d))
	return EnsureBaseline(ctx, h)
}
