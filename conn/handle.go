package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/priceaction/dbdeploy"
)

// Handle is a pooled connection handle bound to the descriptor that opened
// it. It is owned by a single process and must not be shared across
// processes; the embedded backend in particular supports only one writer.
type Handle struct {
	db   *sql.DB
	desc dbdeploy.StorageDescriptor
}

// DB exposes the underlying pool for query issuers within this process.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Descriptor returns the immutable descriptor this handle was opened with.
func (h *Handle) Descriptor() dbdeploy.StorageDescriptor {
	return h.desc
}

// WithConn runs fn with a dedicated connection from the pool and returns the
// connection on every exit path, including a panic inside fn.
//
// Acquisition blocks up to the pool's idle timeout; if no connection becomes
// available it fails with dbdeploy.ErrPoolExhausted.
func (h *Handle) WithConn(ctx context.Context, fn func(ctx context.Context, c *sql.Conn) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, h.desc.Pool.IdleTimeout)
	c, err := h.db.Conn(acquireCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no connection within %s", dbdeploy.ErrPoolExhausted, h.desc.Pool.IdleTimeout)
		}
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer c.Close()

	return fn(ctx, c)
}

// Close releases the handle and closes every pooled connection.
func (h *Handle) Close() error {
	return h.db.Close()
}
