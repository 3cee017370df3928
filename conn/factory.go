// Package conn opens pooled connection handles for resolved storage
// descriptors. Embedded backends get a single writer-capable connection;
// networked backends get a bounded pool with TLS applied when the
// descriptor demands it.
package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/priceaction/dbdeploy"
)

// Connections are recycled after this long regardless of idle state, so a
// long-lived service does not hold sockets across server-side timeouts.
const connMaxLifetime = time.Hour

// Bounded retry budget for reaching a networked backend. An unattended
// deploy must halt deterministically rather than hang, so the factory never
// retries without bound.
const (
	maxConnectAttempts = 5
	connectBaseBackoff = 500 * time.Millisecond
	connectPingTimeout = 10 * time.Second
)

// Open establishes a pooled connection handle for the descriptor.
//
// Networked backends are pinged with exponential backoff up to
// maxConnectAttempts; if the backend never answers, Open fails with
// dbdeploy.ErrUnreachable. Credential rejections fail immediately with
// dbdeploy.ErrAuthRejected since retrying cannot help.
func Open(ctx context.Context, desc dbdeploy.StorageDescriptor) (*Handle, error) {
	driverName, dsn, err := driverFor(desc)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", desc.Dialect, err)
	}

	db.SetMaxOpenConns(desc.Pool.MaxConns)
	db.SetMaxIdleConns(desc.Pool.MaxConns)
	db.SetConnMaxIdleTime(desc.Pool.IdleTimeout)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := pingWithRetry(ctx, db, desc); err != nil {
		db.Close()
		return nil, err
	}

	if desc.Dialect == dbdeploy.DialectSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Handle{db: db, desc: desc}, nil
}

// driverFor maps a descriptor onto a registered driver and a dial-ready DSN.
func driverFor(desc dbdeploy.StorageDescriptor) (driverName, dsn string, err error) {
	switch desc.Dialect {
	case dbdeploy.DialectSQLite:
		return "sqlite3", desc.Locator, nil
	case dbdeploy.DialectPostgres:
		dsn, err = postgresDSN(desc)
		return "postgres", dsn, err
	case dbdeploy.DialectMySQL:
		dsn, err = mysqlDSN(desc)
		return "mysql", dsn, err
	default:
		return "", "", fmt.Errorf("unsupported dialect %q", desc.Dialect)
	}
}

// postgresDSN forces sslmode=require when the descriptor demands TLS and the
// locator does not already pin an sslmode.
func postgresDSN(desc dbdeploy.StorageDescriptor) (string, error) {
	if !desc.RequireTLS {
		return desc.Locator, nil
	}

	u, err := url.Parse(desc.Locator)
	if err != nil {
		return "", fmt.Errorf("parse postgres locator: %w", err)
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// mysqlDSN normalizes an optional mysql:// prefix into the driver's native
// DSN form and enables TLS when required.
func mysqlDSN(desc dbdeploy.StorageDescriptor) (string, error) {
	raw := strings.TrimPrefix(desc.Locator, "mysql://")

	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql locator: %w", err)
	}
	if desc.RequireTLS && cfg.TLSConfig == "" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN(), nil
}

// pingWithRetry verifies the backend answers, retrying transient failures
// with exponential backoff. Embedded files get a single attempt; there is no
// network to wait out.
func pingWithRetry(ctx context.Context, db *sql.DB, desc dbdeploy.StorageDescriptor) error {
	attempts := maxConnectAttempts
	if desc.Kind == dbdeploy.BackendEmbedded {
		attempts = 1
	}

	var lastErr error
	backoff := connectBaseBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if isAuthError(err) {
			return fmt.Errorf("%w: %v", dbdeploy.ErrAuthRejected, err)
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", dbdeploy.ErrUnreachable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("%w after %d attempts: %v", dbdeploy.ErrUnreachable, attempts, lastErr)
}

// isAuthError reports whether the backend rejected our credentials.
// Postgres signals this with SQLSTATE class 28, MySQL with error 1044/1045.
func isAuthError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "28")
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1044 || myErr.Number == 1045
	}

	return false
}

// applySQLitePragmas enables WAL journaling and foreign key enforcement on
// the embedded store, matching how the service has always run its file
// database.
func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	return nil
}
