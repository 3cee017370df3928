//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/config"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/migrate"
	"github.com/priceaction/dbdeploy/schema"
)

// testLocator returns the connection locator for integration tests.
// It reads the DATABASE_URL environment variable and skips the test if not set.
func testLocator(t *testing.T) string {
	t.Helper()

	locator := os.Getenv("DATABASE_URL")
	if locator == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return locator
}

// openTestHandle resolves and opens a handle against the integration backend.
func openTestHandle(t *testing.T) *conn.Handle {
	t.Helper()

	desc, err := config.Resolve(dbdeploy.EnvDevelopment, config.Overrides{
		Locator:     testLocator(t),
		IdleTimeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to resolve descriptor: %v", err)
	}

	h, err := conn.Open(context.Background(), desc)
	if err != nil {
		t.Fatalf("failed to open handle: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

// cleanupSchema drops every declared table and the ledger so each test starts
// from an empty database. Errors are logged but don't fail the test
// (cleanup is best-effort).
func cleanupSchema(t *testing.T, h *conn.Handle) {
	t.Helper()

	ctx := context.Background()
	d := h.Descriptor().Dialect
	for i := len(schema.Entities) - 1; i >= 0; i-- {
		stmt, err := schema.DropIfExists(schema.Entities[i], d)
		if err != nil {
			t.Logf("cleanup: render drop for %s: %v", schema.Entities[i].Name, err)
			continue
		}
		if _, err := h.DB().ExecContext(ctx, stmt); err != nil {
			t.Logf("cleanup: drop %s: %v", schema.Entities[i].Name, err)
		}
	}
	if _, err := h.DB().ExecContext(ctx,
		fmt.Sprintf("DROP TABLE IF EXISTS %s", migrate.DefaultLedgerTable)); err != nil {
		t.Logf("cleanup: drop ledger: %v", err)
	}
}

// uniqueEmail returns an email unlikely to collide with leftover rows.
func uniqueEmail() string {
	return fmt.Sprintf("it-%s@example.com", uuid.NewString())
}
