package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/booky/lending/internal/db"
)

// NewTestDB opens a fresh in-memory store. The driver is pure Go, so
// these tests run everywhere without external services.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	handle, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	handle.SetMaxOpenConns(1)
	t.Cleanup(func() { handle.Close() })
	return handle
}

// NewMigratedTestDB opens an in-memory store with the lending schema
// applied. Tests that exercise schema drift use NewTestDB instead and
// migrate (or not) themselves.
func NewMigratedTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	handle := NewTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, handle); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return handle
}
