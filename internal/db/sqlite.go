package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/booky/lending/internal/config"
)

// Open opens the device-local database and verifies connectivity. It does
// not create any tables: imported legacy files must stay exactly as
// imported so that missing lending tables remain observable to the schema
// guard. Run Migrate separately to provision the current schema.
func Open(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		cfg.DBPath, cfg.DBBusyTimeout.Milliseconds())

	handle, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a second connection would only add
	// lock contention inside one process.
	handle.SetMaxOpenConns(1)

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}
