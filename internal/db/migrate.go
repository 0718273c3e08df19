package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS borrowers(
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  email       TEXT NOT NULL DEFAULT '',
  phone       TEXT NOT NULL DEFAULT '',
  fingerprint BLOB NOT NULL,
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_borrowers_fingerprint ON borrowers(fingerprint);

CREATE TABLE IF NOT EXISTS loans(
  id          TEXT PRIMARY KEY,
  item_id     TEXT NOT NULL,
  borrower_id TEXT NOT NULL REFERENCES borrowers(id) ON DELETE RESTRICT,
  status      TEXT NOT NULL CHECK (status IN ('on_loan','returned')),
  loaned_at   TEXT NOT NULL,
  due_date    TEXT NOT NULL,
  returned_at TEXT,
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower_id);
CREATE INDEX IF NOT EXISTS idx_loans_status   ON loans(status);

-- Backstop for the single-active-loan invariant; the repository also
-- re-checks inside its insert transaction for a clean domain error.
CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_item_active
  ON loans(item_id) WHERE status = 'on_loan';
`

// Migrate provisions the lending tables. Idempotent; safe to run on
// every start of a writer process.
func Migrate(ctx context.Context, handle *sqlx.DB) error {
	_, err := handle.ExecContext(ctx, schema)
	return err
}
