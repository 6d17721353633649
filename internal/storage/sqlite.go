package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is stored in PRAGMA user_version once the schema is applied.
const SchemaVersion = 1

var pragmas = []string{
	"PRAGMA foreign_keys = ON;",
	"PRAGMA busy_timeout = 5000;",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ci_object (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  object_type TEXT NOT NULL,
  site        TEXT NOT NULL DEFAULT '',
  code_name   TEXT NOT NULL COLLATE NOCASE,
  guid        TEXT NOT NULL,
  parent      TEXT NOT NULL DEFAULT '' COLLATE NOCASE,
  fields      JSON NOT NULL DEFAULT '{}',
  updated_at  TEXT NOT NULL,
  UNIQUE(object_type, site, code_name)
);`,
	`CREATE INDEX IF NOT EXISTS ci_object_type_idx ON ci_object(object_type, site);`,
	`CREATE TABLE IF NOT EXISTS search_task (
  id          TEXT PRIMARY KEY,
  task_type   TEXT NOT NULL,
  object_type TEXT NOT NULL,
  status      TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  run_id      TEXT
);`,
	`CREATE INDEX IF NOT EXISTS search_task_status_idx ON search_task(status, object_type);`,
}

// OpenSQLite opens the object store at path, creating the file and its
// directory when missing, and applies the schema. The path must be on a local
// filesystem.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	if err := RequireLocal(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, p := range pragmas {
		if _, err := db.ExecContext(pctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite applies the schema in one transaction. It is safe to call on
// an already initialized database.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d;", SchemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
