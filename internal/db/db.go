package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/bssh/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the database file inside the base directory.
const FileName = "bssh.db"

// schemaV1 holds connection profiles and their launch history.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS connections (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  name_norm     TEXT NOT NULL,
  host          TEXT NOT NULL,
  user_name     TEXT NOT NULL,
  port          INTEGER NOT NULL,
  bastion       TEXT,
  bastion_user  TEXT,
  use_kerberos  INTEGER NOT NULL DEFAULT 0,
  key_path      TEXT,
  tags_json     TEXT,
  created_at    INTEGER NOT NULL,
  last_used_at  INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_name_norm
ON connections(name_norm);

CREATE INDEX IF NOT EXISTS idx_connections_last_used
ON connections(last_used_at DESC);

CREATE TABLE IF NOT EXISTS sessions (
  id             TEXT PRIMARY KEY,
  connection_id  TEXT NOT NULL REFERENCES connections(id) ON DELETE CASCADE,
  started_at     INTEGER NOT NULL,
  ended_at       INTEGER,
  status         TEXT NOT NULL,
  pid            INTEGER,
  exit_code      INTEGER,
  error          TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_connection_started
ON sessions(connection_id, started_at DESC);

CREATE INDEX IF NOT EXISTS idx_sessions_started
ON sessions(started_at DESC);
`

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = []string{
	schemaV1,
}

// CurrentSchemaVersion is the user_version after all migrations ran.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) baseDir/bssh.db and brings its schema up
// to date. It also creates the exports and logs directories next to it.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports"), filepath.Join(baseDir, "logs")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700)
	}

	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := context.Background()
	if err := expectPragma(ctx, db, "journal_mode", "wal"); err != nil {
		db.Close()
		return nil, err
	}
	if err := expectPragma(ctx, db, "foreign_keys", "1"); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// ConfigurePool applies the configured pool limits; zero leaves the
// database/sql default in place.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs each pending migration in its own transaction together with
// the user_version bump, so a failed step leaves the previous version intact.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if err := setUserVersion(ctx, tx, v+1); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", v+1, err)
		}
	}
	return nil
}

// expectPragma fails unless PRAGMA name reports want. The DSN sets these on
// every pooled connection; this catches drivers that ignore _pragma.
func expectPragma(ctx context.Context, q Querier, name, want string) error {
	var got string
	if err := q.QueryRowContext(ctx, "PRAGMA "+name).Scan(&got); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("expected %s=%s, got %s", name, want, got)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	return userVersion(context.Background(), db)
}

// SetUserVersion overwrites the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	return setUserVersion(context.Background(), db, version)
}

func userVersion(ctx context.Context, q Querier) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(ctx context.Context, q Querier, version int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
