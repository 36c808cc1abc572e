// Package sqlite implements the SQLite warehouse backend using database/sql
// and the pure-Go modernc.org/sqlite driver. Table replacement runs inside a
// single transaction; SQLite DDL is transactional.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"aviation/internal/storage/sqldb"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:aviation.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string
}

// Open opens a SQLite pool limited to one connection. SQLite serializes
// writers anyway, and a single connection keeps ":memory:" databases alive
// for the lifetime of the pool.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewRepository opens a SQLite database and returns a repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*sqldb.Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { _ = db.Close() }
	return sqldb.New(db, dialect{}), closeFn, nil
}
