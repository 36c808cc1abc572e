// Package mysql implements the MySQL warehouse backend on top of
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"aviation/internal/storage/sqldb"
)

// Config holds MySQL repository configuration.
type Config struct {
	// DSN uses the driver format, e.g. "etl:secret@tcp(localhost:3306)/aviation".
	DSN string
}

// NewRepository connects and returns a repository plus a Close function.
// Timestamps are always decoded into time.Time in UTC regardless of the DSN.
func NewRepository(ctx context.Context, cfg Config) (*sqldb.Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC

	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return sqldb.New(db, dialect{}), closeFn, nil
}
