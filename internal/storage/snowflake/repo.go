// Package snowflake implements the Snowflake warehouse backend on top of
// gosnowflake. Snowflake DDL commits implicitly, so a table is replaced by
// filling a staging table and exchanging it with ALTER TABLE ... SWAP WITH.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"

	"aviation/internal/storage/sqldb"
)

// Config holds Snowflake repository configuration.
type Config struct {
	// DSN uses the gosnowflake format, e.g.
	// "user:password@account/aviation_project/airlines?warehouse=COMPUTE_WH".
	DSN string
}

// NewRepository connects and returns a repository plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*sqldb.Repository, func(), error) {
	sc, err := sf.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("snowflake dsn: %w", err)
	}
	db := sql.OpenDB(sf.NewConnector(sf.SnowflakeDriver{}, *sc))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("snowflake: ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return sqldb.New(db, dialect{}), closeFn, nil
}
