// Package mssql wires the SQL Server backend into the storage factory.
package mssql

import (
	"context"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}

// wrappedRepo adapts *sqldb.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*sqldb.Repository
	closeFn func()
}

func (w *wrappedRepo) Close() { w.closeFn() }
