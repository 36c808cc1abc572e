package sqlite

import (
	"context"
	"testing"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
)

// The "sqlite" factory must go through the newRepository hook and wire Close
// to the returned cleanup function.
func TestSQLiteStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		called bool
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*sqldb.Repository, func(), error) {
		called = true
		gotCfg = cfg
		return &sqldb.Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:test.db"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
	if gotCfg.DSN != "file:test.db" {
		t.Errorf("hook cfg.DSN = %q", gotCfg.DSN)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not invoke cleanup")
	}
}

func TestNewRepositoryRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
