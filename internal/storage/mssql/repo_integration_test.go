//go:build integration

package mssql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"aviation/internal/storage"
	"aviation/internal/table"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
// If it is empty, the caller should skip the test.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

func TestReplaceAndReadIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	defer closeFn()

	id := storage.TableID{Schema: "airlines_it", Name: "SILVER_AIRLINES"}
	in := table.New([]table.Column{
		{Name: "IATA_CODE", Type: table.String},
		{Name: "FLEET", Type: table.Int},
		{Name: "LOAD_TIMESTAMP", Type: table.Timestamp},
	})
	in.Rows = []table.Row{
		{"UA", int64(900), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"AA", nil, nil},
	}
	for i := 0; i < 2; i++ {
		if err := repo.ReplaceTable(ctx, id, in); err != nil {
			t.Fatalf("ReplaceTable #%d: %v", i+1, err)
		}
	}
	out, err := repo.ReadTable(ctx, id)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("rows=%d; want 2", out.Len())
	}

	_, err = repo.ReadTable(ctx, storage.TableID{Schema: "airlines_it", Name: "MISSING"})
	if !errors.Is(err, storage.ErrTableNotFound) {
		t.Fatalf("err=%v; want ErrTableNotFound", err)
	}
}
