package snowflake

import (
	"context"
	"errors"
	"testing"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
)

func TestDialectTable(t *testing.T) {
	d := dialect{}
	id := storage.MustParseTableID("aviation_project.airlines.SILVER_AIRPORTS")
	if got, want := d.Table(id), "aviation_project.airlines.SILVER_AIRPORTS"; got != want {
		t.Fatalf("Table() = %q, want %q", got, want)
	}
	if got, want := d.QuoteIdent("AIRLINE NAME"), `"AIRLINE NAME"`; got != want {
		t.Fatalf("QuoteIdent() = %q, want %q", got, want)
	}
}

func TestDialectExistsSQLResolvesCase(t *testing.T) {
	d := dialect{}
	q, args := d.ExistsSQL(storage.MustParseTableID("aviation_project.airlines.silver_airports"))
	if want := "SELECT COUNT(*) FROM aviation_project.INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?"; q != want {
		t.Fatalf("query = %q\nwant %q", q, want)
	}
	if len(args) != 2 || args[0] != "AIRLINES" || args[1] != "SILVER_AIRPORTS" {
		t.Fatalf("args = %v", args)
	}
}

func TestDialectSwap(t *testing.T) {
	d := dialect{}
	if d.Replace() != sqldb.ReplaceBySwap {
		t.Fatalf("snowflake must replace by swap")
	}
	target := storage.MustParseTableID("aviation_project.airlines.SILVER_AIRLINES")
	stmts := d.SwapSQL(target, target.WithSuffix(sqldb.StagingSuffix))
	want := "ALTER TABLE aviation_project.airlines.SILVER_AIRLINES SWAP WITH aviation_project.airlines.SILVER_AIRLINES__STAGING"
	if len(stmts) != 1 || stmts[0] != want {
		t.Fatalf("SwapSQL = %q", stmts)
	}
	schema := d.EnsureSchemaSQL(target)
	if len(schema) != 1 || schema[0] != "CREATE SCHEMA IF NOT EXISTS aviation_project.airlines" {
		t.Fatalf("EnsureSchemaSQL = %q", schema)
	}
}

func TestRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	wantErr := errors.New("no network in tests")
	newRepository = func(ctx context.Context, cfg Config) (*sqldb.Repository, func(), error) {
		if cfg.DSN != "u:p@acct/db/schema" {
			t.Errorf("DSN = %q", cfg.DSN)
		}
		return nil, nil, wantErr
	}
	_, err := storage.New(context.Background(), storage.Config{Kind: "snowflake", DSN: "u:p@acct/db/schema"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}
