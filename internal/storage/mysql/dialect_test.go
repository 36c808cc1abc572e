package mysql

import (
	"context"
	"testing"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
	"aviation/internal/table"
)

// TestMyIdent verifies that myIdent backtick-quotes identifiers and escapes
// backticks by doubling them.
func TestMyIdent(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"simple", "`simple`"},
		{"tick`name", "`tick``name`"},
		{"weird``x", "`weird````x`"},
	}
	for _, tc := range cases {
		if got := myIdent(tc.in); got != tc.want {
			t.Fatalf("myIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestDialectTable(t *testing.T) {
	d := dialect{}
	cases := []struct {
		id   storage.TableID
		want string
	}{
		{storage.TableID{Name: "T"}, "`T`"},
		{storage.TableID{Schema: "airlines", Name: "SILVER_AIRLINES"}, "`airlines`.`SILVER_AIRLINES`"},
		{storage.TableID{Database: "aviation_project", Schema: "airlines", Name: "X"}, "`airlines`.`X`"},
	}
	for _, tc := range cases {
		if got := d.Table(tc.id); got != tc.want {
			t.Fatalf("Table(%v) = %q; want %q", tc.id, got, tc.want)
		}
	}
}

func TestDialectSwap(t *testing.T) {
	d := dialect{}
	if d.Replace() != sqldb.ReplaceBySwap {
		t.Fatalf("mysql must replace by swap")
	}
	target := storage.TableID{Schema: "airlines", Name: "SILVER_AIRPORTS"}
	stmts := d.SwapSQL(target, target.WithSuffix(sqldb.StagingSuffix))
	if len(stmts) != 3 {
		t.Fatalf("SwapSQL returned %d statements", len(stmts))
	}
	want := "RENAME TABLE `airlines`.`SILVER_AIRPORTS` TO `airlines`.`SILVER_AIRPORTS__OLD`, " +
		"`airlines`.`SILVER_AIRPORTS__STAGING` TO `airlines`.`SILVER_AIRPORTS`"
	if stmts[1] != want {
		t.Fatalf("rename = %q\nwant %q", stmts[1], want)
	}
}

func TestDialectExistsSQL(t *testing.T) {
	d := dialect{}
	q, args := d.ExistsSQL(storage.TableID{Name: "T"})
	if len(args) != 1 || args[0] != "T" {
		t.Fatalf("args = %v", args)
	}
	if q == "" {
		t.Fatalf("empty query")
	}
	_, args = d.ExistsSQL(storage.TableID{Schema: "s", Name: "T"})
	if len(args) != 2 || args[0] != "s" {
		t.Fatalf("args = %v", args)
	}
}

func TestMapTypeRoundTripsBool(t *testing.T) {
	if got := (dialect{}).MapType(table.Bool); got != "TINYINT(1)" {
		t.Fatalf("MapType(Bool) = %q", got)
	}
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected DSN parse error")
	}
}
