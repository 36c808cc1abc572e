package sqldb

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"

	"aviation/internal/storage"
	"aviation/internal/table"
)

// plainDialect renders statements itself; flavoredDialect defers to
// go-sqlbuilder.
type plainDialect struct{}

func (plainDialect) Name() string { return "plain" }
func (plainDialect) Table(id storage.TableID) string { return id.Schema + "." + id.Name }
func (plainDialect) QuoteIdent(name string) string { return QuoteWith(name, `"`, `"`) }
func (plainDialect) Placeholder(int) string { return "?" }
func (plainDialect) MaxParams() int { return 100 }
func (plainDialect) MapType(t table.Type) string { return string(t) }
func (plainDialect) ColumnType(*sql.ColumnType) table.Type { return table.String }
func (plainDialect) Bind(v any) any { return v }
func (plainDialect) ExistsSQL(storage.TableID) (string, []any) { return "", nil }
func (plainDialect) EnsureSchemaSQL(storage.TableID) []string { return nil }
func (plainDialect) DropSQL(storage.TableID) string { return "" }
func (plainDialect) Replace() ReplaceMode { return ReplaceInTx }
func (plainDialect) SwapSQL(_, _ storage.TableID) []string { return nil }

type flavoredDialect struct{ plainDialect }

func (flavoredDialect) Flavor() sqlbuilder.Flavor { return sqlbuilder.SQLServer }

func (flavoredDialect) QuoteIdent(name string) string { return QuoteWith(name, "[", "]") }

var (
	testID   = storage.TableID{Schema: "airlines", Name: "SILVER_AIRPORTS"}
	testRows = []table.Row{{"ATL", int64(1)}, {"LAX", nil}}
)

func TestInsertSQLUsesFlavorPlaceholders(t *testing.T) {
	r := New(nil, flavoredDialect{})
	stmt, args := r.insertSQL(testID, []string{"[IATA_CODE]", "[N]"}, testRows)

	for _, want := range []string{"INSERT INTO airlines.SILVER_AIRPORTS", "[IATA_CODE]", "@p1", "@p4"} {
		if !strings.Contains(stmt, want) {
			t.Fatalf("stmt %q does not contain %q", stmt, want)
		}
	}
	if strings.Contains(stmt, "?") {
		t.Fatalf("stmt %q has generic placeholders", stmt)
	}
	if len(args) != 4 || args[0] != "ATL" || args[3] != nil {
		t.Fatalf("args = %v", args)
	}
}

func TestInsertSQLWithoutFlavor(t *testing.T) {
	r := New(nil, plainDialect{})
	stmt, args := r.insertSQL(testID, []string{`"IATA_CODE"`, `"N"`}, testRows)

	want := `INSERT INTO airlines.SILVER_AIRPORTS ("IATA_CODE", "N") VALUES (?, ?), (?, ?)`
	if stmt != want {
		t.Fatalf("stmt = %q; want %q", stmt, want)
	}
	if len(args) != 4 || args[2] != "LAX" {
		t.Fatalf("args = %v", args)
	}
}

func TestCreateSQL(t *testing.T) {
	cols := []table.Column{{Name: "IATA_CODE", Type: table.String}, {Name: "LATITUDE", Type: table.Float}}

	for _, d := range []Dialect{plainDialect{}, flavoredDialect{}} {
		r := New(nil, d)
		stmt, err := r.createSQL(testID, cols, true)
		if err != nil {
			t.Fatalf("%T: %v", d, err)
		}
		for _, want := range []string{"CREATE TABLE IF NOT EXISTS airlines.SILVER_AIRPORTS", "IATA_CODE", "LATITUDE FLOAT"} {
			if !strings.Contains(strings.NewReplacer(`"`, "", "[", "", "]", "").Replace(stmt), want) {
				t.Fatalf("%T: stmt %q does not contain %q", d, stmt, want)
			}
		}
		if _, err := r.createSQL(testID, nil, false); err == nil {
			t.Fatalf("%T: expected error for a table without columns", d)
		}
	}
}
