package sqlite

import (
	"database/sql"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
	"aviation/internal/table"
)

// SQLite has no schemas worth mapping a namespace onto, so the dotted id is
// kept as a single quoted table name: "aviation_project.airlines.SILVER_AIRPORTS".
type dialect struct{}

var (
	_ sqldb.Dialect  = dialect{}
	_ sqldb.Flavored = dialect{}
)

func (dialect) Flavor() sqlbuilder.Flavor { return sqlbuilder.SQLite }

func (dialect) Name() string { return "sqlite" }

func (dialect) Table(id storage.TableID) string { return quoteIdent(id.String()) }

func (dialect) QuoteIdent(name string) string { return quoteIdent(name) }

func (dialect) Placeholder(int) string { return "?" }

// SQLITE_MAX_VARIABLE_NUMBER defaults to 32766 since 3.32.
func (dialect) MaxParams() int { return 32766 }

// MapType maps a logical type to a declared column type. The declared names
// are chosen so that ColumnType maps them back unambiguously.
func (dialect) MapType(t table.Type) string {
	switch t {
	case table.Int:
		return "INTEGER"
	case table.Float:
		return "REAL"
	case table.Bool:
		return "BOOLEAN"
	case table.Timestamp:
		return "TIMESTAMP"
	case table.Date:
		return "DATE"
	}
	return "TEXT"
}

func (dialect) ColumnType(ct *sql.ColumnType) table.Type {
	return sqldb.GenericColumnType(ct.DatabaseTypeName())
}

// Bind stores timestamps as UTC ISO-8601 text and booleans as 0/1.
func (dialect) Bind(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(table.TimestampLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func (dialect) ExistsSQL(id storage.TableID) (string, []any) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{id.String()}
}

func (dialect) EnsureSchemaSQL(storage.TableID) []string { return nil }

func (d dialect) DropSQL(id storage.TableID) string {
	return "DROP TABLE IF EXISTS " + d.Table(id)
}

func (dialect) Replace() sqldb.ReplaceMode { return sqldb.ReplaceInTx }

func (dialect) SwapSQL(storage.TableID, storage.TableID) []string { return nil }

func quoteIdent(id string) string { return sqldb.QuoteWith(id, `"`, `"`) }
