package mysql

import (
	"database/sql"

	"github.com/huandu/go-sqlbuilder"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
	"aviation/internal/table"
)

// dialect renders MySQL statements. MySQL has no level between database and
// table, so a TableID schema maps to a MySQL database and the database part
// is ignored.
type dialect struct{}

var (
	_ sqldb.Dialect  = dialect{}
	_ sqldb.Flavored = dialect{}
)

func (dialect) Flavor() sqlbuilder.Flavor { return sqlbuilder.MySQL }

func (dialect) Name() string { return "mysql" }

func (dialect) Table(id storage.TableID) string {
	if id.Schema == "" {
		return myIdent(id.Name)
	}
	return myIdent(id.Schema) + "." + myIdent(id.Name)
}

func (dialect) QuoteIdent(name string) string { return myIdent(name) }

func (dialect) Placeholder(int) string { return "?" }

func (dialect) MaxParams() int { return 65535 }

// MapType uses TINYINT(1) only for booleans so ColumnType can map it back.
func (dialect) MapType(t table.Type) string {
	switch t {
	case table.Int:
		return "BIGINT"
	case table.Float:
		return "DOUBLE"
	case table.Bool:
		return "TINYINT(1)"
	case table.Timestamp:
		return "DATETIME(6)"
	case table.Date:
		return "DATE"
	}
	return "LONGTEXT"
}

func (dialect) ColumnType(ct *sql.ColumnType) table.Type {
	switch sqldb.BaseType(ct.DatabaseTypeName()) {
	case "TINYINT":
		return table.Bool
	case "TEXT", "LONGTEXT", "MEDIUMTEXT", "VARCHAR", "CHAR":
		return table.String
	}
	return sqldb.GenericColumnType(ct.DatabaseTypeName())
}

func (dialect) Bind(v any) any { return v }

func (dialect) ExistsSQL(id storage.TableID) (string, []any) {
	if id.Schema == "" {
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
			[]any{id.Name}
	}
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		[]any{id.Schema, id.Name}
}

func (dialect) EnsureSchemaSQL(id storage.TableID) []string {
	if id.Schema == "" {
		return nil
	}
	return []string{"CREATE DATABASE IF NOT EXISTS " + myIdent(id.Schema)}
}

func (d dialect) DropSQL(id storage.TableID) string {
	return "DROP TABLE IF EXISTS " + d.Table(id)
}

// MySQL DDL commits implicitly, so replacement fills a staging table and
// swaps it in with a single multi-table RENAME, which is atomic.
func (dialect) Replace() sqldb.ReplaceMode { return sqldb.ReplaceBySwap }

func (d dialect) SwapSQL(target, staging storage.TableID) []string {
	old := target.WithSuffix("__OLD")
	return []string{
		d.DropSQL(old),
		"RENAME TABLE " + d.Table(target) + " TO " + d.Table(old) + ", " + d.Table(staging) + " TO " + d.Table(target),
		d.DropSQL(old),
	}
}

func myIdent(s string) string { return sqldb.QuoteWith(s, "`", "`") }
