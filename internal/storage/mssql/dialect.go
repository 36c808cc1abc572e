package mssql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
	"aviation/internal/table"
)

// dialect renders SQL Server statements. The database part of a TableID is
// ignored; the connection's database holds every table.
type dialect struct{}

var (
	_ sqldb.Dialect  = dialect{}
	_ sqldb.Flavored = dialect{}
)

func (dialect) Flavor() sqlbuilder.Flavor { return sqlbuilder.SQLServer }

func (dialect) Name() string { return "mssql" }

func (dialect) Table(id storage.TableID) string {
	if id.Schema == "" {
		return msIdent(id.Name)
	}
	return msIdent(id.Schema) + "." + msIdent(id.Name)
}

func (dialect) QuoteIdent(name string) string { return msIdent(name) }

func (dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

// SQL Server accepts at most 2100 parameters per request.
func (dialect) MaxParams() int { return 2000 }

func (dialect) MapType(t table.Type) string {
	switch t {
	case table.Int:
		return "BIGINT"
	case table.Float:
		return "FLOAT"
	case table.Bool:
		return "BIT"
	case table.Timestamp:
		return "DATETIME2"
	case table.Date:
		return "DATE"
	}
	return "NVARCHAR(MAX)"
}

func (dialect) ColumnType(ct *sql.ColumnType) table.Type {
	return sqldb.GenericColumnType(ct.DatabaseTypeName())
}

func (dialect) Bind(v any) any { return v }

func (d dialect) ExistsSQL(id storage.TableID) (string, []any) {
	return "SELECT CASE WHEN OBJECT_ID(@p1, N'U') IS NULL THEN 0 ELSE 1 END", []any{d.Table(id)}
}

func (dialect) EnsureSchemaSQL(id storage.TableID) []string {
	if id.Schema == "" {
		return nil
	}
	lit := strings.ReplaceAll(id.Schema, "'", "''")
	stmt := strings.ReplaceAll(msIdent(id.Schema), "'", "''")
	return []string{fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s')", lit, stmt)}
}

func (d dialect) DropSQL(id storage.TableID) string {
	return "DROP TABLE IF EXISTS " + d.Table(id)
}

func (dialect) Replace() sqldb.ReplaceMode { return sqldb.ReplaceInTx }

func (dialect) SwapSQL(storage.TableID, storage.TableID) []string { return nil }

func msIdent(s string) string { return sqldb.QuoteWith(s, "[", "]") }
