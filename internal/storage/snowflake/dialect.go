package snowflake

import (
	"database/sql"
	"regexp"
	"strings"
	"time"

	"aviation/internal/storage"
	"aviation/internal/storage/sqldb"
	"aviation/internal/table"
)

var simpleIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// dialect renders Snowflake statements. Simple identifiers are emitted
// unquoted, which Snowflake resolves upper-cased, so
// aviation_project.airlines.SILVER_AIRPORTS names the same table a worksheet
// user would type.
type dialect struct{}

var _ sqldb.Dialect = dialect{}

func (dialect) Name() string { return "snowflake" }

func (dialect) Table(id storage.TableID) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{id.Database, id.Schema, id.Name} {
		if p != "" {
			parts = append(parts, sfIdent(p))
		}
	}
	return strings.Join(parts, ".")
}

func (dialect) QuoteIdent(name string) string { return sfIdent(name) }

func (dialect) Placeholder(int) string { return "?" }

func (dialect) MaxParams() int { return 10000 }

func (dialect) MapType(t table.Type) string {
	switch t {
	case table.Int:
		return "NUMBER(38,0)"
	case table.Float:
		return "FLOAT"
	case table.Bool:
		return "BOOLEAN"
	case table.Timestamp:
		return "TIMESTAMP_NTZ"
	case table.Date:
		return "DATE"
	}
	return "VARCHAR"
}

// ColumnType maps FIXED to Int or Float by scale.
func (dialect) ColumnType(ct *sql.ColumnType) table.Type {
	if sqldb.BaseType(ct.DatabaseTypeName()) == "FIXED" {
		if _, scale, ok := ct.DecimalSize(); ok && scale > 0 {
			return table.Float
		}
		return table.Int
	}
	switch sqldb.BaseType(ct.DatabaseTypeName()) {
	case "TEXT":
		return table.String
	case "REAL":
		return table.Float
	}
	return sqldb.GenericColumnType(ct.DatabaseTypeName())
}

// Bind sends timestamps as text; Snowflake converts them on insert into a
// TIMESTAMP_NTZ column without a session time zone shift.
func (dialect) Bind(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.UTC().Format(table.TimestampLayout)
	}
	return v
}

func (dialect) ExistsSQL(id storage.TableID) (string, []any) {
	from := "INFORMATION_SCHEMA.TABLES"
	if id.Database != "" {
		from = sfIdent(id.Database) + "." + from
	}
	if id.Schema == "" {
		return "SELECT COUNT(*) FROM " + from + " WHERE TABLE_SCHEMA = CURRENT_SCHEMA() AND TABLE_NAME = ?",
			[]any{resolved(id.Name)}
	}
	return "SELECT COUNT(*) FROM " + from + " WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?",
		[]any{resolved(id.Schema), resolved(id.Name)}
}

func (d dialect) EnsureSchemaSQL(id storage.TableID) []string {
	if id.Schema == "" {
		return nil
	}
	return []string{"CREATE SCHEMA IF NOT EXISTS " + d.Table(storage.TableID{Database: id.Database, Name: id.Schema})}
}

func (d dialect) DropSQL(id storage.TableID) string {
	return "DROP TABLE IF EXISTS " + d.Table(id)
}

func (dialect) Replace() sqldb.ReplaceMode { return sqldb.ReplaceBySwap }

// SwapSQL exchanges the tables atomically; the old contents end up in the
// staging table, which the repository drops afterwards.
func (d dialect) SwapSQL(target, staging storage.TableID) []string {
	return []string{"ALTER TABLE " + d.Table(target) + " SWAP WITH " + d.Table(staging)}
}

func sfIdent(s string) string {
	if simpleIdent.MatchString(s) {
		return s
	}
	return sqldb.QuoteWith(s, `"`, `"`)
}

// resolved is the catalog spelling of an identifier as emitted by sfIdent.
func resolved(s string) string {
	if simpleIdent.MatchString(s) {
		return strings.ToUpper(s)
	}
	return s
}
