// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// Dialect concerns stay with the caller: identifier quoting is supplied via
// Options and the table name is emitted exactly as given.
package ddl

import (
	"fmt"
	"strings"

	"aviation/internal/table"
)

// ColumnDef describes a single column.
//
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the rendered table name and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Options tunes rendering for a dialect.
type Options struct {
	// QuoteIdent quotes a column name. nil emits names as-is.
	QuoteIdent func(string) string

	// IfNotExists adds IF NOT EXISTS after CREATE TABLE.
	IfNotExists bool
}

// FromColumns builds a TableDef of nullable columns whose SQL types come from
// mapType.
func FromColumns(fqn string, cols []table.Column, mapType func(table.Type) string) TableDef {
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(cols))}
	for _, c := range cols {
		td.Columns = append(td.Columns, ColumnDef{
			Name:     c.Name,
			SQLType:  mapType(c.Type),
			Nullable: true,
		})
	}
	return td
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef:
//
//	CREATE TABLE [IF NOT EXISTS] <FQN> (
//	  <col1> <type> [NOT NULL] [DEFAULT <expr>],
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	)
//
// Names, types and defaults are trimmed. Default is emitted as raw SQL.
func BuildCreateTableSQL(t TableDef, opts Options) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	quote := opts.QuoteIdent
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if opts.IfNotExists {
		create += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n)", create, fqn, strings.Join(cols, ",\n  ")), nil
}
