// Package sqldb implements storage.Repository on top of database/sql. Each
// backend supplies a Dialect describing its quoting, placeholders, type names
// and how a table is replaced atomically.
package sqldb

import (
	"database/sql"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"aviation/internal/storage"
	"aviation/internal/table"
)

// ReplaceMode selects how ReplaceTable achieves atomicity.
type ReplaceMode int

const (
	// ReplaceInTx drops, recreates and fills the table inside one
	// transaction. Requires transactional DDL.
	ReplaceInTx ReplaceMode = iota

	// ReplaceBySwap fills a staging table and swaps it with the target using
	// the statements returned by Dialect.SwapSQL.
	ReplaceBySwap
)

// Dialect captures the SQL differences between backends.
type Dialect interface {
	// Name is the storage kind, used in error messages.
	Name() string

	// Table renders a qualified, quoted table name.
	Table(id storage.TableID) string

	// QuoteIdent quotes a column name.
	QuoteIdent(name string) string

	// Placeholder returns the bind marker of the n-th (1-based) parameter.
	Placeholder(n int) string

	// MaxParams bounds the parameters of a single statement.
	MaxParams() int

	// MapType returns the column type used to store t.
	MapType(t table.Type) string

	// ColumnType maps a result column back to a logical type.
	ColumnType(ct *sql.ColumnType) table.Type

	// Bind converts a row value into a driver argument.
	Bind(v any) any

	// ExistsSQL returns a query yielding a single integer, non-zero when id
	// exists.
	ExistsSQL(id storage.TableID) (string, []any)

	// EnsureSchemaSQL returns the statements creating the containers of id,
	// or nil.
	EnsureSchemaSQL(id storage.TableID) []string

	// DropSQL drops id if it exists.
	DropSQL(id storage.TableID) string

	// Replace selects the replace strategy.
	Replace() ReplaceMode

	// SwapSQL exchanges staging and target. Used with ReplaceBySwap; target
	// exists when it is called.
	SwapSQL(target, staging storage.TableID) []string
}

// Flavored is implemented by dialects go-sqlbuilder can render. Their CREATE
// TABLE and INSERT statements are built with the flavor; the others are
// rendered by the ddl package and Placeholder.
type Flavored interface {
	Flavor() sqlbuilder.Flavor
}

// QuoteWith wraps name in open/close, doubling embedded close characters.
func QuoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// BaseType strips a length or precision suffix and upper-cases a database
// type name, e.g. "varchar(255)" -> "VARCHAR".
func BaseType(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

// GenericColumnType maps common SQL type names to logical types. Backends
// fall back to it after handling their own names.
func GenericColumnType(dbType string) table.Type {
	switch BaseType(dbType) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "INT2", "INT4", "INT8", "MEDIUMINT":
		return table.Int
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "DECIMAL", "NUMERIC":
		return table.Float
	case "BOOL", "BOOLEAN", "BIT":
		return table.Bool
	case "TIMESTAMP", "DATETIME", "DATETIME2", "TIMESTAMPTZ", "TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ", "SMALLDATETIME", "DATETIMEOFFSET":
		return table.Timestamp
	case "DATE":
		return table.Date
	}
	return table.String
}
