// Package table holds the in-memory representation of a warehouse table as it
// flows through the Silver layer: an ordered, typed column list plus rows of
// positional values.
//
// Values inside a row are always one of:
//
//	nil (SQL NULL), string, int64, float64, bool, time.Time
//
// Readers normalize driver values into that set (see Normalize) so rules and
// writers never have to deal with driver-specific representations.
package table

import (
	"fmt"
	"strings"
)

// Type is the logical type of a column.
type Type string

const (
	String    Type = "STRING"
	Int       Type = "INT"
	Float     Type = "FLOAT"
	Bool      Type = "BOOLEAN"
	Timestamp Type = "TIMESTAMP"
	Date      Type = "DATE"
)

// ParseType maps a type name (including common warehouse aliases) to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRING", "TEXT", "VARCHAR", "CHAR", "NVARCHAR":
		return String, nil
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "NUMBER":
		return Int, nil
	case "FLOAT", "DOUBLE", "REAL", "FLOAT8", "DOUBLE PRECISION":
		return Float, nil
	case "BOOLEAN", "BOOL":
		return Bool, nil
	case "TIMESTAMP", "DATETIME", "TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ", "TIMESTAMPTZ":
		return Timestamp, nil
	case "DATE":
		return Date, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// Column describes one column. Names are case-sensitive.
type Column struct {
	Name string
	Type Type
}

// Row is a positional row aligned with Table.Columns.
type Row []any

// Table is a fully materialized table.
type Table struct {
	Columns []Column
	Rows    []Row
}

// New returns an empty table with a copy of the given columns.
func New(cols []Column) *Table {
	return &Table{Columns: append([]Column(nil), cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Append adds a row after checking its width.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("row width %d != columns %d", len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Clone returns a copy whose column list and row slices can be modified
// without affecting t. Values are immutable and shared.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Column returns all values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	ix := t.Index(name)
	if ix < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[ix]
	}
	return out, nil
}
