package builtin

import (
	"fmt"
	"strings"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// DefaultLoadTimeColumn is the column written by StampLoadTime when none is
// configured.
const DefaultLoadTimeColumn = "LOAD_TIMESTAMP"

// StampLoadTime sets a timestamp column to the run's load time, adding the
// column when it does not exist yet. An existing column whose name differs
// only in case (Bronze lands "load_timestamp") is overwritten and renamed.
type StampLoadTime struct {
	Column string
}

func (s StampLoadTime) Kind() string { return KindStampLoadTime }

func (s StampLoadTime) String() string { return fmt.Sprintf("stamp_load_time(%s)", s.column()) }

// StampedColumn implements transformer.Stamper.
func (s StampLoadTime) StampedColumn() string { return s.column() }

func (s StampLoadTime) column() string {
	if s.Column == "" {
		return DefaultLoadTimeColumn
	}
	return s.Column
}

func (s StampLoadTime) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	name := s.column()
	next := append([]table.Column(nil), cols...)
	col := table.Column{Name: name, Type: table.Timestamp}
	ix := lookupFold(cols, name)
	appendCol := ix < 0
	if appendCol {
		ix = len(next)
		next = append(next, col)
	} else {
		next[ix] = col
	}

	step := transformer.StepFunc(func(t *table.Table, env transformer.Env) error {
		if env.Now.IsZero() {
			return fmt.Errorf("load time not set")
		}
		if appendCol {
			t.Columns = append(t.Columns, col)
			for i, r := range t.Rows {
				t.Rows[i] = append(r, env.Now)
			}
			return nil
		}
		t.Columns[ix] = col
		for _, r := range t.Rows {
			r[ix] = env.Now
		}
		return nil
	})
	return step, next, nil
}

// lookupFold prefers an exact match and falls back to a case-insensitive one.
func lookupFold(cols []table.Column, name string) int {
	if ix, err := transformer.Lookup(cols, name); err == nil {
		return ix
	}
	for i, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
