// Package builtin contains the rule kinds available to dataset rule sets.
package builtin

import (
	"fmt"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// Cast reinterprets a column as another type. Values that cannot be
// represented in the target type become null; the row is kept.
type Cast struct {
	Column string
	To     table.Type
}

func (c Cast) Kind() string { return KindCast }

func (c Cast) String() string { return fmt.Sprintf("cast(%s, %s)", c.Column, c.To) }

func (c Cast) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	ix, err := transformer.Lookup(cols, c.Column)
	if err != nil {
		return nil, nil, err
	}
	if _, err := table.ParseType(string(c.To)); err != nil {
		return nil, nil, err
	}
	next := append([]table.Column(nil), cols...)
	next[ix].Type = c.To

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		t.Columns[ix].Type = c.To
		for _, r := range t.Rows {
			r[ix] = table.Cast(r[ix], c.To)
		}
		return nil
	})
	return step, next, nil
}
