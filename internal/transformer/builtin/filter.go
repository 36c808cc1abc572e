package builtin

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// NotNull drops every row in which any of the listed columns is null.
type NotNull struct {
	Columns []string
}

func (n NotNull) Kind() string { return KindFilter }

func (n NotNull) String() string {
	return fmt.Sprintf("filter(not_null(%s))", strings.Join(n.Columns, ", "))
}

func (n NotNull) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	if len(n.Columns) == 0 {
		return nil, nil, fmt.Errorf("no columns given")
	}
	ixs := make([]int, len(n.Columns))
	for i, name := range n.Columns {
		ix, err := transformer.Lookup(cols, name)
		if err != nil {
			return nil, nil, err
		}
		ixs[i] = ix
	}

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		t.Rows = keepRows(t.Rows, func(r table.Row) bool {
			for _, ix := range ixs {
				if r[ix] == nil {
					return false
				}
			}
			return true
		})
		return nil
	})
	return step, cols, nil
}

// Filter keeps the rows for which a boolean expression is true. A predicate
// that reads a null column and cannot be evaluated counts as null, and null
// rows are dropped.
type Filter struct {
	Expr string
}

func (f Filter) Kind() string { return KindFilter }

func (f Filter) String() string { return fmt.Sprintf("filter(%s)", f.Expr) }

func (f Filter) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	re, err := compileRowExpr(f.Expr, cols, expr.AsBool())
	if err != nil {
		return nil, nil, err
	}

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		var rowErr error
		t.Rows = keepRows(t.Rows, func(r table.Row) bool {
			if rowErr != nil {
				return false
			}
			v, err := re.eval(r)
			if err != nil {
				if re.hasNullRef(r) {
					return false
				}
				rowErr = err
				return false
			}
			switch b := v.(type) {
			case bool:
				return b
			case nil:
				return false
			default:
				rowErr = fmt.Errorf("predicate returned %T, want bool", v)
				return false
			}
		})
		return rowErr
	})
	return step, cols, nil
}

// keepRows filters rows in place.
func keepRows(rows []table.Row, keep func(table.Row) bool) []table.Row {
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	clear(rows[len(out):])
	return out
}
