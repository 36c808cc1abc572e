package builtin

import (
	"fmt"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// Derive computes a column from an expression over columns materialized by
// earlier rules, e.g. "DEPARTURE_DELAY + ARRIVAL_DELAY". If any column the
// expression reads is null, the result is null.
//
// Type is the declared result type. When empty it is the static type of the
// expression, and an expression without one is rejected.
type Derive struct {
	Column string
	Expr   string
	Type   table.Type
}

func (d Derive) Kind() string { return KindDerive }

func (d Derive) String() string { return fmt.Sprintf("derive(%s, %s)", d.Column, d.Expr) }

func (d Derive) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	if d.Column == "" {
		return nil, nil, fmt.Errorf("target column must not be empty")
	}
	if d.Type != "" {
		if _, err := table.ParseType(string(d.Type)); err != nil {
			return nil, nil, err
		}
	}
	re, err := compileRowExpr(d.Expr, cols)
	if err != nil {
		return nil, nil, err
	}
	typ := d.Type
	if typ == "" {
		if typ = re.resultType(); typ == "" {
			return nil, nil, fmt.Errorf("cannot infer the type of %q; set options.type", d.Expr)
		}
	}

	next := append([]table.Column(nil), cols...)
	ix, lerr := transformer.Lookup(cols, d.Column)
	appendCol := lerr != nil
	if appendCol {
		ix = len(next)
		next = append(next, table.Column{Name: d.Column, Type: typ})
	} else {
		next[ix].Type = typ
	}

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		vals := make([]any, len(t.Rows))
		for i, r := range t.Rows {
			if re.hasNullRef(r) {
				continue
			}
			v, err := re.eval(r)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[i] = table.Cast(table.Normalize(v, ""), typ)
		}

		col := table.Column{Name: d.Column, Type: typ}
		if appendCol {
			t.Columns = append(t.Columns, col)
			for i, r := range t.Rows {
				t.Rows[i] = append(r, vals[i])
			}
			return nil
		}
		t.Columns[ix] = col
		for i, r := range t.Rows {
			r[ix] = vals[i]
		}
		return nil
	})
	return step, next, nil
}
