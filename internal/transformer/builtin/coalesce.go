package builtin

import (
	"fmt"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// Coalesce replaces nulls in a column with a literal. Non-null values are
// never touched. The literal is converted to the column's type when the rule
// set is compiled.
type Coalesce struct {
	Column  string
	Default any
}

func (c Coalesce) Kind() string { return KindCoalesce }

func (c Coalesce) String() string {
	if s, ok := c.Default.(string); ok {
		return fmt.Sprintf("coalesce(%s, '%s')", c.Column, s)
	}
	return fmt.Sprintf("coalesce(%s, %v)", c.Column, c.Default)
}

func (c Coalesce) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	ix, err := transformer.Lookup(cols, c.Column)
	if err != nil {
		return nil, nil, err
	}
	if c.Default == nil {
		return nil, nil, fmt.Errorf("default must not be null")
	}
	typ := cols[ix].Type
	def := table.Normalize(c.Default, typ)
	if def == nil {
		return nil, nil, fmt.Errorf("default %v cannot be represented as %s", c.Default, typ)
	}

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		for _, r := range t.Rows {
			if r[ix] == nil {
				r[ix] = def
			}
		}
		return nil
	})
	return step, cols, nil
}
