package builtin

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// Normalization functions understood by Normalize.
const (
	FnUpper   = "upper"
	FnLower   = "lower"
	FnTrim    = "trim"
	FnInitcap = "initcap"
)

// Normalize applies pure string functions to every string value of a column,
// in the listed order. Nulls and non-string values are left untouched.
type Normalize struct {
	Column string
	Funcs  []string
}

func (n Normalize) Kind() string { return KindNormalize }

func (n Normalize) String() string {
	return fmt.Sprintf("normalize(%s, %s)", n.Column, strings.Join(n.Funcs, "+"))
}

func (n Normalize) Compile(cols []table.Column) (transformer.Step, []table.Column, error) {
	ix, err := transformer.Lookup(cols, n.Column)
	if err != nil {
		return nil, nil, err
	}
	if len(n.Funcs) == 0 {
		return nil, nil, fmt.Errorf("no functions given")
	}
	for _, fn := range n.Funcs {
		switch fn {
		case FnUpper, FnLower, FnTrim, FnInitcap:
		default:
			return nil, nil, fmt.Errorf("unknown normalize function %q", fn)
		}
	}

	step := transformer.StepFunc(func(t *table.Table, _ transformer.Env) error {
		// Casers keep state and are not safe for concurrent use; build them
		// per application.
		fns := make([]func(string) string, len(n.Funcs))
		for i, fn := range n.Funcs {
			fns[i] = stringFunc(fn)
		}
		for _, r := range t.Rows {
			s, ok := r[ix].(string)
			if !ok {
				continue
			}
			for _, f := range fns {
				s = f(s)
			}
			r[ix] = s
		}
		return nil
	})
	return step, cols, nil
}

func stringFunc(name string) func(string) string {
	switch name {
	case FnUpper:
		c := cases.Upper(language.Und)
		return c.String
	case FnLower:
		c := cases.Lower(language.Und)
		return c.String
	case FnInitcap:
		c := cases.Title(language.Und)
		return c.String
	default:
		return trim
	}
}

// trim strips surrounding whitespace and turns non-breaking spaces, common in
// spreadsheet exports, into plain spaces.
func trim(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}
