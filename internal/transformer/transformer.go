// Package transformer implements declarative rule sets: ordered lists of
// column operations that turn an input table into an output table.
//
// A RuleSet is compiled against the input schema before any row is touched.
// Compilation walks the rules in declared order, threading the schema each
// rule produces into the next one, so a rule may reference a column created or
// retyped by an earlier rule and every unknown column is reported up front.
//
// Applying a rule set never mutates its input and has no side effects: no
// logging, no I/O. The only per-run input is Env.
package transformer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aviation/internal/table"
)

// Env carries the per-run values a rule may depend on.
type Env struct {
	// Now is the load time stamped by stamp_load_time rules.
	Now time.Time
}

// Step executes one compiled rule against the working copy of the table.
// Steps may rewrite values, add columns, or drop rows of t in place.
type Step interface {
	Apply(t *table.Table, env Env) error
}

// StepFunc adapts a function to Step.
type StepFunc func(t *table.Table, env Env) error

// Apply implements Step.
func (f StepFunc) Apply(t *table.Table, env Env) error { return f(t, env) }

// Rule is one declarative operation.
type Rule interface {
	// Kind is the rule family, e.g. "cast" or "filter".
	Kind() string
	// String renders the rule for audit messages and error reports.
	String() string
	// Compile checks the rule against cols and returns the executable step
	// plus the schema after the rule.
	Compile(cols []table.Column) (Step, []table.Column, error)
}

// RuleError identifies the rule that failed to compile or apply.
type RuleError struct {
	Index int
	Rule  string
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule #%d %s: %v", e.Index+1, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// ErrUnknownColumn is returned (wrapped) when a rule references a column that
// does not exist at that point of the rule set.
var ErrUnknownColumn = errors.New("unknown column")

// RuleSet is an ordered list of rules.
type RuleSet []Rule

// Plan is a rule set compiled against a concrete input schema.
type Plan struct {
	Input  []table.Column
	Output []table.Column
	steps  []Step
	rules  RuleSet
}

// Compile validates the rule set against the input schema.
func (rs RuleSet) Compile(input []table.Column) (*Plan, error) {
	p := &Plan{
		Input: append([]table.Column(nil), input...),
		steps: make([]Step, 0, len(rs)),
		rules: rs,
	}
	cols := p.Input
	for i, r := range rs {
		step, next, err := r.Compile(cols)
		if err != nil {
			return nil, &RuleError{Index: i, Rule: r.String(), Err: err}
		}
		p.steps = append(p.steps, step)
		cols = next
	}
	p.Output = cols
	return p, nil
}

// Apply compiles the rule set against in.Columns and runs it.
func (rs RuleSet) Apply(in *table.Table, env Env) (*table.Table, error) {
	p, err := rs.Compile(in.Columns)
	if err != nil {
		return nil, err
	}
	return p.Apply(in, env)
}

// Apply runs the compiled steps on a copy of in.
func (p *Plan) Apply(in *table.Table, env Env) (*table.Table, error) {
	if !sameColumns(in.Columns, p.Input) {
		return nil, fmt.Errorf("input schema differs from the compiled schema")
	}
	out := in.Clone()
	for i, s := range p.steps {
		if err := s.Apply(out, env); err != nil {
			return nil, &RuleError{Index: i, Rule: p.rules[i].String(), Err: err}
		}
	}
	return out, nil
}

// Stamper is implemented by rules that write the run's load time into a
// column.
type Stamper interface {
	StampedColumn() string
}

// StampedColumns lists the columns written with the load time. Content
// comparisons between runs skip them.
func (rs RuleSet) StampedColumns() []string {
	var out []string
	for _, r := range rs {
		if s, ok := r.(Stamper); ok {
			out = append(out, s.StampedColumn())
		}
	}
	return out
}

// Describe renders the rule set as a single line.
func (rs RuleSet) Describe() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, "; ")
}

// Lookup returns the index of name in cols or an ErrUnknownColumn error.
func Lookup(cols []table.Column, name string) (int, error) {
	for i, c := range cols {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q", ErrUnknownColumn, name)
}

func sameColumns(a, b []table.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
