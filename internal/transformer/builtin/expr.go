package builtin

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"aviation/internal/table"
	"aviation/internal/transformer"
)

// rowExpr is an expression compiled against a schema. Column values are
// exposed to the expression as variables named after the columns.
type rowExpr struct {
	program *vm.Program
	// refs are the column positions the expression reads, in schema order.
	refs []int
	cols []string
	env  map[string]any
	vm   vm.VM
}

// identCollector gathers identifiers, remembering which of them are only
// used as function names.
type identCollector struct {
	idents  []string
	callees []string
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.idents = append(c.idents, n.Value)
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees = append(c.callees, id.Value)
		}
	}
}

func compileRowExpr(code string, cols []table.Column, opts ...expr.Option) (*rowExpr, error) {
	tree, err := parser.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	var ic identCollector
	ast.Walk(&tree.Node, &ic)

	var refs []int
	for _, name := range ic.idents {
		if slices.Contains(ic.callees, name) {
			continue
		}
		ix, err := transformer.Lookup(cols, name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(refs, ix) {
			refs = append(refs, ix)
		}
	}
	slices.Sort(refs)

	env := make(map[string]any, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		env[c.Name] = zeroValue(c.Type)
		names[i] = c.Name
	}
	program, err := expr.Compile(code, append([]expr.Option{expr.Env(env)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &rowExpr{program: program, refs: refs, cols: names, env: env}, nil
}

// hasNullRef reports whether any referenced column is null in r.
func (e *rowExpr) hasNullRef(r table.Row) bool {
	for _, ix := range e.refs {
		if r[ix] == nil {
			return true
		}
	}
	return false
}

// eval runs the expression against r. Only the referenced columns are bound;
// the rest of the environment keeps its previous (unused) values.
func (e *rowExpr) eval(r table.Row) (any, error) {
	for _, ix := range e.refs {
		e.env[e.cols[ix]] = r[ix]
	}
	return e.vm.Run(e.program, e.env)
}

// zeroValue declares a column to the expression compiler with its Go type.
// Untyped columns stay nil and are only accepted where any value fits.
func zeroValue(t table.Type) any {
	switch t {
	case table.Int:
		return int64(0)
	case table.Float:
		return float64(0)
	case table.Bool:
		return false
	case table.Timestamp, table.Date:
		return time.Time{}
	case table.String:
		return ""
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// resultType maps the static type of the compiled expression to a column
// type. It returns "" when the compiler could only infer an untyped result.
func (e *rowExpr) resultType() table.Type {
	t := e.program.Node().Type()
	if t == nil {
		return ""
	}
	if t == timeType {
		return table.Timestamp
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return table.Int
	case reflect.Float32, reflect.Float64:
		return table.Float
	case reflect.Bool:
		return table.Bool
	case reflect.String:
		return table.String
	}
	return ""
}
