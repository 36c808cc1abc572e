package builtin

import (
	"fmt"
	"sort"

	"aviation/internal/config"
	"aviation/internal/table"
	"aviation/internal/transformer"
)

// Rule kinds as they appear in configuration.
const (
	KindCast          = "cast"
	KindNormalize     = "normalize"
	KindCoalesce      = "coalesce"
	KindDerive        = "derive"
	KindFilter        = "filter"
	KindStampLoadTime = "stamp_load_time"
)

// builder turns one configured transform into rules. A transform naming
// several columns expands into one rule per column, in the listed order.
type builder func(opt config.Options) ([]transformer.Rule, error)

var builders = map[string]builder{
	KindCast:          buildCast,
	KindNormalize:     buildNormalize,
	KindCoalesce:      buildCoalesce,
	KindDerive:        buildDerive,
	KindFilter:        buildFilter,
	KindStampLoadTime: buildStamp,
}

// Kinds lists the supported rule kinds, sorted.
func Kinds() []string {
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromConfig builds a rule set from configured transforms.
func FromConfig(ts []config.Transform) (transformer.RuleSet, error) {
	var rs transformer.RuleSet
	for i, t := range ts {
		b, ok := builders[t.Kind]
		if !ok {
			return nil, fmt.Errorf("transform[%d]: unsupported kind %q", i, t.Kind)
		}
		rules, err := b(t.Options)
		if err != nil {
			return nil, fmt.Errorf("transform[%d] (%s): %w", i, t.Kind, err)
		}
		rs = append(rs, rules...)
	}
	return rs, nil
}

// columns reads "column" or "columns".
func columns(opt config.Options) ([]string, error) {
	if c := opt.String("column", ""); c != "" {
		return []string{c}, nil
	}
	if cs := opt.StringSlice("columns"); len(cs) > 0 {
		return cs, nil
	}
	return nil, fmt.Errorf("options.column or options.columns is required")
}

func buildCast(opt config.Options) ([]transformer.Rule, error) {
	cols, err := columns(opt)
	if err != nil {
		return nil, err
	}
	typ, err := table.ParseType(opt.String("type", ""))
	if err != nil {
		return nil, err
	}
	out := make([]transformer.Rule, len(cols))
	for i, c := range cols {
		out[i] = Cast{Column: c, To: typ}
	}
	return out, nil
}

func buildNormalize(opt config.Options) ([]transformer.Rule, error) {
	cols, err := columns(opt)
	if err != nil {
		return nil, err
	}
	fns := opt.StringSlice("fns")
	if fn := opt.String("fn", ""); fn != "" {
		fns = append([]string{fn}, fns...)
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("options.fn or options.fns is required")
	}
	out := make([]transformer.Rule, len(cols))
	for i, c := range cols {
		out[i] = Normalize{Column: c, Funcs: fns}
	}
	return out, nil
}

func buildCoalesce(opt config.Options) ([]transformer.Rule, error) {
	cols, err := columns(opt)
	if err != nil {
		return nil, err
	}
	def := opt.Any("value")
	if def == nil {
		return nil, fmt.Errorf("options.value is required")
	}
	out := make([]transformer.Rule, len(cols))
	for i, c := range cols {
		out[i] = Coalesce{Column: c, Default: def}
	}
	return out, nil
}

func buildDerive(opt config.Options) ([]transformer.Rule, error) {
	col := opt.String("column", "")
	code := opt.String("expr", "")
	if col == "" || code == "" {
		return nil, fmt.Errorf("options.column and options.expr are required")
	}
	var typ table.Type
	if s := opt.String("type", ""); s != "" {
		t, err := table.ParseType(s)
		if err != nil {
			return nil, err
		}
		typ = t
	}
	return []transformer.Rule{Derive{Column: col, Expr: code, Type: typ}}, nil
}

func buildFilter(opt config.Options) ([]transformer.Rule, error) {
	var out []transformer.Rule
	if cs := opt.StringSlice("not_null"); len(cs) > 0 {
		out = append(out, NotNull{Columns: cs})
	}
	if code := opt.String("expr", ""); code != "" {
		out = append(out, Filter{Expr: code})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("options.not_null or options.expr is required")
	}
	return out, nil
}

func buildStamp(opt config.Options) ([]transformer.Rule, error) {
	return []transformer.Rule{StampLoadTime{Column: opt.String("column", "")}}, nil
}
