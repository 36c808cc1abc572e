// Package probe samples a raw CSV file, infers a type per column and drafts
// a Silver dataset declaration (casts, a not-null key and a load stamp) that
// can be pasted into the configuration and refined by hand.
package probe

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"aviation/internal/config"
	"aviation/internal/datasource"
	"aviation/internal/parser/csv"
	"aviation/internal/table"
)

// DefaultSampleRows is used when Options.SampleRows is zero.
const DefaultSampleRows = 1000

// Options control sampling.
type Options struct {
	SampleRows int
	CSV        csv.Options
}

// Column is the inference result for one header.
type Column struct {
	Name string
	Type table.Type
	// Nulls counts empty cells in the sample.
	Nulls int
}

// Result is the sampled header with inferred types.
type Result struct {
	Columns []Column
	Rows    int
}

// Probe reads up to opt.SampleRows data lines from src.
func Probe(ctx context.Context, src datasource.Source, opt Options) (*Result, error) {
	limit := opt.SampleRows
	if limit <= 0 {
		limit = DefaultSampleRows
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe: open: %w", err)
	}
	defer rc.Close()
	r, err := csv.NewReader(rc, opt.CSV)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rows := make(chan table.Row)
	errc := make(chan error, 1)
	go func() {
		defer close(rows)
		_, err := r.Stream(sctx, rows)
		errc <- err
	}()

	header := r.Header()
	values := make([][]string, len(header))
	nulls := make([]int, len(header))
	n := 0
	for row := range rows {
		for i, v := range row {
			if s, ok := v.(string); ok {
				values[i] = append(values[i], s)
			} else {
				nulls[i]++
			}
		}
		if n++; n >= limit {
			cancel()
			break
		}
	}
	// Drain so the reader goroutine can exit.
	for range rows {
	}
	// Errors past the sample are ignored.
	if err := <-errc; err != nil && n < limit {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Rows: n, Columns: make([]Column, len(header))}
	for i, h := range header {
		res.Columns[i] = Column{Name: h, Type: InferType(values[i]), Nulls: nulls[i]}
	}
	return res, nil
}

// InferType picks the narrowest type every non-empty value satisfies, in the
// order INT, BOOLEAN, FLOAT, TIMESTAMP, DATE, falling back to STRING. A column
// without values is STRING.
func InferType(values []string) table.Type {
	if len(values) == 0 {
		return table.String
	}
	switch {
	case allMatch(values, isInt):
		return table.Int
	case allMatch(values, isBool):
		return table.Bool
	case allMatch(values, isFloat):
		return table.Float
	}
	allTime, anyClock := true, false
	for _, v := range values {
		ts, ok := table.Cast(v, table.Timestamp).(time.Time)
		if !ok {
			allTime = false
			break
		}
		if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 || strings.Contains(v, ":") {
			anyClock = true
		}
	}
	switch {
	case allTime && anyClock:
		return table.Timestamp
	case allTime:
		return table.Date
	}
	return table.String
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isInt accepts base-10 integers that fit in int64. Values such as "3.5"
// cast to INT as well, but they are floats here.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isBool accepts textual booleans. 1 and 0 are already integers.
func isBool(s string) bool {
	_, ok := table.Cast(s, table.Bool).(bool)
	return ok
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// DatasetName derives an upper-case identifier from a file name or URI:
// "s3://raw/Aéroports-2024.csv.gz" becomes "AEROPORTS_2024".
func DatasetName(uri string) string {
	base := path.Base(strings.ReplaceAll(uri, `\`, "/"))
	for _, ext := range []string{".gz", ".csv", ".txt"} {
		base = strings.TrimSuffix(strings.ToLower(base), ext)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(t, base)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(unicode.ToUpper(r))
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "DATASET"
	}
	return name
}

// Suggest drafts a dataset reading BRONZE_<name>_RAW into SILVER_<name>:
// one cast per inferred non-string type, a not-null filter on the first
// column without nulls in the sample, and a load stamp.
func Suggest(name string, res *Result) config.Dataset {
	ds := config.Dataset{
		Name:   name,
		Step:   "CLEANING",
		Input:  "BRONZE_" + name + "_RAW",
		Output: "SILVER_" + name,
	}

	byType := map[table.Type][]string{}
	var order []table.Type
	key := ""
	for _, c := range res.Columns {
		if c.Type != table.String {
			if _, seen := byType[c.Type]; !seen {
				order = append(order, c.Type)
			}
			byType[c.Type] = append(byType[c.Type], c.Name)
		}
		if key == "" && c.Nulls == 0 && res.Rows > 0 {
			key = c.Name
		}
	}
	for _, typ := range order {
		ds.Transform = append(ds.Transform, config.Transform{
			Kind:    "cast",
			Options: config.Options{"columns": byType[typ], "type": string(typ)},
		})
	}
	if key != "" {
		ds.Transform = append(ds.Transform, config.Transform{
			Kind:    "filter",
			Options: config.Options{"not_null": []string{key}},
		})
	}
	ds.Transform = append(ds.Transform, config.Transform{Kind: "stamp_load_time"})
	return ds
}
