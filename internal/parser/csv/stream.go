// Package csv streams header-aware CSV into table rows. Every cell is kept as
// a string; empty cells become null. Typing is left to the Silver rules.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"aviation/internal/table"
)

// Options tunes the reader. The zero value reads comma-separated input with
// trimmed cells and strict quoting.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// KeepSpace disables trimming of surrounding whitespace in cells.
	KeepSpace bool
	// LazyQuotes maps to csv.Reader.LazyQuotes.
	LazyQuotes bool
}

// ErrEmptyHeader is returned when the input has no header line.
var ErrEmptyHeader = errors.New("csv: missing header")

// Reader reads a CSV file whose first line names the columns.
type Reader struct {
	cr     *csv.Reader
	opt    Options
	header []string
	line   int
}

// NewReader reads the header line of r. Header cells are trimmed and a
// leading BOM is removed; duplicate or blank names are rejected.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	rd := &Reader{cr: cr, opt: opt, line: 1}
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	hdr = StripHeaderBOM(append([]string(nil), hdr...))
	seen := make(map[string]bool, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("csv: header column %d is blank", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("csv: duplicate header %q", h)
		}
		seen[h] = true
		hdr[i] = h
	}
	rd.header = hdr
	return rd, nil
}

// Header returns the column names in file order.
func (r *Reader) Header() []string { return r.header }

// Columns returns the header as STRING columns.
func (r *Reader) Columns() []table.Column {
	cols := make([]table.Column, len(r.header))
	for i, h := range r.header {
		cols[i] = table.Column{Name: h, Type: table.String}
	}
	return cols
}

// Stream sends every data line to out as a row aligned with Header. Short
// lines are padded with nulls; lines wider than the header are an error, as
// are malformed lines. Stream does not close out.
func (r *Reader) Stream(ctx context.Context, out chan<- table.Row) (int64, error) {
	const logEveryN = 100_000
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := r.cr.Read()
		r.line++
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("csv: line %d: %w", r.line, err)
		}
		if len(rec) > len(r.header) {
			return n, fmt.Errorf("csv: line %d: %d fields, header has %d", r.line, len(rec), len(r.header))
		}

		row := make(table.Row, len(r.header))
		for i, v := range rec {
			if !r.opt.KeepSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[i] = v
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return n, ctx.Err()
		}
		n++
		if n%logEveryN == 0 {
			log.Ctx(ctx).Debug().Int("line", r.line).Int64("rows", n).Msg("csv: progress")
		}
	}
}

// ReadAll reads the remaining lines into a table of STRING columns.
func (r *Reader) ReadAll(ctx context.Context) (*table.Table, error) {
	t := table.New(r.Columns())
	ch := make(chan table.Row, 256)
	errc := make(chan error, 1)
	go func() {
		defer close(ch)
		_, err := r.Stream(ctx, ch)
		errc <- err
	}()
	for row := range ch {
		t.Rows = append(t.Rows, row)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return t, nil
}
