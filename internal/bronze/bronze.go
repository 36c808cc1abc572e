// Package bronze lands raw CSV files: every cell is kept as a string (empty
// cells become null), a load_timestamp column records the ingest time and
// the result is written to one or more sinks (Parquet files, raw warehouse
// tables). Ingestion is batch only and is not audited.
package bronze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"aviation/internal/datasource"
	"aviation/internal/metrics"
	"aviation/internal/parser/csv"
	"aviation/internal/table"
)

// LoadTimestampColumn is appended to every landed table.
const LoadTimestampColumn = "load_timestamp"

// StepIngest labels ingestion in step metrics.
const StepIngest = "ingest"

// Sink receives the landed table.
type Sink interface {
	Write(ctx context.Context, t *table.Table) error
}

// Options configures one ingestion.
type Options struct {
	// Name labels logs and metrics.
	Name string
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// TrimSpace trims cells. Raw values are landed as read by default.
	TrimSpace bool
	// Now supplies the load time; time.Now when nil.
	Now func() time.Time
}

// Result describes a finished ingestion.
type Result struct {
	Name     string
	Rows     int64
	LoadTime time.Time
	Duration time.Duration
}

// Ingest reads src and writes it to every sink in order. The first sink
// error stops ingestion; sinks already written are not rolled back.
func Ingest(ctx context.Context, src datasource.Source, opt Options, sinks ...Sink) (res *Result, err error) {
	if len(sinks) == 0 {
		return nil, errors.New("bronze: no sinks")
	}
	start := time.Now()
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}
	res = &Result{Name: opt.Name, LoadTime: now().UTC()}
	logger := log.Ctx(ctx).With().Str("source", opt.Name).Logger()
	ctx = logger.WithContext(ctx)
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordStep(opt.Name, StepIngest, err, res.Duration)
	}()

	t, err := read(ctx, src, csv.Options{Comma: opt.Comma, KeepSpace: !opt.TrimSpace})
	if err != nil {
		return res, err
	}
	Stamp(t, res.LoadTime)
	res.Rows = int64(t.Len())

	for _, s := range sinks {
		if err = s.Write(ctx, t); err != nil {
			logger.Error().Err(err).Str("sink", fmt.Sprint(s)).Msg("bronze: sink failed")
			return res, err
		}
		logger.Info().Str("sink", fmt.Sprint(s)).Int64("rows", res.Rows).Msg("bronze: landed")
	}
	metrics.RecordRow(opt.Name, metrics.KindIngested, res.Rows)
	return res, nil
}

func read(ctx context.Context, src datasource.Source, opt csv.Options) (*table.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("bronze: open: %w", err)
	}
	defer rc.Close()
	r, err := csv.NewReader(rc, opt)
	if err != nil {
		return nil, fmt.Errorf("bronze: %w", err)
	}
	t, err := r.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("bronze: %w", err)
	}
	return t, nil
}

// Stamp appends LoadTimestampColumn set to ts on every row of t. An existing
// column of that name is overwritten.
func Stamp(t *table.Table, ts time.Time) {
	ts = ts.UTC()
	ix := t.Index(LoadTimestampColumn)
	if ix >= 0 {
		t.Columns[ix].Type = table.Timestamp
		for _, r := range t.Rows {
			r[ix] = ts
		}
		return
	}
	t.Columns = append(t.Columns, table.Column{Name: LoadTimestampColumn, Type: table.Timestamp})
	for i, r := range t.Rows {
		t.Rows[i] = append(r, ts)
	}
}
