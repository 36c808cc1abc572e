// Package audit records one immutable row per dataset run in a shared,
// append-only warehouse table.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"aviation/internal/storage"
	"aviation/internal/table"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Audit table column names.
const (
	ColLogTime        = "LOG_TIME"
	ColProcessName    = "PROCESS_NAME"
	ColStepName       = "STEP_NAME"
	ColDatasetName    = "DATASET_NAME"
	ColRowCountBefore = "ROW_COUNT_BEFORE"
	ColRowCountAfter  = "ROW_COUNT_AFTER"
	ColMessage        = "MESSAGE"
	ColStatus         = "STATUS"
)

// Columns is the fixed audit table schema.
var Columns = []table.Column{
	{Name: ColLogTime, Type: table.Timestamp},
	{Name: ColProcessName, Type: table.String},
	{Name: ColStepName, Type: table.String},
	{Name: ColDatasetName, Type: table.String},
	{Name: ColRowCountBefore, Type: table.Int},
	{Name: ColRowCountAfter, Type: table.Int},
	{Name: ColMessage, Type: table.String},
	{Name: ColStatus, Type: table.String},
}

var columnNames = table.New(Columns).ColumnNames()

// Record is one audit row.
type Record struct {
	LogTime        time.Time
	ProcessName    string
	StepName       string
	DatasetName    string
	RowCountBefore int64
	RowCountAfter  int64
	Message        string
	Status         Status
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	var errs []error
	if r.Status != StatusSuccess && r.Status != StatusFailure {
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if r.RowCountBefore < 0 || r.RowCountAfter < 0 {
		errs = append(errs, fmt.Errorf("negative row count (before=%d after=%d)", r.RowCountBefore, r.RowCountAfter))
	}
	if strings.TrimSpace(r.DatasetName) == "" {
		errs = append(errs, errors.New("empty dataset name"))
	}
	return errors.Join(errs...)
}

func (r Record) row() table.Row {
	return table.Row{
		r.LogTime.UTC(),
		r.ProcessName,
		r.StepName,
		r.DatasetName,
		r.RowCountBefore,
		r.RowCountAfter,
		r.Message,
		string(r.Status),
	}
}

// Logger appends audit records through a warehouse repository. It is safe
// for concurrent use.
type Logger struct {
	repo    storage.Repository
	id      storage.TableID
	process string
	now     func() time.Time
	ensured atomic.Bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the clock used for LogTime.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// NewLogger returns a Logger writing to id. processName fills records that
// leave ProcessName empty.
func NewLogger(repo storage.Repository, id storage.TableID, processName string, opts ...Option) *Logger {
	l := &Logger{repo: repo, id: id, process: processName, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Table returns the audit table id.
func (l *Logger) Table() storage.TableID { return l.id }

// EnsureTable creates the audit table when it does not exist.
func (l *Logger) EnsureTable(ctx context.Context) error {
	if err := l.repo.EnsureTable(ctx, l.id, Columns); err != nil {
		return fmt.Errorf("audit: ensure %s: %w", l.id, err)
	}
	l.ensured.Store(true)
	return nil
}

// Log appends rec as a single parameterized insert. LogTime is set to the
// write time.
func (l *Logger) Log(ctx context.Context, rec Record) error {
	rec.LogTime = l.now().UTC()
	if rec.ProcessName == "" {
		rec.ProcessName = l.process
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("audit: invalid record: %w", err)
	}
	if !l.ensured.Load() {
		if err := l.EnsureTable(ctx); err != nil {
			return err
		}
	}
	n, err := l.repo.Append(ctx, l.id, columnNames, []table.Row{rec.row()})
	if err != nil {
		return fmt.Errorf("audit: append to %s: %w", l.id, err)
	}
	if n != 1 {
		return fmt.Errorf("audit: append to %s: inserted %d rows, want 1", l.id, n)
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (l *Logger) List(ctx context.Context, limit int) ([]Record, error) {
	t, err := l.repo.ReadTable(ctx, l.id)
	if err != nil {
		if errors.Is(err, storage.ErrTableNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: read %s: %w", l.id, err)
	}
	idx := make([]int, len(Columns))
	for i, c := range Columns {
		if idx[i] = t.Index(c.Name); idx[i] < 0 {
			return nil, fmt.Errorf("audit: %s lacks column %s", l.id, c.Name)
		}
	}

	out := make([]Record, 0, t.Len())
	for _, row := range t.Rows {
		get := func(i int) any { return table.Normalize(row[idx[i]], Columns[i].Type) }
		rec := Record{
			ProcessName:    str(get(1)),
			StepName:       str(get(2)),
			DatasetName:    str(get(3)),
			RowCountBefore: i64(get(4)),
			RowCountAfter:  i64(get(5)),
			Message:        str(get(6)),
			Status:         Status(str(get(7))),
		}
		if ts, ok := get(0).(time.Time); ok {
			rec.LogTime = ts
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LogTime.After(out[j].LogTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func i64(v any) int64 {
	n, _ := v.(int64)
	return n
}
