package bronze

import (
	"context"
	"fmt"

	"aviation/internal/metrics"
	"aviation/internal/storage"
	"aviation/internal/table"
)

// Warehouse sink modes.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
)

// DefaultBatchSize is the append batch size when none is configured.
const DefaultBatchSize = 5000

// WarehouseSink lands the table in a raw warehouse table.
type WarehouseSink struct {
	Repo  storage.Repository
	Table storage.TableID
	// Mode is ModeReplace (default) or ModeAppend.
	Mode string
	// BatchSize bounds rows per insert in append mode.
	BatchSize int
	// Dataset labels batch metrics.
	Dataset string
}

func (s *WarehouseSink) String() string { return "warehouse:" + s.Table.String() }

// Write replaces the table, or appends to it (creating it first) in batches.
func (s *WarehouseSink) Write(ctx context.Context, t *table.Table) error {
	switch s.Mode {
	case "", ModeReplace:
		if err := s.Repo.ReplaceTable(ctx, s.Table, t); err != nil {
			return fmt.Errorf("bronze: replace %s: %w", s.Table, err)
		}
		return nil
	case ModeAppend:
		return s.append(ctx, t)
	}
	return fmt.Errorf("bronze: unknown mode %q", s.Mode)
}

func (s *WarehouseSink) append(ctx context.Context, t *table.Table) error {
	if err := s.Repo.EnsureTable(ctx, s.Table, t.Columns); err != nil {
		return fmt.Errorf("bronze: ensure %s: %w", s.Table, err)
	}
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rows := make(chan table.Row, size)
	go func() {
		defer close(rows)
		for _, r := range t.Rows {
			select {
			case rows <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	appendFn := storage.AppendTo(s.Repo, s.Table)
	copyFn := func(ctx context.Context, columns []string, batch []table.Row) (int64, error) {
		n, err := appendFn(ctx, columns, batch)
		if err == nil {
			metrics.RecordBatches(s.Dataset, 1)
		}
		return n, err
	}
	n, err := storage.LoadBatches(ctx, t.ColumnNames(), rows, size, copyFn)
	if err != nil {
		return fmt.Errorf("bronze: append %s after %d rows: %w", s.Table, n, err)
	}
	return nil
}
