package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"aviation/internal/table"
)

// CopyFn inserts one batch of rows aligned to columns and returns the number
// of rows inserted. Repository.Append bound to a table satisfies it.
type CopyFn func(ctx context.Context, columns []string, rows []table.Row) (int64, error)

// AppendTo returns a CopyFn appending into id through repo.
func AppendTo(repo Repository, id TableID) CopyFn {
	return func(ctx context.Context, columns []string, rows []table.Row) (int64, error) {
		return repo.Append(ctx, id, columns, rows)
	}
}

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered.
//
// Cancellation returns (total, ctx.Err()). Progress is logged at debug level
// on each flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan table.Row,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	logger := log.Ctx(ctx)
	var (
		total       int64
		batches     int64
		batch       = make([]table.Row, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// A fresh slice: copyFn may retain the rows it was handed.
		batch = make([]table.Row, 0, batchSize)

		if err != nil {
			logger.Error().Err(err).Int64("after", n).Int64("total", total).Msg("loader: copy failed")
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		logger.Debug().
			Int64("batch", batches).
			Float64("rps", rps).
			Int64("inserted", n).
			Int64("total_inserted", total).
			Dur("elapsed", now.Sub(start)).
			Msg("loader: batch flushed")
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				logger.Debug().Int64("total_inserted", total).Msg("loader: input closed")
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
