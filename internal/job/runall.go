package job

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// RunAll runs defs with at most parallelism jobs in flight (unbounded when
// parallelism <= 0). Jobs are independent: a failure never cancels the
// others. Results are returned in the order of defs together with the joined
// errors of the failed runs.
func (r *Runner) RunAll(ctx context.Context, defs []Definition, parallelism int) ([]*Result, error) {
	results := make([]*Result, len(defs))
	errs := make([]error, len(defs))

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, def := range defs {
		g.Go(func() error {
			results[i], errs[i] = r.Run(ctx, def)
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}
