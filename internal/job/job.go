// Package job runs Silver dataset jobs: read a raw table, apply its rule set,
// replace the curated table and append one audit record.
//
// A run moves through
//
//	PENDING → READING → TRANSFORMING → WRITING → AUDITING → DONE
//
// and ends in FAILED from any of the first three working states. Runs are never
// retried. A failed run leaves the output table untouched and still appends a
// FAILURE audit record when the audit table is reachable.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"aviation/internal/audit"
	"aviation/internal/metrics"
	"aviation/internal/storage"
	"aviation/internal/table"
	"aviation/internal/transformer"
)

// State is the lifecycle state of a run.
type State string

const (
	StatePending      State = "PENDING"
	StateReading      State = "READING"
	StateTransforming State = "TRANSFORMING"
	StateWriting      State = "WRITING"
	StateAuditing     State = "AUDITING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Step names used in logs, metrics and Result.Durations.
const (
	StepRead      = "read"
	StepTransform = "transform"
	StepWrite     = "write"
	StepAudit     = "audit"
)

// DefaultStepTimeout bounds each warehouse call when Runner.StepTimeout is
// zero.
const DefaultStepTimeout = 5 * time.Minute

// Definition describes one dataset job.
type Definition struct {
	// Dataset is the registry key and the DATASET_NAME audit value.
	Dataset string
	// Step is the STEP_NAME audit value.
	Step string
	// Message is the MESSAGE audit value on success. Rules.Describe() is used
	// when empty.
	Message string
	Input   storage.TableID
	Output  storage.TableID
	Rules   transformer.RuleSet
}

// AuditMessage returns the success message for d.
func (d Definition) AuditMessage() string {
	if d.Message != "" {
		return d.Message
	}
	return d.Rules.Describe()
}

// Auditor appends audit records. *audit.Logger implements it.
type Auditor interface {
	Log(ctx context.Context, rec audit.Record) error
}

// Result summarizes one run.
type Result struct {
	RunID          uuid.UUID
	Dataset        string
	State          State
	LoadTime       time.Time
	RowCountBefore int64
	RowCountAfter  int64
	// Fingerprint digests the output table without its load time columns,
	// so two runs over the same input yield the same value.
	Fingerprint uint64
	// Err is the classified failure (*ReadError, *TransformError or
	// *WriteError); nil when State is DONE.
	Err error
	// AuditErr is set when the audit record could not be appended.
	AuditErr  error
	Durations map[string]time.Duration
}

// Dropped returns the number of rows removed by the rule set.
func (r *Result) Dropped() int64 { return r.RowCountBefore - r.RowCountAfter }

// Runner executes dataset jobs against one warehouse. Each job gets its
// repository explicitly; Runner holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	Repo  storage.Repository
	Audit Auditor
	// StepTimeout bounds each of the read, write and audit calls.
	StepTimeout time.Duration
	// Now supplies the load time; time.Now when nil.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	d := r.StepTimeout
	if d <= 0 {
		d = DefaultStepTimeout
	}
	return context.WithTimeout(ctx, d)
}

// run is the mutable state of one execution.
type run struct {
	r      *Runner
	def    Definition
	res    *Result
	logger zerolog.Logger
}

// Run executes def once. The returned error is the same as Result.Err; a
// failed audit insert alone does not make Run return an error.
func (r *Runner) Run(ctx context.Context, def Definition) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		Dataset:   def.Dataset,
		State:     StatePending,
		Durations: make(map[string]time.Duration, 4),
	}
	logger := log.Ctx(ctx).With().
		Str("dataset", def.Dataset).
		Str("run_id", res.RunID.String()).
		Logger()
	ctx = logger.WithContext(ctx)
	x := &run{r: r, def: def, res: res, logger: logger}

	logger.Info().
		Str("input", def.Input.String()).
		Str("output", def.Output.String()).
		Int("rules", len(def.Rules)).
		Msg("job started")

	// READING
	res.State = StateReading
	var in *table.Table
	err := x.step(ctx, StepRead, func(ctx context.Context) error {
		var err error
		in, err = r.Repo.ReadTable(ctx, def.Input)
		return err
	})
	if err != nil {
		return x.fail(ctx, &ReadError{Dataset: def.Dataset, Table: def.Input, Err: err})
	}
	res.RowCountBefore = int64(in.Len())
	metrics.RecordRow(def.Dataset, metrics.KindBefore, res.RowCountBefore)

	// TRANSFORMING
	res.State = StateTransforming
	res.LoadTime = r.now()
	var out *table.Table
	err = x.step(ctx, StepTransform, func(context.Context) error {
		var err error
		out, err = def.Rules.Apply(in, transformer.Env{Now: res.LoadTime})
		if err != nil {
			return err
		}
		if out.Len() > in.Len() {
			return fmt.Errorf("rule set produced %d rows from %d input rows", out.Len(), in.Len())
		}
		return nil
	})
	if err != nil {
		return x.fail(ctx, &TransformError{Dataset: def.Dataset, Err: err})
	}

	// WRITING
	res.State = StateWriting
	err = x.step(ctx, StepWrite, func(ctx context.Context) error {
		return r.Repo.ReplaceTable(ctx, def.Output, out)
	})
	if err != nil {
		return x.fail(ctx, &WriteError{Dataset: def.Dataset, Table: def.Output, Err: err})
	}
	res.RowCountAfter = int64(out.Len())
	res.Fingerprint = table.Fingerprint(out, def.Rules.StampedColumns()...)
	metrics.RecordRow(def.Dataset, metrics.KindAfter, res.RowCountAfter)
	metrics.RecordRow(def.Dataset, metrics.KindDropped, res.Dropped())

	// AUDITING
	res.State = StateAuditing
	x.audit(ctx, audit.StatusSuccess, def.AuditMessage())

	res.State = StateDone
	logger.Info().
		Int64("before", res.RowCountBefore).
		Int64("after", res.RowCountAfter).
		Str("fingerprint", fmt.Sprintf("%016x", res.Fingerprint)).
		Msg("job done")
	return res, nil
}

// step times fn, records its metric and bounds warehouse steps with the
// step timeout.
func (x *run) step(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	var err error
	if name == StepTransform {
		err = fn(ctx)
	} else {
		sctx, cancel := x.r.stepContext(ctx)
		err = fn(sctx)
		cancel()
	}
	d := time.Since(start)
	x.res.Durations[name] = d
	metrics.RecordStep(x.def.Dataset, name, err, d)

	ev := x.logger.Debug()
	if err != nil {
		ev = x.logger.Warn().Err(err)
	}
	ev.Str("step", name).Dur("duration", d).Msg("step finished")
	return err
}

// fail marks the run FAILED and appends a best-effort FAILURE record.
func (x *run) fail(ctx context.Context, err error) (*Result, error) {
	failedIn := x.res.State
	x.res.State = StateFailed
	x.res.Err = err

	// The failure is still recorded when the caller's context is already
	// cancelled or timed out.
	actx := context.WithoutCancel(ctx)
	x.audit(actx, audit.StatusFailure, fmt.Sprintf("%s failed: %v", failedIn, err))

	x.logger.Error().Err(err).Str("state", string(failedIn)).Msg("job failed")
	return x.res, err
}

// audit appends a record for the run. Failures are logged, counted and kept
// on the result.
func (x *run) audit(ctx context.Context, status audit.Status, message string) {
	if x.r.Audit == nil {
		return
	}
	rec := audit.Record{
		StepName:       x.def.Step,
		DatasetName:    x.def.Dataset,
		RowCountBefore: x.res.RowCountBefore,
		RowCountAfter:  x.res.RowCountAfter,
		Message:        message,
		Status:         status,
	}
	err := x.step(ctx, StepAudit, func(ctx context.Context) error {
		return x.r.Audit.Log(ctx, rec)
	})
	if err == nil {
		return
	}
	x.res.AuditErr = &AuditError{Dataset: x.def.Dataset, Status: string(status), Err: err}
	metrics.RecordAuditFailure(x.def.Dataset)
	x.logger.Error().Err(err).Str("status", string(status)).Msg("audit insert failed")
}

// Failed reports whether any result ended in FAILED.
func Failed(results []*Result) bool {
	for _, r := range results {
		if r != nil && r.State == StateFailed {
			return true
		}
	}
	return false
}

// IsTimeout reports whether err comes from a step exceeding its timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
