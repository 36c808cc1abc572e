// Package metrics records operational metrics for dataset jobs and bronze
// ingestion behind a small backend-agnostic interface.
//
// A global backend defaults to a no-op implementation, so instrumentation is
// always safe to call. Concrete systems live in subpackages (prompush,
// datadog) and are installed once at startup with SetBackend, the same way
// storage backends register behind storage.Repository.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a job step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("etl_step_total", 1, lbls)
	backend.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// Record kinds used with RecordRow.
const (
	KindBefore   = "before"   // rows read from the input table
	KindAfter    = "after"    // rows written to the output table
	KindDropped  = "dropped"  // rows removed by filters
	KindIngested = "ingested" // raw rows landed by bronze ingestion
)

// RecordRow increments a record-level counter for the given job and kind.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_batches_total", float64(delta), Labels{
		"job": job,
	})
}

// RecordAuditFailure counts an audit insert that failed after the output
// table was committed.
func RecordAuditFailure(job string) {
	backend.IncCounter("etl_audit_failures_total", 1, Labels{
		"job": job,
	})
}
