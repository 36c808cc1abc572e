// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Batch runs are short-lived, so instead of exposing a scrape endpoint the
// backend collects into a private registry and pushes it once on Flush. The
// metrics "job" label is exported as "dataset" because Pushgateway reserves
// "job" for its grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"aviation/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // etl_step_total
	stepDuration  *prometheus.SummaryVec // etl_step_duration_seconds
	recordCounter *prometheus.CounterVec // etl_records_total
	batchCounter  *prometheus.CounterVec // etl_batches_total
	auditFailures *prometheus.CounterVec // etl_audit_failures_total
}

// NewBackend constructs a Prometheus Pushgateway backend. jobName becomes the
// Pushgateway grouping key and defaults to "aviation_etl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "aviation_etl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_total",
			Help: "Dataset job step executions by dataset, step and status.",
		}, []string{"dataset", "step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "etl_step_duration_seconds",
			Help:       "Duration of dataset job steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"dataset", "step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Row counts by dataset and kind (before, after, dropped, ingested).",
		}, []string{"dataset", "kind"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_batches_total",
			Help: "Insert batches flushed during bronze ingestion.",
		}, []string{"dataset"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_audit_failures_total",
			Help: "Audit inserts that failed after the output was committed.",
		}, []string{"dataset"}),
	}

	collectors := []struct {
		name string
		c    prometheus.Collector
	}{
		{"step counter", b.stepCounter},
		{"step summary", b.stepDuration},
		{"record counter", b.recordCounter},
		{"batch counter", b.batchCounter},
		{"audit failure counter", b.auditFailures},
	}
	for _, c := range collectors {
		if err := b.reg.Register(c.c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", c.name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	dataset := labels["job"]
	switch name {
	case "etl_step_total":
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(dataset, labels["step"], labels["status"]).Add(delta)
		}
	case "etl_records_total":
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(dataset, labels["kind"]).Add(delta)
		}
	case "etl_batches_total":
		if b.batchCounter != nil {
			b.batchCounter.WithLabelValues(dataset).Add(delta)
		}
	case "etl_audit_failures_total":
		if b.auditFailures != nil {
			b.auditFailures.WithLabelValues(dataset).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["job"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
