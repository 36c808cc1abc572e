package datadog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviation/internal/metrics"
)

func TestNewBackendRequiresAddr(t *testing.T) {
	_, err := NewBackend(Config{})
	require.Error(t, err)
}

func TestNewBackendUDP(t *testing.T) {
	// UDP clients do not dial eagerly, so this works without an agent.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "aviation.", GlobalTags: []string{"env:test"}})
	require.NoError(t, err)

	b.IncCounter("etl_records_total", 3, metrics.Labels{"job": "AIRPORTS", "kind": "after"})
	b.ObserveHistogram("etl_step_duration_seconds", 0.25, metrics.Labels{"job": "AIRPORTS", "step": "read"})
	require.NoError(t, b.Flush())
}

func TestLabelsToTags(t *testing.T) {
	assert.Nil(t, labelsToTags(nil))
	assert.Equal(t,
		[]string{"dataset:AIRLINES", "kind:before", "status:success"},
		labelsToTags(metrics.Labels{"status": "success", "job": "AIRLINES", "kind": "before"}),
	)
}

func TestZeroBackendIsNoop(t *testing.T) {
	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter("x", 1, nil)
		b.ObserveHistogram("x", 1, nil)
	})
	assert.NoError(t, b.Flush())
}
