package httpds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(retries int) *Client {
	return NewClient(Config{
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Header:         http.Header{"X-Pipeline": []string{"aviation"}},
	})
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true, MaxRetries: -1})
	assert.Equal(t, 5*time.Minute, c.httpClient.Timeout)
	assert.Equal(t, 0, c.maxRetries)
	assert.Equal(t, 200*time.Millisecond, c.initialBackoff)
	assert.Equal(t, 5*time.Second, c.maxBackoff)

	tr, ok := c.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestCustomTransportIsKept(t *testing.T) {
	t.Parallel()

	custom := &http.Transport{}
	c := NewClient(Config{Transport: custom, InsecureSkipVerify: true})
	assert.Same(t, custom, c.httpClient.Transport)
}

func TestGetRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failFirst int32
		status    int
		retries   int
		wantErr   bool
		wantHits  int32
	}{
		{name: "ok first try", failFirst: 0, retries: 3, wantHits: 1},
		{name: "recovers after 5xx", failFirst: 2, status: http.StatusBadGateway, retries: 3, wantHits: 3},
		{name: "429 is retried", failFirst: 1, status: http.StatusTooManyRequests, retries: 1, wantHits: 2},
		{name: "gives up", failFirst: 10, status: http.StatusServiceUnavailable, retries: 2, wantErr: true, wantHits: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "aviation", r.Header.Get("X-Pipeline"))
				if atomic.AddInt32(&hits, 1) <= tt.failFirst {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = io.WriteString(w, "IATA_CODE,AIRLINE\n")
			}))
			defer srv.Close()

			resp, err := fastClient(tt.retries).Get(context.Background(), srv.URL)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				_ = resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestGetEmptyURL(t *testing.T) {
	t.Parallel()
	_, err := fastClient(0).Get(context.Background(), "")
	require.Error(t, err)
}

func TestSourceOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "IATA_CODE,AIRLINE\nUA,United Air Lines Inc.\n")
	}))
	defer srv.Close()

	rc, err := NewSource(fastClient(0), srv.URL+"/airlines.csv").Open(context.Background())
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Contains(t, string(body), "United Air Lines")

	_, err = NewSource(fastClient(0), srv.URL+"/missing.csv").Open(context.Background())
	require.ErrorContains(t, err, "404")
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial, max time.Duration
		attempt      int
		want         time.Duration
	}{
		{100 * time.Millisecond, time.Second, 0, 100 * time.Millisecond},
		{100 * time.Millisecond, time.Second, 2, 400 * time.Millisecond},
		{100 * time.Millisecond, time.Second, 5, time.Second},
		{2 * time.Second, time.Second, 0, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDuration(tt.initial, tt.attempt, tt.max))
	}
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{429, 500, 502, 503, 599} {
		assert.True(t, isRetryableStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 404, 600} {
		assert.False(t, isRetryableStatus(code), code)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
