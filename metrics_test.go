package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *MetricsCollector {
	t.Helper()
	return NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
}

func TestMetricsRecordSuccessfulRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	collector := newTestCollector(t)
	client := New(WithBaseURL(server.URL), WithMetricsCollector(collector))

	_, err := client.Get(context.Background(), "/v1/results")
	require.NoError(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(collector.requestsTotal.WithLabelValues("GET", "/v1/results", "200")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(collector.requestsInFlight.WithLabelValues("GET", "/v1/results")),
		"in-flight gauge must return to zero after settlement")
}

func TestMetricsRecordClassifiedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	collector := newTestCollector(t)
	client := New(WithBaseURL(server.URL), WithMetricsCollector(collector))

	_, err := client.Get(context.Background(), "/v1/missing")
	require.Error(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(collector.errorsTotal.WithLabelValues(string(ErrorTypeNotFound), "GET", "/v1/missing")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(collector.requestsTotal.WithLabelValues("GET", "/v1/missing", "404")))
}

func TestMetricsRecordDedupHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	collector := newTestCollector(t)
	client := New(WithBaseURL(server.URL), WithMetricsCollector(collector))

	const callers = 4
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background(), "/v1/results")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	hits := testutil.ToFloat64(collector.dedupHits.WithLabelValues("GET", "/v1/results"))
	calls := testutil.ToFloat64(collector.requestsTotal.WithLabelValues("GET", "/v1/results", "200"))
	assert.Equal(t, float64(callers), calls, "every caller settles")
	assert.Equal(t, float64(callers)-1, hits, "all but the owner are coalesced")
}

func TestMetricsRecordRenewalOutcomes(t *testing.T) {
	collector := newTestCollector(t)
	collector.RecordRenewal("success")
	collector.RecordRenewal("success")
	collector.RecordRenewal("failure")

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.renewalsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.renewalsTotal.WithLabelValues("failure")))
}

func TestMetricsRecordRetries(t *testing.T) {
	collector := newTestCollector(t)
	collector.RecordRetry("GET", "/v1/results", 1)
	collector.RecordRetry("GET", "/v1/results", 1)
	collector.RecordRetry("GET", "/v1/results", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.retriesTotal.WithLabelValues("GET", "/v1/results", "1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.retriesTotal.WithLabelValues("GET", "/v1/results", "2")))
}
