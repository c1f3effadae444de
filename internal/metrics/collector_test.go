package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg, zap.NewNop()), reg
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector, reg := newTestCollector(t)

	assert.NotNil(t, collector.selectionsTotal)
	assert.NotNil(t, collector.assignmentsTotal)
	assert.NotNil(t, collector.fallbacksTotal)

	// 同一 registry 重复注册应失败
	assert.Panics(t, func() { NewCollector("test", reg, zap.NewNop()) })
}

func TestCollector_RecordSelection(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordSelection("w-code", "scored")
	collector.RecordSelection("w-code", "scored")
	collector.RecordSelection("w-primary", "primary_fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.selectionsTotal.WithLabelValues("w-code", "scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.selectionsTotal.WithLabelValues("w-primary", "primary_fallback")))
}

func TestCollector_RecordAttempt(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordAttempt("w1", "research", true, 200*time.Millisecond, 0.02)
	collector.RecordAttempt("w1", "research", false, 30*time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.assignmentsTotal.WithLabelValues("w1", "research", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.assignmentsTotal.WithLabelValues("w1", "research", "failure")))
	assert.InDelta(t, 0.02, testutil.ToFloat64(collector.workerCost.WithLabelValues("w1")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.assignmentDuration))
}

func TestCollector_InFlightGauge(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.AssignmentStarted()
	collector.AssignmentStarted()
	collector.AssignmentFinished()

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.assignmentsActive))
}

func TestCollector_RecordFallbackAndJob(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordFallback("w1", "w-fb", true)
	collector.RecordJob("travel", "partial", 2*time.Second)
	collector.RecordStatsError("snapshot")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.fallbacksTotal.WithLabelValues("w1", "w-fb", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.jobsTotal.WithLabelValues("travel", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.statsErrorsTotal.WithLabelValues("snapshot")))
}

func TestCollector_HTTPAndDB(t *testing.T) {
	collector, reg := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	collector.RecordHTTPRequest("GET", "/health", 503, 5*time.Millisecond)
	collector.RecordDBQuery("save_job", 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "5xx")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_http_requests_total"])
	assert.True(t, names["test_db_query_duration_seconds"])
}

func TestCollector_NilIsNoop(t *testing.T) {
	var collector *Collector
	assert.NotPanics(t, func() {
		collector.RecordSelection("w", "scored")
		collector.AssignmentStarted()
		collector.AssignmentFinished()
		collector.RecordAttempt("w", "p", true, time.Millisecond, 1)
		collector.RecordFallback("a", "b", false)
		collector.RecordJob("general", "completed", time.Second)
		collector.RecordStatsError("record")
		collector.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		collector.RecordDBQuery("q", time.Millisecond)
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector, _ := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordAttempt("w1", "p", true, 100*time.Millisecond, 0.01)
			collector.RecordSelection("w1", "scored")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.assignmentsTotal.WithLabelValues("w1", "p", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.selectionsTotal.WithLabelValues("w1", "scored")))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{302, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
		{100, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.code))
	}
}
