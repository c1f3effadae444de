// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil Collector 的所有记录方法均为空操作。
type Collector struct {
	// 路由指标
	selectionsTotal *prometheus.CounterVec

	// 分配执行指标
	assignmentsTotal   *prometheus.CounterVec
	assignmentDuration *prometheus.HistogramVec
	assignmentsActive  prometheus.Gauge
	workerCost         *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec

	// 作业指标
	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	// 统计持久化指标
	statsErrorsTotal *prometheus.CounterVec

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库指标
	dbQueryDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg（nil 时使用默认 Registerer）
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.selectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Total number of worker selections",
		},
		[]string{"worker_id", "reason"}, // reason: scored, primary_fallback
	)

	c.assignmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_attempts_total",
			Help:      "Total number of worker execution attempts",
		},
		[]string{"worker_id", "phase", "status"},
	)

	c.assignmentDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_duration_seconds",
			Help:      "Worker execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker_id"},
	)

	c.assignmentsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assignments_in_flight",
			Help:      "Number of assignments currently executing",
		},
	)

	c.workerCost = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_cost_total",
			Help:      "Total cost reported by workers",
		},
		[]string{"worker_id"},
	)

	c.fallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of fallback invocations",
		},
		[]string{"from", "to", "outcome"},
	)

	c.jobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of submitted jobs",
		},
		[]string{"domain", "status"},
	)

	c.jobDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"domain"},
	)

	c.statsErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_recording_errors_total",
			Help:      "Total number of swallowed stats recording failures",
		},
		[]string{"stage"},
	)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🧭 路由指标记录
// =============================================================================

// RecordSelection 记录一次 Worker 选择
func (c *Collector) RecordSelection(workerID, reason string) {
	if c == nil {
		return
	}
	c.selectionsTotal.WithLabelValues(workerID, reason).Inc()
}

// =============================================================================
// ⚙️ 分配执行指标记录
// =============================================================================

// AssignmentStarted 增加在途计数
func (c *Collector) AssignmentStarted() {
	if c == nil {
		return
	}
	c.assignmentsActive.Inc()
}

// AssignmentFinished 减少在途计数
func (c *Collector) AssignmentFinished() {
	if c == nil {
		return
	}
	c.assignmentsActive.Dec()
}

// RecordAttempt 记录一次 Worker 调用
func (c *Collector) RecordAttempt(workerID, phase string, success bool, duration time.Duration, cost float64) {
	if c == nil {
		return
	}
	c.assignmentsTotal.WithLabelValues(workerID, phase, outcome(success)).Inc()
	c.assignmentDuration.WithLabelValues(workerID).Observe(duration.Seconds())
	if cost > 0 {
		c.workerCost.WithLabelValues(workerID).Add(cost)
	}
}

// RecordFallback 记录一次降级调用
func (c *Collector) RecordFallback(from, to string, success bool) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(from, to, outcome(success)).Inc()
}

// =============================================================================
// 📦 作业指标记录
// =============================================================================

// RecordJob 记录作业完成
func (c *Collector) RecordJob(domain, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(domain, status).Inc()
	c.jobDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordStatsError 记录被吞掉的统计失败
func (c *Collector) RecordStatsError(stage string) {
	if c == nil {
		return
	}
	c.statsErrorsTotal.WithLabelValues(stage).Inc()
}

// =============================================================================
// 🎯 HTTP / 数据库指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(operation string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
