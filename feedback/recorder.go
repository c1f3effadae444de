package feedback

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/registry"
	"github.com/BaSui01/taskrouter/types"
)

// 统计失败日志限流：每秒 1 条，突发 5 条
const (
	warnRate  = rate.Limit(1)
	warnBurst = 5
)

// Recorder 把已结束的调用写入 Registry 统计，并生成只读报告。
// 任何统计失败都只记录日志，不会向调用方返回错误或 panic。
type Recorder struct {
	registry  *registry.Registry
	store     Store
	collector *metrics.Collector
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// Option 配置 Recorder
type Option func(*Recorder)

// WithStore 设置快照存储
func WithStore(s Store) Option {
	return func(r *Recorder) { r.store = s }
}

// WithCollector 设置指标收集器
func WithCollector(c *metrics.Collector) Option {
	return func(r *Recorder) { r.collector = c }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder 创建记录器
func NewRecorder(reg *registry.Registry, opts ...Option) *Recorder {
	r := &Recorder{
		registry: reg,
		logger:   zap.NewNop(),
		limiter:  rate.NewLimiter(warnRate, warnBurst),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "feedback_recorder"))
	return r
}

// Record 记录一次已结束的调用。负数或非有限值被修正为 0。
func (r *Recorder) Record(workerID string, success bool, executionTimeMs int64, costHint float64) {
	defer func() {
		if p := recover(); p != nil {
			r.fail("record", workerID, fmt.Errorf("panic while recording: %v", p))
		}
	}()

	if executionTimeMs < 0 {
		r.fail("clamp", workerID, types.Errorf(types.ErrStatsRecording, "negative execution time %d", executionTimeMs))
		executionTimeMs = 0
	}
	if costHint < 0 || math.IsNaN(costHint) || math.IsInf(costHint, 0) {
		r.fail("clamp", workerID, types.Errorf(types.ErrStatsRecording, "invalid cost hint %v", costHint))
		costHint = 0
	}

	err := r.registry.RecordOutcome(workerID, registry.Outcome{
		Success:         success,
		ExecutionTimeMs: executionTimeMs,
		CostHint:        costHint,
	})
	if err != nil {
		r.fail("record", workerID, err)
	}
}

// RecordResult 按尝试逐条记录一个分配：主 Worker 失败计入主 Worker，降级调用计入降级 Worker。
// 没有任何尝试的结果（未派发）不计入统计。
func (r *Recorder) RecordResult(res types.AssignmentResult) {
	for _, a := range res.Attempts {
		r.Record(a.WorkerID, a.Success, a.DurationMs, a.CostHint)
	}
}

// StatsReport 按注册顺序汇总所有 Worker 的统计。没有新的 Record 时结果不变。
func (r *Recorder) StatsReport() (report StatsReport) {
	defer func() {
		if p := recover(); p != nil {
			r.fail("report", "", fmt.Errorf("panic while building report: %v", p))
			report = StatsReport{Workers: []WorkerReport{}}
		}
	}()
	return buildReport(r.registry.AllStats())
}

// Snapshot 生成带时间戳的报告并写入存储（未配置存储时只返回快照）
func (r *Recorder) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{TakenAt: time.Now().UTC(), Report: r.StatsReport()}
	if r.store == nil {
		return snap
	}
	if err := r.store.Save(ctx, snap); err != nil {
		r.fail("snapshot", "", err)
	}
	return snap
}

// LoadLatest 读取最近一次持久化的快照
func (r *Recorder) LoadLatest(ctx context.Context) (*Snapshot, error) {
	if r.store == nil {
		return nil, ErrNoSnapshot
	}
	return r.store.Latest(ctx)
}

// RunSnapshots 周期性写入快照，直到 ctx 结束。退出前再写一次。
func (r *Recorder) RunSnapshots(ctx context.Context, interval time.Duration) {
	if r.store == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("stats snapshots started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.Snapshot(flushCtx)
			cancel()
			r.logger.Info("stats snapshots stopped")
			return
		case <-ticker.C:
			r.Snapshot(ctx)
		}
	}
}

func (r *Recorder) fail(stage, workerID string, err error) {
	r.collector.RecordStatsError(stage)
	if !r.limiter.Allow() {
		return
	}
	r.logger.Warn("stats recording failed",
		zap.String("stage", stage),
		zap.String("worker_id", workerID),
		zap.Error(err),
	)
}
