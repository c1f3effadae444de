package fallback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/types"
)

const instrumentationName = "github.com/BaSui01/taskrouter/fallback"

// DefaultTimeout 单次 Worker 调用超时
const DefaultTimeout = 30 * time.Second

// WorkerSource 按 ID 查找执行器
type WorkerSource interface {
	Worker(id string) (types.Worker, error)
}

// Config 降级配置
type Config struct {
	// FallbackWorkerID 固定的降级 Worker，为空表示不降级
	FallbackWorkerID string `json:"fallback_worker_id" yaml:"fallback_worker_id"`
	// Timeout 每次调用的超时
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MaxConcurrent 同时运行的 Worker 调用上限，超时后仍未返回的调用继续占用名额。0 表示不限
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// Manager 为一次分配执行主调用，失败后最多再调用一次降级 Worker
type Manager struct {
	workers   WorkerSource
	cfg       Config
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
	slots     *semaphore.Weighted
}

// NewManager 创建降级管理器
func NewManager(workers WorkerSource, cfg Config, logger *zap.Logger, collector *metrics.Collector) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	m := &Manager{
		workers:   workers,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "fallback_manager")),
		collector: collector,
		tracer:    otel.Tracer(instrumentationName),
	}
	if cfg.MaxConcurrent > 0 {
		m.slots = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return m
}

// FallbackWorkerID 返回配置的降级 Worker
func (m *Manager) FallbackWorkerID() string {
	return m.cfg.FallbackWorkerID
}

// ExecuteWithFallback 执行主 Worker；失败、超时或返回 Success=false 时调用一次降级 Worker。
// 结果总是已结束状态，不返回 error。
func (m *Manager) ExecuteWithFallback(ctx context.Context, primaryID string, task *types.Task) types.AssignmentResult {
	if task == nil {
		task = &types.Task{}
	}
	m.collector.AssignmentStarted()
	defer m.collector.AssignmentFinished()

	started := time.Now()
	result := types.AssignmentResult{
		JobID:     task.JobID,
		AgentID:   primaryID,
		PhaseName: task.Phase,
		StartedAt: started,
	}

	primary, content := m.tryExecute(ctx, primaryID, task)
	result.Attempts = append(result.Attempts, primary.attempt)

	if primary.attempt.Success {
		result.Success = true
		result.Content = content
		return m.settle(result, started)
	}

	fallbackID := m.cfg.FallbackWorkerID
	switch {
	case fallbackID == "" || fallbackID == primaryID:
		m.logger.Warn("assignment failed, no fallback available",
			zap.String("worker_id", primaryID),
			zap.String("phase", task.Phase),
			zap.Error(primary.err),
		)
		result.Error = primary.err.Error()
		return m.settle(result, started)

	case ctx.Err() != nil:
		result.Error = types.NewError(types.ErrJobCancelled, "job cancelled before fallback").
			WithWorker(primaryID).WithCause(ctx.Err()).Error()
		return m.settle(result, started)
	}

	m.logger.Warn("primary worker failed, invoking fallback",
		zap.String("worker_id", primaryID),
		zap.String("fallback_id", fallbackID),
		zap.String("phase", task.Phase),
		zap.Error(primary.err),
	)

	secondary, content := m.tryExecute(ctx, fallbackID, task)
	result.Attempts = append(result.Attempts, secondary.attempt)
	result.AgentID = fallbackID
	result.Fallback = true
	result.FallbackFrom = primaryID
	m.collector.RecordFallback(primaryID, fallbackID, secondary.attempt.Success)

	if secondary.attempt.Success {
		result.Success = true
		result.Content = content
		return m.settle(result, started)
	}

	exhausted := types.Errorf(types.ErrFallbackExhausted, "primary %s: %v; fallback %s: %v",
		primaryID, primary.err, fallbackID, secondary.err).WithCause(secondary.err)
	m.logger.Error("fallback exhausted",
		zap.String("worker_id", primaryID),
		zap.String("fallback_id", fallbackID),
		zap.String("phase", task.Phase),
		zap.Error(exhausted),
	)
	result.Error = exhausted.Error()
	return m.settle(result, started)
}

func (m *Manager) settle(result types.AssignmentResult, started time.Time) types.AssignmentResult {
	result.SettledAt = time.Now()
	result.ExecutionTimeMs = result.SettledAt.Sub(started).Milliseconds()
	for _, a := range result.Attempts {
		result.CostHint += a.CostHint
	}
	return result
}

type attemptOutcome struct {
	attempt types.Attempt
	err     error
}

type execReply struct {
	res *types.Result
	err error
}

// tryExecute 带超时执行一次 Worker 调用
func (m *Manager) tryExecute(ctx context.Context, workerID string, task *types.Task) (attemptOutcome, string) {
	ctx, span := m.tracer.Start(ctx, "worker.execute", trace.WithAttributes(
		attribute.String("worker.id", workerID),
		attribute.String("job.id", task.JobID),
		attribute.String("phase", task.Phase),
	))
	defer span.End()

	start := time.Now()
	out := attemptOutcome{attempt: types.Attempt{WorkerID: workerID}}
	var content string

	worker, err := m.workers.Worker(workerID)
	if err != nil {
		out.err = err
	} else {
		execCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()

		// 等待名额的时间计入本次调用的超时
		if err := m.acquire(execCtx); err != nil {
			out.err = m.interrupted(ctx, execCtx, workerID)
		} else {
			replies := make(chan execReply, 1)
			go func() {
				// 名额在 Worker 真正返回后才释放，被放弃的调用也不例外
				defer m.release()
				defer func() {
					if r := recover(); r != nil {
						replies <- execReply{err: fmt.Errorf("worker panicked: %v", r)}
					}
				}()
				res, err := worker.Execute(execCtx, task)
				replies <- execReply{res: res, err: err}
			}()

			select {
			case reply := <-replies:
				out.err = classifyReply(workerID, reply)
				if reply.res != nil {
					out.attempt.CostHint = nonNegative(reply.res.CostHint)
					content = reply.res.Content
				}
			case <-execCtx.Done():
				out.err = m.interrupted(ctx, execCtx, workerID)
			}
		}
	}

	duration := time.Since(start)
	out.attempt.DurationMs = duration.Milliseconds()
	out.attempt.Success = out.err == nil
	if out.err != nil {
		out.attempt.Error = out.err.Error()
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	}
	span.SetAttributes(attribute.Bool("success", out.attempt.Success))

	m.collector.RecordAttempt(workerID, task.Phase, out.attempt.Success, duration, out.attempt.CostHint)
	return out, content
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.slots == nil {
		return nil
	}
	return m.slots.Acquire(ctx, 1)
}

func (m *Manager) release() {
	if m.slots != nil {
		m.slots.Release(1)
	}
}

// interrupted 区分调用超时与作业取消
func (m *Manager) interrupted(ctx, execCtx context.Context, workerID string) error {
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return types.Errorf(types.ErrAssignmentTimeout, "timeout after %s", m.cfg.Timeout).
			WithWorker(workerID).WithRetryable(true)
	}
	return types.NewError(types.ErrJobCancelled, "assignment cancelled").
		WithWorker(workerID).WithCause(ctx.Err())
}

// classifyReply 将 Worker 返回值归一为 error：error、nil 结果与 Success=false 都是失败
func classifyReply(workerID string, reply execReply) error {
	switch {
	case reply.err != nil:
		return types.NewError(types.ErrAssignmentFailed, "worker execution failed").
			WithWorker(workerID).WithCause(reply.err)
	case reply.res == nil:
		return types.NewError(types.ErrAssignmentFailed, "worker returned no result").WithWorker(workerID)
	case !reply.res.Success:
		msg := reply.res.Error
		if msg == "" {
			msg = "worker reported failure"
		}
		return types.NewError(types.ErrAssignmentFailed, msg).WithWorker(workerID)
	}
	return nil
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
