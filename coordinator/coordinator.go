package coordinator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/taskrouter/internal/pool"
	"github.com/BaSui01/taskrouter/types"
)

const instrumentationName = "github.com/BaSui01/taskrouter/coordinator"

// 计划整体状态
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Executor 执行单个分配（主 Worker + 一次降级）
type Executor interface {
	ExecuteWithFallback(ctx context.Context, primaryID string, task *types.Task) types.AssignmentResult
}

// Recorder 在分配结束后立即记录结果
type Recorder interface {
	RecordResult(res types.AssignmentResult)
}

// PhaseSummary 单阶段汇总
type PhaseSummary struct {
	Name       string `json:"name"`
	Assigned   int    `json:"assigned"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Fallbacks  int    `json:"fallbacks"`
	DurationMs int64  `json:"duration_ms"`
}

// PlanSummary 计划执行汇总
type PlanSummary struct {
	Domain           string         `json:"domain"`
	Status           string         `json:"status"`
	Direct           bool           `json:"direct"`
	Phases           []PhaseSummary `json:"phases"`
	SkippedPhases    []string       `json:"skipped_phases,omitempty"`
	TotalAssignments int            `json:"total_assignments"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
	Fallbacks        int            `json:"fallbacks"`
	CostHint         float64        `json:"cost_hint"`
	DurationMs       int64          `json:"duration_ms"`
}

// Coordinator 按阶段顺序执行计划：阶段内并发，阶段间屏障。
// 并发上限由共享的 GoroutinePool 保证。
type Coordinator struct {
	pool     *pool.GoroutinePool
	executor Executor
	recorder Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New 创建协调器。recorder 可以为 nil。
func New(p *pool.GoroutinePool, executor Executor, recorder Recorder, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		pool:     p,
		executor: executor,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "coordinator")),
		tracer:   otel.Tracer(instrumentationName),
	}
}

// Run 执行计划并返回全部分配结果（按阶段、阶段内按计划顺序）。
// 单个分配失败不会中断阶段或计划；只有非法计划会返回错误。
// ctx 取消后尚未派发的分配直接以 JOB_CANCELLED 失败，已在执行的分配照常结束。
func (c *Coordinator) Run(ctx context.Context, plan *ExecutionPlan) ([]types.AssignmentResult, PlanSummary, error) {
	if err := plan.Validate(); err != nil {
		return nil, PlanSummary{}, err
	}

	start := time.Now()
	summary := PlanSummary{
		Domain:        plan.domain,
		Direct:        plan.direct,
		SkippedPhases: plan.Skipped(),
	}
	results := make([]types.AssignmentResult, 0, plan.AssignmentCount())

	for _, phase := range plan.phases {
		phaseResults := c.runPhase(ctx, plan.jobID, phase)
		results = append(results, phaseResults...)
		summary.Phases = append(summary.Phases, summarizePhase(phase.name, phaseResults))
	}

	for _, ps := range summary.Phases {
		summary.TotalAssignments += ps.Assigned
		summary.Succeeded += ps.Succeeded
		summary.Failed += ps.Failed
		summary.Fallbacks += ps.Fallbacks
	}
	for _, r := range results {
		summary.CostHint += r.CostHint
	}
	summary.DurationMs = time.Since(start).Milliseconds()
	summary.Status = planStatus(ctx, summary)

	c.logger.Info("plan finished",
		zap.String("job_id", plan.jobID),
		zap.String("domain", plan.domain),
		zap.String("status", summary.Status),
		zap.Int("assignments", summary.TotalAssignments),
		zap.Int("failed", summary.Failed),
		zap.Int("fallbacks", summary.Fallbacks),
		zap.Int64("duration_ms", summary.DurationMs),
	)
	return results, summary, nil
}

// runPhase 把阶段内所有分配投递到共享队列，等待全部结束后返回
func (c *Coordinator) runPhase(ctx context.Context, jobID string, phase Phase) []types.AssignmentResult {
	ctx, span := c.tracer.Start(ctx, "coordinator.phase", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("phase.name", phase.name),
		attribute.Int("phase.assignments", len(phase.assignments)),
	))
	defer span.End()

	results := make([]types.AssignmentResult, len(phase.assignments))
	var g errgroup.Group

	for i, a := range phase.assignments {
		i, a := i, a
		g.Go(func() error {
			err := c.pool.SubmitWait(ctx, func(taskCtx context.Context) error {
				task := a.Task.Clone()
				res := c.executor.ExecuteWithFallback(taskCtx, a.AgentID, &task)
				if res.PhaseName == "" {
					res.PhaseName = phase.name
				}
				results[i] = res
				if c.recorder != nil {
					c.recorder.RecordResult(res)
				}
				return nil
			})
			if err != nil {
				results[i] = notDispatched(ctx, jobID, phase.name, a.AgentID, err)
				c.logger.Warn("assignment not dispatched",
					zap.String("job_id", jobID),
					zap.String("phase", phase.name),
					zap.String("worker_id", a.AgentID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Debug("phase settled",
		zap.String("job_id", jobID),
		zap.String("phase", phase.name),
		zap.Int("assignments", len(results)),
	)
	return results
}

// notDispatched 分配未能正常结束（作业取消、队列关闭或任务 panic）
func notDispatched(ctx context.Context, jobID, phase, workerID string, cause error) types.AssignmentResult {
	now := time.Now()
	code := types.ErrAssignmentFailed
	if ctx.Err() != nil || errors.Is(cause, pool.ErrTaskSkipped) {
		code = types.ErrJobCancelled
	}
	err := types.NewError(code, "assignment not dispatched").WithWorker(workerID).WithCause(cause)
	return types.AssignmentResult{
		JobID:     jobID,
		AgentID:   workerID,
		PhaseName: phase,
		Success:   false,
		Error:     err.Error(),
		StartedAt: now,
		SettledAt: now,
	}
}

func summarizePhase(name string, results []types.AssignmentResult) PhaseSummary {
	ps := PhaseSummary{Name: name, Assigned: len(results)}
	var first, last time.Time
	for _, r := range results {
		if r.Success {
			ps.Succeeded++
		} else {
			ps.Failed++
		}
		if r.Fallback {
			ps.Fallbacks++
		}
		if first.IsZero() || r.StartedAt.Before(first) {
			first = r.StartedAt
		}
		if r.SettledAt.After(last) {
			last = r.SettledAt
		}
	}
	if !first.IsZero() && last.After(first) {
		ps.DurationMs = last.Sub(first).Milliseconds()
	}
	return ps
}

func planStatus(ctx context.Context, s PlanSummary) string {
	switch {
	case ctx.Err() != nil && s.Succeeded < s.TotalAssignments:
		return StatusCancelled
	case s.Failed == 0:
		return StatusCompleted
	case s.Succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
