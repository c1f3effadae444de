// Package taskrouter 是库的顶层入口：按配置装配分类器、Worker 注册表、评分器、
// 降级管理器、共享分配队列、阶段协调器与统计记录器。
//
// 用法:
//
//	import "github.com/BaSui01/taskrouter"
//
//	engine, err := taskrouter.New(config.DefaultConfig(), taskrouter.WithLogger(logger))
//	defer engine.Close()
//
//	id, err := engine.SelectWorker(ctx, "write a python function", types.TaskContext{})
//	job, err := engine.SubmitJob(ctx, "plan a trip to Cairo", types.TaskContext{}, "")
package taskrouter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/classifier"
	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/coordinator"
	"github.com/BaSui01/taskrouter/fallback"
	"github.com/BaSui01/taskrouter/feedback"
	"github.com/BaSui01/taskrouter/history"
	"github.com/BaSui01/taskrouter/internal/ctxkeys"
	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/internal/pool"
	"github.com/BaSui01/taskrouter/registry"
	"github.com/BaSui01/taskrouter/router"
	"github.com/BaSui01/taskrouter/types"
	"github.com/BaSui01/taskrouter/workers"
)

const (
	instrumentationName = "github.com/BaSui01/taskrouter"

	// MetricsNamespace Prometheus 指标前缀
	MetricsNamespace = "taskrouter"

	historySaveTimeout = 5 * time.Second
)

// Option 配置 New 创建的 Engine
type Option func(*options)

type options struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	collector  *metrics.Collector
	executors  map[string]types.Worker
	statsStore feedback.Store
	history    history.Store
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer 把指标注册到 reg。未设置时不采集指标。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithCollector 使用已创建的指标收集器，优先于 WithRegisterer
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithWorker 为配置中的 Worker id 指定执行器，替代 config.WorkerConfig.Executor
func WithWorker(id string, w types.Worker) Option {
	return func(o *options) {
		if o.executors == nil {
			o.executors = make(map[string]types.Worker)
		}
		o.executors[id] = w
	}
}

// WithStatsStore 设置统计快照存储
func WithStatsStore(s feedback.Store) Option {
	return func(o *options) { o.statsStore = s }
}

// WithHistory 设置作业历史存储。写入失败只记录日志。
func WithHistory(s history.Store) Option {
	return func(o *options) { o.history = s }
}

// JobResult SubmitJob 的返回值
type JobResult struct {
	JobID          string                   `json:"job_id"`
	Domain         string                   `json:"domain"`
	Classification types.Classification     `json:"classification"`
	Results        []types.AssignmentResult `json:"results"`
	Summary        coordinator.PlanSummary  `json:"summary"`
}

// Engine 路由引擎。所有方法并发安全。
type Engine struct {
	classifier  *classifier.Classifier
	registry    *registry.Registry
	scorer      *router.Scorer
	planner     *coordinator.Planner
	pool        *pool.GoroutinePool
	fallback    *fallback.Manager
	coordinator *coordinator.Coordinator
	recorder    *feedback.Recorder
	history     history.Store
	collector   *metrics.Collector
	logger      *zap.Logger
	tracer      trace.Tracer

	snapshotInterval time.Duration
	closeOnce        sync.Once
}

// New 按配置创建引擎。cfg 为 nil 时使用 config.DefaultConfig()。
// 引擎只保留配置的副本，之后对 cfg 的修改不会生效。
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "invalid configuration").WithCause(err)
	}

	collector := o.collector
	if collector == nil && o.registerer != nil {
		collector = metrics.NewCollector(MetricsNamespace, o.registerer, o.logger)
	}

	reg := registry.New(
		registry.WithSampleCapacity(cfg.Router.SampleCapacity),
		registry.WithLogger(o.logger),
	)
	for _, wc := range cfg.Workers {
		w, ok := o.executors[wc.ID]
		if !ok {
			var err error
			if w, err = workers.FromConfig(wc); err != nil {
				return nil, err
			}
		}
		if err := reg.Register(wc.Profile(), w); err != nil {
			return nil, fmt.Errorf("register worker %s: %w", wc.ID, err)
		}
	}

	scoring := scoringConfig(cfg.Router)
	if err := scoring.Validate(); err != nil {
		return nil, err
	}
	scorer := router.NewScorer(scoring, o.logger, collector)

	planner, err := coordinator.NewPlanner(domainDefinitions(cfg.Domains), cfg.Router.MaxAssignmentsPerPhase, scorer, o.logger)
	if err != nil {
		return nil, err
	}

	assignmentPool := pool.NewGoroutinePool(pool.GoroutinePoolConfig{
		MaxWorkers: cfg.Router.MaxConcurrency,
		QueueSize:  cfg.Router.QueueSize,
		Logger:     o.logger,
	})
	fb := fallback.NewManager(reg, fallback.Config{
		FallbackWorkerID: cfg.Router.FallbackWorkerID,
		Timeout:          cfg.Router.AssignmentTimeout,
		MaxConcurrent:    cfg.Router.MaxConcurrency,
	}, o.logger, collector)

	recorderOpts := []feedback.Option{
		feedback.WithCollector(collector),
		feedback.WithLogger(o.logger),
	}
	if o.statsStore != nil {
		recorderOpts = append(recorderOpts, feedback.WithStore(o.statsStore))
	}
	recorder := feedback.NewRecorder(reg, recorderOpts...)

	e := &Engine{
		classifier:       classifier.New(categoryDefinitions(cfg.Categories)...),
		registry:         reg,
		scorer:           scorer,
		planner:          planner,
		pool:             assignmentPool,
		fallback:         fb,
		coordinator:      coordinator.New(assignmentPool, fb, recorder, o.logger),
		recorder:         recorder,
		history:          o.history,
		collector:        collector,
		logger:           o.logger.With(zap.String("component", "engine")),
		tracer:           otel.Tracer(instrumentationName),
		snapshotInterval: cfg.Stats.SnapshotInterval,
	}

	e.logger.Info("engine ready",
		zap.Int("workers", reg.Len()),
		zap.String("primary", reg.PrimaryID()),
		zap.String("fallback", fb.FallbackWorkerID()),
		zap.Int("max_concurrency", assignmentPool.MaxWorkers()),
	)
	return e, nil
}

func scoringConfig(rc config.RouterConfig) router.ScoringConfig {
	sc := router.DefaultScoringConfig()
	if len(rc.CategoryWeights) > 0 {
		sc.CategoryWeights = make(map[string]float64, len(rc.CategoryWeights))
		for k, v := range rc.CategoryWeights {
			sc.CategoryWeights[k] = v
		}
	}
	sc.DefaultCategoryWeight = rc.DefaultCategoryWeight
	sc.PrimaryBonus = rc.PrimaryBonus
	sc.LanguageBonus = rc.LanguageBonus
	sc.CostScale = rc.CostScale
	sc.AccuracyDivisor = rc.AccuracyDivisor
	sc.LatencyPenalty = rc.LatencyPenalty
	return sc
}

func categoryDefinitions(cats []config.CategoryConfig) []classifier.CategoryDefinition {
	if len(cats) == 0 {
		return nil
	}
	out := make([]classifier.CategoryDefinition, 0, len(cats))
	for _, c := range cats {
		out = append(out, classifier.CategoryDefinition{
			Name:     c.Name,
			Triggers: append([]string(nil), c.Triggers...),
		})
	}
	return out
}

func domainDefinitions(domains []config.DomainConfig) []coordinator.DomainDefinition {
	if len(domains) == 0 {
		return nil
	}
	out := make([]coordinator.DomainDefinition, 0, len(domains))
	for _, d := range domains {
		def := coordinator.DomainDefinition{Name: d.Name}
		for _, p := range d.Phases {
			def.Phases = append(def.Phases, coordinator.PhaseDefinition{
				Name:                 p.Name,
				RequiredCapabilities: append([]string(nil), p.RequiredCapabilities...),
				MaxAssignments:       p.MaxAssignments,
			})
		}
		out = append(out, def)
	}
	return out
}

// Classify 对文本分类。畸形的上下文字段按默认值处理，只记录日志。
func (e *Engine) Classify(text string, tc types.TaskContext) types.Classification {
	return e.classifier.Classify(text, e.normalize(tc))
}

// SelectWorker 单 Worker 路径：分类后返回得分最高的 Worker id
func (e *Engine) SelectWorker(ctx context.Context, text string, tc types.TaskContext) (string, error) {
	_, span := e.tracer.Start(ctx, "taskrouter.select_worker")
	defer span.End()

	tc = e.normalize(tc)
	cls := e.classifier.Classify(text, tc)
	id, err := e.scorer.SelectBest(cls, tc, e.registry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("worker.id", id))
	return id, nil
}

// Execute 选出最佳 Worker 并执行一次（含降级），结果计入统计
func (e *Engine) Execute(ctx context.Context, text string, tc types.TaskContext) (types.AssignmentResult, error) {
	jobID := uuid.NewString()
	tc = e.normalize(tc)
	cls := e.classifier.Classify(text, tc)

	workerID, err := e.scorer.SelectBest(cls, tc, e.registry)
	if err != nil {
		return types.AssignmentResult{}, err
	}
	plan, err := coordinator.NewPlan(jobID, coordinator.DomainGeneral, coordinator.NewPhase(coordinator.DirectPhase,
		coordinator.AgentAssignment{
			AgentID: workerID,
			Task:    types.Task{JobID: jobID, Phase: coordinator.DirectPhase, Text: text, Context: tc},
		}))
	if err != nil {
		return types.AssignmentResult{}, err
	}

	results, _, err := e.coordinator.Run(ctx, plan)
	if err != nil {
		return types.AssignmentResult{}, err
	}
	return results[0], nil
}

// SubmitJob 多阶段路径：分类、判定领域（domain 为空时自动判定）、构建计划并按阶段执行。
// 只有计划无法构建时返回错误；单个分配失败体现在 Results 与 Summary 中。
func (e *Engine) SubmitJob(ctx context.Context, text string, tc types.TaskContext, domain string) (*JobResult, error) {
	jobID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "taskrouter.submit_job", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.domain_hint", domain),
	))
	defer span.End()

	ctx = types.WithJobID(ctx, jobID)
	start := time.Now()
	logger := e.logger.With(zap.String("job_id", jobID))
	if sc := span.SpanContext(); sc.HasTraceID() {
		traceID := sc.TraceID().String()
		ctx = types.WithTraceID(ctx, traceID)
		logger = logger.With(zap.String("trace_id", traceID))
	}
	if requestID, ok := ctxkeys.RequestID(ctx); ok {
		logger = logger.With(zap.String("request_id", requestID))
	}

	tc = e.normalize(tc)
	cls := e.classifier.Classify(text, tc)
	logger.Debug("job state", zap.String("state", string(types.StateClassified)))

	plan, err := e.planner.BuildPlan(coordinator.PlanRequest{
		JobID:          jobID,
		Text:           text,
		Context:        tc,
		Classification: cls,
		Domain:         domain,
		Profiles:       e.registry.Snapshot(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.collector.RecordJob(jobDomainLabel(domain), coordinator.StatusFailed, time.Since(start))
		logger.Warn("plan rejected", zap.Error(err))
		return nil, err
	}
	logger.Debug("job state",
		zap.String("state", string(types.StatePlanned)),
		zap.String("domain", plan.Domain()),
		zap.Int("assignments", plan.AssignmentCount()),
	)

	results, summary, err := e.coordinator.Run(ctx, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e.collector.RecordJob(summary.Domain, summary.Status, time.Since(start))
	e.saveHistory(ctx, logger, jobID, cls.TextLength, summary, results)
	logger.Debug("job state", zap.String("state", string(types.StateRecorded)), zap.String("status", summary.Status))

	span.SetAttributes(
		attribute.String("job.domain", summary.Domain),
		attribute.String("job.status", summary.Status),
		attribute.Int("job.assignments", summary.TotalAssignments),
		attribute.Int("job.fallbacks", summary.Fallbacks),
	)
	if summary.Status == coordinator.StatusFailed {
		span.SetStatus(codes.Error, "all assignments failed")
	}

	return &JobResult{
		JobID:          jobID,
		Domain:         summary.Domain,
		Classification: cls,
		Results:        results,
		Summary:        summary,
	}, nil
}

func (e *Engine) saveHistory(ctx context.Context, logger *zap.Logger, jobID string, textLength int, summary coordinator.PlanSummary, results []types.AssignmentResult) {
	if e.history == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historySaveTimeout)
	defer cancel()

	if err := e.history.Save(saveCtx, history.NewJobRecord(jobID, textLength, summary, results)); err != nil {
		logger.Warn("job history not saved", zap.Error(err))
	}
}

func jobDomainLabel(domain string) string {
	if domain == "" {
		return "unresolved"
	}
	return domain
}

func (e *Engine) normalize(tc types.TaskContext) types.TaskContext {
	out, err := tc.Normalize()
	if err != nil {
		e.logger.Debug("task context normalized", zap.Error(err))
	}
	return out
}

// StatsReport 当前统计报告
func (e *Engine) StatsReport() feedback.StatsReport {
	return e.recorder.StatsReport()
}

// ResetStats 清空指定 Worker 的统计；id 为空时清空全部
func (e *Engine) ResetStats(id string) error {
	if id == "" {
		e.registry.ResetAllStats()
		return nil
	}
	return e.registry.ResetStats(id)
}

// Profiles 按注册顺序返回 Worker 画像
func (e *Engine) Profiles() []types.WorkerProfile {
	return e.registry.Snapshot()
}

// Rank 返回全部 Worker 的评分明细（用于诊断）
func (e *Engine) Rank(text string, tc types.TaskContext) (types.Classification, []router.WorkerScore, error) {
	tc = e.normalize(tc)
	cls := e.classifier.Classify(text, tc)
	scores, err := e.scorer.Score(cls, tc, e.registry.Snapshot())
	return cls, scores, err
}

// RunSnapshots 按配置的间隔把统计报告写入快照存储，直到 ctx 结束
func (e *Engine) RunSnapshots(ctx context.Context) {
	e.recorder.RunSnapshots(ctx, e.snapshotInterval)
}

// LatestSnapshot 读取最近一次持久化的统计快照
func (e *Engine) LatestSnapshot(ctx context.Context) (*feedback.Snapshot, error) {
	return e.recorder.LoadLatest(ctx)
}

// QueueStats 共享分配队列的统计
func (e *Engine) QueueStats() pool.GoroutinePoolStats {
	return e.pool.Stats()
}

// Close 关闭分配队列，等待已派发的分配结束
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.pool.Close()
		e.logger.Info("engine closed")
	})
}
