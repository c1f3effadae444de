package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/types"
)

type entry struct {
	profile types.WorkerProfile
	worker  types.Worker
	stats   *WorkerStats
}

// Registry 保存 Worker 静态画像、执行器与动态统计。
// 画像在注册后不可变；统计只能通过 RecordOutcome 更新。
type Registry struct {
	mu             sync.RWMutex
	order          []string
	entries        map[string]*entry
	primaryID      string
	sampleCapacity int
	logger         *zap.Logger
}

// Option 配置 Registry
type Option func(*Registry)

// WithSampleCapacity 设置响应时间环形缓冲区容量
func WithSampleCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.sampleCapacity = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New 创建空的 Registry
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:        make(map[string]*entry),
		sampleCapacity: DefaultSampleCapacity,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "worker_registry"))
	return r
}

// Register 注册 Worker。ID 必须唯一，且最多一个主 Worker。
// worker 可为 nil（仅参与评分、不可执行）。
func (r *Registry) Register(profile types.WorkerProfile, worker types.Worker) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.LatencyClass == "" {
		profile.LatencyClass = types.LatencyMedium
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[profile.ID]; exists {
		return types.NewError(types.ErrDuplicateWorker, "worker already registered").WithWorker(profile.ID)
	}
	if profile.IsPrimary && r.primaryID != "" {
		return types.Errorf(types.ErrInvalidConfig, "primary worker already set to %s", r.primaryID).WithWorker(profile.ID)
	}

	r.entries[profile.ID] = &entry{
		profile: profile.Clone(),
		worker:  worker,
		stats:   newWorkerStats(r.sampleCapacity),
	}
	r.order = append(r.order, profile.ID)
	if profile.IsPrimary {
		r.primaryID = profile.ID
	}

	r.logger.Info("worker registered",
		zap.String("worker_id", profile.ID),
		zap.Strings("capabilities", profile.Capabilities),
		zap.Bool("primary", profile.IsPrimary),
		zap.Bool("executable", worker != nil),
	)
	return nil
}

// Len 返回已注册数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// PrimaryID 返回主 Worker ID（可能为空）
func (r *Registry) PrimaryID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primaryID
}

// IDs 按注册顺序返回所有 Worker ID
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot 按注册顺序返回画像副本
func (r *Registry) Snapshot() []types.WorkerProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.WorkerProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].profile.Clone())
	}
	return out
}

// Profile 返回单个画像副本
func (r *Registry) Profile(id string) (types.WorkerProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return types.WorkerProfile{}, false
	}
	return e.profile.Clone(), true
}

// Worker 返回执行器
func (r *Registry) Worker(id string) (types.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, types.NewError(types.ErrWorkerNotFound, "worker not registered").WithWorker(id)
	}
	if e.worker == nil {
		return nil, types.NewError(types.ErrWorkerNotFound, "worker has no executor").WithWorker(id)
	}
	return e.worker, nil
}

// RecordOutcome 原子地更新单个 Worker 的统计。仅供 feedback.Recorder 调用。
func (r *Registry) RecordOutcome(id string, o Outcome) error {
	if o.ExecutionTimeMs < 0 || o.CostHint < 0 {
		return types.Errorf(types.ErrStatsRecording, "negative outcome (time=%d, cost=%f)", o.ExecutionTimeMs, o.CostHint).WithWorker(id)
	}

	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return types.NewError(types.ErrWorkerNotFound, "cannot record outcome").WithWorker(id)
	}

	e.stats.apply(o)
	return nil
}

// Stats 返回单个 Worker 的统计快照
func (r *Registry) Stats(id string) (StatsSnapshot, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return StatsSnapshot{}, false
	}
	return e.stats.snapshot(id), true
}

// AllStats 按注册顺序返回所有统计快照
func (r *Registry) AllStats() []StatsSnapshot {
	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	entries := make([]*entry, len(order))
	for i, id := range order {
		entries[i] = r.entries[id]
	}
	r.mu.RUnlock()

	out := make([]StatsSnapshot, len(order))
	for i, e := range entries {
		out[i] = e.stats.snapshot(order[i])
	}
	return out
}

// ResetStats 清零单个 Worker 的统计（管理操作）
func (r *Registry) ResetStats(id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return types.NewError(types.ErrWorkerNotFound, "cannot reset stats").WithWorker(id)
	}
	e.stats.reset()
	r.logger.Info("worker stats reset", zap.String("worker_id", id))
	return nil
}

// ResetAllStats 清零全部统计（管理操作）
func (r *Registry) ResetAllStats() {
	for _, id := range r.IDs() {
		_ = r.ResetStats(id)
	}
}
