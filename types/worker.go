package types

import (
	"context"
	"fmt"
	"sort"
)

// LatencyClass 延迟等级
type LatencyClass string

const (
	LatencyLow    LatencyClass = "low"
	LatencyMedium LatencyClass = "medium"
	LatencyHigh   LatencyClass = "high"
)

// Valid reports whether the class is one of the known values.
func (l LatencyClass) Valid() bool {
	switch l {
	case LatencyLow, LatencyMedium, LatencyHigh:
		return true
	}
	return false
}

// WorkerProfile 是 Worker 的静态画像，注册后不可变
type WorkerProfile struct {
	ID            string       `json:"id" yaml:"id"`
	Capabilities  []string     `json:"capabilities" yaml:"capabilities"`
	CostPerCall   float64      `json:"cost_per_call" yaml:"cost_per_call"`
	LatencyClass  LatencyClass `json:"latency_class" yaml:"latency_class"`
	AccuracyScore float64      `json:"accuracy_score" yaml:"accuracy_score"`
	Languages     []string     `json:"languages" yaml:"languages"`
	IsPrimary     bool         `json:"is_primary" yaml:"is_primary"`
}

// Validate 校验画像字段
func (p WorkerProfile) Validate() error {
	if p.ID == "" {
		return NewError(ErrInvalidProfile, "worker id is required")
	}
	if p.CostPerCall < 0 {
		return NewError(ErrInvalidProfile, "cost_per_call must be non-negative").WithWorker(p.ID)
	}
	if p.AccuracyScore < 0 || p.AccuracyScore > 100 {
		return Errorf(ErrInvalidProfile, "accuracy_score %.2f out of range [0,100]", p.AccuracyScore).WithWorker(p.ID)
	}
	if p.LatencyClass != "" && !p.LatencyClass.Valid() {
		return Errorf(ErrInvalidProfile, "unknown latency class %q", p.LatencyClass).WithWorker(p.ID)
	}
	return nil
}

// HasCapability reports whether the worker declares tag.
func (p WorkerProfile) HasCapability(tag string) bool {
	for _, c := range p.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// SupportsLanguage reports whether the worker declares lang.
func (p WorkerProfile) SupportsLanguage(lang string) bool {
	for _, l := range p.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never mutate a registered profile.
func (p WorkerProfile) Clone() WorkerProfile {
	out := p
	out.Capabilities = dedupe(p.Capabilities)
	out.Languages = dedupe(p.Languages)
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Task 是交给 Worker 执行的任务载荷
type Task struct {
	JobID    string            `json:"job_id,omitempty"`
	Phase    string            `json:"phase,omitempty"`
	Text     string            `json:"text"`
	Context  TaskContext       `json:"context"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a copy whose Metadata map is not shared with t.
func (t Task) Clone() Task {
	out := t
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Result 是 Worker 执行结果
type Result struct {
	Success  bool    `json:"success"`
	Content  string  `json:"content,omitempty"`
	Error    string  `json:"error,omitempty"`
	CostHint float64 `json:"cost_hint"`
}

// Worker 是外部执行边界（LLM 客户端或专用 Agent）。
// 返回 error、nil 结果或 Success=false 都视为失败。
type Worker interface {
	Execute(ctx context.Context, task *Task) (*Result, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, task *Task) (*Result, error)

// Execute calls f(ctx, task).
func (f WorkerFunc) Execute(ctx context.Context, task *Task) (*Result, error) {
	return f(ctx, task)
}

// String 便于日志输出
func (p WorkerProfile) String() string {
	return fmt.Sprintf("%s(caps=%v, cost=%.4f, latency=%s, accuracy=%.1f, primary=%t)",
		p.ID, p.Capabilities, p.CostPerCall, p.LatencyClass, p.AccuracyScore, p.IsPrimary)
}
