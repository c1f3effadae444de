package types

import "time"

// Attempt 记录一次 Worker 调用（主调用或降级调用）
type Attempt struct {
	WorkerID   string  `json:"worker_id"`
	Success    bool    `json:"success"`
	DurationMs int64   `json:"duration_ms"`
	CostHint   float64 `json:"cost_hint"`
	Error      string  `json:"error,omitempty"`
}

// AssignmentResult 是单个分配执行结束后的结果
type AssignmentResult struct {
	JobID           string    `json:"job_id,omitempty"`
	AgentID         string    `json:"agent_id"`
	PhaseName       string    `json:"phase_name"`
	Success         bool      `json:"success"`
	Content         string    `json:"content,omitempty"`
	Error           string    `json:"error,omitempty"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	CostHint        float64   `json:"cost_hint"`
	Fallback        bool      `json:"fallback"`
	FallbackFrom    string    `json:"fallback_from,omitempty"`
	Attempts        []Attempt `json:"attempts"`
	StartedAt       time.Time `json:"started_at"`
	SettledAt       time.Time `json:"settled_at"`
}

// State returns the terminal execution state of the assignment.
func (r AssignmentResult) State() JobState {
	switch {
	case r.Success && !r.Fallback:
		return StateDirectSuccess
	case r.Success && r.Fallback:
		return StateFallbackSuccess
	default:
		return StateFailed
	}
}

// JobState 作业/分配的状态机
type JobState string

const (
	StateClassified      JobState = "CLASSIFIED"
	StateScored          JobState = "SCORED"
	StatePlanned         JobState = "PLANNED"
	StateExecuting       JobState = "EXECUTING"
	StateDirectSuccess   JobState = "DIRECT_SUCCESS"
	StateFallbackRunning JobState = "FALLBACK_EXECUTING"
	StateFallbackSuccess JobState = "FALLBACK_SUCCESS"
	StateFailed          JobState = "FAILED"
	StateRecorded        JobState = "RECORDED"
)
