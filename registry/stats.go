package registry

import "sync"

// WorkerStats 动态性能统计。每个 Worker 一把锁，保证更新不丢失、不撕裂。
type WorkerStats struct {
	mu           sync.Mutex
	usageCount   int64
	successCount int64
	samples      *RingBuffer
	costAccrued  float64
}

func newWorkerStats(capacity int) *WorkerStats {
	return &WorkerStats{samples: NewRingBuffer(capacity)}
}

// StatsSnapshot 是 WorkerStats 的只读快照
type StatsSnapshot struct {
	WorkerID            string  `json:"worker_id"`
	UsageCount          int64   `json:"usage_count"`
	SuccessCount        int64   `json:"success_count"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
	SampleCount         int     `json:"sample_count"`
	CostAccrued         float64 `json:"cost_accrued"`
}

// Outcome 一次已结束调用的结果
type Outcome struct {
	Success         bool
	ExecutionTimeMs int64
	CostHint        float64
}

func (s *WorkerStats) apply(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usageCount++
	if o.Success {
		s.successCount++
	}
	s.samples.Push(o.ExecutionTimeMs)
	s.costAccrued += o.CostHint
}

func (s *WorkerStats) snapshot(id string) StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		WorkerID:            id,
		UsageCount:          s.usageCount,
		SuccessCount:        s.successCount,
		AverageResponseTime: s.samples.Mean(),
		SampleCount:         s.samples.Len(),
		CostAccrued:         s.costAccrued,
	}
	if s.usageCount > 0 {
		snap.SuccessRate = float64(s.successCount) / float64(s.usageCount)
	}
	return snap
}

func (s *WorkerStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usageCount = 0
	s.successCount = 0
	s.costAccrued = 0
	s.samples.Reset()
}
