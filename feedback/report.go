package feedback

import (
	"time"

	"github.com/BaSui01/taskrouter/registry"
)

// WorkerReport 单个 Worker 的统计
type WorkerReport struct {
	WorkerID            string  `json:"worker_id"`
	UsageCount          int64   `json:"usage_count"`
	SuccessCount        int64   `json:"success_count"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
	SampleCount         int     `json:"sample_count"`
	CostAccrued         float64 `json:"cost_accrued"`
	// TrafficShare 占全部调用的百分比（0-100）
	TrafficShare float64 `json:"traffic_share"`
}

// StatsReport 所有 Worker 的统计报告，按注册顺序
type StatsReport struct {
	TotalUsage int64          `json:"total_usage"`
	TotalCost  float64        `json:"total_cost"`
	Workers    []WorkerReport `json:"workers"`
}

// Worker 按 ID 查找
func (r StatsReport) Worker(id string) (WorkerReport, bool) {
	for _, w := range r.Workers {
		if w.WorkerID == id {
			return w, true
		}
	}
	return WorkerReport{}, false
}

// Snapshot 持久化用的带时间戳报告
type Snapshot struct {
	TakenAt time.Time   `json:"taken_at"`
	Report  StatsReport `json:"report"`
}

func buildReport(stats []registry.StatsSnapshot) StatsReport {
	report := StatsReport{Workers: make([]WorkerReport, 0, len(stats))}
	for _, s := range stats {
		report.TotalUsage += s.UsageCount
		report.TotalCost += s.CostAccrued
	}

	for _, s := range stats {
		w := WorkerReport{
			WorkerID:            s.WorkerID,
			UsageCount:          s.UsageCount,
			SuccessCount:        s.SuccessCount,
			SuccessRate:         s.SuccessRate,
			AverageResponseTime: s.AverageResponseTime,
			SampleCount:         s.SampleCount,
			CostAccrued:         s.CostAccrued,
		}
		if report.TotalUsage > 0 {
			w.TrafficShare = float64(s.UsageCount) / float64(report.TotalUsage) * 100
		}
		report.Workers = append(report.Workers, w)
	}
	return report
}
