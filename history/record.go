package history

import (
	"strings"
	"time"

	"github.com/BaSui01/taskrouter/coordinator"
	"github.com/BaSui01/taskrouter/types"
)

// JobRecord 一个已完成作业的汇总
type JobRecord struct {
	ID               uint               `gorm:"primaryKey" json:"-"`
	JobID            string             `gorm:"size:64;not null;uniqueIndex:idx_job_records_job_id" json:"job_id"`
	Domain           string             `gorm:"size:64;not null" json:"domain"`
	Status           string             `gorm:"size:32;not null" json:"status"`
	Direct           bool               `gorm:"not null" json:"direct"`
	TextLength       int                `gorm:"not null" json:"text_length"`
	TotalAssignments int                `gorm:"not null" json:"total_assignments"`
	Succeeded        int                `gorm:"not null" json:"succeeded"`
	Failed           int                `gorm:"not null" json:"failed"`
	Fallbacks        int                `gorm:"not null" json:"fallbacks"`
	CostHint         float64            `gorm:"not null" json:"cost_hint"`
	DurationMs       int64              `gorm:"not null" json:"duration_ms"`
	SkippedPhases    string             `gorm:"type:text;not null" json:"skipped_phases,omitempty"`
	CreatedAt        time.Time          `gorm:"index:idx_job_records_created_at" json:"created_at"`
	Assignments      []AssignmentRecord `gorm:"foreignKey:JobID;references:JobID;constraint:OnDelete:CASCADE" json:"assignments"`
}

// TableName 表名
func (JobRecord) TableName() string { return "job_records" }

// AssignmentRecord 一个分配的最终结果（不保存 Worker 输出内容）
type AssignmentRecord struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	JobID           string    `gorm:"size:64;not null;index:idx_assignment_records_job_id" json:"job_id"`
	Phase           string    `gorm:"size:64;not null" json:"phase"`
	AgentID         string    `gorm:"size:128;not null" json:"agent_id"`
	Success         bool      `gorm:"not null" json:"success"`
	Fallback        bool      `gorm:"not null" json:"fallback"`
	FallbackFrom    string    `gorm:"size:128;not null" json:"fallback_from,omitempty"`
	Error           string    `gorm:"type:text;not null" json:"error,omitempty"`
	ExecutionTimeMs int64     `gorm:"not null" json:"execution_time_ms"`
	CostHint        float64   `gorm:"not null" json:"cost_hint"`
	Attempts        int       `gorm:"not null" json:"attempts"`
	StartedAt       time.Time `json:"started_at"`
	SettledAt       time.Time `json:"settled_at"`
}

// TableName 表名
func (AssignmentRecord) TableName() string { return "assignment_records" }

// Skipped 被跳过的阶段名
func (r JobRecord) Skipped() []string {
	if r.SkippedPhases == "" {
		return nil
	}
	return strings.Split(r.SkippedPhases, ",")
}

// NewJobRecord 由计划汇总与分配结果构建历史记录
func NewJobRecord(jobID string, textLength int, summary coordinator.PlanSummary, results []types.AssignmentResult) *JobRecord {
	rec := &JobRecord{
		JobID:            jobID,
		Domain:           summary.Domain,
		Status:           summary.Status,
		Direct:           summary.Direct,
		TextLength:       textLength,
		TotalAssignments: summary.TotalAssignments,
		Succeeded:        summary.Succeeded,
		Failed:           summary.Failed,
		Fallbacks:        summary.Fallbacks,
		CostHint:         summary.CostHint,
		DurationMs:       summary.DurationMs,
		SkippedPhases:    strings.Join(summary.SkippedPhases, ","),
		Assignments:      make([]AssignmentRecord, 0, len(results)),
	}
	for _, r := range results {
		rec.Assignments = append(rec.Assignments, AssignmentRecord{
			JobID:           jobID,
			Phase:           r.PhaseName,
			AgentID:         r.AgentID,
			Success:         r.Success,
			Fallback:        r.Fallback,
			FallbackFrom:    r.FallbackFrom,
			Error:           r.Error,
			ExecutionTimeMs: r.ExecutionTimeMs,
			CostHint:        r.CostHint,
			Attempts:        len(r.Attempts),
			StartedAt:       r.StartedAt,
			SettledAt:       r.SettledAt,
		})
	}
	return rec
}
