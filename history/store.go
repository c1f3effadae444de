package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/taskrouter/internal/database"
	"github.com/BaSui01/taskrouter/internal/metrics"
)

// ErrNotFound 作业记录不存在
var ErrNotFound = errors.New("job record not found")

// defaultSaveRetries 死锁等可重试错误时的最大尝试次数
const defaultSaveRetries = 3

// Store 作业历史存储
type Store interface {
	Save(ctx context.Context, rec *JobRecord) error
	// Recent 最近 n 个作业，新的在前
	Recent(ctx context.Context, n int) ([]JobRecord, error)
	ByJob(ctx context.Context, jobID string) (*JobRecord, error)
}

// GormStore 基于 GORM 的历史存储，支持 postgres / mysql / sqlite
type GormStore struct {
	pool      *database.PoolManager
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewGormStore 创建存储。collector 可以为 nil。
func NewGormStore(pool *database.PoolManager, collector *metrics.Collector, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		pool:      pool,
		collector: collector,
		logger:    logger.With(zap.String("component", "job_history")),
	}
}

// AutoMigrate 创建或更新表结构（未使用 migrate 子命令时）
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&JobRecord{}, &AssignmentRecord{}); err != nil {
		return fmt.Errorf("auto migrate job history: %w", err)
	}
	return nil
}

// Save 在一个事务中写入作业及其全部分配
func (s *GormStore) Save(ctx context.Context, rec *JobRecord) error {
	if rec == nil || rec.JobID == "" {
		return errors.New("job record requires a job id")
	}
	start := time.Now()
	defer func() { s.collector.RecordDBQuery("history_save", time.Since(start)) }()

	err := s.pool.WithTransactionRetry(ctx, defaultSaveRetries, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return fmt.Errorf("save job %s: %w", rec.JobID, err)
	}

	s.logger.Debug("job history saved",
		zap.String("job_id", rec.JobID),
		zap.Int("assignments", len(rec.Assignments)),
	)
	return nil
}

// Recent 返回最近 n 个作业（含分配）
func (s *GormStore) Recent(ctx context.Context, n int) ([]JobRecord, error) {
	if n <= 0 {
		return []JobRecord{}, nil
	}
	start := time.Now()
	defer func() { s.collector.RecordDBQuery("history_recent", time.Since(start)) }()

	var records []JobRecord
	err := s.pool.DB().WithContext(ctx).
		Preload("Assignments", orderByID).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load recent jobs: %w", err)
	}
	return records, nil
}

// ByJob 按作业 ID 查找
func (s *GormStore) ByJob(ctx context.Context, jobID string) (*JobRecord, error) {
	start := time.Now()
	defer func() { s.collector.RecordDBQuery("history_by_job", time.Since(start)) }()

	var rec JobRecord
	err := s.pool.DB().WithContext(ctx).
		Preload("Assignments", orderByID).
		Where("job_id = ?", jobID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return &rec, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
