package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/BaSui01/taskrouter/internal/cache"
)

// ErrNoSnapshot 尚未保存过快照
var ErrNoSnapshot = errors.New("no stats snapshot")

// DefaultHistoryLen 每个存储保留的历史快照数
const DefaultHistoryLen = 100

// Store 保存统计快照
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Latest(ctx context.Context) (*Snapshot, error)
	// History 返回最近 n 个快照，新的在前
	History(ctx context.Context, n int) ([]Snapshot, error)
}

// =============================================================================
// 🧠 内存存储
// =============================================================================

// MemoryStore 进程内存储，未配置 Redis 时使用
type MemoryStore struct {
	mu      sync.RWMutex
	history []Snapshot // 新的在前
	maxLen  int
}

// NewMemoryStore 创建内存存储。maxLen <= 0 时使用 DefaultHistoryLen。
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = DefaultHistoryLen
	}
	return &MemoryStore{maxLen: maxLen}
}

// Save 保存快照
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]Snapshot{snap}, s.history...)
	if len(s.history) > s.maxLen {
		s.history = s.history[:s.maxLen]
	}
	return nil
}

// Latest 返回最近的快照
func (s *MemoryStore) Latest(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil, ErrNoSnapshot
	}
	snap := s.history[0]
	return &snap, nil
}

// History 返回最近 n 个快照
func (s *MemoryStore) History(_ context.Context, n int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]Snapshot, n)
	copy(out, s.history[:n])
	return out, nil
}

// =============================================================================
// 🗄️ Redis 存储
// =============================================================================

// RedisStore 把快照写入 Redis：<prefix>:latest 保存最新快照，<prefix>:history 为有界列表
type RedisStore struct {
	cache  *cache.Manager
	prefix string
	maxLen int64
}

// NewRedisStore 创建 Redis 存储。TTL 由 cache.Manager 的 DefaultTTL 决定。
func NewRedisStore(m *cache.Manager, prefix string, maxLen int) *RedisStore {
	if prefix == "" {
		prefix = "taskrouter:stats"
	}
	if maxLen <= 0 {
		maxLen = DefaultHistoryLen
	}
	return &RedisStore{cache: m, prefix: prefix, maxLen: int64(maxLen)}
}

func (s *RedisStore) latestKey() string  { return s.prefix + ":latest" }
func (s *RedisStore) historyKey() string { return s.prefix + ":history" }

// Save 保存快照
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	if err := s.cache.SetJSON(ctx, s.latestKey(), snap, 0); err != nil {
		return fmt.Errorf("save latest snapshot: %w", err)
	}
	if err := s.cache.PushJSON(ctx, s.historyKey(), snap, s.maxLen); err != nil {
		return fmt.Errorf("append snapshot history: %w", err)
	}
	return nil
}

// Latest 返回最新快照
func (s *RedisStore) Latest(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := s.cache.GetJSON(ctx, s.latestKey(), &snap); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	return &snap, nil
}

// History 返回最近 n 个快照
func (s *RedisStore) History(ctx context.Context, n int) ([]Snapshot, error) {
	if n <= 0 {
		n = int(s.maxLen)
	}
	raw, err := s.cache.Range(ctx, s.historyKey(), int64(n))
	if err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}
	out := make([]Snapshot, 0, len(raw))
	for _, item := range raw {
		var snap Snapshot
		if err := json.Unmarshal([]byte(item), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}
