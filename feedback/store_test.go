package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/internal/cache"
)

func snapshotAt(sec int64, usage int64) Snapshot {
	return Snapshot{
		TakenAt: time.Unix(sec, 0).UTC(),
		Report: StatsReport{
			TotalUsage: usage,
			Workers:    []WorkerReport{{WorkerID: "w", UsageCount: usage, TrafficShare: 100}},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.Save(ctx, snapshotAt(i, i)))
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Report.TotalUsage)

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(3), history[0].Report.TotalUsage)
	assert.Equal(t, int64(2), history[1].Report.TotalUsage)

	one, err := s.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func setupRedisStore(t *testing.T, ttl time.Duration, maxLen int) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: ttl}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return mr, NewRedisStore(m, "test:stats", maxLen)
}

func TestRedisStore_SaveAndLatest(t *testing.T) {
	mr, s := setupRedisStore(t, time.Hour, 3)
	ctx := context.Background()

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	want := snapshotAt(100, 7)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, want.TakenAt.Equal(got.TakenAt))
	assert.Equal(t, want.Report, got.Report)

	assert.True(t, mr.Exists("test:stats:latest"))
	assert.Equal(t, time.Hour, mr.TTL("test:stats:latest"))
	assert.Equal(t, time.Hour, mr.TTL("test:stats:history"))
}

func TestRedisStore_HistoryIsBounded(t *testing.T) {
	mr, s := setupRedisStore(t, 0, 3)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Save(ctx, snapshotAt(i, i)))
	}

	items, err := mr.List("test:stats:history")
	require.NoError(t, err)
	assert.Len(t, items, 3)

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(5), history[0].Report.TotalUsage)
	assert.Equal(t, int64(3), history[2].Report.TotalUsage)

	two, err := s.History(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRedisStore_CorruptHistory(t *testing.T) {
	mr, s := setupRedisStore(t, 0, 3)
	_, err := mr.Lpush("test:stats:history", "{not json")
	require.NoError(t, err)

	_, err = s.History(context.Background(), 1)
	assert.Error(t, err)
}

func TestRecorder_SnapshotFailureIsSwallowed(t *testing.T) {
	mr, s := setupRedisStore(t, time.Minute, 3)
	r := NewRecorder(newRegistry(t, "w"), WithStore(s))
	mr.Close()

	var snap Snapshot
	assert.NotPanics(t, func() { snap = r.Snapshot(context.Background()) })
	require.Len(t, snap.Report.Workers, 1)
}
