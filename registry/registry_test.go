package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/taskrouter/types"
)

func noopWorker() types.Worker {
	return types.WorkerFunc(func(ctx context.Context, task *types.Task) (*types.Result, error) {
		return &types.Result{Success: true}, nil
	})
}

func TestRegistry_RegisterOrderAndPrimary(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "b", Capabilities: []string{"code"}}, noopWorker()))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a", IsPrimary: true}, noopWorker()))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "c"}, nil))

	assert.Equal(t, []string{"b", "a", "c"}, r.IDs())
	assert.Equal(t, "a", r.PrimaryID())
	assert.Equal(t, 3, r.Len())

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "b", snap[0].ID)
	assert.Equal(t, types.LatencyMedium, snap[0].LatencyClass)
}

func TestRegistry_RejectsDuplicatesAndSecondPrimary(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a", IsPrimary: true}, nil))

	err := r.Register(types.WorkerProfile{ID: "a"}, nil)
	assert.Equal(t, types.ErrDuplicateWorker, types.GetErrorCode(err))

	err = r.Register(types.WorkerProfile{ID: "b", IsPrimary: true}, nil)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))

	err = r.Register(types.WorkerProfile{ID: "c", AccuracyScore: 101}, nil)
	assert.Equal(t, types.ErrInvalidProfile, types.GetErrorCode(err))

	err = r.Register(types.WorkerProfile{ID: "d", CostPerCall: -1}, nil)
	assert.Equal(t, types.ErrInvalidProfile, types.GetErrorCode(err))

	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ProfilesAreImmutable(t *testing.T) {
	r := New()
	caps := []string{"code", "arabic"}
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a", Capabilities: caps}, nil))

	caps[0] = "mutated"
	p, ok := r.Profile("a")
	require.True(t, ok)
	assert.Equal(t, []string{"arabic", "code"}, p.Capabilities)

	p.Capabilities[0] = "also-mutated"
	again, _ := r.Profile("a")
	assert.Equal(t, []string{"arabic", "code"}, again.Capabilities)
}

func TestRegistry_Worker(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "exec"}, noopWorker()))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "score-only"}, nil))

	w, err := r.Worker("exec")
	require.NoError(t, err)
	assert.NotNil(t, w)

	_, err = r.Worker("score-only")
	assert.Equal(t, types.ErrWorkerNotFound, types.GetErrorCode(err))

	_, err = r.Worker("missing")
	assert.Equal(t, types.ErrWorkerNotFound, types.GetErrorCode(err))
}

func TestRegistry_RecordOutcome(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a"}, nil))

	require.NoError(t, r.RecordOutcome("a", Outcome{Success: true, ExecutionTimeMs: 100, CostHint: 0.5}))
	require.NoError(t, r.RecordOutcome("a", Outcome{Success: false, ExecutionTimeMs: 300, CostHint: 0.25}))

	s, ok := r.Stats("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), s.UsageCount)
	assert.Equal(t, int64(1), s.SuccessCount)
	assert.InDelta(t, 0.5, s.SuccessRate, 1e-9)
	assert.InDelta(t, 200.0, s.AverageResponseTime, 1e-9)
	assert.InDelta(t, 0.75, s.CostAccrued, 1e-9)

	assert.Equal(t, types.ErrWorkerNotFound, types.GetErrorCode(r.RecordOutcome("missing", Outcome{})))
	assert.Equal(t, types.ErrStatsRecording, types.GetErrorCode(r.RecordOutcome("a", Outcome{CostHint: -1})))
}

func TestRegistry_UnusedWorkerHasZeroRates(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a"}, nil))

	s, _ := r.Stats("a")
	assert.Zero(t, s.SuccessRate)
	assert.Zero(t, s.AverageResponseTime)
}

func TestRegistry_ConcurrentRecordsAreNotLost(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a"}, nil))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "b"}, nil))

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.RecordOutcome("a", Outcome{Success: i%2 == 0, ExecutionTimeMs: 10, CostHint: 0.01})
		}(i)
		go func() {
			defer wg.Done()
			_ = r.RecordOutcome("b", Outcome{Success: true, ExecutionTimeMs: 20})
		}()
	}
	wg.Wait()

	a, _ := r.Stats("a")
	b, _ := r.Stats("b")
	assert.Equal(t, int64(n), a.UsageCount)
	assert.Equal(t, int64(n/2), a.SuccessCount)
	assert.InDelta(t, float64(n)*0.01, a.CostAccrued, 1e-6)
	assert.Equal(t, int64(n), b.UsageCount)
	assert.Equal(t, DefaultSampleCapacity, b.SampleCount)
}

func TestRegistry_ResetStats(t *testing.T) {
	r := New(WithSampleCapacity(3))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "a"}, nil))
	require.NoError(t, r.Register(types.WorkerProfile{ID: "b"}, nil))
	require.NoError(t, r.RecordOutcome("a", Outcome{Success: true, ExecutionTimeMs: 5}))
	require.NoError(t, r.RecordOutcome("b", Outcome{Success: true, ExecutionTimeMs: 5}))

	require.NoError(t, r.ResetStats("a"))
	s, _ := r.Stats("a")
	assert.Equal(t, StatsSnapshot{WorkerID: "a"}, s)

	r.ResetAllStats()
	all := r.AllStats()
	require.Len(t, all, 2)
	assert.Equal(t, StatsSnapshot{WorkerID: "b"}, all[1])

	assert.Error(t, r.ResetStats("missing"))
}
