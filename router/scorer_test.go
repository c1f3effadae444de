package router

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/classifier"
	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/registry"
	"github.com/BaSui01/taskrouter/types"
)

type staticProfiles []types.WorkerProfile

func (s staticProfiles) Snapshot() []types.WorkerProfile { return s }

func newRegistry(t *testing.T, profiles ...types.WorkerProfile) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, p := range profiles {
		require.NoError(t, r.Register(p, nil))
	}
	return r
}

func TestSelectBest_EmptyRegistry(t *testing.T) {
	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)
	_, err := s.SelectBest(types.Classification{}, types.TaskContext{}, registry.New())
	require.Error(t, err)
	assert.Equal(t, types.ErrNoWorkers, types.GetErrorCode(err))
}

func TestSelectBest_EmptyTextPicksPrimary(t *testing.T) {
	reg := newRegistry(t, types.WorkerProfile{ID: "w-primary", IsPrimary: true, AccuracyScore: 70})
	cls := classifier.New(classifier.DefaultCategories()...).Classify("", types.TaskContext{})

	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)
	id, err := s.SelectBest(cls, types.TaskContext{}, reg)
	require.NoError(t, err)
	assert.Equal(t, "w-primary", id)
}

func TestSelectBest_CodeTaskPicksCodeWorker(t *testing.T) {
	reg := newRegistry(t,
		types.WorkerProfile{ID: "w-general", Capabilities: []string{"general"}, AccuracyScore: 80, CostPerCall: 0.001},
		types.WorkerProfile{ID: "w-creative", Capabilities: []string{"creative"}, AccuracyScore: 85, CostPerCall: 0.001},
		types.WorkerProfile{ID: "w-code", Capabilities: []string{"code", "complex_reasoning"}, AccuracyScore: 90, CostPerCall: 0.002},
	)
	tc := types.TaskContext{}
	cls := classifier.New(classifier.DefaultCategories()...).Classify("please generate python code for a REST endpoint", tc)

	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)
	id, err := s.SelectBest(cls, tc, reg)
	require.NoError(t, err)
	assert.Equal(t, "w-code", id)

	scores, err := s.Score(cls, tc, reg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, scores[0].MatchedCategories)
	assert.InDelta(t, 25+9-2, scores[0].Score, 1e-9)
}

func TestScore_PrimaryBonusDominatesSingleCategory(t *testing.T) {
	profiles := staticProfiles{
		{ID: "w-code", Capabilities: []string{"code"}, AccuracyScore: 90},
		{ID: "w-primary", IsPrimary: true, AccuracyScore: 60},
	}
	cls := types.Classification{CategoryScores: []types.CategoryScore{{Category: "code", Hits: 3}}}

	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)
	id, err := s.SelectBest(cls, types.TaskContext{}, profiles)
	require.NoError(t, err)
	assert.Equal(t, "w-primary", id)
}

func TestScore_TieBreaksByRegistrationOrder(t *testing.T) {
	profiles := staticProfiles{
		{ID: "first", AccuracyScore: 50},
		{ID: "second", AccuracyScore: 50},
		{ID: "third", AccuracyScore: 50},
	}
	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)

	scores, err := s.Score(types.Classification{}, types.TaskContext{}, profiles)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "first", scores[0].WorkerID)
	assert.Equal(t, "second", scores[1].WorkerID)
	assert.Equal(t, "third", scores[2].WorkerID)
}

func TestScore_Components(t *testing.T) {
	p := types.WorkerProfile{
		ID:            "w",
		Capabilities:  []string{"travel", "arabic", "code"},
		Languages:     []string{"ar"},
		CostPerCall:   0.003,
		AccuracyScore: 95,
		LatencyClass:  types.LatencyHigh,
	}
	cls := types.Classification{CategoryScores: []types.CategoryScore{
		{Category: "code", Hits: 0},
		{Category: "arabic", Hits: 2},
		{Category: "travel", Hits: 1},
	}}

	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)

	tests := []struct {
		name string
		tc   types.TaskContext
		want ScoreBreakdown
	}{
		{
			name: "normal urgency with declared language",
			tc:   types.TaskContext{Language: "ar"},
			want: ScoreBreakdown{Capability: 50, Language: 15, Cost: 3, Accuracy: 9.5},
		},
		{
			name: "high urgency penalises high latency",
			tc:   types.TaskContext{Urgency: types.UrgencyHigh},
			want: ScoreBreakdown{Capability: 50, Cost: 3, Accuracy: 9.5, Latency: 20},
		},
		{
			name: "language mismatch",
			tc:   types.TaskContext{Language: "en"},
			want: ScoreBreakdown{Capability: 50, Cost: 3, Accuracy: 9.5},
		},
		{
			name: "malformed urgency treated as normal",
			tc:   types.TaskContext{Urgency: "asap"},
			want: ScoreBreakdown{Capability: 50, Cost: 3, Accuracy: 9.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := s.Score(cls, tt.tc, []types.WorkerProfile{p})
			require.NoError(t, err)
			got := scores[0].Breakdown
			assert.InDelta(t, tt.want.Capability, got.Capability, 1e-9)
			assert.InDelta(t, tt.want.Language, got.Language, 1e-9)
			assert.InDelta(t, tt.want.Cost, got.Cost, 1e-9)
			assert.InDelta(t, tt.want.Accuracy, got.Accuracy, 1e-9)
			assert.InDelta(t, tt.want.Latency, got.Latency, 1e-9)
		})
	}
}

func TestScore_DetectedLanguageUsedWhenContextEmpty(t *testing.T) {
	profiles := staticProfiles{
		{ID: "w-en", Languages: []string{"en"}},
		{ID: "w-ar", Languages: []string{"ar"}},
	}
	cls := types.Classification{DetectedLanguage: "ar"}
	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)

	id, err := s.SelectBest(cls, types.TaskContext{}, profiles)
	require.NoError(t, err)
	assert.Equal(t, "w-ar", id)

	// 显式声明的语言优先
	id, err = s.SelectBest(cls, types.TaskContext{Language: "en"}, profiles)
	require.NoError(t, err)
	assert.Equal(t, "w-en", id)
}

func TestSelectBest_NonFiniteScoreFallsBackToPrimary(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.CategoryWeights["code"] = math.NaN()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, zap.NewNop())

	profiles := staticProfiles{
		{ID: "w-code", Capabilities: []string{"code"}},
		{ID: "w-primary", IsPrimary: true},
	}
	cls := types.Classification{CategoryScores: []types.CategoryScore{{Category: "code", Hits: 1}}}

	s := NewScorer(cfg, zap.NewNop(), collector)
	_, err := s.Score(cls, types.TaskContext{}, profiles)
	assert.Equal(t, types.ErrScoringFailed, types.GetErrorCode(err))

	id, err := s.SelectBest(cls, types.TaskContext{}, profiles)
	require.NoError(t, err)
	assert.Equal(t, "w-primary", id)

	count, err := testutil.GatherAndCount(reg, "test_selections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSelectBest_PanicFallsBackToPrimary(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Adjusters = []ScoreAdjuster{func(types.WorkerProfile, types.Classification, types.TaskContext) float64 {
		panic("adjuster exploded")
	}}
	profiles := staticProfiles{
		{ID: "a"},
		{ID: "b"},
	}

	s := NewScorer(cfg, zap.NewNop(), nil)
	var id string
	var err error
	require.NotPanics(t, func() {
		id, err = s.SelectBest(types.Classification{}, types.TaskContext{}, profiles)
	})
	require.NoError(t, err)
	// 没有主 Worker 时退回最早注册者
	assert.Equal(t, "a", id)
}

func TestScore_Adjusters(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Adjusters = []ScoreAdjuster{func(p types.WorkerProfile, _ types.Classification, _ types.TaskContext) float64 {
		if p.ID == "b" {
			return 1
		}
		return 0
	}}
	s := NewScorer(cfg, zap.NewNop(), nil)

	id, err := s.SelectBest(types.Classification{}, types.TaskContext{}, staticProfiles{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestScoringConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultScoringConfig().Validate())

	cfg := DefaultScoringConfig()
	cfg.CostScale = -1
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(cfg.Validate()))

	cfg = DefaultScoringConfig()
	cfg.AccuracyDivisor = 0
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(cfg.Validate()))

	cfg = DefaultScoringConfig()
	cfg.CategoryWeights["code"] = math.Inf(1)
	assert.Error(t, cfg.Validate())

	assert.Equal(t, DefaultCategoryWeight, cfg.WeightFor("unknown-category"))
}

func TestExplain(t *testing.T) {
	s := NewScorer(DefaultScoringConfig(), zap.NewNop(), nil)
	scores, err := s.Score(types.Classification{}, types.TaskContext{}, staticProfiles{{ID: "a", IsPrimary: true}})
	require.NoError(t, err)

	lines := Explain(scores)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "#1 a score=50.00")
}
