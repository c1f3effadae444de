package router

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/types"
)

// 选择原因
const (
	ReasonScored          = "scored"
	ReasonPrimaryFallback = "primary_fallback"
)

// ProfileSource 提供按注册顺序排列的画像快照
type ProfileSource interface {
	Snapshot() []types.WorkerProfile
}

// Profiles 把已有快照包装为 ProfileSource
type Profiles []types.WorkerProfile

// Snapshot 实现 ProfileSource
func (p Profiles) Snapshot() []types.WorkerProfile { return p }

// ScoreBreakdown 各评分分项
type ScoreBreakdown struct {
	Primary    float64 `json:"primary"`
	Capability float64 `json:"capability"`
	Language   float64 `json:"language"`
	Cost       float64 `json:"cost"`
	Accuracy   float64 `json:"accuracy"`
	Latency    float64 `json:"latency"`
	Adjustment float64 `json:"adjustment,omitempty"`
}

// WorkerScore 单个 Worker 的评分结果
type WorkerScore struct {
	WorkerID          string         `json:"worker_id"`
	Score             float64        `json:"score"`
	Order             int            `json:"order"` // 注册顺序
	MatchedCategories []string       `json:"matched_categories,omitempty"`
	Breakdown         ScoreBreakdown `json:"breakdown"`
}

// Scorer 基于分类结果、上下文与画像快照计算 Worker 排名。只读，不记录结果。
type Scorer struct {
	cfg       ScoringConfig
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewScorer 创建评分器
func NewScorer(cfg ScoringConfig, logger *zap.Logger, collector *metrics.Collector) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CategoryWeights == nil {
		cfg.CategoryWeights = DefaultScoringConfig().CategoryWeights
	}
	return &Scorer{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "scorer")),
		collector: collector,
	}
}

// Config 返回评分参数
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Score 为每个画像打分，按分数降序返回；同分按注册顺序。
// 任一分数为 NaN/Inf 时返回 SCORING_FAILED。
func (s *Scorer) Score(cls types.Classification, tc types.TaskContext, profiles []types.WorkerProfile) ([]WorkerScore, error) {
	// 非法上下文字段已被替换为默认值
	tc, _ = tc.Normalize()

	lang := tc.Language
	if lang == "" {
		lang = cls.DetectedLanguage
	}
	matched := cls.Matched()

	scores := make([]WorkerScore, 0, len(profiles))
	for i, p := range profiles {
		ws := WorkerScore{WorkerID: p.ID, Order: i}
		b := &ws.Breakdown

		if p.IsPrimary {
			b.Primary = s.cfg.PrimaryBonus
		}
		for _, cat := range matched {
			if p.HasCapability(cat) {
				b.Capability += s.cfg.WeightFor(cat)
				ws.MatchedCategories = append(ws.MatchedCategories, cat)
			}
		}
		if lang != "" && p.SupportsLanguage(lang) {
			b.Language = s.cfg.LanguageBonus
		}
		b.Cost = p.CostPerCall * s.cfg.CostScale
		b.Accuracy = p.AccuracyScore / s.cfg.AccuracyDivisor
		if tc.Urgency == types.UrgencyHigh && p.LatencyClass == types.LatencyHigh {
			b.Latency = s.cfg.LatencyPenalty
		}
		for _, adjust := range s.cfg.Adjusters {
			b.Adjustment += adjust(p, cls, tc)
		}

		ws.Score = b.Primary + b.Capability + b.Language - b.Cost + b.Accuracy - b.Latency + b.Adjustment
		if math.IsNaN(ws.Score) || math.IsInf(ws.Score, 0) {
			return nil, types.Errorf(types.ErrScoringFailed, "non-finite score %v", ws.Score).WithWorker(p.ID)
		}
		scores = append(scores, ws)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Order < scores[j].Order
	})
	return scores, nil
}

// SelectBest 返回得分最高的 Worker ID。
// 注册表为空时返回 NO_WORKERS；评分过程中的任何失败都降级为主 Worker，不向上抛出。
func (s *Scorer) SelectBest(cls types.Classification, tc types.TaskContext, source ProfileSource) (workerID string, err error) {
	profiles := source.Snapshot()
	if len(profiles) == 0 {
		return "", types.NewError(types.ErrNoWorkers, "worker registry is empty")
	}
	fallbackID := primaryOrFirst(profiles)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scoring panicked, selecting primary worker",
				zap.Any("panic", r),
				zap.String("worker_id", fallbackID),
				zap.Stack("stack"),
			)
			workerID, err = fallbackID, nil
			s.collector.RecordSelection(workerID, ReasonPrimaryFallback)
		}
	}()

	scores, scoreErr := s.Score(cls, tc, profiles)
	if scoreErr != nil {
		s.logger.Warn("scoring failed, selecting primary worker",
			zap.Error(scoreErr),
			zap.String("worker_id", fallbackID),
		)
		s.collector.RecordSelection(fallbackID, ReasonPrimaryFallback)
		return fallbackID, nil
	}

	best := scores[0]
	s.logger.Debug("worker selected",
		zap.String("worker_id", best.WorkerID),
		zap.Float64("score", best.Score),
		zap.Strings("matched", best.MatchedCategories),
		zap.Int("candidates", len(scores)),
	)
	s.collector.RecordSelection(best.WorkerID, ReasonScored)
	return best.WorkerID, nil
}

// Explain 返回可读的排名说明，便于 CLI 调试
func Explain(scores []WorkerScore) []string {
	out := make([]string, 0, len(scores))
	for rank, ws := range scores {
		b := ws.Breakdown
		out = append(out, fmt.Sprintf("#%d %s score=%.2f (primary=%.0f capability=%.0f language=%.0f cost=-%.2f accuracy=%.1f latency=-%.0f)",
			rank+1, ws.WorkerID, ws.Score, b.Primary, b.Capability, b.Language, b.Cost, b.Accuracy, b.Latency))
	}
	return out
}

// primaryOrFirst 没有主 Worker 时退回最早注册的 Worker
func primaryOrFirst(profiles []types.WorkerProfile) string {
	for _, p := range profiles {
		if p.IsPrimary {
			return p.ID
		}
	}
	return profiles[0].ID
}
