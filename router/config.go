package router

import (
	"math"

	"github.com/BaSui01/taskrouter/types"
)

// DefaultCategoryWeights 默认类别权重表。
// 复杂推理与领域类别高于通用类别；未列出的类别使用 DefaultCategoryWeight。
var DefaultCategoryWeights = map[string]float64{
	"complex_reasoning": 30,
	"code":              25,
	"arabic":            25,
	"travel":            25,
	"data_analysis":     20,
	"multimodal":        20,
	"cultural":          20,
	"budget":            15,
	"presentation":      15,
	"learning":          15,
	"creative":          10,
	"general":           5,
}

const (
	DefaultCategoryWeight  = 10.0
	DefaultPrimaryBonus    = 50.0
	DefaultLanguageBonus   = 15.0
	DefaultCostScale       = 1000.0
	DefaultAccuracyDivisor = 10.0
	DefaultLatencyPenalty  = 20.0
)

// ScoreAdjuster 附加评分信号，返回值直接加到总分上
type ScoreAdjuster func(profile types.WorkerProfile, cls types.Classification, tc types.TaskContext) float64

// ScoringConfig 评分参数
type ScoringConfig struct {
	CategoryWeights       map[string]float64 `json:"category_weights" yaml:"category_weights"`
	DefaultCategoryWeight float64            `json:"default_category_weight" yaml:"default_category_weight"`
	PrimaryBonus          float64            `json:"primary_bonus" yaml:"primary_bonus"`
	LanguageBonus         float64            `json:"language_bonus" yaml:"language_bonus"`
	CostScale             float64            `json:"cost_scale" yaml:"cost_scale"`
	AccuracyDivisor       float64            `json:"accuracy_divisor" yaml:"accuracy_divisor"`
	LatencyPenalty        float64            `json:"latency_penalty" yaml:"latency_penalty"`

	Adjusters []ScoreAdjuster `json:"-" yaml:"-"`
}

// DefaultScoringConfig 返回默认评分参数
func DefaultScoringConfig() ScoringConfig {
	weights := make(map[string]float64, len(DefaultCategoryWeights))
	for k, v := range DefaultCategoryWeights {
		weights[k] = v
	}
	return ScoringConfig{
		CategoryWeights:       weights,
		DefaultCategoryWeight: DefaultCategoryWeight,
		PrimaryBonus:          DefaultPrimaryBonus,
		LanguageBonus:         DefaultLanguageBonus,
		CostScale:             DefaultCostScale,
		AccuracyDivisor:       DefaultAccuracyDivisor,
		LatencyPenalty:        DefaultLatencyPenalty,
	}
}

// WeightFor 返回类别权重
func (c ScoringConfig) WeightFor(category string) float64 {
	if w, ok := c.CategoryWeights[category]; ok {
		return w
	}
	return c.DefaultCategoryWeight
}

// Validate 校验参数非负且有限
func (c ScoringConfig) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return types.Errorf(types.ErrInvalidConfig, "%s must be a finite non-negative number, got %v", name, v)
		}
		return nil
	}

	for cat, w := range c.CategoryWeights {
		if err := check("category weight "+cat, w); err != nil {
			return err
		}
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"default_category_weight", c.DefaultCategoryWeight},
		{"primary_bonus", c.PrimaryBonus},
		{"language_bonus", c.LanguageBonus},
		{"cost_scale", c.CostScale},
		{"accuracy_divisor", c.AccuracyDivisor},
		{"latency_penalty", c.LatencyPenalty},
	}
	for _, f := range fields {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	if c.AccuracyDivisor == 0 {
		return types.NewError(types.ErrInvalidConfig, "accuracy_divisor must be positive")
	}
	return nil
}
