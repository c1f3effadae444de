// =============================================================================
// 📦 测试数据工厂 - Worker 配置
// =============================================================================
// 提供预定义的 Worker 目录，用于路由与作业测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/types"
)

// =============================================================================
// 🤖 Worker 配置工厂
// =============================================================================

// CoderWorker 只会写代码的 Worker
func CoderWorker() config.WorkerConfig {
	return config.WorkerConfig{
		ID:            "coder",
		Capabilities:  []string{"code"},
		CostPerCall:   0.001,
		LatencyClass:  types.LatencyLow,
		AccuracyScore: 90,
		Executor:      config.ExecutorEcho,
	}
}

// WriterWorker 负责创作与通用问题
func WriterWorker() config.WorkerConfig {
	return config.WorkerConfig{
		ID:            "writer",
		Capabilities:  []string{"creative", "general"},
		CostPerCall:   0.001,
		LatencyClass:  types.LatencyLow,
		AccuracyScore: 90,
		Executor:      config.ExecutorEcho,
	}
}

// ArabicWorker 支持阿拉伯语的慢速 Worker
func ArabicWorker() config.WorkerConfig {
	return config.WorkerConfig{
		ID:            "arabic-writer",
		Capabilities:  []string{"arabic", "general"},
		CostPerCall:   0.004,
		LatencyClass:  types.LatencyHigh,
		AccuracyScore: 85,
		Languages:     []string{"ar"},
		Executor:      config.ExecutorEcho,
	}
}

// ScoringOnlyWorker 只参与评分、不能执行的 Worker
func ScoringOnlyWorker(id string, capabilities ...string) config.WorkerConfig {
	return config.WorkerConfig{
		ID:            id,
		Capabilities:  capabilities,
		CostPerCall:   0.002,
		LatencyClass:  types.LatencyMedium,
		AccuracyScore: 80,
		Executor:      config.ExecutorNone,
	}
}

// TwoWorkerConfig coder + writer，writer 兼任兜底
func TwoWorkerConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workers = []config.WorkerConfig{CoderWorker(), WriterWorker()}
	cfg.Router.FallbackWorkerID = "writer"
	return cfg
}

// MultilingualConfig 在 TwoWorkerConfig 基础上加入阿拉伯语 Worker
func MultilingualConfig() *config.Config {
	cfg := TwoWorkerConfig()
	cfg.Workers = append(cfg.Workers, ArabicWorker())
	return cfg
}
