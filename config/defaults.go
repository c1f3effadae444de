// =============================================================================
// 📦 TaskRouter 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/taskrouter/types"
)

// Worker 执行器类型
const (
	ExecutorEcho = "echo"
	ExecutorNone = "none"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Router:    DefaultRouterConfig(),
		Workers:   DefaultWorkers(),
		Stats:     DefaultStatsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultRouterConfig 返回默认路由配置
// 评分常量与 router 包默认值一致；CategoryWeights 为空时使用 router.DefaultCategoryWeights。
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		DefaultCategoryWeight:  10,
		PrimaryBonus:           50,
		LanguageBonus:          15,
		CostScale:              1000,
		AccuracyDivisor:        10,
		LatencyPenalty:         20,
		FallbackWorkerID:       "fallback-generalist",
		MaxConcurrency:         10,
		QueueSize:              1000,
		AssignmentTimeout:      30 * time.Second,
		MaxAssignmentsPerPhase: 3,
		SampleCapacity:         100,
	}
}

// DefaultWorkers 返回演示用的 Worker 列表（echo 执行器）
func DefaultWorkers() []WorkerConfig {
	return []WorkerConfig{
		{
			ID:            "general-primary",
			Capabilities:  []string{"general", "code", "arabic", "complex_reasoning", "learning"},
			CostPerCall:   0.001,
			LatencyClass:  types.LatencyMedium,
			AccuracyScore: 88,
			Languages:     []string{"en", "ar"},
			IsPrimary:     true,
			Executor:      ExecutorEcho,
		},
		{
			ID:            "code-specialist",
			Capabilities:  []string{"code", "data_analysis", "complex_reasoning"},
			CostPerCall:   0.003,
			LatencyClass:  types.LatencyHigh,
			AccuracyScore: 92,
			Languages:     []string{"en"},
			Executor:      ExecutorEcho,
		},
		{
			ID:            "creative-writer",
			Capabilities:  []string{"creative", "presentation", "multimodal"},
			CostPerCall:   0.002,
			LatencyClass:  types.LatencyMedium,
			AccuracyScore: 85,
			Languages:     []string{"en"},
			Executor:      ExecutorEcho,
		},
		{
			ID:            "itinerary-planner",
			Capabilities:  []string{"travel", "research"},
			CostPerCall:   0.002,
			LatencyClass:  types.LatencyMedium,
			AccuracyScore: 86,
			Languages:     []string{"en", "ar"},
			Executor:      ExecutorEcho,
		},
		{
			ID:            "budget-analyst",
			Capabilities:  []string{"budget", "data_analysis"},
			CostPerCall:   0.001,
			LatencyClass:  types.LatencyLow,
			AccuracyScore: 84,
			Languages:     []string{"en"},
			Executor:      ExecutorEcho,
		},
		{
			ID:            "culture-guide",
			Capabilities:  []string{"cultural", "arabic", "travel"},
			CostPerCall:   0.001,
			LatencyClass:  types.LatencyLow,
			AccuracyScore: 83,
			Languages:     []string{"ar", "en"},
			Executor:      ExecutorEcho,
		},
		{
			ID:            "fallback-generalist",
			Capabilities:  []string{"general"},
			CostPerCall:   0.0005,
			LatencyClass:  types.LatencyLow,
			AccuracyScore: 75,
			Languages:     []string{"en"},
			Executor:      ExecutorEcho,
		},
	}
}

// DefaultStatsConfig 返回默认统计快照配置
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		SnapshotEnabled:  false,
		SnapshotInterval: time.Minute,
		SnapshotTTL:      24 * time.Hour,
		KeyPrefix:        "taskrouter:stats",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "taskrouter",
		Password:        "",
		Name:            "taskrouter.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "taskrouter",
		SampleRate:   0.1,
	}
}
