// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/taskrouter/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9091, cfg.Server.HTTPPort)
	assert.Equal(t, 10, cfg.Router.MaxConcurrency)
	assert.Len(t, cfg.Workers, len(DefaultWorkers()))
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
  read_timeout: 60s

router:
  primary_bonus: 40
  fallback_worker_id: backup
  max_concurrency: 4
  assignment_timeout: 5s
  category_weights:
    code: 25
    travel: 18

workers:
  - id: main
    capabilities: [general, code]
    cost_per_call: 0.001
    latency_class: medium
    accuracy_score: 90
    languages: [en]
    is_primary: true
    executor: echo
  - id: backup
    capabilities: [general]
    latency_class: low
    accuracy_score: 70
    executor: echo
    delay: 10ms

domains:
  - name: support
    phases:
      - name: triage
        required_capabilities: [general]
        max_assignments: 1

database:
  enabled: true
  driver: sqlite
  name: /tmp/history.db

log:
  level: debug
  format: console
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	assert.Equal(t, 40.0, cfg.Router.PrimaryBonus)
	assert.Equal(t, 15.0, cfg.Router.LanguageBonus)
	assert.Equal(t, "backup", cfg.Router.FallbackWorkerID)
	assert.Equal(t, 4, cfg.Router.MaxConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Router.AssignmentTimeout)
	assert.Equal(t, map[string]float64{"code": 25, "travel": 18}, cfg.Router.CategoryWeights)

	require.Len(t, cfg.Workers, 2)
	assert.Equal(t, "main", cfg.Workers[0].ID)
	assert.True(t, cfg.Workers[0].IsPrimary)
	assert.Equal(t, types.LatencyMedium, cfg.Workers[0].LatencyClass)
	assert.Equal(t, 10*time.Millisecond, cfg.Workers[1].Delay)

	require.Len(t, cfg.Domains, 1)
	assert.Equal(t, "triage", cfg.Domains[0].Phases[0].Name)
	assert.Equal(t, []string{"general"}, cfg.Domains[0].Phases[0].RequiredCapabilities)

	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "/tmp/history.db", cfg.Database.DSN())
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoader_YAMLWithoutWorkersKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 7000\n")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.HTTPPort)
	assert.Len(t, cfg.Workers, len(DefaultWorkers()))
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("TASKROUTER_SERVER_HTTP_PORT", "7777")
	t.Setenv("TASKROUTER_ROUTER_MAX_CONCURRENCY", "3")
	t.Setenv("TASKROUTER_ROUTER_ASSIGNMENT_TIMEOUT", "2s")
	t.Setenv("TASKROUTER_ROUTER_COST_SCALE", "500.5")
	t.Setenv("TASKROUTER_ROUTER_FALLBACK_WORKER_ID", "general-primary")
	t.Setenv("TASKROUTER_STATS_SNAPSHOT_ENABLED", "true")
	t.Setenv("TASKROUTER_REDIS_ADDR", "env-redis:6379")
	t.Setenv("TASKROUTER_LOG_LEVEL", "warn")
	t.Setenv("TASKROUTER_LOG_OUTPUT_PATHS", "stdout, /var/log/taskrouter.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Router.MaxConcurrency)
	assert.Equal(t, 2*time.Second, cfg.Router.AssignmentTimeout)
	assert.Equal(t, 500.5, cfg.Router.CostScale)
	assert.Equal(t, "general-primary", cfg.Router.FallbackWorkerID)
	assert.True(t, cfg.Stats.SnapshotEnabled)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/taskrouter.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
router:
  max_concurrency: 6
  queue_size: 50
`)
	t.Setenv("TASKROUTER_ROUTER_MAX_CONCURRENCY", "2")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	// 环境变量覆盖 YAML，YAML 覆盖默认值
	assert.Equal(t, 2, cfg.Router.MaxConcurrency)
	assert.Equal(t, 50, cfg.Router.QueueSize)
	assert.Equal(t, 8888, cfg.Server.HTTPPort)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("TASKROUTER_ROUTER_ASSIGNMENT_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASKROUTER_ROUTER_ASSIGNMENT_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("TASKROUTER_ROUTER_MAX_CONCURRENCY", "0")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrInvalidConfig))
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/non/existent/path/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 9091, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: [invalid
  this is not valid yaml
`)
	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }, "invalid HTTP port"},
		{"zero concurrency", func(c *Config) { c.Router.MaxConcurrency = 0 }, "max_concurrency"},
		{"zero timeout", func(c *Config) { c.Router.AssignmentTimeout = 0 }, "assignment_timeout"},
		{"zero divisor", func(c *Config) { c.Router.AccuracyDivisor = 0 }, "accuracy_divisor"},
		{"negative bonus", func(c *Config) { c.Router.PrimaryBonus = -1 }, "primary_bonus"},
		{"negative weight", func(c *Config) {
			c.Router.CategoryWeights = map[string]float64{"code": -3}
		}, "category_weights[code]"},
		{"duplicate worker", func(c *Config) {
			c.Workers = append(c.Workers, c.Workers[1])
		}, "duplicate id"},
		{"two primaries", func(c *Config) { c.Workers[1].IsPrimary = true }, "at most one worker may be primary"},
		{"invalid profile", func(c *Config) { c.Workers[0].AccuracyScore = 150 }, "workers[0]"},
		{"unknown executor", func(c *Config) { c.Workers[0].Executor = "grpc" }, "unknown executor"},
		{"unknown fallback", func(c *Config) { c.Router.FallbackWorkerID = "ghost" }, "fallback_worker_id"},
		{"phase without capabilities", func(c *Config) {
			c.Domains = []DomainConfig{{Name: "x", Phases: []PhaseConfig{{Name: "p"}}}}
		}, "required_capabilities"},
		{"domain without phases", func(c *Config) {
			c.Domains = []DomainConfig{{Name: "x"}}
		}, "at least one phase"},
		{"snapshots without redis", func(c *Config) {
			c.Stats.SnapshotEnabled = true
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"bad driver", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Driver = "oracle"
		}, "unsupported database driver"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, User: "u",
				Password: "p", Name: "tr", SSLMode: "disable",
			},
			expected: "host=db port=5432 user=u password=p dbname=tr sslmode=disable",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "tr",
			},
			expected: "u:p@tcp(db:3306)/tr?parseTime=true",
		},
		{
			name:     "sqlite",
			config:   DatabaseConfig{Driver: "sqlite", Name: "file.db"},
			expected: "file.db",
		},
		{
			name:     "unknown",
			config:   DatabaseConfig{Driver: "oracle"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestMustLoad_Success(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 9100\n")
	cfg := MustLoad(path)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
}

func TestMustLoad_InvalidConfigPanics(t *testing.T) {
	path := writeConfig(t, "log:\n  level: shouting\n")
	assert.Panics(t, func() { MustLoad(path) })
}
