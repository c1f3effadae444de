// =============================================================================
// 📦 TaskRouter 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("TASKROUTER").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// 列表与映射类字段（workers、domains、category_weights）只能由 YAML 提供。
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/taskrouter/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 TaskRouter 的完整配置结构。进程启动时加载一次，之后不再修改。
type Config struct {
	// Server 健康检查与指标服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Router 评分、降级与并发配置
	Router RouterConfig `yaml:"router" env:"ROUTER"`

	// Workers Worker 画像列表
	Workers []WorkerConfig `yaml:"workers" env:"-"`

	// Categories 分类器类别定义（为空时使用内置定义）
	Categories []CategoryConfig `yaml:"categories" env:"-"`

	// Domains 领域阶段定义（为空时使用内置定义）
	Domains []DomainConfig `yaml:"domains" env:"-"`

	// Stats 统计快照配置
	Stats StatsConfig `yaml:"stats" env:"STATS"`

	// Redis 统计快照存储
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 作业历史存储
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口（健康检查与 /metrics）
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// RouterConfig 路由配置
type RouterConfig struct {
	// 类别权重表，未列出的类别使用 DefaultCategoryWeight
	CategoryWeights       map[string]float64 `yaml:"category_weights" env:"-"`
	DefaultCategoryWeight float64            `yaml:"default_category_weight" env:"DEFAULT_CATEGORY_WEIGHT"`
	PrimaryBonus          float64            `yaml:"primary_bonus" env:"PRIMARY_BONUS"`
	LanguageBonus         float64            `yaml:"language_bonus" env:"LANGUAGE_BONUS"`
	CostScale             float64            `yaml:"cost_scale" env:"COST_SCALE"`
	AccuracyDivisor       float64            `yaml:"accuracy_divisor" env:"ACCURACY_DIVISOR"`
	LatencyPenalty        float64            `yaml:"latency_penalty" env:"LATENCY_PENALTY"`

	// 固定降级 Worker，为空表示不降级
	FallbackWorkerID string `yaml:"fallback_worker_id" env:"FALLBACK_WORKER_ID"`
	// 全局并发上限
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	// 队列缓冲
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// 单次分配超时
	AssignmentTimeout time.Duration `yaml:"assignment_timeout" env:"ASSIGNMENT_TIMEOUT"`
	// 每阶段最多分配数
	MaxAssignmentsPerPhase int `yaml:"max_assignments_per_phase" env:"MAX_ASSIGNMENTS_PER_PHASE"`
	// 响应时间样本容量
	SampleCapacity int `yaml:"sample_capacity" env:"SAMPLE_CAPACITY"`
}

// WorkerConfig Worker 画像与执行器配置
type WorkerConfig struct {
	ID            string             `yaml:"id"`
	Capabilities  []string           `yaml:"capabilities"`
	CostPerCall   float64            `yaml:"cost_per_call"`
	LatencyClass  types.LatencyClass `yaml:"latency_class"`
	AccuracyScore float64            `yaml:"accuracy_score"`
	Languages     []string           `yaml:"languages"`
	IsPrimary     bool               `yaml:"is_primary"`

	// Executor 执行器类型: echo（演示用回显）、none（仅参与评分）
	Executor string `yaml:"executor"`
	// Delay echo 执行器的模拟耗时
	Delay time.Duration `yaml:"delay"`
}

// Profile 转换为 Worker 画像
func (w WorkerConfig) Profile() types.WorkerProfile {
	return types.WorkerProfile{
		ID:            w.ID,
		Capabilities:  append([]string(nil), w.Capabilities...),
		CostPerCall:   w.CostPerCall,
		LatencyClass:  w.LatencyClass,
		AccuracyScore: w.AccuracyScore,
		Languages:     append([]string(nil), w.Languages...),
		IsPrimary:     w.IsPrimary,
	}
}

// CategoryConfig 分类器类别定义
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
}

// DomainConfig 领域定义
type DomainConfig struct {
	Name   string        `yaml:"name"`
	Phases []PhaseConfig `yaml:"phases"`
}

// PhaseConfig 阶段定义
type PhaseConfig struct {
	Name                 string   `yaml:"name"`
	RequiredCapabilities []string `yaml:"required_capabilities"`
	MaxAssignments       int      `yaml:"max_assignments"`
}

// StatsConfig 统计快照配置
type StatsConfig struct {
	// 是否定期把统计报告写入 Redis
	SnapshotEnabled bool `yaml:"snapshot_enabled" env:"SNAPSHOT_ENABLED"`
	// 快照间隔
	SnapshotInterval time.Duration `yaml:"snapshot_interval" env:"SNAPSHOT_INTERVAL"`
	// 快照过期时间
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"SNAPSHOT_TTL"`
	// Redis key 前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 是否记录作业历史
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "TASKROUTER",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// 文件中出现 workers 时整体替换默认 Worker 列表
	cfg.Workers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Workers == nil {
		cfg.Workers = DefaultWorkers()
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置，汇总所有问题
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	r := c.Router
	if r.MaxConcurrency <= 0 {
		errs = append(errs, "router.max_concurrency must be positive")
	}
	if r.AssignmentTimeout <= 0 {
		errs = append(errs, "router.assignment_timeout must be positive")
	}
	if r.MaxAssignmentsPerPhase <= 0 {
		errs = append(errs, "router.max_assignments_per_phase must be positive")
	}
	if r.AccuracyDivisor <= 0 {
		errs = append(errs, "router.accuracy_divisor must be positive")
	}
	for name, v := range map[string]float64{
		"default_category_weight": r.DefaultCategoryWeight,
		"primary_bonus":           r.PrimaryBonus,
		"language_bonus":          r.LanguageBonus,
		"cost_scale":              r.CostScale,
		"latency_penalty":         r.LatencyPenalty,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("router.%s must be non-negative", name))
		}
	}
	for cat, w := range r.CategoryWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("router.category_weights[%s] must be non-negative", cat))
		}
	}

	seen := make(map[string]bool, len(c.Workers))
	primaries := 0
	for i, w := range c.Workers {
		if err := w.Profile().Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("workers[%d]: %v", i, err))
		}
		if seen[w.ID] {
			errs = append(errs, fmt.Sprintf("workers[%d]: duplicate id %q", i, w.ID))
		}
		seen[w.ID] = true
		if w.IsPrimary {
			primaries++
		}
		switch w.Executor {
		case "", ExecutorEcho, ExecutorNone:
		default:
			errs = append(errs, fmt.Sprintf("workers[%d]: unknown executor %q", i, w.Executor))
		}
	}
	if primaries > 1 {
		errs = append(errs, "at most one worker may be primary")
	}
	if r.FallbackWorkerID != "" && len(c.Workers) > 0 && !seen[r.FallbackWorkerID] {
		errs = append(errs, fmt.Sprintf("router.fallback_worker_id %q is not a configured worker", r.FallbackWorkerID))
	}

	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			errs = append(errs, fmt.Sprintf("categories[%d]: name is required", i))
		}
	}

	for i, d := range c.Domains {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("domains[%d]: name is required", i))
		}
		if len(d.Phases) == 0 {
			errs = append(errs, fmt.Sprintf("domains[%d]: at least one phase is required", i))
		}
		for j, p := range d.Phases {
			if p.Name == "" {
				errs = append(errs, fmt.Sprintf("domains[%d].phases[%d]: name is required", i, j))
			}
			if len(p.RequiredCapabilities) == 0 {
				errs = append(errs, fmt.Sprintf("domains[%d].phases[%d]: required_capabilities is empty", i, j))
			}
			if p.MaxAssignments < 0 {
				errs = append(errs, fmt.Sprintf("domains[%d].phases[%d]: max_assignments must be non-negative", i, j))
			}
		}
	}

	if c.Stats.SnapshotEnabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "stats snapshots require redis.addr")
		}
		if c.Stats.SnapshotInterval <= 0 {
			errs = append(errs, "stats.snapshot_interval must be positive")
		}
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return types.Errorf(types.ErrInvalidConfig, "config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
