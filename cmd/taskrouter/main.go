// =============================================================================
// TaskRouter 主入口
// =============================================================================
// 使用方法:
//
//	taskrouter serve                        # 启动诊断服务（健康检查、/metrics）
//	taskrouter serve --config config.yaml   # 指定配置文件
//	taskrouter classify "write a poem"      # 输出分类与 Worker 排名
//	taskrouter run --domain travel "..."    # 用 echo Worker 演练一次作业
//	taskrouter migrate up                   # 运行数据库迁移
//	taskrouter version                      # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/taskrouter/config"
)

// 构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(args[1:])
	case "classify":
		err = runClassify(args[1:], stdout)
	case "run":
		err = runJob(args[1:], stdout)
	case "migrate":
		err = runMigrate(args[1:], stdout)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "TaskRouter %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `TaskRouter - capability-aware task routing

Usage:
  taskrouter <command> [options]

Commands:
  serve      Start the health/metrics server with stats snapshots and job history
  classify   Classify a task and print the ranked workers as JSON
  run        Submit one job against the configured (echo) workers and print the result
  migrate    Database migration commands (up, down, status, version, info)
  version    Show version information
  help       Show this help message

Common options:
  --config <path>     Path to configuration file (YAML)

Options for 'classify' and 'run':
  --language <code>   Declared task language (ISO 639-1)
  --urgency <level>   low, normal or high
  --domain <name>     Domain for 'run' (auto-detected when empty)

Options for 'migrate':
  --db-type <type>    postgres, mysql or sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  taskrouter serve --config /etc/taskrouter/config.yaml
  taskrouter classify --language ar "ترجم هذه الرسالة"
  taskrouter run --domain travel "plan a trip to Cairo on a budget"
  taskrouter migrate up --db-type sqlite --db-url "file:history.db?mode=rwc"`)
}

// loadConfig 默认值 → YAML → TASKROUTER_* 环境变量，并校验
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
