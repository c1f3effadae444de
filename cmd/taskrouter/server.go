package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter"
	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/feedback"
	"github.com/BaSui01/taskrouter/history"
	"github.com/BaSui01/taskrouter/internal/cache"
	"github.com/BaSui01/taskrouter/internal/database"
	"github.com/BaSui01/taskrouter/internal/metrics"
	"github.com/BaSui01/taskrouter/internal/server"
	"github.com/BaSui01/taskrouter/internal/telemetry"
)

const defaultHistoryLimit = 20

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting TaskRouter",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	srv := NewServer(cfg, logger)
	if err := srv.Start(context.Background()); err != nil {
		srv.Shutdown()
		return err
	}
	srv.WaitForShutdown(context.Background())

	logger.Info("TaskRouter stopped")
	return nil
}

// Server 进程级装配：引擎、统计快照、作业历史、遥测与诊断 HTTP 服务
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers
	cache     *cache.Manager
	db        *database.PoolManager
	history   history.Store
	engine    *taskrouter.Engine
	health    *server.HealthHandler

	httpManager *server.Manager

	snapshotCancel context.CancelFunc
	wg             sync.WaitGroup
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		collector: metrics.NewCollector(taskrouter.MetricsNamespace, reg, logger),
		health:    server.NewHealthHandler(logger),
	}
}

// Start 初始化依赖并开始监听（非阻塞）。
// Redis 与数据库不可用时降级为内存快照、不记录历史，不阻止启动。
func (s *Server) Start(ctx context.Context) error {
	providers, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.telemetry = providers

	opts := []taskrouter.Option{
		taskrouter.WithLogger(s.logger),
		taskrouter.WithCollector(s.collector),
		taskrouter.WithStatsStore(s.openStatsStore()),
	}
	if store := s.openHistory(ctx); store != nil {
		s.history = store
		opts = append(opts, taskrouter.WithHistory(store))
	}

	engine, err := taskrouter.New(s.cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	s.engine = engine

	if s.cfg.Stats.SnapshotEnabled {
		snapCtx, cancel := context.WithCancel(context.Background())
		s.snapshotCancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			engine.RunSnapshots(snapCtx)
		}()
	}

	s.httpManager = server.NewManager(s.Handler(), server.ConfigFromServer(s.cfg.Server), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("All services started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Bool("stats_snapshots", s.cfg.Stats.SnapshotEnabled),
		zap.Bool("job_history", s.history != nil),
		zap.Bool("telemetry", providers.Enabled()),
	)
	return nil
}

// openStatsStore Redis 可用时用 RedisStore，否则退回进程内存
func (s *Server) openStatsStore() feedback.Store {
	if !s.cfg.Stats.SnapshotEnabled {
		return feedback.NewMemoryStore(feedback.DefaultHistoryLen)
	}
	cm, err := cache.NewManager(cache.ConfigFromRedis(s.cfg.Redis, s.cfg.Stats.SnapshotTTL), s.logger)
	if err != nil {
		s.logger.Warn("Redis not available, stats snapshots kept in memory", zap.Error(err))
		return feedback.NewMemoryStore(feedback.DefaultHistoryLen)
	}
	s.cache = cm
	s.health.RegisterCheck(server.NewCheck("redis", cm.Ping))
	return feedback.NewRedisStore(cm, s.cfg.Stats.KeyPrefix, feedback.DefaultHistoryLen)
}

func (s *Server) openHistory(ctx context.Context) history.Store {
	if !s.cfg.Database.Enabled {
		return nil
	}
	pool, err := database.Open(s.cfg.Database, s.logger)
	if err != nil {
		s.logger.Warn("Database not available, job history disabled", zap.Error(err))
		return nil
	}
	store := history.NewGormStore(pool, s.collector, s.logger)
	if err := store.AutoMigrate(ctx); err != nil {
		s.logger.Error("Job history auto-migrate failed", zap.Error(err))
		_ = pool.Close()
		return nil
	}
	s.db = pool
	s.health.RegisterCheck(server.NewCheck("database", pool.Ping))
	return store
}

// Handler 诊断路由 + 中间件链
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health.HandleHealthz)
	mux.HandleFunc("/readyz", s.health.HandleReady)
	mux.HandleFunc("/version", s.health.HandleVersion(Version, BuildTime, GitCommit))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	mux.HandleFunc("/debug/stats", s.handleStats)
	mux.HandleFunc("/debug/queue", s.handleQueue)
	mux.HandleFunc("/debug/snapshot", s.handleSnapshot)
	mux.HandleFunc("/debug/history", s.handleHistory)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
	)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		server.WriteJSON(w, http.StatusOK, s.engine.StatsReport())
	case http.MethodDelete:
		if err := s.engine.ResetStats(r.URL.Query().Get("worker")); err != nil {
			server.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, s.engine.QueueStats())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.LatestSnapshot(r.Context())
	if errors.Is(err, feedback.ErrNoSnapshot) {
		server.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		server.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	server.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		server.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "job history disabled"})
		return
	}

	if jobID := r.URL.Query().Get("job"); jobID != "" {
		rec, err := s.history.ByJob(r.Context(), jobID)
		switch {
		case errors.Is(err, history.ErrNotFound):
			server.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			server.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		default:
			server.WriteJSON(w, http.StatusOK, rec)
		}
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			server.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		server.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	server.WriteJSON(w, http.StatusOK, records)
}

// WaitForShutdown 等待信号或 ctx 结束，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
}

// Shutdown 依次停止快照、HTTP、引擎、存储与遥测。可重复调用。
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")
	ctx := context.Background()

	if s.snapshotCancel != nil {
		s.snapshotCancel()
	}
	s.wg.Wait()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.engine != nil {
		s.engine.Close()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
		}
		s.cache = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Database close error", zap.Error(err))
		}
		s.db = nil
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Error("Telemetry shutdown error", zap.Error(err))
	}
	s.telemetry = nil

	s.logger.Info("Graceful shutdown completed")
}
