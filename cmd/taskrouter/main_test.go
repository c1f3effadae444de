package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/taskrouter"
	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/coordinator"
	"github.com/BaSui01/taskrouter/feedback"
	"github.com/BaSui01/taskrouter/history"
	"github.com/BaSui01/taskrouter/internal/database"
	"github.com/BaSui01/taskrouter/internal/migration"
	"github.com/BaSui01/taskrouter/types"
)

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_VersionAndHelp(t *testing.T) {
	code, out, _ := runCmd("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "TaskRouter dev")

	code, out, _ = runCmd("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "classify")

	code, _, errOut := runCmd("bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: bogus")

	code, _, _ = runCmd()
	assert.Equal(t, 1, code)
}

func TestRun_Classify(t *testing.T) {
	code, out, errOut := runCmd("classify", "write a python function to parse csv")
	require.Equal(t, 0, code, errOut)

	var result classifyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Positive(t, result.Classification.Score("code"))
	assert.Equal(t, coordinator.DomainDevelopment, result.Domain)
	require.Len(t, result.Ranking, len(config.DefaultWorkers()))
	assert.Equal(t, result.Ranking[0].WorkerID, result.Selected)
	require.Len(t, result.Explain, len(result.Ranking))
	assert.True(t, strings.HasPrefix(result.Explain[0], "#1 "+result.Selected))

	code, _, errOut = runCmd("classify")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "task text is required")
}

func TestRun_Job(t *testing.T) {
	code, out, errOut := runCmd("run", "--domain", "travel", "plan a trip to Cairo on a budget")
	require.Equal(t, 0, code, errOut)

	var result struct {
		Job   taskrouter.JobResult `json:"job"`
		Stats feedback.StatsReport `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, coordinator.DomainTravel, result.Job.Domain)
	assert.Equal(t, coordinator.StatusCompleted, result.Job.Summary.Status)
	assert.Equal(t, int64(len(result.Job.Results)), result.Stats.TotalUsage)

	code, _, errOut = runCmd("run", "--domain", "astronomy", "look at stars")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, string(types.ErrInvalidPlan))
}

func TestRun_Migrate(t *testing.T) {
	url := migration.BuildDatabaseURL(migration.DatabaseTypeSQLite, "", 0, filepath.Join(t.TempDir(), "m.db"), "", "", "")

	code, out, errOut := runCmd("migrate", "up", "--db-type", "sqlite", "--db-url", url)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Current version: 1")

	code, out, errOut = runCmd("migrate", "status", "--db-type", "sqlite", "--db-url", url)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "create_job_history")

	code, _, errOut = runCmd("migrate", "sideways")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown migrate subcommand")
}

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger = initLogger(config.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = initLogger(config.LogConfig{Level: "loud"})
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func newTestServer(t *testing.T, withHistory bool) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig()
	s := NewServer(cfg, zap.NewNop())

	opts := []taskrouter.Option{
		taskrouter.WithLogger(zap.NewNop()),
		taskrouter.WithCollector(s.collector),
		taskrouter.WithStatsStore(feedback.NewMemoryStore(10)),
	}
	if withHistory {
		dbCfg := config.DefaultDatabaseConfig()
		dbCfg.Enabled = true
		dbCfg.Name = filepath.Join(t.TempDir(), "history.db")
		dbCfg.MaxOpenConns = 1
		pool, err := database.Open(dbCfg, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })
		store := history.NewGormStore(pool, s.collector, zap.NewNop())
		require.NoError(t, store.AutoMigrate(context.Background()))
		s.history = store
		opts = append(opts, taskrouter.WithHistory(store))
	}

	engine, err := taskrouter.New(cfg, opts...)
	require.NoError(t, err)
	s.engine = engine
	t.Cleanup(engine.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_HealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t, false)

	code, _ := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, code)
	code, body := get(t, ts.URL+"/version")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"version":"dev"`)

	code, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "taskrouter_http_requests_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_StatsAndQueue(t *testing.T) {
	s, ts := newTestServer(t, false)

	_, err := s.engine.Execute(context.Background(), "write a python function", types.TaskContext{})
	require.NoError(t, err)

	code, body := get(t, ts.URL+"/debug/stats")
	require.Equal(t, http.StatusOK, code)
	var report feedback.StatsReport
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, int64(1), report.TotalUsage)

	code, body = get(t, ts.URL+"/debug/queue")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"max_workers":10`)

	code, _ = get(t, ts.URL+"/debug/snapshot")
	assert.Equal(t, http.StatusNotFound, code)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/debug/stats?worker=ghost", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/debug/stats", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int64(0), s.engine.StatsReport().TotalUsage)

	code, _ = get(t, ts.URL+"/debug/history")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_History(t *testing.T) {
	s, ts := newTestServer(t, true)

	job, err := s.engine.SubmitJob(context.Background(), "explain recursion", types.TaskContext{}, "")
	require.NoError(t, err)

	code, body := get(t, ts.URL+"/debug/history?limit=5")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, job.JobID)

	code, body = get(t, ts.URL+"/debug/history?job="+job.JobID)
	require.Equal(t, http.StatusOK, code)
	var rec history.JobRecord
	require.NoError(t, json.Unmarshal([]byte(body), &rec))
	assert.Equal(t, coordinator.DomainLearning, rec.Domain)
	assert.Len(t, rec.Assignments, 2)

	code, _ = get(t, ts.URL+"/debug/history?job=missing")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, ts.URL+"/debug/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)
}
