package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BaSui01/taskrouter"
	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/coordinator"
	"github.com/BaSui01/taskrouter/feedback"
	"github.com/BaSui01/taskrouter/history"
	"github.com/BaSui01/taskrouter/internal/database"
	"github.com/BaSui01/taskrouter/router"
	"github.com/BaSui01/taskrouter/types"
)

// jobTimeout run 命令的整体超时
const jobTimeout = 2 * time.Minute

type taskFlags struct {
	configPath *string
	language   *string
	urgency    *string
}

func bindTaskFlags(fs *flag.FlagSet) taskFlags {
	return taskFlags{
		configPath: fs.String("config", "", "Path to config file"),
		language:   fs.String("language", "", "Declared task language (ISO 639-1)"),
		urgency:    fs.String("urgency", "", "Task urgency: low, normal, high"),
	}
}

func (f taskFlags) context() types.TaskContext {
	return types.TaskContext{Language: *f.language, Urgency: types.Urgency(*f.urgency)}
}

// newCLIEngine 命令行子命令使用的引擎：日志只写 stderr，避免污染 JSON 输出
func newCLIEngine(cfg *config.Config, opts ...taskrouter.Option) (*taskrouter.Engine, error) {
	cfg.Log.OutputPaths = []string{"stderr"}
	if cfg.Log.Level == "" || cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger := initLogger(cfg.Log)

	return taskrouter.New(cfg, append([]taskrouter.Option{taskrouter.WithLogger(logger)}, opts...)...)
}

func taskText(fs *flag.FlagSet) (string, error) {
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return "", fmt.Errorf("task text is required")
	}
	return text, nil
}

type rankedWorker struct {
	WorkerID string               `json:"worker_id"`
	Score    float64              `json:"score"`
	Matched  []string             `json:"matched_categories,omitempty"`
	Detail   router.ScoreBreakdown `json:"breakdown"`
}

type classifyOutput struct {
	Classification types.Classification `json:"classification"`
	Domain         string               `json:"domain"`
	Selected       string               `json:"selected"`
	Ranking        []rankedWorker       `json:"ranking"`
	Explain        []string             `json:"explain"`
}

func runClassify(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	flags := bindTaskFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := taskText(fs)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		return err
	}
	engine, err := newCLIEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	cls, scores, err := engine.Rank(text, flags.context())
	if err != nil {
		return err
	}
	selected, err := engine.SelectWorker(context.Background(), text, flags.context())
	if err != nil {
		return err
	}

	result := classifyOutput{
		Classification: cls,
		Domain:         coordinator.DetectDomain(cls, text),
		Selected:       selected,
		Ranking:        make([]rankedWorker, 0, len(scores)),
		Explain:        router.Explain(scores),
	}
	for _, s := range scores {
		result.Ranking = append(result.Ranking, rankedWorker{
			WorkerID: s.WorkerID,
			Score:    s.Score,
			Matched:  s.MatchedCategories,
			Detail:   s.Breakdown,
		})
	}
	return writeJSON(out, result)
}

type jobOutput struct {
	Job   *taskrouter.JobResult `json:"job"`
	Stats feedback.StatsReport  `json:"stats"`
}

func runJob(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := bindTaskFlags(fs)
	domain := fs.String("domain", "", "Domain (travel, development, learning, general); auto-detected when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := taskText(fs)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		return err
	}
	var opts []taskrouter.Option
	if cfg.Database.Enabled {
		pool, err := database.Open(cfg.Database, nil)
		if err != nil {
			return fmt.Errorf("open job history: %w", err)
		}
		defer pool.Close()
		store := history.NewGormStore(pool, nil, nil)
		if err := store.AutoMigrate(context.Background()); err != nil {
			return err
		}
		opts = append(opts, taskrouter.WithHistory(store))
	}

	engine, err := newCLIEngine(cfg, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := engine.SubmitJob(ctx, text, flags.context(), *domain)
	if err != nil {
		return err
	}
	return writeJSON(out, jobOutput{Job: job, Stats: engine.StatsReport()})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
