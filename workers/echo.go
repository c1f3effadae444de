package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/taskrouter/config"
	"github.com/BaSui01/taskrouter/types"
)

// maxEchoPreview 回显内容截断长度（按 rune）
const maxEchoPreview = 80

// Echo 演示用 Worker：不调用任何外部服务，按配置的耗时返回任务摘要。
// 成本提示等于画像中的 CostPerCall。
type Echo struct {
	id    string
	cost  float64
	delay time.Duration
}

// NewEcho 创建回显 Worker
func NewEcho(id string, cost float64, delay time.Duration) *Echo {
	return &Echo{id: id, cost: cost, delay: delay}
}

// Execute 实现 types.Worker
func (e *Echo) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	if task == nil {
		return nil, fmt.Errorf("echo worker %s: nil task", e.id)
	}
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	phase := task.Phase
	if phase == "" {
		phase = "direct"
	}
	return &types.Result{
		Success:  true,
		Content:  fmt.Sprintf("[%s/%s] %s", e.id, phase, preview(task.Text)),
		CostHint: e.cost,
	}, nil
}

// Unavailable 没有执行器的 Worker：参与评分，执行时总是失败，交给降级处理
type Unavailable struct {
	id string
}

// Execute 实现 types.Worker
func (u Unavailable) Execute(context.Context, *types.Task) (*types.Result, error) {
	return nil, types.NewError(types.ErrAssignmentFailed, "no executor configured").WithWorker(u.id)
}

// FromConfig 按配置的执行器类型创建 Worker
func FromConfig(wc config.WorkerConfig) (types.Worker, error) {
	switch wc.Executor {
	case "", config.ExecutorEcho:
		return NewEcho(wc.ID, wc.CostPerCall, wc.Delay), nil
	case config.ExecutorNone:
		return Unavailable{id: wc.ID}, nil
	default:
		return nil, types.Errorf(types.ErrInvalidConfig, "unknown executor %q", wc.Executor).WithWorker(wc.ID)
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxEchoPreview {
		return text
	}
	return string(runes[:maxEchoPreview]) + "..."
}
