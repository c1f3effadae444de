// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	tracker := testutil.NewInFlightTracker()
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/taskrouter/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 👷 Worker 画像辅助
// =============================================================================

// Profile 构造一个默认中等延迟、准确率 80 的画像
func Profile(id string, capabilities ...string) types.WorkerProfile {
	return types.WorkerProfile{
		ID:            id,
		Capabilities:  capabilities,
		CostPerCall:   0.001,
		LatencyClass:  types.LatencyMedium,
		AccuracyScore: 80,
		Languages:     []string{"en"},
	}
}

// PrimaryProfile 构造主 Worker 画像
func PrimaryProfile(id string, capabilities ...string) types.WorkerProfile {
	p := Profile(id, capabilities...)
	p.IsPrimary = true
	return p
}

// =============================================================================
// 📈 并发探针
// =============================================================================

// Span 记录一次执行的起止时间
type Span struct {
	Key   string
	Start time.Time
	End   time.Time
}

// InFlightTracker 统计并发执行数峰值与每次执行的时间区间
type InFlightTracker struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	spans    []Span
}

// NewInFlightTracker 创建并发探针
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{}
}

// Enter 标记开始，返回结束函数
func (t *InFlightTracker) Enter(key string) func() {
	t.mu.Lock()
	t.inFlight++
	if t.inFlight > t.peak {
		t.peak = t.inFlight
	}
	span := Span{Key: key, Start: time.Now()}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.inFlight--
		span.End = time.Now()
		t.spans = append(t.spans, span)
	}
}

// Peak 返回并发峰值
func (t *InFlightTracker) Peak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// Spans 返回按开始时间排序的区间
func (t *InFlightTracker) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Span, len(t.spans))
	copy(out, t.spans)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// TrackingWorker 包装 Worker，将每次执行登记到探针
func TrackingWorker(tracker *InFlightTracker, key string, inner types.Worker) types.Worker {
	return types.WorkerFunc(func(ctx context.Context, task *types.Task) (*types.Result, error) {
		done := tracker.Enter(key)
		defer done()
		return inner.Execute(ctx, task)
	})
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertJSONEqual 断言两个值的 JSON 表示相等
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual: %s", expectedJSON, actualJSON)
	}
}

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	if !WaitFor(condition, timeout) {
		t.Errorf("condition not met within %s", timeout)
	}
}

// AssertErrorCode 断言错误携带指定错误码
func AssertErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()

	if err == nil {
		t.Errorf("expected error with code %s, got nil", code)
		return
	}
	if got := types.GetErrorCode(err); got != code {
		t.Errorf("error code mismatch: expected %s, got %s (%v)", code, got, err)
	}
}

// =============================================================================
// ⏳ 等待辅助
// =============================================================================

// WaitFor 等待条件满足或超时
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// MustJSON 将值转换为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustJSON: %v", err))
	}
	return string(data)
}
