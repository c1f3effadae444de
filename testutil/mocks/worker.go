// MockWorker 的 Worker 测试模拟实现。
//
// 支持固定响应、延迟、失败注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/taskrouter/types"
)

// --- MockWorker 结构 ---

// MockWorker 是 types.Worker 的模拟实现
type MockWorker struct {
	mu sync.RWMutex

	// 响应配置
	content    string
	costHint   float64
	err        error
	failure    string // 非空时返回 Success=false
	nilResult  bool
	panicValue any

	// 调用记录
	calls       []MockWorkerCall
	executeFunc func(ctx context.Context, task *types.Task) (*types.Result, error)

	// 行为控制
	delay     time.Duration
	failAfter int // 在第 N 次调用后失败
	callCount int
}

// MockWorkerCall 记录单次调用
type MockWorkerCall struct {
	Task      types.Task
	StartedAt time.Time
	EndedAt   time.Time
	Result    *types.Result
	Error     error
}

// --- 构造函数和 Builder 方法 ---

// NewMockWorker 创建新的 MockWorker
func NewMockWorker() *MockWorker {
	return &MockWorker{
		content: "Mock response",
		calls:   []MockWorkerCall{},
	}
}

// WithResponse 设置固定响应内容
func (m *MockWorker) WithResponse(content string) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = content
	return m
}

// WithCost 设置返回的成本提示
func (m *MockWorker) WithCost(cost float64) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costHint = cost
	return m
}

// WithError 设置返回错误
func (m *MockWorker) WithError(err error) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailure 返回 Success=false 的结果
func (m *MockWorker) WithFailure(message string) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = message
	return m
}

// WithNilResult 返回 (nil, nil)
func (m *MockWorker) WithNilResult() *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nilResult = true
	return m
}

// WithPanic 执行时 panic
func (m *MockWorker) WithPanic(v any) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicValue = v
	return m
}

// WithDelay 设置响应延迟，期间响应 ctx 取消
func (m *MockWorker) WithDelay(d time.Duration) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockWorker) WithFailAfter(n int) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithExecuteFunc 设置自定义执行函数
func (m *MockWorker) WithExecuteFunc(fn func(ctx context.Context, task *types.Task) (*types.Result, error)) *MockWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeFunc = fn
	return m
}

// --- Worker 接口实现 ---

// Execute 执行任务
func (m *MockWorker) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	delay := m.delay
	fn := m.executeFunc
	panicValue := m.panicValue
	m.mu.Unlock()

	call := MockWorkerCall{StartedAt: time.Now()}
	if task != nil {
		call.Task = *task
	}
	defer func() {
		call.EndedAt = time.Now()
		m.mu.Lock()
		m.calls = append(m.calls, call)
		m.mu.Unlock()
	}()

	if panicValue != nil {
		panic(panicValue)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			call.Error = ctx.Err()
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		call.Result, call.Error = fn(ctx, task)
		return call.Result, call.Error
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failAfter > 0 && count > m.failAfter {
		call.Error = errors.New("mock worker: fail after limit reached")
		return nil, call.Error
	}
	if m.err != nil {
		call.Error = m.err
		return nil, m.err
	}
	if m.nilResult {
		return nil, nil
	}
	if m.failure != "" {
		call.Result = &types.Result{Success: false, Error: m.failure, CostHint: m.costHint}
		return call.Result, nil
	}

	call.Result = &types.Result{Success: true, Content: m.content, CostHint: m.costHint}
	return call.Result, nil
}

// --- 调用记录查询 ---

// CallCount 返回调用次数
func (m *MockWorker) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// Calls 返回已结束调用的副本
func (m *MockWorker) Calls() []MockWorkerCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockWorkerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall 返回最后一次已结束的调用
func (m *MockWorker) LastCall() *MockWorkerCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// Reset 清空调用记录
func (m *MockWorker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = []MockWorkerCall{}
	m.callCount = 0
}
