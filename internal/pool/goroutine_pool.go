// Package pool provides the process-wide bounded queue that runs assignment executions.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed  = errors.New("pool is closed")
	ErrPoolFull    = errors.New("pool is full")
	ErrTaskSkipped = errors.New("task skipped: context done before start")
)

// Task represents a unit of work.
type Task func(ctx context.Context) error

// GoroutinePool runs tasks on at most MaxWorkers goroutines.
// A task that has started always runs to completion; a task whose context
// is done before a worker picks it up is skipped.
type GoroutinePool struct {
	maxWorkers  int
	taskQueue   chan taskWrapper
	workerCount atomic.Int32
	activeCount atomic.Int32
	peakActive  atomic.Int32
	closed      atomic.Bool
	closeMu     sync.RWMutex
	wg          sync.WaitGroup

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	skipped   atomic.Int64

	// Config
	idleTimeout  time.Duration
	panicHandler func(any)
	logger       *zap.Logger
}

type taskWrapper struct {
	task   Task
	ctx    context.Context
	result chan error
}

// GoroutinePoolConfig configures the pool.
type GoroutinePoolConfig struct {
	MaxWorkers   int           `json:"max_workers"`
	QueueSize    int           `json:"queue_size"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	PanicHandler func(any)     `json:"-"`
	Logger       *zap.Logger   `json:"-"`
}

// DefaultGoroutinePoolConfig returns the defaults: 10 concurrent assignments.
func DefaultGoroutinePoolConfig() GoroutinePoolConfig {
	return GoroutinePoolConfig{
		MaxWorkers:  10,
		QueueSize:   1000,
		IdleTimeout: 60 * time.Second,
	}
}

// NewGoroutinePool creates a new goroutine pool.
func NewGoroutinePool(config GoroutinePoolConfig) *GoroutinePool {
	defaults := DefaultGoroutinePoolConfig()
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaults.MaxWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &GoroutinePool{
		maxWorkers:   config.MaxWorkers,
		taskQueue:    make(chan taskWrapper, config.QueueSize),
		idleTimeout:  config.IdleTimeout,
		panicHandler: config.PanicHandler,
		logger:       config.Logger.With(zap.String("component", "assignment_pool")),
	}
}

// MaxWorkers returns the concurrency bound.
func (p *GoroutinePool) MaxWorkers() int {
	return p.maxWorkers
}

// Submit enqueues a task without waiting for it. Returns ErrPoolFull if the
// queue buffer is full.
func (p *GoroutinePool) Submit(ctx context.Context, task Task) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	wrapper := taskWrapper{task: task, ctx: ctx}

	select {
	case p.taskQueue <- wrapper:
		p.ensureWorker()
		return nil
	default:
		p.rejected.Add(1)
		return ErrPoolFull
	}
}

// SubmitWait enqueues a task and waits until it settles. Once enqueued the
// call does not return before the task has either run or been skipped.
func (p *GoroutinePool) SubmitWait(ctx context.Context, task Task) error {
	wrapper := taskWrapper{
		task:   task,
		ctx:    ctx,
		result: make(chan error, 1),
	}

	if err := p.enqueue(ctx, wrapper); err != nil {
		return err
	}
	return <-wrapper.result
}

func (p *GoroutinePool) enqueue(ctx context.Context, wrapper taskWrapper) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	p.ensureWorker()

	select {
	case p.taskQueue <- wrapper:
		p.ensureWorker()
		return nil
	case <-ctx.Done():
		p.rejected.Add(1)
		return ctx.Err()
	}
}

func (p *GoroutinePool) ensureWorker() {
	if p.workerCount.Load() < int32(p.maxWorkers) {
		p.trySpawnWorker()
	}
}

func (p *GoroutinePool) trySpawnWorker() bool {
	for {
		current := p.workerCount.Load()
		if current >= int32(p.maxWorkers) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker()
			return true
		}
	}
}

func (p *GoroutinePool) worker() {
	defer p.wg.Done()
	defer p.workerCount.Add(-1)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case wrapper, ok := <-p.taskQueue:
			if !ok {
				return
			}

			err := p.run(wrapper)
			if wrapper.result != nil {
				wrapper.result <- err
				close(wrapper.result)
			}

			timer.Reset(p.idleTimeout)

		case <-timer.C:
			// 至少保留一个常驻 worker
			if p.workerCount.Load() > 1 {
				return
			}
			timer.Reset(p.idleTimeout)
		}
	}
}

func (p *GoroutinePool) run(wrapper taskWrapper) error {
	if err := wrapper.ctx.Err(); err != nil {
		p.skipped.Add(1)
		return fmt.Errorf("%w: %v", ErrTaskSkipped, err)
	}

	active := p.activeCount.Add(1)
	for {
		peak := p.peakActive.Load()
		if active <= peak || p.peakActive.CompareAndSwap(peak, active) {
			break
		}
	}

	err := p.executeTask(wrapper)
	p.activeCount.Add(-1)

	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
	return err
}

func (p *GoroutinePool) executeTask(wrapper taskWrapper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return wrapper.task(wrapper.ctx)
}

// Close stops accepting tasks, drains the queue and waits for all workers.
func (p *GoroutinePool) Close() {
	p.closeMu.Lock()
	if p.closed.Swap(true) {
		p.closeMu.Unlock()
		return
	}
	close(p.taskQueue)
	p.closeMu.Unlock()

	p.wg.Wait()
	p.logger.Info("assignment pool closed", zap.Any("stats", p.Stats()))
}

// Stats returns pool statistics.
func (p *GoroutinePool) Stats() GoroutinePoolStats {
	return GoroutinePoolStats{
		MaxWorkers: p.maxWorkers,
		Workers:    int(p.workerCount.Load()),
		Active:     int(p.activeCount.Load()),
		PeakActive: int(p.peakActive.Load()),
		Queued:     len(p.taskQueue),
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Rejected:   p.rejected.Load(),
		Skipped:    p.skipped.Load(),
	}
}

// GoroutinePoolStats contains pool statistics.
type GoroutinePoolStats struct {
	MaxWorkers int   `json:"max_workers"`
	Workers    int   `json:"workers"`
	Active     int   `json:"active"`
	PeakActive int   `json:"peak_active"`
	Queued     int   `json:"queued"`
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Rejected   int64 `json:"rejected"`
	Skipped    int64 `json:"skipped"`
}
