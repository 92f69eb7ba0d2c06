// Package worker runs tasks on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/logging/logger"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrPoolStopped = errors.New("pool is stopped")
)

// Config represents pool configuration
type Config struct {
	MaxWorkers  int           // maximum number of workers
	QueueSize   int           // task queue size
	TaskTimeout time.Duration // timeout for single task, zero for none
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:  4,
		QueueSize:   256,
		TaskTimeout: 10 * time.Second,
	}
}

// FromConfig converts the worker section of the application config.
func FromConfig(c *config.Worker) *Config {
	if c == nil {
		return DefaultConfig()
	}
	return &Config{MaxWorkers: c.MaxWorkers, QueueSize: c.QueueSize, TaskTimeout: c.TaskTimeout}
}

// Validate validates configuration
func (cfg *Config) Validate() error {
	if cfg.MaxWorkers < 1 {
		return errors.New("max workers must be greater than 0")
	}
	if cfg.QueueSize < 1 {
		return errors.New("queue size must be greater than 0")
	}
	if cfg.TaskTimeout < 0 {
		return errors.New("task timeout must be greater than or equal to 0")
	}
	return nil
}

// Processor handles one task. ctx is done when the task times out or the
// pool stops.
type Processor interface {
	Process(ctx context.Context, task any) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, task any) error

func (f ProcessorFunc) Process(ctx context.Context, task any) error { return f(ctx, task) }

// funcProcessor runs tasks that are functions.
type funcProcessor struct{}

func (funcProcessor) Process(ctx context.Context, task any) error {
	switch t := task.(type) {
	case func(context.Context) error:
		return t(ctx)
	case func() error:
		return t()
	case func():
		t()
		return nil
	default:
		return fmt.Errorf("unsupported task type %T", task)
	}
}

// Metrics tracks pool's operational metrics
type Metrics struct {
	ActiveWorkers  atomic.Int64
	PendingTasks   atomic.Int64
	CompletedTasks atomic.Int64
	FailedTasks    atomic.Int64
	ProcessingTime atomic.Int64 // nanoseconds
}

// Pool represents a worker pool
type Pool struct {
	maxWorkers  int
	queueSize   int
	taskTimeout time.Duration
	processor   Processor

	mu      sync.RWMutex
	stopped bool
	tasks   chan any
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	metrics *Metrics
}

// NewPool creates a pool running tasks with processor, or running function
// tasks when none is given. Tasks are not picked up until Start.
func NewPool(cfg *Config, processors ...Processor) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	var processor Processor = funcProcessor{}
	if len(processors) > 0 && processors[0] != nil {
		processor = processors[0]
	}

	return &Pool{
		maxWorkers:  cfg.MaxWorkers,
		queueSize:   cfg.QueueSize,
		taskTimeout: cfg.TaskTimeout,
		processor:   processor,
		tasks:       make(chan any, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &Metrics{},
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop stops accepting tasks, lets workers drain the queue and waits for
// them until ctx is done, after which running tasks are cancelled.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warnf(ctx, "worker: stop timed out with %d pending tasks", p.metrics.PendingTasks.Load())
	}
	p.cancel()
}

// Submit queues a task without blocking.
func (p *Pool) Submit(task any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.tasks <- task:
		p.metrics.PendingTasks.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.processTask(task)
	}
}

func (p *Pool) processTask(task any) {
	start := time.Now()
	p.metrics.ActiveWorkers.Add(1)
	p.metrics.PendingTasks.Add(-1)
	defer func() {
		p.metrics.ActiveWorkers.Add(-1)
		p.metrics.ProcessingTime.Add(time.Since(start).Nanoseconds())
	}()

	ctx := p.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("task panicked: %v", r)
			}
		}()
		done <- p.processor.Process(ctx, task)
	}()

	select {
	case err := <-done:
		if err != nil {
			p.metrics.FailedTasks.Add(1)
			logger.Warnf(ctx, "worker: task failed: %v", err)
			return
		}
		p.metrics.CompletedTasks.Add(1)
	case <-ctx.Done():
		p.metrics.FailedTasks.Add(1)
		logger.Warnf(context.Background(), "worker: task abandoned: %v", ctx.Err())
	}
}

// GetMetrics returns the current metrics
func (p *Pool) GetMetrics() map[string]int64 {
	return map[string]int64{
		"active_workers":  p.metrics.ActiveWorkers.Load(),
		"pending_tasks":   p.metrics.PendingTasks.Load(),
		"completed_tasks": p.metrics.CompletedTasks.Load(),
		"failed_tasks":    p.metrics.FailedTasks.Load(),
		"processing_time": p.metrics.ProcessingTime.Load(),
	}
}

// IsBusy returns whether the pool is busy
func (p *Pool) IsBusy() bool {
	return p.metrics.ActiveWorkers.Load() >= int64(p.maxWorkers) ||
		p.metrics.PendingTasks.Load() >= int64(p.queueSize)
}

// IsIdle returns whether no task is running or queued.
func (p *Pool) IsIdle() bool {
	return p.metrics.ActiveWorkers.Load() == 0 && p.metrics.PendingTasks.Load() == 0
}
