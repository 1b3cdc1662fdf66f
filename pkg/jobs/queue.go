package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer has no room for another task.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed is returned after Drain was called or before Start.
	ErrQueueClosed = errors.New("queue closed")
)

// Task is a unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config tunes the worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue runs submitted tasks on a fixed pool of goroutines. Failed tasks are retried in
// place by the same worker.
type Queue struct {
	name   string
	cfg    Config
	logger *zap.Logger

	tasks chan Task
	wg    sync.WaitGroup

	mu      sync.RWMutex
	ctx     context.Context
	running bool
}

// NewQueue builds a queue. Call Start before submitting.
func NewQueue(name string, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{name: name, cfg: cfg, logger: cfg.Logger, tasks: make(chan Task, cfg.BufferSize)}
}

// Start launches the workers. ctx is handed to every task.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.ctx != nil {
		return
	}
	q.ctx = ctx
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Submit enqueues a task without blocking.
func (q *Queue) Submit(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain stops accepting tasks and waits until the buffered ones have run.
func (q *Queue) Drain() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue drained", zap.String("queue", q.name))
}

func (q *Queue) work() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task Task) {
	var err error
	for attempt := 0; attempt <= q.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(q.cfg.RetryDelay * time.Duration(attempt))
		}
		if err = task.Run(q.ctx); err == nil {
			return
		}
		q.logger.Warn("task failed",
			zap.String("queue", q.name),
			zap.String("task", task.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	q.logger.Error("task abandoned", zap.String("queue", q.name), zap.String("task", task.Name), zap.Error(err))
}
