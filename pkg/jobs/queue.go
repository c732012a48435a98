package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by TryEnqueue when the buffer has no free slot.
	ErrQueueFull = errors.New("queue buffer full")
	// ErrQueueStopped is returned when enqueueing onto a queue that is not running.
	ErrQueueStopped = errors.New("queue not running")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is multiplied by the attempt number before a failed job is requeued.
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDrop is invoked once for every job that is given up on.
	OnDrop func(job Job, err error)
}

// Queue is a bounded in-memory worker pool. Producers never block: a full
// buffer is reported back instead. Stop drains jobs already accepted.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs chan Job
	quit chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	running bool
}

// NewQueue builds a stopped queue; call Start to run the workers.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Handlers receive ctx, so cancelling it aborts in-flight work.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx = ctx
	q.quit = make(chan struct{})
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, processes what is already buffered and waits for the workers.
// Pending retries are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.quit)
	q.mu.Unlock()

	q.wg.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name))
}

// TryEnqueue accepts job if the buffer has room.
func (q *Queue) TryEnqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case job := <-q.jobs:
			q.process(job)
		case <-q.quit:
			for {
				select {
				case job := <-q.jobs:
					q.process(job)
				default:
					return
				}
			}
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) process(job Job) {
	err := q.handler(q.ctx, job)
	if err == nil {
		return
	}
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.drop(job, err)
		return
	}
	q.cfg.Logger.Warn("job failed, retrying",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	q.wg.Add(1)
	go q.retryAfter(job, q.cfg.RetryDelay*time.Duration(job.Attempt))
}

func (q *Queue) retryAfter(job Job, delay time.Duration) {
	defer q.wg.Done()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-q.quit:
		q.drop(job, ErrQueueStopped)
	case <-q.ctx.Done():
		q.drop(job, q.ctx.Err())
	case <-timer.C:
		if err := q.TryEnqueue(job); err != nil {
			q.drop(job, err)
		}
	}
}

func (q *Queue) drop(job Job, err error) {
	q.cfg.Logger.Error("job dropped",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
	if q.cfg.OnDrop != nil {
		q.cfg.OnDrop(job, err)
	}
}
