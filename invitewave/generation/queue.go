package generation

import (
	"context"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/logger"
	"golang.org/x/sync/semaphore"
)

// ErrQueueFull is returned when the in-memory backlog is at capacity.
var ErrQueueFull = errors.New("generation queue full")

const defaultBacklog = 64

// TaskQueue runs generation jobs with bounded parallelism. Excess jobs
// wait in an in-memory FIFO; the upstream provider is rate-sensitive, so
// the default concurrency is 1.
type TaskQueue struct {
	runner  *Runner
	sem     *semaphore.Weighted
	backlog chan Job
	done    chan struct{}
}

func NewTaskQueue(runner *Runner, concurrency int64, backlogSize int) *TaskQueue {
	if concurrency < 1 {
		concurrency = 1
	}
	if backlogSize <= 0 {
		backlogSize = defaultBacklog
	}
	return &TaskQueue{
		runner:  runner,
		sem:     semaphore.NewWeighted(concurrency),
		backlog: make(chan Job, backlogSize),
		done:    make(chan struct{}),
	}
}

// Enqueue accepts a job for execution. Non-blocking: a full backlog is
// the caller's problem (the payment stays refundable by hand).
func (q *TaskQueue) Enqueue(job Job) error {
	select {
	case q.backlog <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start consumes the backlog. Each job holds one semaphore unit for its
// whole create/poll/deliver lifetime, so with concurrency 1 jobs run
// strictly sequentially.
func (q *TaskQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case job := <-q.backlog:
				if err := q.sem.Acquire(ctx, 1); err != nil {
					return
				}
				go func(job Job) {
					defer q.sem.Release(1)
					start := time.Now()
					err := q.runner.Run(ctx, job)
					logger.LogTask(job.TaskID, time.Since(start), err)
				}(job)
			case <-ctx.Done():
				return
			case <-q.done:
				return
			}
		}
	}()
}

// Stop halts intake of new jobs; running jobs finish.
func (q *TaskQueue) Stop() {
	close(q.done)
}

// Pending returns the number of jobs waiting in the backlog.
func (q *TaskQueue) Pending() int {
	return len(q.backlog)
}
