package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ErrClosed is returned by Submit after the queue has been stopped.
var ErrClosed = errors.New("queue: closed")

// Task is one unit of fetch work.
type Task func(ctx context.Context) error

type submission struct {
	task Task
	done chan error
}

// Queue runs submitted tasks with a fixed concurrency ceiling. Tasks are
// admitted in submission order; a task's failure never affects its siblings.
type Queue struct {
	concurrency int
	subs        chan submission
	limiter     *rate.Limiter

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	wg       sync.WaitGroup
}

// New builds a queue with the given concurrency ceiling. rateLimit <= 0
// disables rate limiting. Workers are not started until Start is called.
func New(concurrency int, rateLimit float64, burst int) *Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	if burst <= 0 {
		burst = 1
	}
	var limiter *rate.Limiter
	if rateLimit <= 0 {
		limiter = rate.NewLimiter(rate.Inf, burst)
	} else {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return &Queue{
		concurrency: concurrency,
		subs:        make(chan submission, 256),
		limiter:     limiter,
	}
}

// Start launches the worker goroutines. ctx cancellation fails queued tasks
// with the context error instead of running them.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(q.concurrency)
	for i := 0; i < q.concurrency; i++ {
		go q.worker(ctx)
	}
}

// Submit enqueues a task and returns a channel that receives exactly one
// result and is then closed. The channel is buffered, so the result may be
// ignored without leaking a goroutine.
func (q *Queue) Submit(task Task) <-chan error {
	done := make(chan error, 1)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		done <- ErrClosed
		close(done)
		return done
	}
	q.inflight.Add(1)
	q.mu.Unlock()

	// The send happens outside the lock: a full buffer must not block Stop.
	// Stop closes subs only after every in-flight send has landed.
	q.subs <- submission{task: task, done: done}
	q.inflight.Done()
	return done
}

// Stop rejects further submissions and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.inflight.Wait()
	close(q.subs)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for sub := range q.subs {
		select {
		case <-ctx.Done():
			sub.done <- ctx.Err()
			close(sub.done)
			continue
		default:
		}
		if err := q.limiter.Wait(ctx); err != nil {
			sub.done <- err
			close(sub.done)
			continue
		}
		sub.done <- runTask(ctx, sub.task)
		close(sub.done)
	}
}

// runTask shields the worker from task panics; a panic fails only that task.
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task(ctx)
}
