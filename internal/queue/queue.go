// Package queue provides the single-writer serialization queue that
// sits between the HTTP event endpoint and the store. It narrows the
// generic workerpool fan-out pattern down to exactly one worker, and
// reuses the single-background-goroutine shape of the batch flusher
// so a slow write directly back-pressures new submissions instead of
// buffering them.
package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// job is a submitted unit of work and the channel its caller blocks
// on for completion.
type job struct {
	fn   func(context.Context) error
	done chan error
}

// Queue serializes calls through a single worker goroutine so that
// writes to the store are never interleaved across concurrent HTTP
// requests.
type Queue struct {
	logger *zap.Logger
	items  chan job
	closed chan struct{}
}

// New constructs a Queue. Call Run to start its worker before
// Submit is used.
func New(logger *zap.Logger) *Queue {
	return &Queue{
		logger: logger,
		items:  make(chan job),
		closed: make(chan struct{}),
	}
}

// Run drives the queue's single worker goroutine until ctx is
// canceled. It blocks the caller, matching the teacher's run(ctx)
// background-service pattern; callers typically invoke it in its own
// goroutine from main.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.closed)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-q.items:
			err := func() error {
				defer func() {
					if r := recover(); r != nil {
						j.done <- fmt.Errorf("queue worker panic: %v", r)
					}
				}()
				return j.fn(ctx)
			}()
			select {
			case j.done <- err:
			default:
			}
		}
	}
}

// Submit hands fn to the single worker and blocks until it has run,
// returning whatever fn returned. The item channel is unbuffered, so
// a slow fn directly stalls the next Submit call — the back-pressure
// signal HTTP callers rely on, since the node retries indefinitely on
// a stalled connection rather than on an explicit error.
func (q *Queue) Submit(ctx context.Context, fn func(context.Context) error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return fmt.Errorf("queue is shut down")
	case q.items <- j:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-j.done:
		return err
	}
}
