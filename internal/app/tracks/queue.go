package tracks

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Do after Close.
var ErrQueueClosed = errors.New("hierarchy queue closed")

// Queue runs submitted functions one at a time in submission order. Every
// mutation of the artist hierarchy goes through a single Queue so that a
// lookup and the write depending on it are never interleaved with another
// writer.
type Queue struct {
	jobs chan job
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// NewQueue starts the worker goroutine.
func NewQueue() *Queue {
	q := &Queue{
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Do submits fn and waits for it to finish. If ctx ends before fn was
// accepted Do returns ctx.Err() without running it. Once accepted, Do always
// waits for the outcome so callers never lose track of a write that did
// happen.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
	return <-j.result
}

// Close stops the worker after the job in flight, if any.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case j := <-q.jobs:
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}
			j.result <- j.fn(j.ctx)
		}
	}
}
