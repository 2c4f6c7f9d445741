package worker

import (
	"context"
	"sync"
)

// Pool bounds the number of concurrently executing blocking calls so the
// sequential wizard loop never starves the host. Results are delivered on
// buffered channels; an abandoned result is simply discarded.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool creates a pool that runs at most size tasks at once.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Wait blocks until all submitted tasks have finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit schedules fn on the pool and returns the channel its result will be
// delivered on. The channel is buffered, so a caller that stops listening
// does not leak the worker.
func Submit[T any](p *Pool, fn func() T) <-chan T {
	ch := make(chan T, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		ch <- fn()
	}()
	return ch
}

// Await blocks until the task's result arrives or the context is cancelled.
// On cancellation the in-flight task keeps running and its eventual result is
// discarded; no cancellation signal is sent to it.
func Await[T any](ctx context.Context, ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
