package services

import "context"

// Call is a single-shot asynchronous operation that delivers exactly one result.
type Call[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	value  T
	err    error
}

// Start runs fn on its own goroutine with a cancellable child of ctx.
func Start[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Call[T] {
	ctx, cancel := context.WithCancel(ctx)
	c := &Call[T]{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		defer cancel()
		c.value, c.err = fn(ctx)
	}()
	return c
}

// Done is closed once the result is available.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes and returns its result.
func (c *Call[T]) Wait() (T, error) {
	<-c.done
	return c.value, c.err
}

// Cancel asks the call to stop. It has no effect once the call has completed.
func (c *Call[T]) Cancel() {
	c.cancel()
}
