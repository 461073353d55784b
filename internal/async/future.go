package async

import "sync"

// Future is a single asynchronous action that settles exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	data T
	err  error
}

// NewFuture returns an unsettled future. Settle it with Resolve or Reject.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go starts fn in its own goroutine and returns the future it settles.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve settles the future with a value. Later calls are no-ops.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.data = v
		close(f.done)
	})
}

// Reject settles the future with an error. Later calls are no-ops.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future settles and returns its outcome. The error is
// the original rejection, so callers can chain their own handling.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.data, f.err
}

// Done exposes the settle signal for select loops.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
