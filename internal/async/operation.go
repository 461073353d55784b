package async

import "sync"

// Status enumerates the phases of an asynchronous action.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusResolved
	StatusRejected
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// State is a snapshot of an operation. Exactly one variant is active:
// Data is set only when resolved, Err only when rejected.
type State[T any] struct {
	Status Status
	Data   T
	Err    error
}

// Resolved returns a resolved state, useful as a non-idle initial state for
// re-entrant widgets.
func Resolved[T any](data T) State[T] {
	return State[T]{Status: StatusResolved, Data: data}
}

// PreconditionError reports programmer misuse of the package. It is
// surfaced immediately via panic and never retried.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return "async: " + e.Op + ": " + e.Msg
}

// Operation wraps one in-flight asynchronous action and its observable
// state. The zero value is not usable; construct with New.
type Operation[T any] struct {
	mu       sync.Mutex
	initial  State[T]
	state    State[T]
	closed   bool
	seq      uint64
	latest   bool
	observer func(State[T])
}

// Option configures an Operation.
type Option[T any] func(*Operation[T])

// WithInitial sets the state the operation starts in and returns to on
// Reset. Defaults to idle.
func WithInitial[T any](s State[T]) Option[T] {
	return func(o *Operation[T]) {
		o.initial = s
	}
}

// WithLatestWins discards settlements of runs that were superseded by a
// newer Run, SetData, SetError, or Reset before they settled. Without it the
// last-settling run wins, matching the historical behavior.
func WithLatestWins[T any]() Option[T] {
	return func(o *Operation[T]) {
		o.latest = true
	}
}

// WithObserver registers a callback invoked after every applied transition.
// The callback runs outside the operation's lock and must not block.
func WithObserver[T any](fn func(State[T])) Option[T] {
	return func(o *Operation[T]) {
		o.observer = fn
	}
}

// New constructs an Operation in its initial state.
func New[T any](opts ...Option[T]) *Operation[T] {
	op := &Operation[T]{}
	for _, opt := range opts {
		opt(op)
	}
	op.state = op.initial
	return op
}

// State returns a snapshot of the current state.
func (o *Operation[T]) State() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run tracks fut through this operation: the state moves to pending
// synchronously, then to resolved or rejected when fut settles. Passing nil
// is a caller bug and panics with *PreconditionError. The returned future
// mirrors fut's outcome and settles only after the state transition has been
// applied, so a caller that Waits on it always observes the settled state.
func (o *Operation[T]) Run(fut *Future[T]) *Future[T] {
	if fut == nil {
		panic(&PreconditionError{Op: "Run", Msg: "argument must be an in-flight future, got nil"})
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fut
	}
	o.seq++
	token := o.seq
	o.state = State[T]{Status: StatusPending}
	snap := o.state
	o.mu.Unlock()
	o.notify(snap)

	out := NewFuture[T]()
	go func() {
		data, err := fut.Wait()
		o.settle(token, data, err)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(data)
	}()
	return out
}

// SetData injects a resolved state without running a future, e.g. to seed
// from an external cache.
func (o *Operation[T]) SetData(data T) {
	o.apply(State[T]{Status: StatusResolved, Data: data})
}

// SetError injects a rejected state without running a future.
func (o *Operation[T]) SetError(err error) {
	o.apply(State[T]{Status: StatusRejected, Err: err})
}

// Reset returns the operation to the initial state captured at creation.
func (o *Operation[T]) Reset() {
	o.mu.Lock()
	snap := o.initial
	o.mu.Unlock()
	o.apply(snap)
}

// Close marks the owning component as gone. Every later transition,
// including settlements of runs already in flight, is silently dropped.
func (o *Operation[T]) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

func (o *Operation[T]) settle(token uint64, data T, err error) {
	o.mu.Lock()
	if o.closed || (o.latest && token != o.seq) {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.state = State[T]{Status: StatusRejected, Err: err}
	} else {
		o.state = State[T]{Status: StatusResolved, Data: data}
	}
	snap := o.state
	o.mu.Unlock()
	o.notify(snap)
}

func (o *Operation[T]) apply(s State[T]) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.seq++
	o.state = s
	o.mu.Unlock()
	o.notify(s)
}

func (o *Operation[T]) notify(s State[T]) {
	if o.observer != nil {
		o.observer(s)
	}
}
