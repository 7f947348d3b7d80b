// Package loop provides the single-threaded scheduler that drives
// asynchronous step handlers.
//
// A Loop owns one goroutine and runs submitted tasks one at a time in FIFO
// order. Each task starts a handler and waits for its result before the next
// task begins, so fixtures borrowed for a step are never touched by two
// handlers at once.
//
// A loop is active for a context once Start has attached it. Starting a
// second loop while one is active fails with ErrNested; submitting work to a
// loop from a task already running on it fails with ErrReentrant, since the
// task would wait for itself.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrNested is returned by Start when a loop is already active in the context.
	ErrNested = errors.New("async loop already active in this context")

	// ErrReentrant is returned by Run when called from a task on the same loop.
	ErrReentrant = errors.New("async loop re-entered from one of its own tasks")

	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("async loop is closed")

	// ErrNoResult is returned when an async body returns a nil channel.
	ErrNoResult = errors.New("async step returned no result channel")
)

type activeKey struct{}

type runningKey struct{}

// Loop is a single-goroutine task scheduler.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}

	executed atomic.Int64
}

// Start creates a loop, attaches it to ctx and starts its goroutine.
// The caller must Close the loop.
func Start(ctx context.Context) (context.Context, *Loop, error) {
	if _, ok := FromContext(ctx); ok {
		return ctx, nil, ErrNested
	}
	l := &Loop{
		tasks:  make([]func(), 0, 8),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return context.WithValue(ctx, activeKey{}, l), l, nil
}

// FromContext returns the loop active in ctx.
func FromContext(ctx context.Context) (*Loop, bool) {
	l, ok := ctx.Value(activeKey{}).(*Loop)
	return l, ok && l != nil
}

// Run submits fn to the loop and blocks until the channel it returns yields
// a result. fn is called on the loop goroutine with a context that marks the
// loop as running. A panic in fn is returned as a *PanicError.
//
// Cancelling ctx does not make Run return early; it returns only once fn's
// channel yields or is closed.
func (l *Loop) Run(ctx context.Context, fn func(context.Context) <-chan error) error {
	if running, _ := ctx.Value(runningKey{}).(*Loop); running == l {
		return ErrReentrant
	}

	result := make(chan error, 1)
	if !l.submit(func() { result <- l.drive(ctx, fn) }) {
		return ErrClosed
	}
	return <-result
}

func (l *Loop) drive(ctx context.Context, fn func(context.Context) <-chan error) error {
	ctx = context.WithValue(ctx, runningKey{}, l)

	future, err := start(ctx, fn)
	if err != nil {
		return err
	}
	if future == nil {
		return ErrNoResult
	}

	// No mid-step cancellation: the body may still hold fixtures, so wait for
	// its own result even after ctx is done. The body sees ctx and may stop early.
	err, ok := <-future
	if !ok {
		return nil
	}
	return err
}

func start(ctx context.Context, fn func(context.Context) <-chan error) (future <-chan error, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return fn(ctx), nil
}

// submit appends a task. Returns false if the loop is closed.
func (l *Loop) submit(task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, task)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// next blocks until a task is available. Returns false once the loop is
// closed and drained.
func (l *Loop) next() (func(), bool) {
	for {
		l.mu.Lock()
		if len(l.tasks) > 0 {
			task := l.tasks[0]
			l.tasks[0] = nil
			if len(l.tasks) == 1 {
				l.tasks = l.tasks[:0]
			} else {
				l.tasks = l.tasks[1:]
			}
			l.mu.Unlock()
			return task, true
		}
		if l.closed {
			l.mu.Unlock()
			return nil, false
		}
		l.mu.Unlock()

		<-l.signal
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		task, ok := l.next()
		if !ok {
			return
		}
		l.executed.Add(1)
		task()
	}
}

// Pending returns the number of queued tasks not yet started.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Executed returns the number of tasks started so far.
func (l *Loop) Executed() int64 {
	return l.executed.Load()
}

// Close stops accepting tasks, lets queued tasks finish, and waits for the
// loop goroutine to exit. Must not be called from a task on this loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.signal)
	}
	l.mu.Unlock()

	<-l.done
}
