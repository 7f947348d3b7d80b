package step

import (
	"context"

	"github.com/roach88/stepwise/internal/loop"
)

// Mode is a handler's declared execution mode.
type Mode int

const (
	// ModeSync handlers run on the dispatching goroutine.
	ModeSync Mode = iota + 1
	// ModeAsync handlers are driven to completion on a single-threaded loop.
	ModeAsync
)

// String returns "sync" or "async".
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Func is a synchronous step body.
type Func func(ctx context.Context, sc *Context) error

// AsyncFunc is an asynchronous step body. It starts the step's work and
// returns a channel that yields exactly one result (nil on success). The
// dispatcher keeps the step's fixtures borrowed until that result arrives.
type AsyncFunc func(ctx context.Context, sc *Context) <-chan error

// Handler is a tagged step body: exactly one of the sync or async
// functions is set, selected by Mode.
type Handler struct {
	mode  Mode
	sync  Func
	async AsyncFunc
}

// Sync wraps a synchronous body.
func Sync(fn Func) Handler {
	return Handler{mode: ModeSync, sync: fn}
}

// Async wraps an asynchronous body.
func Async(fn AsyncFunc) Handler {
	return Handler{mode: ModeAsync, async: fn}
}

// Mode returns the declared execution mode.
func (h Handler) Mode() Mode {
	return h.mode
}

// SyncFunc returns the synchronous body (nil for async handlers).
func (h Handler) SyncFunc() Func {
	return h.sync
}

// AsyncFunc returns the asynchronous body (nil for sync handlers).
func (h Handler) AsyncFunc() AsyncFunc {
	return h.async
}

// Valid reports whether the handler carries a body matching its mode.
func (h Handler) Valid() bool {
	switch h.mode {
	case ModeSync:
		return h.sync != nil
	case ModeAsync:
		return h.async != nil
	}
	return false
}

// Done returns an already-completed async result carrying err.
// Convenient for async bodies that finish synchronously on some paths.
func Done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// Go runs fn on a new goroutine and returns its result as an async result.
// A Skip or Skipf inside fn marks the step skipped. Any other panic is
// reported as a *loop.PanicError instead of crashing the process.
func Go(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if skip, ok := AsSkip(r); ok {
					ch <- skip
					return
				}
				ch <- loop.NewPanicError(r)
			}
		}()
		ch <- fn()
	}()
	return ch
}
