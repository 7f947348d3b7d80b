package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every step outcome is stamped with a
// strictly increasing seq so traces order deterministically regardless of
// wall-clock time.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
