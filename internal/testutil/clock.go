package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a ManualClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a wall clock for tests. Every call to Now advances it by a
// fixed tick, so step durations measured against it are reproducible.
//
// Pass clock.Now to engine.WithNow.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	tick  time.Duration
}

// NewManualClock creates a clock at Epoch that advances by tick per Now call.
// A zero tick freezes the clock until Advance is called.
func NewManualClock(tick time.Duration) *ManualClock {
	return &ManualClock{start: Epoch, now: Epoch, tick: tick}
}

// Now returns the current time and then advances the clock by one tick.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.tick)
	return t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Elapsed returns how far the clock has moved since it was created or reset.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Reset moves the clock back to its start time.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
