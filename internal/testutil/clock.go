package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant returned by a DeterministicClock.
var DefaultEpoch = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// DeterministicClock provides a thread-safe clock for tests that advances by
// a fixed step on every call.
//
// The same test scenario run twice sees identical timestamps, which keeps
// golden traces byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at DefaultEpoch that
// advances one second per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, time.Second)
}

// NewDeterministicClockAt creates a clock starting at epoch advancing by step.
func NewDeterministicClockAt(epoch time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Now returns the current instant and advances the clock by one step.
// The first call returns the epoch.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.epoch.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns the epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
