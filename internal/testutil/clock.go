// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// StubClock is a manually advanced clock.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(start time.Time) *StubClock {
	return &StubClock{now: start}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
