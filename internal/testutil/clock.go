package testutil

import "sync"

// StubClock returns a settable point. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now uint64
}

func NewStubClock(now uint64) *StubClock {
	return &StubClock{now: now}
}

func (c *StubClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by n points.
func (c *StubClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += n
}
