package util

import (
	"sync"
	"time"
)

// Clock is where run and message timestamps come from.
type Clock interface {
	Now() time.Time
}

type DefaultClock struct{}

func (c *DefaultClock) Now() time.Time { return time.Now() }

// DummyClock stands still at T until moved with Advance. Used in tests to pin timestamps.
type DummyClock struct {
	T  time.Time
	mu sync.Mutex
}

func (c *DummyClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *DummyClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}
