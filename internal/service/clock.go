package service

import (
	"sync"
	"time"
)

// clockStep is the resolution shared by both metadata backends (Mongo stores milliseconds).
const clockStep = time.Millisecond

// monotonicClock hands out creation timestamps that never go backwards,
// even if the wall clock does.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(clockStep)
	if !t.After(c.last) && !c.last.IsZero() {
		t = c.last.Add(clockStep)
	}
	c.last = t
	return t
}
