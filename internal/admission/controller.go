// Package admission gates tutoring requests per client before any provider
// work begins.
package admission

import (
	"sync"
	"time"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 30
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is a hint for denied callers. Zero when allowed.
	RetryAfter time.Duration
}

type entry struct {
	count       int
	windowStart time.Time
}

// Controller is a fixed-count limiter over a per-key window. The window
// restarts on the first request after it expires.
//
// Entries are never evicted, so memory grows with the number of distinct
// client keys seen by the process.
type Controller struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewController creates a Controller admitting at most max requests per key
// within window. Non-positive values fall back to 60s and 30.
func NewController(window time.Duration, max int) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	return &Controller{
		window:  window,
		max:     max,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Admit records a request for key and reports whether it may proceed.
func (c *Controller) Admit(key string) Decision {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || now.Sub(e.windowStart) > c.window {
		c.entries[key] = &entry{count: 1, windowStart: now}
		return Decision{Allowed: true}
	}
	if e.count >= c.max {
		return Decision{Allowed: false, RetryAfter: c.window}
	}
	e.count++
	return Decision{Allowed: true}
}

// Len returns the number of tracked client keys.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
