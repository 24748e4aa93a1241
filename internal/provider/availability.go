package provider

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultAvailabilityTTL is how long a computed Availability is reused.
const DefaultAvailabilityTTL = 5 * time.Minute

// AvailabilityCache memoizes an Availability for a TTL. Reads may be stale by
// up to the TTL. Concurrent refreshes are collapsed into one load.
type AvailabilityCache struct {
	ttl  time.Duration
	load func() Availability
	now  func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	value   Availability
	expires time.Time
}

// NewAvailabilityCache wraps load with a TTL cache.
func NewAvailabilityCache(ttl time.Duration, load func() Availability) *AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTL
	}
	return &AvailabilityCache{ttl: ttl, load: load, now: time.Now}
}

// Get returns the cached Availability, refreshing it when expired.
func (c *AvailabilityCache) Get() Availability {
	now := c.now()

	c.mu.RLock()
	v, fresh := c.value, now.Before(c.expires)
	c.mu.RUnlock()
	if fresh {
		return v
	}

	res, _, _ := c.group.Do("availability", func() (any, error) {
		a := c.load()
		c.mu.Lock()
		c.value = a
		c.expires = c.now().Add(c.ttl)
		c.mu.Unlock()
		return a, nil
	})
	return res.(Availability)
}
