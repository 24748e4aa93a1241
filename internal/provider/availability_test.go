package provider

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAvailabilityCache_TTL(t *testing.T) {
	var loads atomic.Int32
	current := Availability{General: true}
	now := time.Unix(1_700_000_000, 0)

	c := NewAvailabilityCache(5*time.Minute, func() Availability {
		loads.Add(1)
		return current
	})
	c.now = func() time.Time { return now }

	if got := c.Get(); !got.General || got.Native {
		t.Fatalf("Get() = %+v", got)
	}

	current = Availability{General: true, Native: true}
	now = now.Add(4 * time.Minute)
	if got := c.Get(); got.Native {
		t.Error("cache refreshed before TTL expired")
	}

	now = now.Add(2 * time.Minute)
	if got := c.Get(); !got.Native {
		t.Error("cache not refreshed after TTL expired")
	}
	if n := loads.Load(); n != 2 {
		t.Errorf("loads = %d, want 2", n)
	}
}

func TestAvailabilityCache_Concurrent(t *testing.T) {
	c := NewAvailabilityCache(time.Minute, func() Availability {
		return Availability{General: true, Native: true}
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Get(); !got.General || !got.Native {
				t.Errorf("Get() = %+v", got)
			}
		}()
	}
	wg.Wait()
}
