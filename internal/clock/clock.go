// Package clock provides a process-wide cached wall-clock reader (Cache,
// Default) and a direct OS clock read (Real). The timer scheduler reads
// Real; the worker pool and the manager loop call time.Now directly, so
// none of them reads the cache.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefresh matches spec §4.5: the default scheduler refreshes the
// cache every 500ms. Callers needing sub-500ms accuracy must call Real.
const DefaultRefresh = 500 * time.Millisecond

// Cache is a monotonic wall-clock reader with a background-refreshed value.
// Its Now() costs one atomic load instead of an OS clock read.
type Cache struct {
	nanos    atomic.Int64
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	started  atomic.Bool
}

// NewCache creates a cache; call Start to begin the refresh loop.
func NewCache(interval time.Duration) *Cache {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	c := &Cache{interval: interval, stop: make(chan struct{})}
	c.nanos.Store(time.Now().UnixNano())
	return c
}

// Start begins the background refresh goroutine. Safe to call once; later
// calls are no-ops.
func (c *Cache) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.nanos.Store(time.Now().UnixNano())
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the refresh goroutine. Idempotent.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Now returns the cached timestamp. Never use this for interval
// measurements under the refresh interval (cost_ms, drain budgeting) —
// call Real instead.
func (c *Cache) Now() time.Time {
	return time.Unix(0, c.nanos.Load())
}

// Real reads the OS clock directly, bypassing the cache.
func Real() time.Time { return time.Now() }

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cached clock, lazily starting its
// refresh loop on first use. Mirrors spec §9's "process-wide singletons
// with lazy initialization and no teardown."
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = NewCache(DefaultRefresh)
		defaultCache.Start()
	})
	return defaultCache
}
