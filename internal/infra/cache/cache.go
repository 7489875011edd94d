// Package cache provides TTL caches for role and permission lookups:
// an in-process map and a Redis-backed variant for multi-instance deployments.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Local is an in-process TTL cache. Expired entries are invisible to Get
// and are swept by a background goroutine until Close.
type Local[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// Option configures a Local cache.
type Option func(*options)

type options struct {
	now   func() time.Time
	sweep time.Duration
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often expired entries are purged. Defaults to the TTL.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweep = d }
}

// New creates a Local cache whose entries live for ttl.
func New[T any](ttl time.Duration, opts ...Option) *Local[T] {
	o := options{now: time.Now, sweep: ttl}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sweep <= 0 {
		o.sweep = time.Minute
	}

	c := &Local[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   o.now,
		stop:  make(chan struct{}),
	}
	go c.loop(o.sweep)
	return c
}

func (c *Local[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *Local[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Local[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until the next sweep.
func (c *Local[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep drops every expired entry and reports how many were removed.
func (c *Local[T]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Close stops the sweeper. Safe to call more than once.
func (c *Local[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Local[T]) loop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
