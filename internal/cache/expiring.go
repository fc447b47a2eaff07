// Package cache holds small in-memory caches owned by a single component.
package cache

import (
	"context"
	"sync"
	"time"
)

// Expiring holds one value until its expiry timestamp passes. The expiry
// is checked on every access; there are no background timers.
type Expiring[T any] struct {
	mu        sync.Mutex
	value     T
	valid     bool
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewExpiring creates an empty cache whose values live for ttl.
func NewExpiring[T any](ttl time.Duration) *Expiring[T] {
	return &Expiring[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *Expiring[T]) WithClock(now func() time.Time) *Expiring[T] {
	c.now = now
	return c
}

// Get returns the cached value and whether it is still fresh.
func (c *Expiring[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked()
}

func (c *Expiring[T]) getLocked() (T, bool) {
	if !c.valid || !c.now().Before(c.expiresAt) {
		var zero T
		c.value = zero
		c.valid = false
		return zero, false
	}
	return c.value, true
}

// Set stores v and restarts the expiry window.
func (c *Expiring[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.valid = true
	c.expiresAt = c.now().Add(c.ttl)
}

// ExpiresAt returns the current expiry timestamp (zero when empty).
func (c *Expiring[T]) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return time.Time{}
	}
	return c.expiresAt
}

// Invalidate drops the cached value.
func (c *Expiring[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
	c.expiresAt = time.Time{}
}

// GetOrLoad returns the cached value, calling load to refill it when
// stale. Load errors are returned and nothing is cached.
func (c *Expiring[T]) GetOrLoad(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(v)
	return v, nil
}
