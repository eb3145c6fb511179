package tools

import (
	"sync"
	"time"
)

// Cell caches a single value for a fixed time-to-live. The calendar and
// reminders list-names tools each hold one to avoid re-running AppleScript
// on every lookup.
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	set       bool
	fetchedAt time.Time
	ttl       time.Duration
}

// NewCell creates an empty cell with the given TTL.
func NewCell[T any](ttl time.Duration) *Cell[T] {
	return &Cell[T]{ttl: ttl}
}

// Get returns the cached value if it is still fresh.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || time.Since(c.fetchedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores a value and resets its age.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.set = true
	c.fetchedAt = time.Now()
}

// Clear empties the cell.
func (c *Cell[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.set = false
}
