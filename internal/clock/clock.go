// Package clock holds the shared hour counter of one simulated work day.
package clock

import (
	"sync"
	"sync/atomic"
)

// MaxHours is the length of a simulated work day.
const MaxHours = 8

// Reader is the read-only view handed to workers.
type Reader interface {
	Hour() int
	Active() bool
	// Changed returns a channel that is closed on the next hour or state
	// change. Take it before reading Hour/Active to avoid missing a change.
	Changed() <-chan struct{}
}

// Clock is written by a single coordinator and read by many workers.
type Clock struct {
	hour   atomic.Int32
	active atomic.Bool

	mu      sync.Mutex
	changed chan struct{}
}

func New() *Clock {
	return &Clock{changed: make(chan struct{})}
}

// Start resets the day to hour 0 and activates it.
func (c *Clock) Start() {
	c.hour.Store(0)
	c.active.Store(true)
	c.notify()
}

// Advance moves to the next hour. At MaxHours, or once inactive, it
// deactivates the clock and returns false.
func (c *Clock) Advance() bool {
	if !c.active.Load() {
		return false
	}
	if c.hour.Load() >= MaxHours {
		c.Stop()
		return false
	}
	c.hour.Add(1)
	c.notify()
	return true
}

// Stop deactivates the clock.
func (c *Clock) Stop() {
	if c.active.Swap(false) {
		c.notify()
	}
}

func (c *Clock) Hour() int    { return int(c.hour.Load()) }
func (c *Clock) Active() bool { return c.active.Load() }

func (c *Clock) IsDayComplete() bool {
	return c.Hour() >= MaxHours || !c.Active()
}

// RemainingHours is the number of hours left before the day completes.
func (c *Clock) RemainingHours() int {
	return max(0, MaxHours-c.Hour())
}

func (c *Clock) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

func (c *Clock) notify() {
	c.mu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}
