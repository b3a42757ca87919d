package entity

import (
	"sync"
	"time"
)

// DefaultUpdateInterval is the minimum time between two update
// notifications from the same entity.
const DefaultUpdateInterval = 150 * time.Millisecond

// debouncer rate-limits calls to fire.
//
// A trigger after a quiet period fires immediately (leading edge). A trigger
// inside the cool-down window schedules exactly one deferred fire for the end
// of the window (trailing edge); further triggers while that fire is pending
// are absorbed into it.
type debouncer struct {
	mu        sync.Mutex
	interval  time.Duration
	lastFire  time.Time
	scheduled bool
	timer     *time.Timer
	fire      func()
}

func newDebouncer(interval time.Duration, fire func()) *debouncer {
	return &debouncer{interval: interval, fire: fire}
}

// trigger requests a notification.
func (d *debouncer) trigger() {
	d.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(d.lastFire)

	// A pending trailing fire covers this trigger, even if its timer is
	// running late.
	if d.scheduled {
		d.mu.Unlock()
		return
	}

	if d.lastFire.IsZero() || elapsed > d.interval {
		d.lastFire = now
		d.mu.Unlock()
		d.fire()
		return
	}

	d.scheduled = true
	d.timer = time.AfterFunc(d.interval-elapsed, d.trailing)
	d.mu.Unlock()
}

// trailing runs on the timer goroutine at the end of the cool-down window.
//
// The scheduled flag is cleared before firing so a mutation that lands while
// subscribers are still running schedules a fresh trailing fire instead of
// being absorbed into one that has already read the old state.
func (d *debouncer) trailing() {
	d.mu.Lock()
	d.lastFire = time.Now()
	d.scheduled = false
	d.timer = nil
	d.mu.Unlock()

	d.fire()
}

// setInterval changes the cool-down window for subsequent triggers.
func (d *debouncer) setInterval(interval time.Duration) {
	d.mu.Lock()
	d.interval = interval
	d.mu.Unlock()
}

// pending reports whether a trailing fire is scheduled.
func (d *debouncer) pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduled
}

// stop cancels a scheduled trailing fire, if any.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil && d.timer.Stop() {
		d.scheduled = false
		d.timer = nil
	}
}
