// Package debounce provides a trailing-edge debouncer: an action is delayed
// until a quiet window with no new triggers has elapsed, and only the state
// as of the last trigger is acted upon.
package debounce

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet window used when none is configured.
const DefaultQuiet = 300 * time.Millisecond

// Timer is the subset of *time.Timer the debouncer needs. Tests substitute
// a fake so no real time passes.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d and returns a cancelable handle.
type AfterFunc func(d time.Duration, fn func()) Timer

func stdAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Debouncer coalesces bursts of Schedule calls into a single deferred run of
// fn. At most one timer is pending at a time; each Schedule cancels the
// previous one. fn must read any state it needs at fire time, not at
// schedule time.
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	after AfterFunc
	fn    func()
	timer Timer
}

// New builds a debouncer firing fn after quiet. A non-positive quiet falls
// back to DefaultQuiet.
func New(quiet time.Duration, fn func()) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, after: stdAfterFunc, fn: fn}
}

// SetAfterFunc replaces the timer factory. Test hook.
func (d *Debouncer) SetAfterFunc(after AfterFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.after = after
}

// Schedule cancels any pending run and arms a fresh quiet window.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.after(d.quiet, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Stop cancels a pending run, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a run is currently scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
