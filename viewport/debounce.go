// Package viewport rate-limits viewport size changes and feeds the settled
// size to the render backend and the simulation's centering force.
package viewport

import (
	"time"

	"github.com/TFMV/forcegraph/eventloop"
)

// DefaultDelay collapses bursts of resize events.
const DefaultDelay = 100 * time.Millisecond

// Debouncer runs fn once after calls to Schedule stop arriving for delay.
type Debouncer struct {
	sched  eventloop.Scheduler
	delay  time.Duration
	fn     func()
	handle eventloop.Handle
	closed bool
}

// NewDebouncer creates a debouncer on sched.
func NewDebouncer(sched eventloop.Scheduler, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, delay: delay, fn: fn}
}

// Schedule (re)starts the quiet period.
func (d *Debouncer) Schedule() {
	if d.closed {
		return
	}
	d.Cancel()
	d.handle = d.sched.AfterFunc(d.delay, d.fire)
}

// Cancel drops a pending call.
func (d *Debouncer) Cancel() {
	if d.handle != nil {
		d.handle.Cancel()
		d.handle = nil
	}
}

// Pending reports whether a call is waiting.
func (d *Debouncer) Pending() bool {
	return d.handle != nil
}

// Close cancels a pending call; Schedule becomes a no-op.
func (d *Debouncer) Close() {
	d.Cancel()
	d.closed = true
}

func (d *Debouncer) fire() {
	d.handle = nil
	if d.closed {
		return
	}
	d.fn()
}
