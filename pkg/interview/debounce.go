// ABOUTME: Timer-based coalescing of article text commits
// ABOUTME: Only the last value within the delay window is committed
package interview

import (
	"sync"
	"time"
)

// DefaultCommitDelay is how long typing must pause before a commit
const DefaultCommitDelay = 500 * time.Millisecond

// Debouncer delivers the most recent value once no new value has arrived
// for the delay
type Debouncer struct {
	delay time.Duration
	fn    func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	armed   bool
	seq     uint64
}

// NewDebouncer creates a debouncer calling fn after delay of quiet
func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultCommitDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger records value and restarts the delay
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = value
	d.armed = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if !d.armed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.armed = false
	d.mu.Unlock()

	d.fn(value)
}

// Flush delivers a pending value immediately. Returns false if nothing was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return false
	}
	value := d.pending
	d.armed = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.fn(value)
	return true
}

// Cancel drops a pending value
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Pending returns the value waiting to be delivered
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.armed
}
