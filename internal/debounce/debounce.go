// Package debounce limits how often a function runs.
//
// A call runs the function right away when the interval has passed since the
// last run. Otherwise a single trailing run is scheduled for the moment the
// interval expires; later calls replace it, so bursts collapse to one run per
// interval and the last call is never lost.
package debounce

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Debouncer struct {
	mu      sync.Mutex
	fn      func()
	limiter *rate.Limiter

	timer   *time.Timer
	pending *rate.Reservation
	gen     uint64
}

func New(fn func(), wait time.Duration) *Debouncer {
	return &Debouncer{
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(wait), 1),
	}
}

func (d *Debouncer) Call() {
	d.mu.Lock()
	d.cancelLocked()

	r := d.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		d.mu.Unlock()
		d.fn()
		return
	}

	gen := d.gen
	d.pending = r
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		d.fn()
	})
	d.mu.Unlock()
}

// Flush runs the function now and drops any scheduled run.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.cancelLocked()
	d.limiter.Allow()
	d.mu.Unlock()

	d.fn()
}

// Stop drops any scheduled run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
}

// Pending reports whether a trailing run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.pending != nil {
		d.pending.Cancel()
		d.pending = nil
	}
}
