package search

import (
	"sync"
	"time"
)

// DefaultDelay is how long input must stay quiet before a search runs.
const DefaultDelay = 300 * time.Millisecond

// Debouncer runs only the last function passed to Trigger, once the delay
// has elapsed without another call.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, cancelling any call still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels the pending call. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
