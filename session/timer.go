package session

import (
	"sync"
	"time"
)

// EventTimer is a cancellable one-shot timer for an event's trigger time.
// It can be re-armed to a new time as long as it has not fired; once the
// callback starts it runs to completion and the timer is spent.
type EventTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	fn      func()
	fired   bool
	stopped bool
}

// NewEventTimer arms a timer that calls fn at fireAt. A fireAt in the
// past fires immediately (on the timer goroutine, not inline).
func NewEventTimer(fireAt time.Time, fn func()) *EventTimer {
	t := &EventTimer{fn: fn}
	t.timer = time.AfterFunc(durationUntil(fireAt), t.fire)
	return t
}

func (t *EventTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	t.fn()
}

// Rearm moves the firing time. It reports false when the timer has
// already fired or been stopped; a spent timer cannot be revived.
func (t *EventTimer) Rearm(fireAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	// Stop reporting false means the runtime already committed the
	// callback; it is waiting on the mutex and the old deadline wins.
	if !t.timer.Stop() {
		return false
	}
	t.timer = time.AfterFunc(durationUntil(fireAt), t.fire)
	return true
}

// Stop cancels the timer. It reports false when the callback already
// started, in which case it will run to completion.
func (t *EventTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

func durationUntil(fireAt time.Time) time.Duration {
	d := time.Until(fireAt)
	if d < 0 {
		d = 0
	}
	return d
}
