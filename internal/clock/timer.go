// Package clock provides the countdown timer abstraction the reflector loop
// uses for roster silence, the transmission watchdog and the periodic
// housekeeping ticks. Every timer advances from a single elapsed-duration
// delta supplied once per loop iteration (see internal/reflector), mirroring
// the teacher's heartbeat-interval style in decoder_wsjtx_udp.go without
// pulling in a real time.Ticker per timer — the reflector loop is
// single-threaded and drives all timers itself.
package clock

import "time"

// Timer is a countdown timer with an optional distinct "running" timeout
// separate from its initial one, matching the watchdog's 0/1500ms split in
// spec.md §4.1: the zero value never expires until Start is called, and a
// timer whose Timeout is 0 at construction only becomes live once started
// with a non-zero running timeout.
type Timer struct {
	timeout   time.Duration
	remaining time.Duration
	running   bool
}

// New constructs a stopped timer with the given timeout.
func New(timeout time.Duration) *Timer {
	return &Timer{timeout: timeout}
}

// Start (re)arms the timer, reloading remaining to its configured timeout.
// Starting an already-running timer simply reloads it.
func (t *Timer) Start() {
	t.remaining = t.timeout
	t.running = true
}

// StartWith arms the timer with an explicit timeout, overriding the one it
// was constructed with. Used by the watchdog, which is constructed with a
// 0 timeout and always started with the 1.5s running value (spec.md §4.1).
func (t *Timer) StartWith(timeout time.Duration) {
	t.timeout = timeout
	t.Start()
}

// Stop halts the timer; a stopped timer never reports Expired.
func (t *Timer) Stop() {
	t.running = false
}

// Running reports whether the timer is currently armed.
func (t *Timer) Running() bool {
	return t.running
}

// Tick advances the timer by elapsed. No-op on a stopped timer.
func (t *Timer) Tick(elapsed time.Duration) {
	if !t.running {
		return
	}
	t.remaining -= elapsed
}

// Expired reports whether a running timer's remaining time has reached zero
// or below. A stopped timer is never expired.
func (t *Timer) Expired() bool {
	return t.running && t.remaining <= 0
}
