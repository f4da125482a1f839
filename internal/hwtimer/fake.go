package hwtimer

import "sync"

// Fake is a Timer and Clock driven by manual Advance calls. Expiry callbacks
// run synchronously inside Advance, in deadline order.
type Fake struct {
	mu       sync.Mutex
	now      uint32
	cb       func()
	armed    bool
	deadline uint32
	period   uint32
	armedAt  uint32

	// Fires counts callback invocations.
	Fires int
	// Arms counts Arm calls.
	Arms int
}

// NewFake creates a fake timer whose clock starts at start.
func NewFake(start uint32) *Fake {
	return &Fake{now: start}
}

// Micros returns the fake clock.
func (f *Fake) Micros() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Attach installs the expiry callback.
func (f *Fake) Attach(fn func()) {
	f.mu.Lock()
	f.cb = fn
	f.mu.Unlock()
}

// Detach removes the callback and cancels the timer.
func (f *Fake) Detach() {
	f.mu.Lock()
	f.cb = nil
	f.armed = false
	f.mu.Unlock()
}

// Arm schedules an expiry us microseconds after the current fake time.
func (f *Fake) Arm(us uint32, repeating bool) {
	f.mu.Lock()
	f.armed = true
	f.armedAt = f.now
	f.deadline = f.now + us
	f.period = 0
	if repeating {
		f.period = us
	}
	f.Arms++
	f.mu.Unlock()
}

// Cancel disarms the timer.
func (f *Fake) Cancel() {
	f.mu.Lock()
	f.armed = false
	f.mu.Unlock()
}

// ElapsedMicros returns the fake time since the last Arm.
func (f *Fake) ElapsedMicros() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now - f.armedAt
}

// Armed reports whether an expiry is pending and when it is due.
func (f *Fake) Armed() (bool, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed, f.deadline
}

// Advance moves the clock forward by us microseconds, firing every deadline
// that falls inside the interval. Callbacks may re-arm the timer.
func (f *Fake) Advance(us uint32) {
	f.mu.Lock()
	target := f.now + us
	for f.armed && int32(target-f.deadline) >= 0 {
		f.now = f.deadline
		cb := f.cb
		if f.period > 0 {
			f.deadline += f.period
			f.armedAt = f.now
		} else {
			f.armed = false
		}
		f.Fires++
		f.mu.Unlock()
		if cb != nil {
			cb()
		}
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}
