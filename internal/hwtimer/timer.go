// Package hwtimer provides the single microsecond countdown timer that
// schedules triac ignition, plus the free-running microsecond clock that
// timestamps zero-crossings.
//
// All times are uint32 microseconds that wrap roughly every 71 minutes;
// differences are taken with unsigned subtraction so the wrap is harmless as
// long as the interval fits in 32 bits.
package hwtimer

// Clock is a free-running microsecond counter.
type Clock interface {
	Micros() uint32
}

// Timer is a single-shot or repeating countdown timer.
//
// The attached callback runs on the timer's own goroutine and must not block.
// Arm while armed replaces the pending deadline. Cancel is safe at any time,
// including after the timer has already fired; a cancelled deadline never
// fires.
type Timer interface {
	// Attach installs the expiry callback. It replaces any previous callback.
	Attach(fn func())
	// Detach removes the callback and cancels the timer.
	Detach()
	// Arm schedules the callback us microseconds from now. If repeating is
	// set the timer re-arms itself with the same interval after each expiry.
	Arm(us uint32, repeating bool)
	// Cancel disarms the timer.
	Cancel()
	// ElapsedMicros returns the time since the timer was last armed.
	ElapsedMicros() uint32
}

// Since returns the wrap-safe interval between two clock readings.
func Since(now, then uint32) uint32 {
	return now - then
}
