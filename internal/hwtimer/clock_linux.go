//go:build linux

package hwtimer

import "golang.org/x/sys/unix"

// MonotonicClock reads CLOCK_MONOTONIC, the same clock the GPIO character
// device uses for edge event timestamps.
type MonotonicClock struct{}

// Micros returns the low 32 bits of CLOCK_MONOTONIC in microseconds.
func (MonotonicClock) Micros() uint32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint32(ts.Nano() / 1000)
}
