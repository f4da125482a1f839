//go:build !linux

package hwtimer

import "time"

var epoch = time.Now()

// MonotonicClock falls back to the Go runtime's monotonic clock.
type MonotonicClock struct{}

// Micros returns microseconds since process start, truncated to 32 bits.
func (MonotonicClock) Micros() uint32 {
	return uint32(time.Since(epoch).Microseconds())
}
