// Package gpio provides the two pins the dimmer needs: the zero-cross sense
// input, delivered as timestamped edge events, and the triac gate output.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// EdgeHandler receives the timestamp of a zero-cross edge in microseconds on
// the CLOCK_MONOTONIC time base. It runs on the edge event goroutine and must
// not block.
type EdgeHandler func(stampMicros uint32)

// EdgeInput is a source of zero-cross edges.
type EdgeInput interface {
	// Close stops edge delivery and releases the line.
	Close() error
}

// Output drives the triac gate.
type Output interface {
	// Set drives the gate active (true) or inactive (false).
	Set(on bool) error

	// Close releases the line, leaving the gate inactive.
	Close() error
}

// Edge selects which transitions of the zero-cross input are reported.
type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// ParseEdge validates an edge name.
func ParseEdge(s string) (Edge, error) {
	switch Edge(s) {
	case EdgeRising, EdgeFalling, EdgeBoth:
		return Edge(s), nil
	case "":
		return EdgeRising, nil
	}
	return "", fmt.Errorf("gpio: unknown edge %q", s)
}

// Pin definitions (BCM numbering)
const (
	DefaultChip          = "gpiochip0"
	DefaultPinZeroCross  = 17
	DefaultPinTrigger    = 27
	consumerZeroCross    = "dimmer-zero"
	consumerTriggerTriac = "dimmer-gate"
)
