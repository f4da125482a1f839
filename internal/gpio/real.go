//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealEdgeInput delivers zero-cross edges from a GPIO line.
type RealEdgeInput struct {
	line *gpiocdev.Line
}

// NewRealEdgeInput requests pin on chip as an edge-detecting input and calls
// handler for every edge. Timestamps come from the kernel, so they do not
// include the scheduling latency of the event goroutine.
func NewRealEdgeInput(chip string, pin int, edge Edge, handler EdgeHandler) (*RealEdgeInput, error) {
	var edgeOpt gpiocdev.LineReqOption
	switch edge {
	case EdgeFalling:
		edgeOpt = gpiocdev.WithFallingEdge
	case EdgeBoth:
		edgeOpt = gpiocdev.WithBothEdges
	default:
		edgeOpt = gpiocdev.WithRisingEdge
	}

	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.WithConsumer(consumerZeroCross),
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		edgeOpt,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(uint32(evt.Timestamp.Microseconds()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request zero-cross pin %d: %w", pin, err)
	}
	return &RealEdgeInput{line: line}, nil
}

// Close releases the line. No handler calls are made after Close returns.
func (r *RealEdgeInput) Close() error {
	if r.line == nil {
		return nil
	}
	if err := r.line.Close(); err != nil {
		return fmt.Errorf("close zero-cross pin: %w", err)
	}
	return nil
}

// RealOutput drives the triac gate through a GPIO line.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests pin on chip as an output, initially inactive.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.WithConsumer(consumerTriggerTriac),
		gpiocdev.AsOutput(0),
	)
	if err != nil {
		return nil, fmt.Errorf("request trigger pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the gate.
func (r *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set trigger pin: %w", err)
	}
	return nil
}

// Close releases the gate line.
// Drives the gate low and then reconfigures the pin to input with pull-down
// (matching Pi boot defaults) so the triac can never be left latched on by a
// floating or driven pin after the daemon exits.
func (r *RealOutput) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release trigger pin: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
