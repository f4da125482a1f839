//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealEdgeInput is not available on non-Linux platforms.
type RealEdgeInput struct{}

// NewRealEdgeInput returns an error on non-Linux platforms.
func NewRealEdgeInput(chip string, pin int, edge Edge, handler EdgeHandler) (*RealEdgeInput, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealEdgeInput) Close() error {
	return nil
}

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (r *RealOutput) Set(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutput) Close() error {
	return nil
}
