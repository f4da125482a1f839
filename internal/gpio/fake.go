package gpio

import "sync"

// FakeEdgeInput is a test double that delivers scripted zero-cross edges.
type FakeEdgeInput struct {
	handler EdgeHandler

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeEdgeInput creates a FakeEdgeInput that forwards edges to handler.
func NewFakeEdgeInput(handler EdgeHandler) *FakeEdgeInput {
	return &FakeEdgeInput{handler: handler}
}

// Emit delivers one edge with the given timestamp.
// Edges after Close are ignored.
func (f *FakeEdgeInput) Emit(stampMicros uint32) {
	if f.Closed || f.handler == nil {
		return
	}
	f.handler(stampMicros)
}

// EmitTrain delivers n edges spaced period microseconds apart starting at
// start and returns the timestamp of the last edge.
func (f *FakeEdgeInput) EmitTrain(start, period uint32, n int) uint32 {
	stamp := start
	for i := 0; i < n; i++ {
		stamp = start + uint32(i)*period
		f.Emit(stamp)
	}
	return stamp
}

// Close marks the input as closed.
func (f *FakeEdgeInput) Close() error {
	f.Closed = true
	return nil
}

// FakeOutput records gate transitions. Safe for concurrent use.
type FakeOutput struct {
	mu sync.Mutex

	level  bool
	pulses int
	writes []bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates an inactive FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the new gate level.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	if on && !f.level {
		f.pulses++
	}
	f.level = on
	f.writes = append(f.writes, on)
	return nil
}

// Level returns the current gate level.
func (f *FakeOutput) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Pulses returns the number of inactive-to-active transitions.
func (f *FakeOutput) Pulses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulses
}

// Writes returns a copy of every level written.
func (f *FakeOutput) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// Close marks the output as closed and inactive.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = false
	f.Closed = true
	return nil
}

// Reset clears recorded transitions.
func (f *FakeOutput) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = false
	f.pulses = 0
	f.writes = nil
	f.Closed = false
	f.SetError = nil
}
