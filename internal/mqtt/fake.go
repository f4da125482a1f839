package mqtt

import (
	"sync"

	"github.com/sweeney/dimmer/internal/logic"
)

// FakeClient records published messages for test assertions and lets tests
// deliver commands.
type FakeClient struct {
	mu sync.Mutex

	// Values contains all status values that were published.
	Values []Value

	// Events contains all dimmer events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads of the dimmer events.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, is returned by PublishValue and Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler CommandHandler
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// PublishValue records the status value.
func (f *FakeClient) PublishValue(tag, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Values = append(f.Values, Value{Tag: tag, Payload: value})
	return nil
}

// Publish records the dimmer event.
func (f *FakeClient) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Subscribe stores h for Deliver.
func (f *FakeClient) Subscribe(h CommandHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	return nil
}

// Deliver passes a command to the subscribed handler, as if it had arrived
// on <main>/<tag>. It reports whether a handler was installed.
func (f *FakeClient) Deliver(tag, payload string) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(Command{Tag: tag, Payload: payload})
	return true
}

// LastValue returns the most recent payload published for tag.
func (f *FakeClient) LastValue(tag string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Values) - 1; i >= 0; i-- {
		if f.Values[i].Tag == tag {
			return f.Values[i].Payload, true
		}
	}
	return "", false
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values = nil
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
