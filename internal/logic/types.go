// Package logic turns periodic dimmer samples into debounced light and mains
// events. It has no GPIO, MQTT or OS dependencies; time is always injected
// through Input.Time.
package logic

import "time"

// State represents the logical state of a tracked channel.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType represents a state transition event.
type EventType string

const (
	EventLightOn   EventType = "LIGHT_ON"
	EventLightOff  EventType = "LIGHT_OFF"
	EventMainsOK   EventType = "MAINS_OK"
	EventMainsLost EventType = "MAINS_LOST"
)

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Light     State
	Mains     State
	Output    uint8
	MainsHz   float64
}

// ChannelState tracks debounce state for a single channel.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input is one sample of the dimmer.
type Input struct {
	Output     uint8   // power applied to the triac, percent
	Calibrated bool    // zero-cross calibration is stable
	MainsHz    float64 // measured mains frequency, 0 when unknown
	Time       time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	LightOn   int
	LightOff  int
	MainsOK   int
	MainsLost int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
