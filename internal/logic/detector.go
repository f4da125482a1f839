package logic

import "time"

// Detector tracks the light and mains channels and detects debounced
// transitions.
type Detector struct {
	debounceDuration time.Duration
	light            ChannelState
	mains            ChannelState
	baselined        bool
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new sample and returns any events that should be emitted.
// Events are only returned after baseline is established and on state transitions.
func (d *Detector) Process(input Input) []Event {
	lightTransition := d.processChannel(&d.light, boolToState(input.Output > 0), input.Time)
	mainsTransition := d.processChannel(&d.mains, boolToState(input.Calibrated), input.Time)

	if !d.baselined {
		if d.light.Baselined && d.mains.Baselined {
			d.baselined = true
		}
		return nil
	}

	var events []Event

	// Within one sample, mains events come before light events.
	for _, typ := range []*EventType{mainsTransition, lightTransition} {
		if typ == nil {
			continue
		}
		events = append(events, Event{
			Timestamp: input.Time,
			Type:      *typ,
			Light:     d.light.Stable,
			Mains:     d.mains.Stable,
			Output:    input.Output,
			MainsHz:   input.MainsHz,
		})
		switch *typ {
		case EventLightOn:
			d.eventCounts.LightOn++
		case EventLightOff:
			d.eventCounts.LightOff++
		case EventMainsOK:
			d.eventCounts.MainsOK++
		case EventMainsLost:
			d.eventCounts.MainsLost++
		}
	}

	return events
}

// processChannel handles debounce logic for a single channel.
// Returns the event type if a transition occurred, nil otherwise.
func (d *Detector) processChannel(ch *ChannelState, newState State, now time.Time) *EventType {
	if !ch.Baselined {
		if ch.Pending != newState {
			ch.Pending = newState
			ch.PendingSince = now
			return nil
		}
		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return nil
	}

	if newState == ch.Stable {
		ch.Pending = ""
		return nil
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
		return nil
	}

	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return eventTypeForTransition(newState, ch == &d.light)
	}

	return nil
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

func eventTypeForTransition(to State, isLight bool) *EventType {
	var event EventType
	switch {
	case isLight && to == StateOn:
		event = EventLightOn
	case isLight:
		event = EventLightOff
	case to == StateOn:
		event = EventMainsOK
	default:
		event = EventMainsLost
	}
	return &event
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the current stable states.
func (d *Detector) CurrentState() (light State, mains State) {
	return d.light.Stable, d.mains.Stable
}

// Counts returns the events emitted since startup.
func (d *Detector) Counts() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
