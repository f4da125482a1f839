// Package triac synchronises to the mains zero-crossing and fires the triac
// gate at the phase delay that produces the requested output power.
//
// Two execution contexts meet here. The edge handler (ZeroCross) and the
// timer callback behave like interrupt handlers: they never block, never
// allocate and only ever TryLock the controller. Everything else (setters,
// Handle, Reset) is background context and holds the lock for a handful of
// field updates at most.
package triac

const (
	// MovAvWidth is the number of half-periods in the moving average.
	MovAvWidth = 16
	// ZeroMin is the shortest accepted half-period (100 Hz mains).
	ZeroMin uint32 = 5000
	// ZeroMax is the longest accepted half-period (25 Hz mains).
	ZeroMax uint32 = 20000
	// IgnitionMax is how long the controller waits for a zero-crossing
	// before it declares the mains lost.
	IgnitionMax uint32 = 100000
	// SafetyTimeUs is the minimum gate pulse and the guard band kept free
	// at the end of each half-cycle.
	SafetyTimeUs uint32 = 100
	// MaxPulseWidthUs bounds the configurable gate pulse.
	MaxPulseWidthUs uint32 = 1000
	// StabilizerNr is the number of consecutive clean moving-average
	// windows needed before computed firing starts, about 1 s at 50 Hz.
	StabilizerNr = 6

	PwrOff uint8 = 0
	PwrOn  uint8 = 100
)

// State is the ignition state machine state.
type State uint8

const (
	Idle State = iota
	AwaitingZero
	PulseActive
	ForcedOff
	ForcedOn
	Uncalibrated
	Calibrating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case AwaitingZero:
		return "AWAITING_ZERO"
	case PulseActive:
		return "PULSE_ACTIVE"
	case ForcedOff:
		return "FORCED_OFF"
	case ForcedOn:
		return "FORCED_ON"
	case Uncalibrated:
		return "UNCALIBRATED"
	case Calibrating:
		return "CALIBRATING"
	default:
		return "UNKNOWN"
	}
}

// phaseControlled reports whether the state schedules an ignition on the
// next zero-crossing.
func (s State) phaseControlled() bool {
	return s == AwaitingZero || s == Uncalibrated || s == Calibrating
}

// forced reports whether the gate is driven statically.
func (s State) forced() bool {
	return s == ForcedOff || s == ForcedOn
}

// LowPowerHint is told when the controller enters (true) or leaves (false)
// a static output state, where no timing-critical work is pending and a
// collaborator may lower the CPU clock.
type LowPowerHint interface {
	LowPower(idle bool)
}

// LowPowerHintFunc adapts a function to LowPowerHint.
type LowPowerHintFunc func(idle bool)

// LowPower calls f.
func (f LowPowerHintFunc) LowPower(idle bool) { f(idle) }
