// Package waveform shapes the requested power over time. A mode process
// moves the current power towards the target along a transition curve, and an
// effect process adds a periodic or external modulation on top. The sum is
// handed to a PowerSink, normally the triac controller.
package waveform

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidMode is returned for an unknown transition mode.
	ErrInvalidMode = errors.New("waveform: invalid mode")
	// ErrInvalidEffect is returned for an unknown effect kind.
	ErrInvalidEffect = errors.New("waveform: invalid effect")
)

// PowerSink receives the shaped output power in percent.
type PowerSink interface {
	SetPower(power uint8)
}

// PowerSinkFunc adapts a function to PowerSink.
type PowerSinkFunc func(power uint8)

// SetPower calls f.
func (f PowerSinkFunc) SetPower(power uint8) { f(power) }

// Mode is the transition curve between power levels.
type Mode uint8

const (
	Instant Mode = iota
	Linear
	Sine
	QuarterSine
)

var modeNames = [...]string{"instant", "linear", "sine", "qsine"}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return int(m) < len(modeNames) }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// ParseMode accepts a mode name or its numeric value.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "quartersine", "quarter_sine":
		return QuarterSine, nil
	}
	for i, name := range modeNames {
		if s == name || s == fmt.Sprint(i) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// EffectKind selects the modulation added on top of the current power.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectRamp
	EffectSine
	EffectRandom
	EffectInput
)

var effectNames = [...]string{"none", "ramp", "sine", "random", "input"}

// Valid reports whether k is a known effect.
func (k EffectKind) Valid() bool { return int(k) < len(effectNames) }

func (k EffectKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("EffectKind(%d)", uint8(k))
	}
	return effectNames[k]
}

// ParseEffect accepts an effect name or its numeric value.
func ParseEffect(s string) (EffectKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range effectNames {
		if s == name || s == fmt.Sprint(i) {
			return EffectKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidEffect, s)
}

// Effect holds the modulation parameters.
type Effect struct {
	Kind EffectKind
	// Magnitude is the peak offset in percent.
	Magnitude uint8
	// Gain is the offset in percent per unit of external input.
	Gain float32
	// Period is the length of one effect cycle.
	Period time.Duration
}

// Defaults, matching a freshly flashed unit.
const (
	DefaultMode100         = 2000 * time.Millisecond
	DefaultEffectMagnitude = 20
	DefaultEffectGain      = 1
	DefaultEffectPeriod    = 10 * time.Second
	DefaultModeTick        = 5 * time.Millisecond
	DefaultEffectTick      = 20 * time.Millisecond

	// MinEffectPeriod bounds how fast an effect may cycle.
	MinEffectPeriod = 100 * time.Millisecond
)

// DefaultEffect returns the effect parameters of a fresh unit.
func DefaultEffect() Effect {
	return Effect{
		Kind:      EffectNone,
		Magnitude: DefaultEffectMagnitude,
		Gain:      DefaultEffectGain,
		Period:    DefaultEffectPeriod,
	}
}

// Snapshot is a consistent view of the engine.
type Snapshot struct {
	Mode    Mode
	Mode100 time.Duration
	Target  uint8
	Current float32
	Moving  bool
	Effect  Effect
	Offset  float32
	Input   int
	Output  uint8
}
