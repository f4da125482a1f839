package triac

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidFiringMode is returned for an unknown firing mode.
var ErrInvalidFiringMode = errors.New("triac: invalid firing mode")

// FiringMode selects how a power percentage maps to an ignition delay.
type FiringMode uint8

const (
	// Timed skips a linear fraction of the half-cycle.
	Timed FiringMode = 0
	// PowerEquivalent picks the delay whose conducted RMS power fraction
	// equals the requested percentage.
	PowerEquivalent FiringMode = 1
)

// Valid reports whether m is a known firing mode.
func (m FiringMode) Valid() bool {
	return m == Timed || m == PowerEquivalent
}

func (m FiringMode) String() string {
	switch m {
	case Timed:
		return "timed"
	case PowerEquivalent:
		return "power"
	default:
		return fmt.Sprintf("FiringMode(%d)", uint8(m))
	}
}

// ParseFiringMode accepts a mode name or its numeric value.
func ParseFiringMode(s string) (FiringMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timed", "0":
		return Timed, nil
	case "power", "power_equivalent", "rms", "1":
		return PowerEquivalent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFiringMode, s)
}

// DelayFromPower returns the ignition delay in microseconds after the
// zero-crossing for power percent over a half-period of halfPeriod µs.
// power 0 yields the full half-period and 100 yields 0. The result is not
// clamped to the safe firing window; see Controller.
func DelayFromPower(mode FiringMode, power uint8, halfPeriod uint32) uint32 {
	if power >= PwrOn {
		return 0
	}
	if power == PwrOff {
		return halfPeriod
	}
	if mode == PowerEquivalent {
		return uint32(math.Round(angleForFraction(float64(power)/100) * float64(halfPeriod)))
	}
	return uint32(uint64(halfPeriod) * uint64(PwrOn-power) / uint64(PwrOn))
}

// PowerFromDelay is the inverse of DelayFromPower.
func PowerFromDelay(mode FiringMode, delay, halfPeriod uint32) uint8 {
	if halfPeriod == 0 || delay >= halfPeriod {
		return PwrOff
	}
	x := float64(delay) / float64(halfPeriod)
	if mode == PowerEquivalent {
		return uint8(math.Round(conductedFraction(x) * 100))
	}
	return uint8(math.Round((1 - x) * 100))
}

// conductedFraction returns the share of a half-sine's energy (integral of
// sin²) conducted when the triac fires at x·π, x in [0,1].
func conductedFraction(x float64) float64 {
	theta := x * math.Pi
	return 1 - x + math.Sin(2*theta)/(2*math.Pi)
}

// conductionTableSize is the number of intervals in the inversion table.
const conductionTableSize = 256

// conductionTable[i] = conductedFraction(i/size). Strictly decreasing from 1
// to 0, so it can be searched and linearly interpolated.
var conductionTable = buildConductionTable()

func buildConductionTable() [conductionTableSize + 1]float64 {
	var tbl [conductionTableSize + 1]float64
	for i := range tbl {
		tbl[i] = conductedFraction(float64(i) / conductionTableSize)
	}
	tbl[0] = 1
	tbl[conductionTableSize] = 0
	return tbl
}

// angleForFraction inverts conductedFraction: it returns the firing point
// x in [0,1] that conducts fraction of the half-cycle energy.
func angleForFraction(fraction float64) float64 {
	if fraction >= 1 {
		return 0
	}
	if fraction <= 0 {
		return 1
	}
	// First index whose value drops below fraction.
	i := sort.Search(len(conductionTable), func(i int) bool {
		return conductionTable[i] < fraction
	})
	hi, lo := conductionTable[i-1], conductionTable[i]
	t := (hi - fraction) / (hi - lo)
	return (float64(i-1) + t) / conductionTableSize
}
