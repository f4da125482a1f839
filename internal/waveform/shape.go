package waveform

import (
	"github.com/chewxy/math32"

	"github.com/sweeney/dimmer/internal/mathx"
)

// progress maps elapsed transition fraction f in [0,1] to the fraction of
// the power step covered.
func progress(m Mode, f float32) float32 {
	f = mathx.Clamp(f, 0, 1)
	switch m {
	case Sine:
		return (1 - math32.Cos(math32.Pi*f)) / 2
	case QuarterSine:
		return math32.Sin(math32.Pi * f / 2)
	case Linear:
		return f
	default:
		return 1
	}
}

// rampOffset is a triangle wave: -mag at phase 0, +mag at 0.5, back to -mag
// at 1.
func rampOffset(mag, phase float32) float32 {
	if phase < 0.5 {
		return mag * (4*phase - 1)
	}
	return mag * (3 - 4*phase)
}

func sineOffset(mag, phase float32) float32 {
	return mag * math32.Sin(2*math32.Pi*phase)
}

func inputOffset(mag, gain float32, input int) float32 {
	return mathx.Clamp(float32(input)*gain, -mag, mag)
}

// outputPower combines current power and effect offset into a whole percent.
func outputPower(current, offset float32) uint8 {
	return mathx.ClampPercent(math32.Round(current + offset))
}
