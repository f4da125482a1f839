package triac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var halfPeriods = []uint32{5000, 7500, 8333, 10000, 16667, 20000}

func TestTimedDelayEndpoints(t *testing.T) {
	for _, hp := range halfPeriods {
		assert.Equal(t, hp, DelayFromPower(Timed, 0, hp), "power 0, T=%d", hp)
		assert.Equal(t, uint32(0), DelayFromPower(Timed, 100, hp), "power 100, T=%d", hp)
	}
}

func TestTimedDelayLinear(t *testing.T) {
	assert.Equal(t, uint32(5000), DelayFromPower(Timed, 50, 10000))
	assert.Equal(t, uint32(7500), DelayFromPower(Timed, 25, 10000))
	assert.Equal(t, uint32(1000), DelayFromPower(Timed, 90, 10000))
}

func TestDelayMonotonic(t *testing.T) {
	for _, mode := range []FiringMode{Timed, PowerEquivalent} {
		for _, hp := range halfPeriods {
			prev := DelayFromPower(mode, 1, hp)
			for p := uint8(2); p <= 99; p++ {
				d := DelayFromPower(mode, p, hp)
				require.LessOrEqual(t, d, prev, "%s: delay rose at power %d, T=%d", mode, p, hp)
				prev = d
			}
		}
	}
}

func TestPowerEquivalentRoundTrip(t *testing.T) {
	for _, hp := range halfPeriods {
		for p := 0; p <= 100; p++ {
			d := DelayFromPower(PowerEquivalent, uint8(p), hp)
			back := int(PowerFromDelay(PowerEquivalent, d, hp))
			assert.InDelta(t, p, back, 1, "T=%d power=%d delay=%d", hp, p, d)
		}
	}
}

func TestTimedRoundTrip(t *testing.T) {
	for _, hp := range halfPeriods {
		for p := 0; p <= 100; p++ {
			d := DelayFromPower(Timed, uint8(p), hp)
			back := int(PowerFromDelay(Timed, d, hp))
			assert.InDelta(t, p, back, 1, "T=%d power=%d", hp, p)
		}
	}
}

func TestPowerEquivalentShape(t *testing.T) {
	// Half the energy of a half-sine lies on each side of its peak.
	assert.Equal(t, uint32(5000), DelayFromPower(PowerEquivalent, 50, 10000))

	// Low powers need later firing than the linear law, high powers earlier.
	assert.Greater(t, DelayFromPower(PowerEquivalent, 10, 10000), DelayFromPower(Timed, 10, 10000))
	assert.Less(t, DelayFromPower(PowerEquivalent, 90, 10000), DelayFromPower(Timed, 90, 10000))
}

func TestPowerFromDelayBounds(t *testing.T) {
	assert.Equal(t, uint8(100), PowerFromDelay(PowerEquivalent, 0, 10000))
	assert.Equal(t, uint8(0), PowerFromDelay(PowerEquivalent, 10000, 10000))
	assert.Equal(t, uint8(0), PowerFromDelay(Timed, 12000, 10000))
	assert.Equal(t, uint8(0), PowerFromDelay(Timed, 10, 0))
}

func TestConductionTableDecreasing(t *testing.T) {
	for i := 1; i < len(conductionTable); i++ {
		require.Less(t, conductionTable[i], conductionTable[i-1], "index %d", i)
	}
}

func TestParseFiringMode(t *testing.T) {
	tests := []struct {
		in   string
		want FiringMode
	}{
		{"timed", Timed},
		{"0", Timed},
		{"power", PowerEquivalent},
		{"Power_Equivalent", PowerEquivalent},
		{"1", PowerEquivalent},
	}
	for _, tt := range tests {
		got, err := ParseFiringMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFiringMode("phase")
	assert.True(t, errors.Is(err, ErrInvalidFiringMode))
}
