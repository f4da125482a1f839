// Package mathx holds small generic numeric helpers shared by the dimmer core.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// ClampPercent clamps a signed value to the 0..100 percent range.
func ClampPercent[T constraints.Integer | constraints.Float](v T) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return uint8(v)
}

// Abs for signed numbers.
func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
