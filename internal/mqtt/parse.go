package mqtt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadPayload is returned when a command payload cannot be parsed.
var ErrBadPayload = errors.New("mqtt: bad payload")

// ParseBool accepts on/off, true/false and 1/0, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrBadPayload, s)
}

// ParsePercent accepts a number and clamps it to 0..100. Fractions are
// rounded.
func ParsePercent(s string) (uint8, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q is not a percentage", ErrBadPayload, s)
	}
	f = math.Round(f)
	switch {
	case f <= 0:
		return 0, nil
	case f >= 100:
		return 100, nil
	}
	return uint8(f), nil
}

// ParseInt accepts a signed integer.
func ParseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadPayload, s)
	}
	return v, nil
}

// FormatFrequency renders a frequency with one decimal.
func FormatFrequency(hz float64) string {
	return strconv.FormatFloat(roundTenth(hz), 'f', 1, 64)
}
