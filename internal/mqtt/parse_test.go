package mqtt

import (
	"errors"
	"testing"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{" on ", true, false},
		{"1", true, false},
		{"false", false, false},
		{"Off", false, false},
		{"0", false, false},
		{"", false, true},
		{"yes", false, true},
		{"2", false, true},
	}
	for _, tt := range tests {
		got, err := ParseBool(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadPayload) {
				t.Errorf("ParseBool(%q): expected ErrBadPayload, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseBool(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"0", 0, false},
		{"50", 50, false},
		{" 99 ", 99, false},
		{"100", 100, false},
		{"255", 100, false},
		{"-1", 0, false},
		{"12.4", 12, false},
		{"12.5", 13, false},
		{"", 0, true},
		{"half", 0, true},
		{"NaN", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePercent(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadPayload) {
				t.Errorf("ParsePercent(%q): expected ErrBadPayload, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePercent(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestParseInt(t *testing.T) {
	if v, err := ParseInt(" -40 "); err != nil || v != -40 {
		t.Errorf("ParseInt(-40) = %d, %v", v, err)
	}
	if _, err := ParseInt("4x"); !errors.Is(err, ErrBadPayload) {
		t.Errorf("expected ErrBadPayload, got %v", err)
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		hz   float64
		want string
	}{
		{0, "0.0"},
		{50, "50.0"},
		{49.94, "49.9"},
		{59.96, "60.0"},
	}
	for _, tt := range tests {
		if got := FormatFrequency(tt.hz); got != tt.want {
			t.Errorf("FormatFrequency(%v) = %q, want %q", tt.hz, got, tt.want)
		}
	}
}
