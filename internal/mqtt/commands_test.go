package mqtt

import (
	"errors"
	"testing"

	"github.com/sweeney/dimmer/internal/waveform"
)

type fakeControls struct {
	calls  []string
	power  uint8
	mode   waveform.Mode
	effect waveform.EffectKind
	input  int
}

func (f *fakeControls) Switch(on bool) {
	if on {
		f.calls = append(f.calls, "switch-on")
	} else {
		f.calls = append(f.calls, "switch-off")
	}
}
func (f *fakeControls) Off()    { f.calls = append(f.calls, "off") }
func (f *fakeControls) On()     { f.calls = append(f.calls, "on") }
func (f *fakeControls) Lounge() { f.calls = append(f.calls, "lounge") }
func (f *fakeControls) SetPower(p uint8) {
	f.calls = append(f.calls, "power")
	f.power = p
}
func (f *fakeControls) SetMode(m waveform.Mode) error {
	f.calls = append(f.calls, "mode")
	f.mode = m
	return nil
}
func (f *fakeControls) SetEffectKind(k waveform.EffectKind) error {
	f.calls = append(f.calls, "effect")
	f.effect = k
	return nil
}
func (f *fakeControls) SetEffectInput(v int) {
	f.calls = append(f.calls, "input")
	f.input = v
}

func TestDispatchSwitches(t *testing.T) {
	tests := []struct {
		tag     string
		payload string
		want    string
	}{
		{TagOffOn, "true", "switch-on"},
		{TagOffOn, "1", "switch-on"},
		{TagOffOn, "ON", "switch-on"},
		{TagOffOn, "false", "switch-off"},
		{TagOffOn, "0", "switch-off"},
		{TagOff, "true", "off"},
		{TagOn, "1", "on"},
		{TagLounge, "on", "lounge"},
		{TagOff, "false", ""},
		{TagOn, "0", ""},
		{TagLounge, "off", ""},
	}
	for _, tt := range tests {
		t.Run(tt.tag+"="+tt.payload, func(t *testing.T) {
			c := &fakeControls{}
			if err := Dispatch(c, Command{Tag: tt.tag, Payload: tt.payload}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if len(c.calls) != 0 {
					t.Errorf("expected no action, got %v", c.calls)
				}
				return
			}
			if len(c.calls) != 1 || c.calls[0] != tt.want {
				t.Errorf("expected [%s], got %v", tt.want, c.calls)
			}
		})
	}
}

func TestDispatchDim(t *testing.T) {
	tests := []struct {
		payload string
		want    uint8
	}{
		{"0", 0},
		{"42", 42},
		{"100", 100},
		{"150", 100},
		{"-5", 0},
		{"33.6", 34},
	}
	for _, tt := range tests {
		c := &fakeControls{}
		if err := Dispatch(c, Command{Tag: TagDim, Payload: tt.payload}); err != nil {
			t.Fatalf("dim %q: unexpected error: %v", tt.payload, err)
		}
		if c.power != tt.want {
			t.Errorf("dim %q: power = %d, want %d", tt.payload, c.power, tt.want)
		}
	}
}

func TestDispatchModeEffectInput(t *testing.T) {
	c := &fakeControls{}
	if err := Dispatch(c, Command{Tag: TagMode, Payload: "2"}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if c.mode != waveform.Sine {
		t.Errorf("mode = %v, want sine", c.mode)
	}
	if err := Dispatch(c, Command{Tag: TagMode, Payload: "linear"}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if c.mode != waveform.Linear {
		t.Errorf("mode = %v, want linear", c.mode)
	}
	if err := Dispatch(c, Command{Tag: TagEffect, Payload: "3"}); err != nil {
		t.Fatalf("effect: %v", err)
	}
	if c.effect != waveform.EffectRandom {
		t.Errorf("effect = %v, want random", c.effect)
	}
	if err := Dispatch(c, Command{Tag: TagInput, Payload: "-12"}); err != nil {
		t.Fatalf("input: %v", err)
	}
	if c.input != -12 {
		t.Errorf("input = %d, want -12", c.input)
	}
}

func TestDispatchRejects(t *testing.T) {
	tests := []struct {
		cmd  Command
		want error
	}{
		{Command{Tag: TagOffOn, Payload: "maybe"}, ErrBadPayload},
		{Command{Tag: TagDim, Payload: "bright"}, ErrBadPayload},
		{Command{Tag: TagDim, Payload: "NaN"}, ErrBadPayload},
		{Command{Tag: TagInput, Payload: "1.5"}, ErrBadPayload},
		{Command{Tag: TagMode, Payload: "9"}, waveform.ErrInvalidMode},
		{Command{Tag: TagEffect, Payload: "strobe"}, waveform.ErrInvalidEffect},
		{Command{Tag: "dim_status", Payload: "1"}, ErrUnknownCommand},
	}
	for _, tt := range tests {
		c := &fakeControls{}
		err := Dispatch(c, tt.cmd)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s=%q: expected %v, got %v", tt.cmd.Tag, tt.cmd.Payload, tt.want, err)
		}
		if len(c.calls) != 0 {
			t.Errorf("%s=%q: expected no action, got %v", tt.cmd.Tag, tt.cmd.Payload, c.calls)
		}
	}
}

func TestCommandHandlerThroughFakeClient(t *testing.T) {
	c := &fakeControls{}
	f := NewFakeClient()
	f.Subscribe(NewCommandHandler(c))

	f.Deliver(TagDim, "70")
	f.Deliver(TagDim, "garbage")
	f.Deliver(TagLounge, "true")

	if c.power != 70 {
		t.Errorf("power = %d, want 70", c.power)
	}
	want := []string{"power", "lounge"}
	if len(c.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, c.calls)
	}
	for i := range want {
		if c.calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], c.calls[i])
		}
	}
}
