package dimmer

import (
	"time"

	"github.com/sweeney/dimmer/internal/triac"
	"github.com/sweeney/dimmer/internal/waveform"
)

// Status is a point-in-time view of the dimmer.
type Status struct {
	Target      uint8
	Output      uint8
	Current     float32
	Moving      bool
	Mode        waveform.Mode
	Mode100     time.Duration
	Effect      waveform.Effect
	EffectInput int
	FiringMode  triac.FiringMode
	State       triac.State
	Calibrated  bool
	MainsHz     float64
	LastDelayUs uint32
	Stats       triac.Stats
	Levels      Levels
}

// Status collects the current state of the engine and the controller.
func (d *Dimmer) Status() Status {
	w := d.engine.Snapshot()
	return Status{
		Target:      w.Target,
		Output:      w.Output,
		Current:     w.Current,
		Moving:      w.Moving,
		Mode:        w.Mode,
		Mode100:     w.Mode100,
		Effect:      w.Effect,
		EffectInput: w.Input,
		FiringMode:  d.ctrl.FiringMode(),
		State:       d.ctrl.State(),
		Calibrated:  d.ctrl.Calibrated(),
		MainsHz:     d.ctrl.MainsFrequencyHz(),
		LastDelayUs: d.ctrl.LastDelay(),
		Stats:       d.ctrl.Stats(),
		Levels:      d.Levels(),
	}
}
