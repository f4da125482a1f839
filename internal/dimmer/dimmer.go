// Package dimmer is the public face of the dimmer core. It wires the
// waveform engine to the triac controller, runs the background processes and
// exposes the operations collaborators (MQTT, HTTP, the settings file) use.
package dimmer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sweeney/dimmer/internal/gpio"
	"github.com/sweeney/dimmer/internal/hwtimer"
	"github.com/sweeney/dimmer/internal/triac"
	"github.com/sweeney/dimmer/internal/waveform"
)

// DefaultHandleInterval is how often the controller's background
// bookkeeping runs. It must stay well below triac.IgnitionMax.
const DefaultHandleInterval = 10 * time.Millisecond

// Levels are the preset power levels in percent.
type Levels struct {
	Off    uint8
	On     uint8
	Lounge uint8
}

// DefaultLevels returns the presets of a fresh unit.
func DefaultLevels() Levels {
	return Levels{Off: 0, On: 100, Lounge: 30}
}

// Config holds the dimmer's construction parameters.
type Config struct {
	Triac    triac.Config
	Waveform waveform.Config
	// Levels defaults to DefaultLevels when zero.
	Levels Levels
	// Startup is the power applied by Init.
	Startup uint8
	// HandleInterval defaults to DefaultHandleInterval.
	HandleInterval time.Duration
}

// Dimmer owns the controller and the engine. Build one per process.
type Dimmer struct {
	ctrl   *triac.Controller
	engine *waveform.Engine

	startup        uint8
	handleInterval time.Duration

	mu     sync.Mutex
	levels Levels
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// onChange is called after a setter changed a persisted setting.
	onChange func()
}

// New creates a dimmer driving out through timer. clock must be the time
// base of the zero-cross timestamps.
func New(timer hwtimer.Timer, clock hwtimer.Clock, out gpio.Output, cfg Config) *Dimmer {
	ctrl := triac.NewController(timer, clock, out, cfg.Triac)
	d := &Dimmer{
		ctrl:           ctrl,
		engine:         waveform.NewEngine(ctrl, cfg.Waveform),
		startup:        cfg.Startup,
		handleInterval: cfg.HandleInterval,
		levels:         cfg.Levels,
	}
	if d.handleInterval <= 0 {
		d.handleInterval = DefaultHandleInterval
	}
	if d.levels == (Levels{}) {
		d.levels = DefaultLevels()
	}
	return d
}

// Init starts the controller and the background processes and applies the
// startup level. Call it before zero-crossings are delivered.
func (d *Dimmer) Init(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}

	d.ctrl.Init()
	d.engine.SetPower(d.startup)

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.engine.Run(ctx)
	}()
	go func() {
		defer d.wg.Done()
		d.watch(ctx)
	}()
}

// Shutdown stops the background processes, cancels any pending ignition
// and releases the gate.
func (d *Dimmer) Shutdown() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		d.wg.Wait()
	}
	d.ctrl.Shutdown()
}

// ZeroCross is the zero-cross edge handler; pass it to the edge input.
func (d *Dimmer) ZeroCross(stampMicros uint32) {
	d.ctrl.ZeroCross(stampMicros)
}

// watch runs the controller bookkeeping and logs calibration changes.
func (d *Dimmer) watch(ctx context.Context) {
	ticker := time.NewTicker(d.handleInterval)
	defer ticker.Stop()

	calibrated := false
	var lastStats triac.Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if d.ctrl.Handle() {
			log.Printf("triac: no zero-crossing for %dms, mains lost", triac.IgnitionMax/1000)
		}
		if c := d.ctrl.Calibrated(); c != calibrated {
			calibrated = c
			if c {
				log.Printf("triac: calibrated, mains %.1fHz", d.ctrl.MainsFrequencyHz())
			}
		}

		st := d.ctrl.Stats()
		if st.OutputErrors > lastStats.OutputErrors {
			log.Printf("triac: %d gate write errors", st.OutputErrors-lastStats.OutputErrors)
		}
		lastStats = st
	}
}

// SetPower sets the target power in percent, clamped to 0..100. Other
// levels follow the transition curve; 0 switches off at once, dropping any
// fade in progress and any ignition already scheduled.
func (d *Dimmer) SetPower(power uint8) {
	if power == triac.PwrOff {
		d.engine.Jump(power)
		return
	}
	d.engine.SetPower(power)
}

// Power returns the target power.
func (d *Dimmer) Power() uint8 {
	return d.engine.Power()
}

// Output returns the power currently applied to the triac.
func (d *Dimmer) Output() uint8 {
	return d.engine.Output()
}

// SetMode selects the transition curve.
func (d *Dimmer) SetMode(m waveform.Mode) error {
	if err := d.engine.SetMode(m); err != nil {
		return err
	}
	d.changed()
	return nil
}

// Mode returns the transition curve.
func (d *Dimmer) Mode() waveform.Mode {
	return d.engine.Mode()
}

// SetMode100 sets the duration of a full 0 to 100 % transition.
func (d *Dimmer) SetMode100(dur time.Duration) {
	d.engine.SetMode100(dur)
	d.changed()
}

// Mode100 returns the duration of a full transition.
func (d *Dimmer) Mode100() time.Duration {
	return d.engine.Mode100()
}

// SetEffect replaces the effect.
func (d *Dimmer) SetEffect(kind waveform.EffectKind, magnitude uint8, gain float32, period time.Duration) error {
	err := d.engine.SetEffect(waveform.Effect{
		Kind:      kind,
		Magnitude: magnitude,
		Gain:      gain,
		Period:    period,
	})
	if err != nil {
		return err
	}
	d.changed()
	return nil
}

// SetEffectKind changes only the effect kind, keeping its parameters.
func (d *Dimmer) SetEffectKind(kind waveform.EffectKind) error {
	eff := d.engine.Effect()
	return d.SetEffect(kind, eff.Magnitude, eff.Gain, eff.Period)
}

// Effect returns the effect parameters.
func (d *Dimmer) Effect() waveform.Effect {
	return d.engine.Effect()
}

// SetEffectInput feeds the external signal of the input effect.
func (d *Dimmer) SetEffectInput(v int) {
	d.engine.SetEffectInput(v)
}

// EffectInput returns the external signal.
func (d *Dimmer) EffectInput() int {
	return d.engine.EffectInput()
}

// SetFiringMode selects the control law.
func (d *Dimmer) SetFiringMode(m triac.FiringMode) error {
	if err := d.ctrl.SetFiringMode(m); err != nil {
		return err
	}
	d.changed()
	return nil
}

// FiringMode returns the control law.
func (d *Dimmer) FiringMode() triac.FiringMode {
	return d.ctrl.FiringMode()
}

// MainsFrequencyHz returns the measured mains frequency, 0 when unavailable.
func (d *Dimmer) MainsFrequencyHz() float64 {
	return d.ctrl.MainsFrequencyHz()
}

// RegisterLowPowerHint installs the collaborator told about static output
// states.
func (d *Dimmer) RegisterLowPowerHint(h triac.LowPowerHint) {
	d.ctrl.RegisterLowPowerHint(h)
}

// Reset restarts the ignition state machine.
func (d *Dimmer) Reset() {
	d.ctrl.Reset()
}

// OnChange installs fn, called after a persisted setting changed.
func (d *Dimmer) OnChange(fn func()) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

func (d *Dimmer) changed() {
	d.mu.Lock()
	fn := d.onChange
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Levels returns the presets.
func (d *Dimmer) Levels() Levels {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels
}

// Switch moves to the on level when on is set, else to the off level.
func (d *Dimmer) Switch(on bool) {
	if on {
		d.On()
	} else {
		d.Off()
	}
}

// Off moves to the off level.
func (d *Dimmer) Off() { d.SetPower(d.Levels().Off) }

// On moves to the on level.
func (d *Dimmer) On() { d.SetPower(d.Levels().On) }

// Lounge moves to the lounge level.
func (d *Dimmer) Lounge() { d.SetPower(d.Levels().Lounge) }
