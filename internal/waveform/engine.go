package waveform

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/sweeney/dimmer/internal/mathx"
)

// Config holds the engine's construction parameters. Zero values take the
// package defaults.
type Config struct {
	Mode       Mode
	Mode100    time.Duration
	Effect     Effect
	ModeTick   time.Duration
	EffectTick time.Duration

	// Now is the clock used by the setters. Defaults to time.Now.
	Now func() time.Time
	// Rand draws the random effect. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Engine runs the mode and effect processes. Its methods are safe for
// concurrent use; the sink is called with the engine lock held, so it must
// not call back into the engine.
type Engine struct {
	sink       PowerSink
	now        func() time.Time
	modeTick   time.Duration
	effectTick time.Duration

	mu sync.Mutex

	// mode process
	mode      Mode
	mode100   time.Duration
	target    uint8
	current   float32
	from      float32
	startedAt time.Time
	duration  time.Duration
	moving    bool

	// effect process
	effect      Effect
	effectStart time.Time
	offset      float32
	input       int
	rnd         *rand.Rand
	randCycle   int64
	randValue   float32
	randValid   bool

	output uint8
	sent   bool
}

// NewEngine creates an engine at power 0 that drives sink.
func NewEngine(sink PowerSink, cfg Config) *Engine {
	e := &Engine{
		sink:       sink,
		now:        cfg.Now,
		modeTick:   cfg.ModeTick,
		effectTick: cfg.EffectTick,
		mode:       cfg.Mode,
		mode100:    cfg.Mode100,
		rnd:        cfg.Rand,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.modeTick <= 0 {
		e.modeTick = DefaultModeTick
	}
	if e.effectTick <= 0 {
		e.effectTick = DefaultEffectTick
	}
	if !e.mode.Valid() {
		e.mode = Instant
	}
	if e.mode100 <= 0 {
		e.mode100 = DefaultMode100
	}
	if e.rnd == nil {
		seed := uint64(time.Now().UnixNano())
		e.rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	e.effect = DefaultEffect()
	if cfg.Effect.Kind.Valid() && cfg.Effect != (Effect{}) {
		e.effect = normalizeEffect(cfg.Effect)
	}
	e.effectStart = e.now()
	return e
}

// SetPower sets the target power. The current power moves towards it along
// the active transition curve.
func (e *Engine) SetPower(power uint8) {
	power = mathx.Clamp(power, 0, 100)
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = power
	e.startTransitionLocked(now)
	e.pushLocked()
}

// Jump sets the target power and moves the current power straight to it,
// abandoning any transition in progress.
func (e *Engine) Jump(power uint8) {
	power = mathx.Clamp(power, 0, 100)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = power
	e.current = float32(power)
	e.moving = false
	e.pushLocked()
}

// Power returns the target power.
func (e *Engine) Power() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// Output returns the last power handed to the sink.
func (e *Engine) Output() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output
}

// SetMode selects the transition curve. A transition in progress continues
// from its current position with the new curve.
func (e *Engine) SetMode(m Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	if e.moving {
		e.startTransitionLocked(now)
		e.pushLocked()
	}
	return nil
}

// Mode returns the transition curve.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode100 sets the duration of a full 0 to 100 % transition. Non-positive
// values select the default.
func (e *Engine) SetMode100(d time.Duration) {
	if d <= 0 {
		d = DefaultMode100
	}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode100 = d
	if e.moving {
		e.startTransitionLocked(now)
		e.pushLocked()
	}
}

// Mode100 returns the duration of a full transition.
func (e *Engine) Mode100() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode100
}

// SetEffect replaces the effect. The magnitude is clamped to 100 % and the
// period to at least MinEffectPeriod; a zero period selects the default.
func (e *Engine) SetEffect(eff Effect) error {
	if !eff.Kind.Valid() {
		return ErrInvalidEffect
	}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.effect = normalizeEffect(eff)
	e.effectStart = now
	e.randValid = false
	e.offset = e.effectOffsetLocked(now)
	e.pushLocked()
	return nil
}

// Effect returns the effect parameters.
func (e *Engine) Effect() Effect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effect
}

// SetEffectInput feeds the external value used by EffectInput.
func (e *Engine) SetEffectInput(v int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.input = v
	if e.effect.Kind == EffectInput {
		e.offset = e.effectOffsetLocked(e.now())
		e.pushLocked()
	}
}

// EffectInput returns the external input value.
func (e *Engine) EffectInput() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

// Snapshot returns a consistent copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Mode:    e.mode,
		Mode100: e.mode100,
		Target:  e.target,
		Current: e.current,
		Moving:  e.moving,
		Effect:  e.effect,
		Offset:  e.offset,
		Input:   e.input,
		Output:  e.output,
	}
}

// Step advances the mode process to now.
func (e *Engine) Step(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.moving {
		return
	}
	f := float32(now.Sub(e.startedAt)) / float32(e.duration)
	if f >= 1 {
		e.current = float32(e.target)
		e.moving = false
	} else {
		e.current = e.from + (float32(e.target)-e.from)*progress(e.mode, f)
	}
	e.pushLocked()
}

// StepEffect advances the effect process to now.
func (e *Engine) StepEffect(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.effect.Kind == EffectNone && e.offset == 0 {
		return
	}
	e.offset = e.effectOffsetLocked(now)
	e.pushLocked()
}

// Run drives both processes from tickers until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	modeTicker := time.NewTicker(e.modeTick)
	defer modeTicker.Stop()
	effectTicker := time.NewTicker(e.effectTick)
	defer effectTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-modeTicker.C:
			e.Step(now)
		case now := <-effectTicker.C:
			e.StepEffect(now)
		}
	}
}

func (e *Engine) startTransitionLocked(now time.Time) {
	delta := math32.Abs(float32(e.target) - e.current)
	if e.mode == Instant || delta == 0 {
		e.current = float32(e.target)
		e.moving = false
		return
	}
	e.from = e.current
	e.startedAt = now
	e.duration = time.Duration(float64(e.mode100) * float64(delta) / 100)
	e.moving = e.duration > 0
	if !e.moving {
		e.current = float32(e.target)
	}
}

func (e *Engine) effectOffsetLocked(now time.Time) float32 {
	mag := float32(e.effect.Magnitude)
	switch e.effect.Kind {
	case EffectInput:
		return inputOffset(mag, e.effect.Gain, e.input)
	case EffectNone:
		return 0
	}

	period := e.effect.Period
	elapsed := now.Sub(e.effectStart)
	if elapsed < 0 {
		elapsed = 0
	}
	phase := float32(elapsed%period) / float32(period)

	switch e.effect.Kind {
	case EffectRamp:
		return rampOffset(mag, phase)
	case EffectSine:
		return sineOffset(mag, phase)
	case EffectRandom:
		cycle := int64(elapsed / period)
		if !e.randValid || cycle != e.randCycle {
			e.randValue = (2*e.rnd.Float32() - 1) * mag
			e.randCycle = cycle
			e.randValid = true
		}
		return e.randValue
	}
	return 0
}

// pushLocked hands the output to the sink when it changed. A dimmer that is
// off and settled stays off whatever the effect does.
func (e *Engine) pushLocked() {
	var out uint8
	if e.target != 0 || e.current != 0 {
		out = outputPower(e.current, e.offset)
	}
	if e.sent && out == e.output {
		return
	}
	e.output = out
	e.sent = true
	e.sink.SetPower(out)
}

func normalizeEffect(eff Effect) Effect {
	eff.Magnitude = mathx.Clamp(eff.Magnitude, 0, 100)
	switch {
	case eff.Period == 0:
		eff.Period = DefaultEffectPeriod
	case eff.Period < MinEffectPeriod:
		eff.Period = MinEffectPeriod
	}
	return eff
}
