package triac

import (
	"sync"
	"sync/atomic"

	"github.com/sweeney/dimmer/internal/gpio"
	"github.com/sweeney/dimmer/internal/hwtimer"
	"github.com/sweeney/dimmer/internal/mathx"
)

// timer phases, published lock-free so the timer callback knows what an
// expiry means without taking the lock.
const (
	phaseIdle uint32 = iota
	phaseIgnite
	phasePulseEnd
)

// Config holds the controller's construction parameters.
type Config struct {
	FiringMode   FiringMode
	PulseWidthUs uint32
}

// Stats are counters maintained by the interrupt paths.
type Stats struct {
	Fired        uint64 // gate pulses started
	Skipped      uint64 // ignitions skipped because the lock was busy or the edge was handled too late
	OutputErrors uint64 // failed gate writes
	Rejected     uint64 // out-of-band zero-cross intervals
}

// Controller is the ignition state machine. It owns the timer, the gate
// output and the mains period estimate.
type Controller struct {
	timer   hwtimer.Timer
	clock   hwtimer.Clock
	out     gpio.Output
	monitor Monitor

	mu         sync.Mutex
	state      State
	power      uint8
	mode       FiringMode
	pulseWidth uint32
	lastDelay  uint32
	// edge and latestStart bound the ignition of the current half-cycle:
	// a pulse started later than edge+latestStart would overrun it.
	edge        uint32
	latestStart uint32
	hint        LowPowerHint
	hintIdle    bool

	phase           atomic.Uint32
	pulseEndPending atomic.Bool
	fired           atomic.Uint64
	skipped         atomic.Uint64
	outErrs         atomic.Uint64
}

// NewController creates a controller in the Idle state. Call Init before
// feeding zero-crossings.
func NewController(timer hwtimer.Timer, clock hwtimer.Clock, out gpio.Output, cfg Config) *Controller {
	mode := cfg.FiringMode
	if !mode.Valid() {
		mode = Timed
	}
	return &Controller{
		timer:      timer,
		clock:      clock,
		out:        out,
		mode:       mode,
		pulseWidth: mathx.Clamp(cfg.PulseWidthUs, SafetyTimeUs, MaxPulseWidthUs),
		state:      Idle,
	}
}

// Init attaches the timer and leaves Idle for the state matching the
// requested power.
func (c *Controller) Init() {
	c.timer.Attach(c.onTimer)
	c.Reset()
}

// Reset restarts the state machine: any pending ignition is dropped and the
// gate released (or held on at full power).
func (c *Controller) Reset() {
	c.mu.Lock()
	c.cancelLocked()
	c.state = Idle
	c.enterPowerLocked()
	notify, idle := c.hintChangeLocked()
	hint := c.hint
	c.mu.Unlock()

	if notify && hint != nil {
		hint.LowPower(idle)
	}
}

// Shutdown cancels the timer, releases the gate and returns to Idle.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.cancelLocked()
	c.timer.Detach()
	c.setOut(false)
	c.state = Idle
	c.mu.Unlock()
}

// RegisterLowPowerHint installs h, replacing any previous hint. h hears
// about transitions only, not the state at registration.
func (c *Controller) RegisterLowPowerHint(h LowPowerHint) {
	c.mu.Lock()
	c.hint = h
	c.hintIdle = c.state.forced()
	c.mu.Unlock()
}

// SetPower requests power percent. 0 and 100 take effect immediately and
// cancel any scheduled ignition; other values apply from the next
// zero-crossing.
func (c *Controller) SetPower(power uint8) {
	if power > PwrOn {
		power = PwrOn
	}

	c.mu.Lock()
	c.power = power
	c.enterPowerLocked()
	notify, idle := c.hintChangeLocked()
	hint := c.hint
	c.mu.Unlock()

	if notify && hint != nil {
		hint.LowPower(idle)
	}
}

// Power returns the last requested power.
func (c *Controller) Power() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.power
}

// SetFiringMode selects the control law. Unknown modes are rejected and the
// previous mode kept.
func (c *Controller) SetFiringMode(m FiringMode) error {
	if !m.Valid() {
		return ErrInvalidFiringMode
	}
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
	return nil
}

// FiringMode returns the active control law.
func (c *Controller) FiringMode() FiringMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastDelay returns the most recently scheduled ignition delay in µs.
func (c *Controller) LastDelay() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDelay
}

// MainsFrequencyHz returns the measured mains frequency, 0 when unavailable.
func (c *Controller) MainsFrequencyHz() float64 {
	return c.monitor.FrequencyHz()
}

// Calibrated reports whether computed-delay firing is active.
func (c *Controller) Calibrated() bool {
	return c.monitor.Valid() && c.monitor.Stable()
}

// Stats returns the interrupt path counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Fired:        c.fired.Load(),
		Skipped:      c.skipped.Load(),
		OutputErrors: c.outErrs.Load(),
		Rejected:     c.monitor.Rejected(),
	}
}

// Handle does the background bookkeeping: it finishes deferred pulse ends
// and detects loss of mains. It reports true when the mains was declared
// lost during this call.
func (c *Controller) Handle() bool {
	now := c.clock.Micros()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyDeferredLocked()

	last, seen := c.monitor.LastEdge()
	if !seen || hwtimer.Since(now, last) <= IgnitionMax {
		return false
	}

	c.monitor.Reset()
	if c.state.phaseControlled() || c.state == PulseActive {
		c.cancelLocked()
		c.setOut(false)
		c.state = Uncalibrated
	}
	return true
}

// ZeroCross is the zero-cross edge handler. It never blocks: when the lock
// is busy the ignition for this half-cycle is skipped.
func (c *Controller) ZeroCross(stamp uint32) {
	if c.monitor.Sample(stamp) == EdgeBounce {
		return
	}
	if !c.mu.TryLock() {
		c.skipped.Add(1)
		return
	}
	defer c.mu.Unlock()

	c.applyDeferredLocked()

	switch {
	case c.state == PulseActive:
		// the previous pulse overran its half-cycle
		c.cancelLocked()
		c.setOut(false)
	case !c.state.phaseControlled():
		return
	}

	c.state = c.baseStateLocked()
	c.lastDelay = c.delayLocked()
	c.edge = stamp
	c.latestStart = c.latestStartLocked()

	// The delay counts from the edge, not from when this handler ran.
	elapsed := hwtimer.Since(c.clock.Micros(), stamp)
	if elapsed > c.latestStart {
		c.phase.Store(phaseIdle)
		c.timer.Cancel()
		c.skipped.Add(1)
		return
	}
	var wait uint32
	if elapsed < c.lastDelay {
		wait = c.lastDelay - elapsed
	}
	c.phase.Store(phaseIgnite)
	c.timer.Arm(wait, false)
}

func (c *Controller) onTimer() {
	switch c.phase.Load() {
	case phaseIgnite:
		if !c.mu.TryLock() {
			c.phase.CompareAndSwap(phaseIgnite, phaseIdle)
			c.skipped.Add(1)
			return
		}
		defer c.mu.Unlock()
		if c.phase.Load() != phaseIgnite || !c.state.phaseControlled() {
			return
		}
		if hwtimer.Since(c.clock.Micros(), c.edge) > c.latestStart {
			// woke too late for the pulse to fit before the next zero-crossing
			c.phase.Store(phaseIdle)
			c.skipped.Add(1)
			return
		}
		c.setOut(true)
		c.state = PulseActive
		c.fired.Add(1)
		c.phase.Store(phasePulseEnd)
		c.timer.Arm(c.pulseWidth, false)

	case phasePulseEnd:
		if !c.phase.CompareAndSwap(phasePulseEnd, phaseIdle) {
			return
		}
		c.setOut(false)
		if !c.mu.TryLock() {
			c.pulseEndPending.Store(true)
			return
		}
		defer c.mu.Unlock()
		c.finishPulseLocked()
	}
}

// enterPowerLocked moves the state machine to match the requested power.
func (c *Controller) enterPowerLocked() {
	switch c.power {
	case PwrOff:
		c.cancelLocked()
		c.setOut(false)
		c.state = ForcedOff
	case PwrOn:
		c.cancelLocked()
		c.setOut(true)
		c.state = ForcedOn
	default:
		if c.state.forced() || c.state == Idle {
			c.setOut(false)
			c.state = c.baseStateLocked()
		}
	}
}

// baseStateLocked is the state a phase-controlled half-cycle starts in.
func (c *Controller) baseStateLocked() State {
	switch c.power {
	case PwrOff:
		return ForcedOff
	case PwrOn:
		return ForcedOn
	}
	if !c.monitor.Valid() {
		return Uncalibrated
	}
	if !c.monitor.Stable() {
		return Calibrating
	}
	return AwaitingZero
}

// delayLocked computes the ignition delay for the coming half-cycle.
func (c *Controller) delayLocked() uint32 {
	if c.state != AwaitingZero {
		return c.conservativeDelay()
	}
	hp := c.monitor.HalfPeriod()
	return c.clampDelay(DelayFromPower(c.mode, c.power, hp), hp)
}

// latestStartLocked is the last moment after the edge at which a full gate
// pulse plus the guard band still fits in the half-cycle.
func (c *Controller) latestStartLocked() uint32 {
	if c.state != AwaitingZero {
		return c.conservativeDelay()
	}
	return c.clampDelay(^uint32(0), c.monitor.HalfPeriod())
}

// conservativeDelay fires late enough to be harmless and early enough to
// land inside the shortest legal half-cycle.
func (c *Controller) conservativeDelay() uint32 {
	return ZeroMin - c.pulseWidth - SafetyTimeUs
}

func (c *Controller) clampDelay(delay, halfPeriod uint32) uint32 {
	guard := c.pulseWidth + SafetyTimeUs
	if halfPeriod <= guard {
		return 0
	}
	return mathx.Clamp(delay, 0, halfPeriod-guard)
}

func (c *Controller) cancelLocked() {
	c.phase.Store(phaseIdle)
	c.pulseEndPending.Store(false)
	c.timer.Cancel()
}

func (c *Controller) applyDeferredLocked() {
	if c.pulseEndPending.Swap(false) {
		c.finishPulseLocked()
	}
}

func (c *Controller) finishPulseLocked() {
	switch {
	case c.state == PulseActive:
		c.state = c.baseStateLocked()
	case c.state == ForcedOn:
		// a racing pulse end may have dropped the static gate
		c.setOut(true)
	}
}

// hintChangeLocked reports whether the static-output status changed since
// the hint was last told.
func (c *Controller) hintChangeLocked() (bool, bool) {
	idle := c.state.forced()
	if idle == c.hintIdle {
		return false, idle
	}
	c.hintIdle = idle
	return true, idle
}

func (c *Controller) setOut(on bool) {
	if err := c.out.Set(on); err != nil {
		c.outErrs.Add(1)
	}
}
