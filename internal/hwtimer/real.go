package hwtimer

import (
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/sweeney/dimmer/internal/rt"
)

// Real is a Timer backed by a dedicated goroutine locked to its own OS
// thread. With a non-zero priority that thread runs SCHED_FIFO, which keeps
// expiry jitter in the tens of microseconds on a PREEMPT kernel.
type Real struct {
	clock    Clock
	priority int

	mu       sync.Mutex
	cb       func()
	armed    bool
	deadline uint32
	period   uint32
	armedAt  uint32
	gen      uint64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewReal starts the timer goroutine. priority is the SCHED_FIFO priority of
// the timer thread (0 keeps the default scheduler).
func NewReal(clock Clock, priority int) *Real {
	t := &Real{
		clock:    clock,
		priority: priority,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

// Attach installs the expiry callback.
func (t *Real) Attach(fn func()) {
	t.mu.Lock()
	t.cb = fn
	t.mu.Unlock()
}

// Detach removes the callback and cancels any pending expiry.
func (t *Real) Detach() {
	t.mu.Lock()
	t.cb = nil
	t.armed = false
	t.gen++
	t.mu.Unlock()
}

// Arm schedules an expiry us microseconds from now.
func (t *Real) Arm(us uint32, repeating bool) {
	now := t.clock.Micros()
	t.mu.Lock()
	t.armed = true
	t.armedAt = now
	t.deadline = now + us
	t.period = 0
	if repeating {
		t.period = us
	}
	t.gen++
	t.mu.Unlock()
	t.poke()
}

// Cancel disarms the timer.
func (t *Real) Cancel() {
	t.mu.Lock()
	t.armed = false
	t.gen++
	t.mu.Unlock()
	t.poke()
}

// ElapsedMicros returns the time since the last Arm.
func (t *Real) ElapsedMicros() uint32 {
	t.mu.Lock()
	at := t.armedAt
	t.mu.Unlock()
	return Since(t.clock.Micros(), at)
}

// Close stops the timer goroutine.
func (t *Real) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	t.wg.Wait()
	return nil
}

func (t *Real) poke() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Real) loop() {
	defer t.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := rt.ElevateThread(t.priority); err != nil {
		log.Printf("hwtimer: running without real-time priority: %v", err)
	}

	sleep := time.NewTimer(time.Hour)
	sleep.Stop()

	for {
		t.mu.Lock()
		if !t.armed {
			t.mu.Unlock()
			select {
			case <-t.wake:
				continue
			case <-t.done:
				return
			}
		}
		gen := t.gen
		remaining := int32(t.deadline - t.clock.Micros())
		t.mu.Unlock()

		if remaining > 0 {
			sleep.Reset(time.Duration(remaining) * time.Microsecond)
			select {
			case <-sleep.C:
			case <-t.wake:
				sleep.Stop()
			case <-t.done:
				sleep.Stop()
				return
			}
			continue
		}

		t.mu.Lock()
		if !t.armed || t.gen != gen {
			t.mu.Unlock()
			continue
		}
		cb := t.cb
		if t.period > 0 {
			t.deadline += t.period
			t.armedAt = t.clock.Micros()
		} else {
			t.armed = false
		}
		t.mu.Unlock()

		if cb != nil {
			cb()
		}
	}
}
