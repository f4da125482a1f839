package triac

import (
	"sync/atomic"

	"github.com/sweeney/dimmer/internal/mathx"
)

// EdgeKind classifies a zero-cross edge.
type EdgeKind uint8

const (
	// EdgeFirst is the first edge after start or reset; it only sets the
	// reference.
	EdgeFirst EdgeKind = iota
	// EdgeAccepted closed an in-band half-period that entered the average.
	EdgeAccepted
	// EdgeBounce came too soon after the previous edge and is ignored
	// entirely, including as a timing reference.
	EdgeBounce
	// EdgeResync came too late; it becomes the new reference but its
	// interval is discarded.
	EdgeResync
)

// Monitor estimates the mains half-period from zero-cross timestamps.
//
// Sample is called from the edge handler only; it is the single writer of
// the ring. Everything readers need is published through atomics, and a
// reset requested from background context is carried out by the next Sample.
type Monitor struct {
	// edge handler only
	ring       [MovAvWidth]uint32
	sum        uint32
	index      int
	filled     bool
	stabilizer int
	lastEdge   uint32
	seenEdge   bool

	average  atomic.Uint32
	valid    atomic.Bool
	stable   atomic.Bool
	hasEdge  atomic.Bool
	lastSeen atomic.Uint32
	rejected atomic.Uint64
	resetReq atomic.Bool
}

// Sample records an edge at stamp microseconds.
func (m *Monitor) Sample(stamp uint32) EdgeKind {
	kind := m.sample(stamp)
	// A Reset that arrived while this edge was processed wins: withdraw
	// what was just published. The ring is cleared by the next Sample.
	if m.resetReq.Load() {
		m.retract()
	}
	return kind
}

func (m *Monitor) sample(stamp uint32) EdgeKind {
	if m.resetReq.Swap(false) {
		m.clear()
	}

	if !m.seenEdge {
		m.seenEdge = true
		m.lastEdge = stamp
		m.publishEdge(stamp)
		return EdgeFirst
	}

	delta := stamp - m.lastEdge
	if delta < ZeroMin {
		m.rejected.Add(1)
		m.unsettle()
		return EdgeBounce
	}
	m.lastEdge = stamp
	m.publishEdge(stamp)
	if !mathx.Between(delta, ZeroMin, ZeroMax) {
		m.rejected.Add(1)
		m.unsettle()
		return EdgeResync
	}

	m.sum += delta
	m.sum -= m.ring[m.index]
	m.ring[m.index] = delta
	m.index++
	if m.index == MovAvWidth {
		m.index = 0
		m.filled = true
		if m.stabilizer < StabilizerNr {
			m.stabilizer++
		}
		if m.stabilizer >= StabilizerNr {
			m.stable.Store(true)
		}
	}
	if m.filled {
		m.average.Store(m.sum / MovAvWidth)
		m.valid.Store(true)
	}
	return EdgeAccepted
}

// unsettle restarts stability counting while calibration is still in
// progress. Once stable, isolated noise is tolerated.
func (m *Monitor) unsettle() {
	if !m.stable.Load() {
		m.stabilizer = 0
	}
}

func (m *Monitor) publishEdge(stamp uint32) {
	m.lastSeen.Store(stamp)
	m.hasEdge.Store(true)
}

func (m *Monitor) clear() {
	m.ring = [MovAvWidth]uint32{}
	m.sum = 0
	m.index = 0
	m.filled = false
	m.stabilizer = 0
	m.seenEdge = false
}

// Reset discards the estimate. Readers see it invalid immediately; the ring
// itself is cleared by the next Sample. The request is raised before the
// published values are withdrawn so a concurrent Sample either sees it or
// publishes before the withdrawal.
func (m *Monitor) Reset() {
	m.resetReq.Store(true)
	m.retract()
}

func (m *Monitor) retract() {
	m.valid.Store(false)
	m.stable.Store(false)
	m.average.Store(0)
	m.hasEdge.Store(false)
}

// Valid reports whether the ring has been filled since the last reset.
func (m *Monitor) Valid() bool { return m.valid.Load() }

// Stable reports whether calibration has settled.
func (m *Monitor) Stable() bool { return m.stable.Load() }

// HalfPeriod returns the averaged half-period in µs, or 0 when invalid.
func (m *Monitor) HalfPeriod() uint32 {
	if !m.valid.Load() {
		return 0
	}
	return m.average.Load()
}

// FrequencyHz returns the mains frequency, or 0 when unavailable.
func (m *Monitor) FrequencyHz() float64 {
	hp := m.HalfPeriod()
	if hp == 0 {
		return 0
	}
	return 1e6 / (2 * float64(hp))
}

// LastEdge returns the timestamp of the last non-bounce edge and whether
// any edge has been seen since the last reset.
func (m *Monitor) LastEdge() (uint32, bool) {
	return m.lastSeen.Load(), m.hasEdge.Load()
}

// Rejected returns the number of out-of-band intervals dropped.
func (m *Monitor) Rejected() uint64 { return m.rejected.Load() }
