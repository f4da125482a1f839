// Package rt prepares the process and individual OS threads for the
// latency-sensitive parts of the dimmer: the zero-cross edge handler and the
// ignition timer.
package rt

import "errors"

// ErrUnsupported is returned on platforms without real-time scheduling.
var ErrUnsupported = errors.New("rt: not supported on this platform")

// MaxPriority is the highest SCHED_FIFO priority accepted by ElevateThread.
const MaxPriority = 99
