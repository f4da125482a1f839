//go:build linux

package rt

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// LockMemory pins all current and future pages of the process in RAM so a
// page fault never lands inside a gate pulse.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("rt: mlockall: %w", err)
	}
	return nil
}

// ElevateThread switches the calling OS thread to SCHED_FIFO with the given
// priority. The caller must hold runtime.LockOSThread for the setting to stay
// attached to its goroutine. Priority 0 is a no-op.
func ElevateThread(priority int) error {
	if priority <= 0 {
		return nil
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	attr := unix.SchedAttr{
		Size:     uint32(unsafe.Sizeof(unix.SchedAttr{})),
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("rt: sched_setattr fifo %d: %w", priority, err)
	}
	return nil
}
