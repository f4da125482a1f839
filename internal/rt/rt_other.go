//go:build !linux

package rt

// LockMemory is not available on non-Linux platforms.
func LockMemory() error {
	return ErrUnsupported
}

// ElevateThread is not available on non-Linux platforms.
func ElevateThread(priority int) error {
	if priority <= 0 {
		return nil
	}
	return ErrUnsupported
}
