//go:build linux

package bench

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinThread locks the calling goroutine to its OS thread and restricts the
// thread to cpu. The returned function restores the previous affinity.
func pinThread(cpu int) (func(), error) {
	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		runtime.UnlockOSThread()
		return noopRestore, fmt.Errorf("failed to read CPU affinity: %w", err)
	}
	if !prev.IsSet(cpu) {
		runtime.UnlockOSThread()
		return noopRestore, fmt.Errorf("%w: CPU %d not in affinity mask", ErrPinUnsupported, cpu)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return noopRestore, fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return func() {
		unix.SchedSetaffinity(0, &prev)
		runtime.UnlockOSThread()
	}, nil
}
