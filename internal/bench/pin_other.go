//go:build !linux

package bench

import "fmt"

func pinThread(cpu int) (func(), error) {
	return noopRestore, fmt.Errorf("%w: CPU %d", ErrPinUnsupported, cpu)
}
