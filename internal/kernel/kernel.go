package kernel

import (
	"errors"
	"fmt"
)

// Coefficient-add kernel.
//
// Adds a 4x4 block of signed residual coefficients onto an 8-bit pixel
// plane and saturates every result into [0, 255]:
//
//	dst[idx + x + y*stride] = clamp(dst[idx + x + y*stride] + coeffs[x + y*4], 0, 255)
//
// Variants:
//   - reference.go: per-sample row/column indexing, 16-bit intermediate
//   - chunk.go:     row-slice walks over the 3*stride+4 window (unchecked
//                   and checked flavours), 32-bit intermediate
//
// All variants produce identical output for every int16 coefficient; they
// only differ in how the footprint is addressed and whether the
// precondition is asserted.

const (
	// BlockSize is the edge length of a coefficient block.
	BlockSize = 4
	// NumCoeffs is the number of coefficients in one block.
	NumCoeffs = BlockSize * BlockSize
)

// AddCoeffsFunc adds coeffs onto the 4x4 region of dst whose top-left
// sample is at idx. Rows are stride bytes apart.
//
// Precondition: stride >= 4, idx >= 0, idx+3*stride+3 < len(dst) and
// len(coeffs) >= 16.
type AddCoeffsFunc func(dst []uint8, idx, stride int, coeffs []int16)

var (
	// ErrOutOfBounds is reported when the 4x4 footprint does not fit the plane.
	ErrOutOfBounds = errors.New("block footprint out of bounds")
	// ErrShortCoeffs is reported when fewer than 16 coefficients are supplied.
	ErrShortCoeffs = errors.New("coefficient block shorter than 16")
	// ErrStride is reported when the stride cannot hold a 4-sample row.
	ErrStride = errors.New("stride smaller than block width")
)

// Clip8 saturates v into [0, 255].
func Clip8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// clip16 saturates v into the int16 range.
func clip16(v int32) int16 {
	if v < -1<<15 {
		return -1 << 15
	}
	if v > 1<<15-1 {
		return 1<<15 - 1
	}
	return int16(v)
}

// CheckFootprint reports whether a 4x4 block at idx with the given stride
// fits inside a plane of n samples.
func CheckFootprint(n, idx, stride int) error {
	if stride < BlockSize {
		return fmt.Errorf("%w: stride %d", ErrStride, stride)
	}
	if idx < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrOutOfBounds, idx)
	}
	if last := idx + 3*stride + 3; last >= n {
		return fmt.Errorf("%w: last sample %d, plane holds %d", ErrOutOfBounds, last, n)
	}
	return nil
}

// FootprintOffsets returns the 16 plane offsets covered by the block at idx.
func FootprintOffsets(idx, stride int) [NumCoeffs]int {
	var offs [NumCoeffs]int
	for y := 0; y < BlockSize; y++ {
		for x := 0; x < BlockSize; x++ {
			offs[x+y*BlockSize] = idx + x + y*stride
		}
	}
	return offs
}
