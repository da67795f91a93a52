// Package frame provides the synthetic frame the coefficient kernels run
// over: a strided pixel plane, seeded input generation and tile traversal.
package frame

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/cwbudde/coeffbench/internal/kernel"
)

// ErrFrameGeometry is returned when a sample count and stride do not
// describe at least one full tile.
var ErrFrameGeometry = errors.New("invalid frame geometry")

// Plane is a flat 8-bit sample buffer. Row y starts at y*Stride.
type Plane struct {
	Pix    []uint8
	Stride int
}

// NewPlane allocates a zeroed plane of the given number of samples.
func NewPlane(samples, stride int) *Plane {
	return &Plane{
		Pix:    make([]uint8, samples),
		Stride: stride,
	}
}

// Rows returns the number of complete rows held by the plane.
func (p *Plane) Rows() int {
	if p.Stride <= 0 {
		return 0
	}
	return len(p.Pix) / p.Stride
}

// Offset returns the index of sample (x, y).
func (p *Plane) Offset(x, y int) int {
	return x + y*p.Stride
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	pix := make([]uint8, len(p.Pix))
	copy(pix, p.Pix)
	return &Plane{Pix: pix, Stride: p.Stride}
}

// Checksum hashes the whole plane with FNV-1a.
func (p *Plane) Checksum() uint64 {
	h := fnv.New64a()
	h.Write(p.Pix)
	return h.Sum64()
}

// ChecksumOutside hashes every sample except the 4x4 footprint at idx.
func (p *Plane) ChecksumOutside(idx int) uint64 {
	h := fnv.New64a()
	pos := 0
	for _, off := range kernel.FootprintOffsets(idx, p.Stride) {
		if off < pos || off >= len(p.Pix) {
			continue
		}
		h.Write(p.Pix[pos:off])
		pos = off + 1
	}
	h.Write(p.Pix[pos:])
	return h.Sum64()
}

// Block is one 4x4 coefficient block in row-major order.
type Block [kernel.NumCoeffs]int16

// Slice returns the block as the slice the kernels consume.
func (b *Block) Slice() []int16 {
	return b[:]
}

// ValidateGeometry checks that samples and stride describe at least one
// complete row of tiles.
func ValidateGeometry(samples, stride int) error {
	if stride < kernel.BlockSize {
		return fmt.Errorf("%w: stride %d is smaller than a tile", ErrFrameGeometry, stride)
	}
	if TileRows(samples, stride) == 0 {
		return fmt.Errorf("%w: %d samples hold no tile row at stride %d", ErrFrameGeometry, samples, stride)
	}
	return nil
}
