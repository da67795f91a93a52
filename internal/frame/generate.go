package frame

import (
	"math/rand/v2"
)

// Range of the synthetic residual coefficients.
const (
	CoeffMin = -511
	CoeffMax = 510
)

// DefaultSeed is the fixed seed used by the benchmark suite.
var DefaultSeed [32]byte

// NewSource returns the ChaCha8 stream used for input generation.
func NewSource(seed [32]byte) rand.Source {
	return rand.NewChaCha8(seed)
}

// Generator derives pixel and coefficient data from a random source.
// Values are taken from the high 32 bits of each 64-bit draw, so a given
// source yields the same data on every platform.
type Generator struct {
	src rand.Source
}

// NewGenerator wraps src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{src: src}
}

func (g *Generator) next32() uint32 {
	return uint32(g.src.Uint64() >> 32)
}

// FillPixels overwrites pix with pseudorandom samples.
func (g *Generator) FillPixels(pix []uint8) {
	for i := range pix {
		pix[i] = uint8(g.next32())
	}
}

// Coeff draws one coefficient from [CoeffMin, CoeffMax] by multiply-shift
// range reduction.
func (g *Generator) Coeff() int16 {
	const span = CoeffMax - CoeffMin + 1
	return int16(CoeffMin + int((uint64(g.next32())*span)>>32))
}

// FillBlock overwrites b with pseudorandom coefficients.
func (g *Generator) FillBlock(b *Block) {
	for i := range b {
		b[i] = g.Coeff()
	}
}

// Generate creates a plane of samples bytes followed by one coefficient
// block, both drawn from src in that order.
func Generate(src rand.Source, samples, stride int) (*Plane, Block) {
	g := NewGenerator(src)

	p := NewPlane(samples, stride)
	g.FillPixels(p.Pix)

	var b Block
	g.FillBlock(&b)

	return p, b
}

// MakeBuffers generates the benchmark inputs for seed.
func MakeBuffers(seed [32]byte, samples, stride int) (*Plane, Block) {
	return Generate(NewSource(seed), samples, stride)
}
