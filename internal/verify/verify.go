// Package verify checks the coefficient-add kernels against each other
// and against the wide-arithmetic definition of the saturating add.
package verify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/coeffbench/internal/frame"
	"github.com/cwbudde/coeffbench/internal/kernel"
)

// ErrNoKernels is returned when a check is asked to run without kernels.
var ErrNoKernels = errors.New("no kernels to verify")

// impl is a named kernel function. Checks run on impls so tests can feed
// deliberately broken functions through the same code paths.
type impl struct {
	name string
	add  kernel.AddCoeffsFunc
}

func impls(ks []kernel.Kernel) []impl {
	out := make([]impl, len(ks))
	for i, k := range ks {
		out[i] = impl{name: string(k.Variant), add: k.Func()}
	}
	return out
}

// apply runs one kernel call, turning a panic into an error.
func apply(m impl, dst []uint8, idx, stride int, coeffs []int16) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("%s panicked: %w", m.name, rerr)
				return
			}
			err = fmt.Errorf("%s panicked: %v", m.name, r)
		}
	}()
	m.add(dst, idx, stride, coeffs)
	return nil
}

// Mismatch is the first differing sample between two variants.
type Mismatch struct {
	Variant string `json:"variant"`
	Against string `json:"against"`
	Offset  int    `json:"offset"`
	Got     uint8  `json:"got"`
	Want    uint8  `json:"want"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s differs from %s at offset %d: got %d, want %d", m.Variant, m.Against, m.Offset, m.Got, m.Want)
}

// FrameReport is the outcome of a whole-frame equivalence check.
type FrameReport struct {
	Samples    int               `json:"samples"`
	Stride     int               `json:"stride"`
	Tiles      int               `json:"tiles"`
	Variants   []string          `json:"variants"`
	Checksums  map[string]uint64 `json:"checksums"`
	Mismatches []Mismatch        `json:"mismatches,omitempty"`
}

// OK reports whether every variant produced the same frame.
func (r *FrameReport) OK() bool {
	return len(r.Mismatches) == 0
}

// CheckFrame runs every kernel over a full frame generated from seed and
// compares each result with the first kernel's, byte for byte.
func CheckFrame(ks []kernel.Kernel, samples, stride int, seed [32]byte) (*FrameReport, error) {
	return checkFrame(impls(ks), samples, stride, seed)
}

func checkFrame(ms []impl, samples, stride int, seed [32]byte) (*FrameReport, error) {
	if len(ms) == 0 {
		return nil, ErrNoKernels
	}
	if err := frame.ValidateGeometry(samples, stride); err != nil {
		return nil, err
	}

	src, block := frame.MakeBuffers(seed, samples, stride)
	coeffs := block.Slice()

	report := &FrameReport{
		Samples:   samples,
		Stride:    stride,
		Tiles:     frame.TileCount(samples, stride),
		Checksums: make(map[string]uint64, len(ms)),
	}

	var want *frame.Plane
	for _, m := range ms {
		p := src.Clone()
		var err error
		frame.ForEachTile(samples, stride, func(idx int) {
			if err == nil {
				err = apply(m, p.Pix, idx, stride, coeffs)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("frame check: %w", err)
		}

		report.Variants = append(report.Variants, m.name)
		report.Checksums[m.name] = p.Checksum()

		if want == nil {
			want = p
			continue
		}
		for i := range p.Pix {
			if p.Pix[i] != want.Pix[i] {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Variant: m.name,
					Against: ms[0].name,
					Offset:  i,
					Got:     p.Pix[i],
					Want:    want.Pix[i],
				})
				break
			}
		}
	}

	slog.Debug("Frame check finished",
		"variants", len(ms),
		"tiles", report.Tiles,
		"mismatches", len(report.Mismatches),
	)
	return report, nil
}

// Block layout used by CheckBlock: the 4x4 footprint sits inside a plane
// padded by guardPad samples on every side.
const (
	guardPad    = 4
	guardStride = kernel.BlockSize + 2*guardPad
	guardRows   = kernel.BlockSize + 2*guardPad
	guardIdx    = guardPad + guardPad*guardStride
	guardFill   = 0xA5
)

// Outcome describes one 4x4 block run through every kernel.
type Outcome struct {
	// Want is the wide-arithmetic result, clamped to [0, 255].
	Want [kernel.NumCoeffs]uint8 `json:"want"`

	// Saturated counts lanes whose unclamped sum leaves [0, 255].
	Saturated int `json:"saturated"`

	// Disagreements counts (kernel, lane) pairs that differ from Want.
	Disagreements int `json:"disagreements"`

	// GuardViolations counts (kernel, sample) pairs written outside the
	// footprint.
	GuardViolations int `json:"guardViolations"`

	// Failures holds recovered kernel panics.
	Failures []string `json:"failures,omitempty"`
}

// Clean reports whether every kernel matched Want without side effects.
func (o Outcome) Clean() bool {
	return o.Disagreements == 0 && o.GuardViolations == 0 && len(o.Failures) == 0
}

// CheckBlock adds coeffs onto a block holding pixels with every kernel
// and compares the results with the wide computation.
func CheckBlock(ks []kernel.Kernel, pixels [kernel.NumCoeffs]uint8, coeffs [kernel.NumCoeffs]int16) Outcome {
	return checkBlock(impls(ks), pixels, coeffs)
}

func checkBlock(ms []impl, pixels [kernel.NumCoeffs]uint8, coeffs [kernel.NumCoeffs]int16) Outcome {
	var o Outcome
	for i := range pixels {
		sum := int32(pixels[i]) + int32(coeffs[i])
		if sum < 0 || sum > 255 {
			o.Saturated++
		}
		o.Want[i] = kernel.Clip8(sum)
	}

	offsets := kernel.FootprintOffsets(guardIdx, guardStride)
	inFootprint := make(map[int]int, len(offsets))
	for lane, off := range offsets {
		inFootprint[off] = lane
	}

	for _, m := range ms {
		buf := make([]uint8, guardStride*guardRows)
		for i := range buf {
			buf[i] = guardFill
		}
		for lane, off := range offsets {
			buf[off] = pixels[lane]
		}

		cf := coeffs
		if err := apply(m, buf, guardIdx, guardStride, cf[:]); err != nil {
			o.Failures = append(o.Failures, err.Error())
			continue
		}
		if cf != coeffs {
			o.Failures = append(o.Failures, m.name+" modified the coefficient block")
		}

		for i, v := range buf {
			if lane, ok := inFootprint[i]; ok {
				if v != o.Want[lane] {
					o.Disagreements++
				}
			} else if v != guardFill {
				o.GuardViolations++
			}
		}
	}
	return o
}
