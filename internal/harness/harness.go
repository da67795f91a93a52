// Package harness is the add-coeffs benchmark suite: it generates the
// synthetic frame once per benchmark and times whole-frame traversals with
// each kernel variant.
package harness

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/coeffbench/internal/bench"
	"github.com/cwbudde/coeffbench/internal/frame"
	"github.com/cwbudde/coeffbench/internal/kernel"
)

// Fixed frame configuration.
const (
	FrameWidth  = 512
	FrameHeight = 384
	Samples     = FrameWidth * FrameHeight
	Stride      = 512
)

// Group returns the configuration label shared by all variants.
func Group(samples, stride int) string {
	return fmt.Sprintf("%d_%d", samples, stride)
}

// BenchmarkID returns "<variant>_<samples>_<stride>".
func BenchmarkID(v kernel.Variant, samples, stride int) string {
	return string(v) + "_" + Group(samples, stride)
}

// NewBenchmark builds the benchmark for one kernel. The plane and block
// are generated from seed up front; every iteration of the routine
// traverses the whole frame, mutating the plane in place.
func NewBenchmark(k kernel.Kernel, samples, stride int, seed [32]byte) (bench.Benchmark, error) {
	if err := frame.ValidateGeometry(samples, stride); err != nil {
		return bench.Benchmark{}, err
	}

	plane, block := frame.MakeBuffers(seed, samples, stride)
	coeffs := block.Slice()
	add := k.Func()

	return bench.Benchmark{
		Name:     string(k.Variant),
		Group:    Group(samples, stride),
		Elements: uint64(frame.TileCount(samples, stride)),
		Routine: func(iters uint64) {
			for i := uint64(0); i < iters; i++ {
				frame.Traverse(plane, coeffs, add)
			}
		},
	}, nil
}

// BenchAddCoeffs measures one kernel on a frame of samples bytes.
func BenchAddCoeffs(r *bench.Runner, k kernel.Kernel, samples, stride int, seed [32]byte) error {
	b, err := NewBenchmark(k, samples, stride, seed)
	if err != nil {
		return err
	}
	if !r.Matches(b.ID()) {
		slog.Debug("Skipping filtered benchmark", "benchmark", b.ID())
		return nil
	}
	_, _, err = r.Run(b)
	return err
}

// Run benchmarks the given kernels (all of them when ks is empty) on the
// fixed 512x384 configuration.
func Run(r *bench.Runner, ks []kernel.Kernel, seed [32]byte) error {
	if len(ks) == 0 {
		ks = kernel.All()
	}
	slog.Info("Running add-coeffs suite",
		"variants", len(ks),
		"samples", Samples,
		"stride", Stride,
		"tiles", frame.TileCount(Samples, Stride),
	)
	for _, k := range ks {
		if err := BenchAddCoeffs(r, k, Samples, Stride, seed); err != nil {
			return fmt.Errorf("benchmark %s: %w", BenchmarkID(k.Variant, Samples, Stride), err)
		}
	}
	return nil
}
