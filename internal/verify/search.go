package verify

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/coeffbench/internal/kernel"
	"github.com/cwbudde/coeffbench/internal/opt"
)

// SearchDim is the size of the saturation search space: 16 pixels
// followed by 16 coefficients.
const SearchDim = 2 * kernel.NumCoeffs

// mismatchWeight makes any disagreement dominate the saturation reward.
const mismatchWeight = 1000

// Finding is the most extreme block the saturation search produced.
type Finding struct {
	Pixels      [kernel.NumCoeffs]uint8 `json:"pixels"`
	Coeffs      [kernel.NumCoeffs]int16 `json:"coeffs"`
	Outcome     Outcome                 `json:"outcome"`
	Cost        float64                 `json:"cost"`
	Evaluations int                     `json:"evaluations"`
}

// SearchBounds returns the per-dimension bounds of the search space.
func SearchBounds() (lower, upper []float64) {
	lower = make([]float64, SearchDim)
	upper = make([]float64, SearchDim)
	for i := 0; i < kernel.NumCoeffs; i++ {
		lower[i], upper[i] = 0, math.MaxUint8
		lower[kernel.NumCoeffs+i], upper[kernel.NumCoeffs+i] = math.MinInt16, math.MaxInt16
	}
	return lower, upper
}

// Decode rounds a parameter vector of SearchDim values to a pixel block
// and a coefficient block, clamping to the representable ranges.
func Decode(params []float64) (pixels [kernel.NumCoeffs]uint8, coeffs [kernel.NumCoeffs]int16) {
	for i := 0; i < kernel.NumCoeffs; i++ {
		pixels[i] = uint8(math.Round(clampFloat(params[i], 0, math.MaxUint8)))
		coeffs[i] = int16(math.Round(clampFloat(params[kernel.NumCoeffs+i], math.MinInt16, math.MaxInt16)))
	}
	return pixels, coeffs
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// cost rewards saturating lanes and punishes any kernel misbehaviour far
// harder, so the minimum is a disagreement when one exists.
func cost(o Outcome) float64 {
	bad := o.Disagreements + o.GuardViolations + len(o.Failures)
	return -float64(o.Saturated) - mismatchWeight*float64(bad)
}

// SearchSaturation drives o over the full pixel and signed 16-bit
// coefficient domain, looking for blocks that saturate as many lanes as
// possible or make the kernels disagree.
func SearchSaturation(o opt.Optimizer, ks []kernel.Kernel) (*Finding, error) {
	return searchSaturation(o, impls(ks))
}

func searchSaturation(o opt.Optimizer, ms []impl) (*Finding, error) {
	if len(ms) == 0 {
		return nil, ErrNoKernels
	}

	evals := 0
	eval := func(params []float64) float64 {
		evals++
		if len(params) != SearchDim {
			return math.Inf(1)
		}
		px, cf := Decode(params)
		return cost(checkBlock(ms, px, cf))
	}

	lower, upper := SearchBounds()
	best, _ := o.Run(eval, lower, upper, SearchDim)
	if len(best) != SearchDim {
		return nil, fmt.Errorf("optimizer returned %d parameters, want %d", len(best), SearchDim)
	}

	f := &Finding{Evaluations: evals}
	f.Pixels, f.Coeffs = Decode(best)
	f.Outcome = checkBlock(ms, f.Pixels, f.Coeffs)
	f.Cost = cost(f.Outcome)

	slog.Debug("Saturation search finished",
		"evaluations", evals,
		"saturated", f.Outcome.Saturated,
		"disagreements", f.Outcome.Disagreements,
		"guardViolations", f.Outcome.GuardViolations,
	)
	return f, nil
}
