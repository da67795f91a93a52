package opt

import (
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the Mayfly library to conform to the Optimizer
// interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly optimizer with a fixed seed. popSize is used
// for both the male and the female population.
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization.
//
// The library only takes scalar bounds, so the search runs in the unit
// cube and every candidate is mapped onto the per-dimension bounds before
// it reaches eval.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	denorm := func(x []float64) []float64 {
		p := make([]float64, dim)
		for i := range p {
			p[i] = Scale(x[i], lower[i], upper[i])
		}
		return p
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 { return eval(denorm(x)) }
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.NPopF = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly optimization failed, falling back to lower bounds", "error", err)
		p := make([]float64, dim)
		copy(p, lower)
		return p, eval(p)
	}

	best := denorm(result.GlobalBest.Position)
	slog.Debug("Mayfly optimization finished",
		"iterations", m.maxIters,
		"population", m.popSize,
		"cost", result.GlobalBest.Cost,
	)
	return best, result.GlobalBest.Cost
}
