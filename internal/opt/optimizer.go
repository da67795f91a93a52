package opt

// Optimizer minimizes an objective over a box-bounded search space.
type Optimizer interface {
	// Run minimizes eval over [lower[i], upper[i]] for each of the dim
	// parameters and returns the best parameters with their cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// Scale maps x from the unit interval onto [lo, hi], clamping x first.
func Scale(x, lo, hi float64) float64 {
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return lo + x*(hi-lo)
}
