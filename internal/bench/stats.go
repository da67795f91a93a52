package bench

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Sample is one timed batch of iterations.
type Sample struct {
	Iters   uint64        `json:"iters"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// Interval is a confidence interval in nanoseconds per iteration.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Overlaps reports whether the two intervals share any point.
func (i Interval) Overlaps(o Interval) bool {
	return i.Lo <= o.Hi && o.Lo <= i.Hi
}

// Estimates summarises the per-iteration times of one benchmark.
// All values are nanoseconds per iteration.
type Estimates struct {
	Mean   float64  `json:"mean"`
	MeanCI Interval `json:"meanCi"`
	StdDev float64  `json:"stdDev"`
	Median float64  `json:"median"`
	MAD    float64  `json:"mad"`
	Slope  float64  `json:"slope"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
}

// Outliers counts samples beyond the Tukey fences.
type Outliers struct {
	LowSevere  int `json:"lowSevere"`
	LowMild    int `json:"lowMild"`
	HighMild   int `json:"highMild"`
	HighSevere int `json:"highSevere"`
}

// Total returns the number of outliers of any kind.
func (o Outliers) Total() int {
	return o.LowSevere + o.LowMild + o.HighMild + o.HighSevere
}

// perIteration converts samples to nanoseconds per iteration.
func perIteration(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s.Elapsed.Nanoseconds()) / float64(s.Iters)
	}
	return out
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return vecmath.Sum(x) / float64(len(x))
}

// stdDev is the sample standard deviation around m.
func stdDev(x []float64, m float64) float64 {
	if len(x) < 2 {
		return 0
	}
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = v - m
	}
	return math.Sqrt(vecmath.DotProduct(dev, dev) / float64(len(x)-1))
}

// percentile interpolates linearly inside sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// medianAbsDev returns the median absolute deviation scaled to be a
// consistent estimator of the standard deviation.
func medianAbsDev(x []float64, median float64) float64 {
	if len(x) == 0 {
		return 0
	}
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - median)
	}
	slices.Sort(dev)
	return percentile(dev, 50) * 1.4826
}

// slope fits elapsed = slope * iters through the origin.
func slope(samples []Sample) float64 {
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s.Iters)
		y[i] = float64(s.Elapsed.Nanoseconds())
	}
	den := vecmath.DotProduct(x, x)
	if den == 0 {
		return 0
	}
	return vecmath.DotProduct(x, y) / den
}

// bootstrapMean resamples times with replacement and returns the
// confidence interval of the mean. The generator is seeded from seed so a
// given sample set always yields the same interval.
func bootstrapMean(times []float64, resamples int, cl float64, seed uint64) Interval {
	n := len(times)
	if n == 0 || resamples <= 0 {
		return Interval{}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buf := make([]float64, n)
	means := make([]float64, resamples)
	for r := range means {
		for i := range buf {
			buf[i] = times[rng.IntN(n)]
		}
		means[r] = vecmath.Sum(buf) / float64(n)
	}
	slices.Sort(means)

	alpha := (1 - cl) / 2
	return Interval{
		Lo: percentile(means, alpha*100),
		Hi: percentile(means, (1-alpha)*100),
	}
}

// classifyOutliers applies Tukey's fences (1.5 and 3 IQR) to sorted times.
func classifyOutliers(sorted []float64) Outliers {
	var o Outliers
	if len(sorted) < 4 {
		return o
	}
	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	lowSevere, lowMild := q1-3*iqr, q1-1.5*iqr
	highMild, highSevere := q3+1.5*iqr, q3+3*iqr

	for _, v := range sorted {
		switch {
		case v < lowSevere:
			o.LowSevere++
		case v < lowMild:
			o.LowMild++
		case v > highSevere:
			o.HighSevere++
		case v > highMild:
			o.HighMild++
		}
	}
	return o
}

// Analyze computes estimates and outlier counts for a sample set.
func Analyze(samples []Sample, cfg Config, seed uint64) (Estimates, Outliers) {
	times := perIteration(samples)
	if len(times) == 0 {
		return Estimates{}, Outliers{}
	}

	sorted := slices.Clone(times)
	slices.Sort(sorted)

	m := mean(times)
	med := percentile(sorted, 50)

	est := Estimates{
		Mean:   m,
		MeanCI: bootstrapMean(times, cfg.Resamples, cfg.ConfidenceLevel, seed),
		StdDev: stdDev(times, m),
		Median: med,
		MAD:    medianAbsDev(times, med),
		Slope:  slope(samples),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	return est, classifyOutliers(sorted)
}
