package bench

import (
	"log/slog"
	"math"
	"time"
)

// Routine runs the measured workload iters times.
type Routine func(iters uint64)

// timeRoutine runs routine once with iters iterations and returns the
// elapsed wall time.
func timeRoutine(routine Routine, iters uint64) time.Duration {
	start := time.Now()
	routine(iters)
	return time.Since(start)
}

// warmUp runs routine with doubling iteration counts until d has passed.
// It returns the total iterations run and the time they took.
func warmUp(routine Routine, d time.Duration) (uint64, time.Duration) {
	var (
		total   uint64
		elapsed time.Duration
	)
	for n := uint64(1); ; n *= 2 {
		elapsed += timeRoutine(routine, n)
		total += n
		if elapsed >= d {
			return total, elapsed
		}
	}
}

// linearSchedule returns the iteration counts d, 2d, ..., n*d for n
// samples, with d chosen so the samples take about target in total given
// an estimated iteration time of iterNs nanoseconds.
func linearSchedule(iterNs float64, n int, target time.Duration) []uint64 {
	if iterNs <= 0 {
		iterNs = 1
	}
	totalRuns := float64(n*(n+1)) / 2
	d := math.Ceil(float64(target.Nanoseconds()) / iterNs / totalRuns)
	if d < 1 {
		d = 1
	}

	counts := make([]uint64, n)
	for i := range counts {
		counts[i] = uint64(i+1) * uint64(d)
	}
	return counts
}

// expectedDuration estimates how long a schedule takes.
func expectedDuration(counts []uint64, iterNs float64) time.Duration {
	var total uint64
	for _, c := range counts {
		total += c
	}
	return time.Duration(float64(total) * iterNs)
}

// collect warms up routine and takes cfg.SampleSize linear samples. The
// schedule is sized from the warm-up's iteration time, so cfg must have
// passed Validate.
func collect(id string, routine Routine, cfg Config) []Sample {
	iters, elapsed := warmUp(routine, cfg.WarmUpTime)
	iterNs := float64(elapsed.Nanoseconds()) / float64(iters)
	slog.Debug("Warm-up complete", "benchmark", id, "iters", iters, "elapsed", elapsed)

	counts := linearSchedule(iterNs, cfg.SampleSize, cfg.MeasurementTime)
	if est := expectedDuration(counts, iterNs); est > cfg.MeasurementTime+cfg.MeasurementTime/2 {
		slog.Warn("Unable to complete samples in the target time",
			"benchmark", id,
			"samples", cfg.SampleSize,
			"target", cfg.MeasurementTime,
			"expected", est.Round(time.Millisecond),
		)
	}

	samples := make([]Sample, len(counts))
	for i, n := range counts {
		samples[i] = Sample{Iters: n, Elapsed: timeRoutine(routine, n)}
	}
	return samples
}
