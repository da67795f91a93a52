// Package bench is a small statistics-driven benchmark runner: it warms a
// routine up, takes linearly growing samples, derives robust estimates
// with a bootstrap confidence interval and reports them, optionally
// against a stored baseline.
package bench

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"regexp"
	"time"
)

// ErrPinUnsupported is returned when the measuring thread cannot be pinned.
var ErrPinUnsupported = errors.New("CPU pinning unsupported")

var noopRestore = func() {}

// Benchmark is one measured routine.
type Benchmark struct {
	// Name identifies the implementation, e.g. a kernel variant.
	Name string
	// Group identifies the configuration; results sharing a group are
	// compared against each other in the final summary.
	Group string
	// Elements is the number of work items per iteration, used for
	// throughput. Zero disables throughput reporting.
	Elements uint64
	Routine  Routine
}

// ID returns the benchmark identifier "<name>_<group>".
func (b Benchmark) ID() string {
	if b.Group == "" {
		return b.Name
	}
	return b.Name + "_" + b.Group
}

// Result holds the measurement of one benchmark.
type Result struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	Elements  uint64    `json:"elements,omitempty"`
	Samples   []Sample  `json:"samples"`
	Estimates Estimates `json:"estimates"`
	Outliers  Outliers  `json:"outliers"`
	Change    *Change   `json:"change,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Throughput returns elements per second at the mean time, or 0.
func (r Result) Throughput() float64 {
	if r.Elements == 0 || r.Estimates.Mean <= 0 {
		return 0
	}
	return float64(r.Elements) / (r.Estimates.Mean / 1e9)
}

// Runner executes benchmarks one after another and keeps their results.
type Runner struct {
	cfg      Config
	out      io.Writer
	filter   *regexp.Regexp
	baseline map[string]Estimates
	results  []Result
}

// NewRunner validates cfg and returns a runner printing to out.
func NewRunner(cfg Config, out io.Writer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{cfg: cfg, out: out}, nil
}

// SetFilter restricts the runner to benchmark IDs matching pattern.
// An empty pattern removes the filter.
func (r *Runner) SetFilter(pattern string) error {
	if pattern == "" {
		r.filter = nil
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid benchmark filter: %w", err)
	}
	r.filter = re
	return nil
}

// SetBaseline installs estimates keyed by benchmark ID to compare against.
func (r *Runner) SetBaseline(baseline map[string]Estimates) {
	r.baseline = baseline
}

// Matches reports whether id passes the filter.
func (r *Runner) Matches(id string) bool {
	return r.filter == nil || r.filter.MatchString(id)
}

// Run measures b unless it is filtered out. The second return value is
// false when the benchmark was skipped.
func (r *Runner) Run(b Benchmark) (Result, bool, error) {
	id := b.ID()
	if !r.Matches(id) {
		slog.Debug("Benchmark filtered out", "benchmark", id)
		return Result{}, false, nil
	}
	if b.Routine == nil {
		return Result{}, false, fmt.Errorf("benchmark %s has no routine", id)
	}

	if r.cfg.PinCPU >= 0 {
		restore, err := pinThread(r.cfg.PinCPU)
		if err != nil {
			slog.Warn("Running without CPU pinning", "benchmark", id, "error", err)
		}
		defer restore()
	}

	fmt.Fprintf(r.out, "Benchmarking %s\n", id)
	slog.Info("Benchmark started", "benchmark", id, "samples", r.cfg.SampleSize)

	start := time.Now()
	samples := collect(id, b.Routine, r.cfg)
	est, outliers := Analyze(samples, r.cfg, seedFor(id))

	res := Result{
		ID:        id,
		Name:      b.Name,
		Group:     b.Group,
		Elements:  b.Elements,
		Samples:   samples,
		Estimates: est,
		Outliers:  outliers,
		Timestamp: time.Now(),
	}
	if base, ok := r.baseline[id]; ok {
		c := Compare(est, base, r.cfg.NoiseThreshold)
		res.Change = &c
	}

	slog.Info("Benchmark finished",
		"benchmark", id,
		"mean_ns", est.Mean,
		"stddev_ns", est.StdDev,
		"outliers", outliers.Total(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	WriteResult(r.out, res, r.cfg.ConfidenceLevel)
	r.results = append(r.results, res)
	return res, true, nil
}

// Results returns the results collected so far, in run order.
func (r *Runner) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// FinalSummary writes the comparative table of every collected result.
func (r *Runner) FinalSummary(w io.Writer) {
	WriteSummary(w, r.results)
}

// Reanalyze recomputes the estimates of benchmark id from stored raw
// samples. The bootstrap seed matches the one Run uses, so unchanged
// samples reproduce the original estimates.
func Reanalyze(id string, samples []Sample, cfg Config) (Estimates, Outliers) {
	return Analyze(samples, cfg, seedFor(id))
}

// seedFor derives the bootstrap seed from a benchmark ID.
func seedFor(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}
