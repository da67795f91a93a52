package store

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/coeffbench/internal/bench"
)

// Baseline is a saved set of benchmark results that later runs compare
// against. Raw samples are not part of the JSON document; they live in
// the baseline's samples.jsonl trace.
type Baseline struct {
	// ID is a random UUID assigned when the baseline is created.
	ID string `json:"id"`

	// Name is the user-chosen label and the directory name on disk.
	Name string `json:"name"`

	Timestamp time.Time `json:"timestamp"`

	// Host describes the machine the results were measured on.
	Host bench.Host `json:"host"`

	// Config is the measurement configuration of the run.
	Config bench.Config `json:"config"`

	Results []bench.Result `json:"results"`
}

// BaselineInfo contains baseline metadata without the results.
type BaselineInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Host       string    `json:"host"`
	Benchmarks int       `json:"benchmarks"`
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName reports whether name can be used as a baseline name.
// Names become directory names, so path separators are rejected.
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{Field: "Name", Reason: "cannot be empty"}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{Field: "Name", Reason: fmt.Sprintf("%q must match %s", name, namePattern)}
	}
	return nil
}

// NewBaseline creates a baseline from finished results. Samples are
// stripped from the copies it keeps.
func NewBaseline(name string, host bench.Host, cfg bench.Config, results []bench.Result) *Baseline {
	kept := make([]bench.Result, len(results))
	for i, r := range results {
		r.Samples = nil
		r.Change = nil
		kept[i] = r
	}
	return &Baseline{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: time.Now(),
		Host:      host,
		Config:    cfg,
		Results:   kept,
	}
}

// ToInfo converts a full Baseline to BaselineInfo.
func (b *Baseline) ToInfo() BaselineInfo {
	return BaselineInfo{
		ID:         b.ID,
		Name:       b.Name,
		Timestamp:  b.Timestamp,
		Host:       fmt.Sprintf("%s/%s %s x%d", b.Host.GOOS, b.Host.GOARCH, b.Host.SIMD, b.Host.NumCPU),
		Benchmarks: len(b.Results),
	}
}

// Estimates returns the stored estimates keyed by benchmark ID, the form
// bench.Runner.SetBaseline expects.
func (b *Baseline) Estimates() map[string]bench.Estimates {
	m := make(map[string]bench.Estimates, len(b.Results))
	for _, r := range b.Results {
		m[r.ID] = r.Estimates
	}
	return m
}

// Validate checks that the baseline is complete and usable for comparison.
func (b *Baseline) Validate() error {
	if err := ValidateName(b.Name); err != nil {
		return err
	}
	if _, err := uuid.Parse(b.ID); err != nil {
		return &ValidationError{Field: "ID", Reason: "is not a UUID"}
	}
	if b.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if len(b.Results) == 0 {
		return &ValidationError{Field: "Results", Reason: "cannot be empty"}
	}
	seen := make(map[string]bool, len(b.Results))
	for i, r := range b.Results {
		field := fmt.Sprintf("Results[%d]", i)
		if r.ID == "" {
			return &ValidationError{Field: field + ".ID", Reason: "cannot be empty"}
		}
		if seen[r.ID] {
			return &ValidationError{Field: field + ".ID", Reason: "duplicate " + r.ID}
		}
		seen[r.ID] = true
		if r.Estimates.Mean <= 0 {
			return &ValidationError{Field: field + ".Estimates.Mean", Reason: "must be positive"}
		}
	}
	return nil
}

// ValidationError represents a baseline validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether results measured on host with cfg can be
// meaningfully compared against this baseline.
func (b *Baseline) IsCompatible(host bench.Host, cfg bench.Config) error {
	if b.Host.GOOS != host.GOOS {
		return &CompatibilityError{Field: "Host.GOOS", Expected: b.Host.GOOS, Actual: host.GOOS}
	}
	if b.Host.GOARCH != host.GOARCH {
		return &CompatibilityError{Field: "Host.GOARCH", Expected: b.Host.GOARCH, Actual: host.GOARCH}
	}
	if b.Host.SIMD != host.SIMD {
		return &CompatibilityError{Field: "Host.SIMD", Expected: b.Host.SIMD, Actual: host.SIMD}
	}
	if b.Host.NumCPU != host.NumCPU {
		return &CompatibilityError{
			Field:    "Host.NumCPU",
			Expected: fmt.Sprintf("%d", b.Host.NumCPU),
			Actual:   fmt.Sprintf("%d", host.NumCPU),
		}
	}
	if b.Config.PinCPU != cfg.PinCPU {
		return &CompatibilityError{
			Field:    "Config.PinCPU",
			Expected: fmt.Sprintf("%d", b.Config.PinCPU),
			Actual:   fmt.Sprintf("%d", cfg.PinCPU),
		}
	}
	return nil
}

// CompatibilityError represents a host or configuration mismatch.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
