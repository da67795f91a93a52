package bench

import (
	"fmt"
	"time"
)

// Config controls how every benchmark in a run is measured.
type Config struct {
	// WarmUpTime is spent running the routine before any sample is taken.
	// The warm-up also estimates the iteration time, so it must be positive.
	WarmUpTime time.Duration `json:"warmUpTime"`

	// MeasurementTime is the approximate time spent collecting samples.
	MeasurementTime time.Duration `json:"measurementTime"`

	// SampleSize is the number of samples per benchmark (at least 10).
	SampleSize int `json:"sampleSize"`

	// Resamples is the number of bootstrap resamples for the confidence interval.
	Resamples int `json:"resamples"`

	// ConfidenceLevel of the reported intervals, in (0, 1).
	ConfidenceLevel float64 `json:"confidenceLevel"`

	// NoiseThreshold is the relative change below which a difference to the
	// baseline is reported as noise.
	NoiseThreshold float64 `json:"noiseThreshold"`

	// PinCPU pins the measuring thread to this CPU (-1 = no pinning).
	PinCPU int `json:"pinCpu"`
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		WarmUpTime:      3 * time.Second,
		MeasurementTime: 5 * time.Second,
		SampleSize:      100,
		Resamples:       10000,
		ConfidenceLevel: 0.95,
		NoiseThreshold:  0.01,
		PinCPU:          -1,
	}
}

// MinSampleSize is the smallest accepted SampleSize.
const MinSampleSize = 10

// ConfigError describes an invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid benchmark config: " + e.Field + " " + e.Reason
}

// Validate checks that all fields are usable.
func (c Config) Validate() error {
	if c.WarmUpTime <= 0 {
		return &ConfigError{Field: "WarmUpTime", Reason: "must be positive"}
	}
	if c.MeasurementTime <= 0 {
		return &ConfigError{Field: "MeasurementTime", Reason: "must be positive"}
	}
	if c.SampleSize < MinSampleSize {
		return &ConfigError{Field: "SampleSize", Reason: fmt.Sprintf("must be at least %d", MinSampleSize)}
	}
	if c.Resamples <= 0 {
		return &ConfigError{Field: "Resamples", Reason: "must be positive"}
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return &ConfigError{Field: "ConfidenceLevel", Reason: "must be in (0, 1)"}
	}
	if c.NoiseThreshold < 0 {
		return &ConfigError{Field: "NoiseThreshold", Reason: "cannot be negative"}
	}
	if c.PinCPU < -1 {
		return &ConfigError{Field: "PinCPU", Reason: "must be -1 or a CPU index"}
	}
	return nil
}
