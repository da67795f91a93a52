package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/coeffbench/internal/bench"
	"github.com/cwbudde/coeffbench/internal/frame"
	"github.com/cwbudde/coeffbench/internal/harness"
	"github.com/cwbudde/coeffbench/internal/store"
)

var (
	dataDir         string
	warmUpTime      time.Duration
	measurementTime time.Duration
	sampleSize      int
	resamples       int
	noiseThreshold  float64
	pinCPU          int
	saveBaseline    string
	baselineName    string
)

var benchCmd = &cobra.Command{
	Use:   "bench [filter]",
	Short: "Run the add-coeffs benchmark suite",
	Long: `Runs every kernel variant over the fixed 512x384 frame (stride 512) and
prints per-benchmark estimates followed by a summary table.

The optional filter is a regular expression matched against benchmark IDs
such as "bounded-chunk_196608_512".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		return runBench(cmd.OutOrStdout(), filter)
	},
}

func init() {
	def := bench.DefaultConfig()
	benchCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for baseline storage")
	benchCmd.Flags().DurationVar(&warmUpTime, "warm-up", def.WarmUpTime, "Warm-up time per benchmark (must be positive)")
	benchCmd.Flags().DurationVar(&measurementTime, "measurement-time", def.MeasurementTime, "Target measurement time per benchmark")
	benchCmd.Flags().IntVar(&sampleSize, "sample-size", def.SampleSize, "Number of samples per benchmark (>= 10)")
	benchCmd.Flags().IntVar(&resamples, "resamples", def.Resamples, "Bootstrap resamples for confidence intervals")
	benchCmd.Flags().Float64Var(&noiseThreshold, "noise-threshold", def.NoiseThreshold, "Relative change treated as noise")
	benchCmd.Flags().IntVar(&pinCPU, "pin-cpu", def.PinCPU, "Pin the measuring thread to this CPU (-1 = no pinning)")
	benchCmd.Flags().StringVar(&saveBaseline, "save-baseline", "", "Save results as the named baseline")
	benchCmd.Flags().StringVar(&baselineName, "baseline", "", "Compare results against the named baseline")

	rootCmd.AddCommand(benchCmd)
}

// benchConfig translates the flags into a measurement configuration.
func benchConfig() bench.Config {
	cfg := bench.DefaultConfig()
	cfg.WarmUpTime = warmUpTime
	cfg.MeasurementTime = measurementTime
	cfg.SampleSize = sampleSize
	cfg.Resamples = resamples
	cfg.NoiseThreshold = noiseThreshold
	cfg.PinCPU = pinCPU
	return cfg
}

func runBench(out io.Writer, filter string) error {
	cfg := benchConfig()
	runner, err := bench.NewRunner(cfg, out)
	if err != nil {
		return err
	}
	if err := runner.SetFilter(filter); err != nil {
		return err
	}
	if saveBaseline != "" {
		if err := store.ValidateName(saveBaseline); err != nil {
			return fmt.Errorf("--save-baseline: %w", err)
		}
	}

	host := bench.DetectHost()
	slog.Info("Host detected",
		"goos", host.GOOS,
		"goarch", host.GOARCH,
		"cpus", host.NumCPU,
		"simd", host.SIMD,
	)

	var fs *store.FSStore
	if baselineName != "" || saveBaseline != "" {
		fs, err = store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create baseline store: %w", err)
		}
	}

	if baselineName != "" {
		if err := loadBaseline(runner, fs, baselineName, host, cfg); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := harness.Run(runner, nil, frame.DefaultSeed); err != nil {
		return err
	}
	results := runner.Results()
	slog.Info("Benchmarks finished", "count", len(results), "elapsed", time.Since(start))

	runner.FinalSummary(out)

	if saveBaseline != "" {
		if len(results) == 0 {
			slog.Warn("No benchmark matched the filter, baseline not saved", "name", saveBaseline)
			return nil
		}
		b, err := store.SaveRun(fs, saveBaseline, host, cfg, results)
		if err != nil {
			return fmt.Errorf("failed to save baseline: %w", err)
		}
		fmt.Fprintf(out, "\nSaved baseline %q (%s)\n", b.Name, b.ID)
	}
	return nil
}

// loadBaseline installs the named baseline on the runner. A baseline from
// a different machine class is still used, with a warning.
func loadBaseline(runner *bench.Runner, fs store.Store, name string, host bench.Host, cfg bench.Config) error {
	b, err := fs.LoadBaseline(name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("baseline %q does not exist (save one with --save-baseline): %w", name, err)
	} else if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("baseline %q is unusable: %w", name, err)
	}

	var cerr *store.CompatibilityError
	if err := b.IsCompatible(host, cfg); errors.As(err, &cerr) {
		slog.Warn("Baseline was recorded on a different setup, changes may not be meaningful",
			"baseline", name,
			"field", cerr.Field,
			"expected", cerr.Expected,
			"actual", cerr.Actual,
		)
	}

	runner.SetBaseline(b.Estimates())
	slog.Info("Comparing against baseline",
		"name", b.Name,
		"id", b.ID,
		"recorded", b.Timestamp.Format(time.RFC3339),
		"benchmarks", len(b.Results),
	)
	return nil
}
