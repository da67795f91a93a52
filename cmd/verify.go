package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/coeffbench/internal/frame"
	"github.com/cwbudde/coeffbench/internal/harness"
	"github.com/cwbudde/coeffbench/internal/kernel"
	"github.com/cwbudde/coeffbench/internal/opt"
	"github.com/cwbudde/coeffbench/internal/verify"
)

var (
	searchIters int
	searchPop   int
	searchSeed  int64
	variants    []string
)

var errVerifyFailed = errors.New("kernel verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that all kernel variants agree",
	Long: `Runs every kernel variant over the benchmark frame and compares the
results byte for byte, then searches the full pixel and signed 16-bit
coefficient space with the Mayfly optimizer for blocks that saturate or
make the variants disagree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd.OutOrStdout())
	},
}

func init() {
	verifyCmd.Flags().IntVar(&searchIters, "iters", 200, "Optimizer iterations for the saturation search (0 = skip)")
	verifyCmd.Flags().IntVar(&searchPop, "pop", 20, "Optimizer population size")
	verifyCmd.Flags().Int64Var(&searchSeed, "seed", 42, "Optimizer random seed")
	verifyCmd.Flags().StringSliceVar(&variants, "variants", nil, "Kernel variants to check (default: all)")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(out io.Writer) error {
	ks, err := kernel.Select(variants)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := verify.CheckFrame(ks, harness.Samples, harness.Stride, frame.DefaultSeed)
	if err != nil {
		return err
	}
	slog.Info("Frame check finished", "tiles", report.Tiles, "elapsed", time.Since(start))

	fmt.Fprintf(out, "Frame %d samples, stride %d, %d tiles\n", report.Samples, report.Stride, report.Tiles)
	for _, name := range report.Variants {
		fmt.Fprintf(out, "  %-16s checksum %016x\n", name, report.Checksums[name])
	}
	failed := !report.OK()
	for _, m := range report.Mismatches {
		fmt.Fprintf(out, "  MISMATCH: %s\n", m)
	}

	if searchIters > 0 {
		if searchPop <= 0 {
			return fmt.Errorf("--pop must be positive, got %d", searchPop)
		}
		f, err := verify.SearchSaturation(opt.NewMayfly(searchIters, searchPop, searchSeed), ks)
		if err != nil {
			return err
		}
		writeFinding(out, f)
		failed = failed || !f.Outcome.Clean()
	}

	if failed {
		return errVerifyFailed
	}
	fmt.Fprintln(out, "\nAll variants agree.")
	return nil
}

func writeFinding(out io.Writer, f *verify.Finding) {
	o := f.Outcome
	fmt.Fprintf(out, "\nSaturation search: %d evaluations\n", f.Evaluations)
	fmt.Fprintf(out, "  pixels  %v\n", f.Pixels)
	fmt.Fprintf(out, "  coeffs  %v\n", f.Coeffs)
	fmt.Fprintf(out, "  result  %v\n", o.Want)
	fmt.Fprintf(out, "  saturated lanes %d/%d, disagreements %d, guard violations %d\n",
		o.Saturated, kernel.NumCoeffs, o.Disagreements, o.GuardViolations)
	for _, msg := range o.Failures {
		fmt.Fprintf(out, "  FAILURE: %s\n", msg)
	}
}
