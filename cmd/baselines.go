package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/coeffbench/internal/bench"
	"github.com/cwbudde/coeffbench/internal/store"
)

var (
	baselinesDataDir string
	keepLast         int
	olderThanDays    int
	forceClean       bool
)

var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "Manage saved benchmark baselines",
	Long: `Manage saved benchmark baselines. Baselines are written by
"bench --save-baseline NAME" and compared against with "bench --baseline NAME".`,
}

var listBaselinesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListBaselines(cmd.OutOrStdout())
	},
}

var showBaselinesCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a saved baseline",
	Long: `Show a saved baseline. Estimates are recomputed from the raw samples
stored next to the baseline, so the report reflects the current analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShowBaseline(cmd.OutOrStdout(), args[0])
	},
}

var cleanBaselinesCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old baselines",
	Long: `Delete baselines based on a retention policy: keep only the newest N
baselines, delete baselines older than N days, or both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanBaselines(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var deleteBaselinesCmd = &cobra.Command{
	Use:   "delete NAME...",
	Short: "Delete the named baselines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeleteBaselines(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(baselinesCmd)
	baselinesCmd.AddCommand(listBaselinesCmd)
	baselinesCmd.AddCommand(showBaselinesCmd)
	baselinesCmd.AddCommand(cleanBaselinesCmd)
	baselinesCmd.AddCommand(deleteBaselinesCmd)

	baselinesCmd.PersistentFlags().StringVar(&baselinesDataDir, "data-dir", "./data", "Base directory for baseline storage")

	cleanBaselinesCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N baselines (0 = keep all)")
	cleanBaselinesCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete baselines older than N days (0 = no age limit)")
	cleanBaselinesCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListBaselines(out io.Writer) error {
	fs, err := store.NewFSStore(baselinesDataDir)
	if err != nil {
		return fmt.Errorf("failed to create baseline store: %w", err)
	}

	infos, err := fs.ListBaselines()
	if err != nil {
		return fmt.Errorf("failed to list baselines: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No baselines found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tTIMESTAMP\tHOST\tBENCHMARKS\tSIZE")
	fmt.Fprintln(w, "----\t--\t---------\t----\t----------\t----")
	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := getDirSize(filepath.Join(baselinesDataDir, "baselines", info.Name)); err == nil {
			sizeStr = formatBytes(size)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			info.Name,
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Host,
			info.Benchmarks,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal baselines: %d\n", len(infos))
	return nil
}

func runShowBaseline(out io.Writer, name string) error {
	fs, err := store.NewFSStore(baselinesDataDir)
	if err != nil {
		return fmt.Errorf("failed to create baseline store: %w", err)
	}
	b, err := fs.LoadBaseline(name)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	samples := map[string][]bench.Sample{}
	r, err := fs.OpenSamples(name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		slog.Warn("Baseline has no sample trace", "name", name)
	case err != nil:
		return fmt.Errorf("failed to open samples: %w", err)
	default:
		samples, err = r.ReadAll()
		r.Close()
		if err != nil {
			return fmt.Errorf("failed to read samples: %w", err)
		}
	}

	fmt.Fprintf(out, "Baseline %s (%s)\n", b.Name, b.ID)
	fmt.Fprintf(out, "Saved:    %s\n", b.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Host:     %s\n\n", b.ToInfo().Host)

	results := make([]bench.Result, 0, len(b.Results))
	for _, res := range b.Results {
		raw, ok := samples[res.ID]
		if !ok {
			fmt.Fprintf(out, "%-32s no raw samples, showing stored estimates\n", res.ID)
		} else {
			res.Samples = raw
			res.Estimates, res.Outliers = bench.Reanalyze(res.ID, raw, b.Config)
		}
		res.Change = nil
		bench.WriteResult(out, res, b.Config.ConfidenceLevel)
		results = append(results, res)
	}
	bench.WriteSummary(out, results)
	return nil
}

func runCleanBaselines(in io.Reader, out io.Writer) error {
	if keepLast <= 0 && olderThanDays <= 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	fs, err := store.NewFSStore(baselinesDataDir)
	if err != nil {
		return fmt.Errorf("failed to create baseline store: %w", err)
	}
	infos, err := fs.ListBaselines()
	if err != nil {
		return fmt.Errorf("failed to list baselines: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No baselines to clean.")
		return nil
	}

	toDelete := selectBaselinesForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No baselines match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d baseline(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", info.Name, shortID(info.ID), info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean && !confirm(in, out, "\nProceed with deletion? [y/N]: ") {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	names := make([]string, len(toDelete))
	for i, info := range toDelete {
		names[i] = info.Name
	}
	deleted, failed := deleteBaselines(fs, names)
	fmt.Fprintf(out, "\nDeleted %d baseline(s), %d failed.\n", deleted, failed)
	return nil
}

func runDeleteBaselines(out io.Writer, names []string) error {
	fs, err := store.NewFSStore(baselinesDataDir)
	if err != nil {
		return fmt.Errorf("failed to create baseline store: %w", err)
	}

	deleted, failed := deleteBaselines(fs, names)
	fmt.Fprintf(out, "Deleted %d baseline(s), %d failed.\n", deleted, failed)
	if failed > 0 {
		return fmt.Errorf("%d baseline(s) could not be deleted", failed)
	}
	return nil
}

func deleteBaselines(s store.Store, names []string) (deleted, failed int) {
	for _, name := range names {
		err := s.DeleteBaseline(name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			slog.Warn("Baseline does not exist", "name", name)
			failed++
		case err != nil:
			slog.Error("Failed to delete baseline", "name", name, "error", err)
			failed++
		default:
			slog.Info("Deleted baseline", "name", name)
			deleted++
		}
	}
	return deleted, failed
}

// selectBaselinesForDeletion applies the retention policy. Baselines older
// than olderThanDays are selected, then everything beyond the newest
// keepLast. The result is ordered oldest first without duplicates.
func selectBaselinesForDeletion(infos []store.BaselineInfo, keepLast, olderThanDays int, now time.Time) []store.BaselineInfo {
	sorted := make([]store.BaselineInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.BaselineInfo
	for i, info := range sorted {
		if i < excess || (olderThanDays > 0 && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.TrimSpace(line) {
	case "y", "Y", "yes":
		return true
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
