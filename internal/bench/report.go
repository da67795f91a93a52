package bench

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
)

// FormatDuration renders a nanosecond value with a fitting unit.
func FormatDuration(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.4f ns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.4f µs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.4f ms", ns/1e6)
	default:
		return fmt.Sprintf("%.4f s", ns/1e9)
	}
}

// FormatThroughput renders elements per second.
func FormatThroughput(perSec float64) string {
	switch {
	case perSec >= 1e9:
		return fmt.Sprintf("%.4f Gelem/s", perSec/1e9)
	case perSec >= 1e6:
		return fmt.Sprintf("%.4f Melem/s", perSec/1e6)
	case perSec >= 1e3:
		return fmt.Sprintf("%.4f Kelem/s", perSec/1e3)
	default:
		return fmt.Sprintf("%.4f elem/s", perSec)
	}
}

func formatPercent(r float64) string {
	return fmt.Sprintf("%+.4f%%", r*100)
}

// WriteResult prints the report block of one benchmark.
func WriteResult(w io.Writer, r Result, cl float64) {
	est := r.Estimates
	fmt.Fprintf(w, "%-32s time:   [%s %s %s]\n",
		r.ID, FormatDuration(est.MeanCI.Lo), FormatDuration(est.Mean), FormatDuration(est.MeanCI.Hi))

	if tp := r.Throughput(); tp > 0 {
		fmt.Fprintf(w, "%-32s thrpt:  %s\n", "", FormatThroughput(tp))
	}

	if c := r.Change; c != nil {
		fmt.Fprintf(w, "%-32s change: [%s %s %s] (%s)\n", "",
			formatPercent(c.RatioCI.Lo), formatPercent(c.Ratio), formatPercent(c.RatioCI.Hi), c.Verdict)
	}

	fmt.Fprintf(w, "%-32s median %s, std. dev. %s, MAD %s, slope %s (%.0f%% CI)\n", "",
		FormatDuration(est.Median), FormatDuration(est.StdDev), FormatDuration(est.MAD),
		FormatDuration(est.Slope), cl*100)

	n := len(r.Samples)
	if o := r.Outliers; o.Total() > 0 && n > 0 {
		pct := func(k int) float64 { return float64(k) * 100 / float64(n) }
		fmt.Fprintf(w, "Found %d outliers among %d measurements (%.2f%%)\n", o.Total(), n, pct(o.Total()))
		for _, line := range []struct {
			count int
			label string
		}{
			{o.LowSevere, "low severe"},
			{o.LowMild, "low mild"},
			{o.HighMild, "high mild"},
			{o.HighSevere, "high severe"},
		} {
			if line.count > 0 {
				fmt.Fprintf(w, "  %d (%.2f%%) %s\n", line.count, pct(line.count), line.label)
			}
		}
	}
	fmt.Fprintln(w)
}

// groupOrder returns the distinct groups of results in first-seen order.
func groupOrder(results []Result) []string {
	var groups []string
	for _, r := range results {
		if !slices.Contains(groups, r.Group) {
			groups = append(groups, r.Group)
		}
	}
	return groups
}

// fastest returns the smallest mean among results of group.
func fastest(results []Result, group string) float64 {
	best := 0.0
	for _, r := range results {
		if r.Group != group || r.Estimates.Mean <= 0 {
			continue
		}
		if best == 0 || r.Estimates.Mean < best {
			best = r.Estimates.Mean
		}
	}
	return best
}

// WriteSummary prints one comparison table per configuration group.
func WriteSummary(w io.Writer, results []Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No benchmarks were run.")
		return
	}

	fmt.Fprintln(w, "Summary")
	for _, group := range groupOrder(results) {
		if group != "" {
			fmt.Fprintf(w, "\nconfiguration %s\n", group)
		}
		best := fastest(results, group)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BENCHMARK\tMEAN\tSTD. DEV.\tTHROUGHPUT\tRELATIVE\tCHANGE")
		for _, r := range results {
			if r.Group != group {
				continue
			}
			throughput := "-"
			if tp := r.Throughput(); tp > 0 {
				throughput = FormatThroughput(tp)
			}
			relative := "-"
			if best > 0 && r.Estimates.Mean > 0 {
				relative = fmt.Sprintf("%.2fx", r.Estimates.Mean/best)
				if r.Estimates.Mean == best {
					relative += " (fastest)"
				}
			}
			change := "-"
			if r.Change != nil {
				change = fmt.Sprintf("%s (%s)", formatPercent(r.Change.Ratio), r.Change.Verdict)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Name, FormatDuration(r.Estimates.Mean), FormatDuration(r.Estimates.StdDev),
				throughput, relative, change)
		}
		tw.Flush()
	}
}
