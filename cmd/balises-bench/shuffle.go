package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/elbywan/balises-sub000/pkg/keyed"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

type shuffleConfig struct {
	Items      int    `json:"items"`
	Updates    int    `json:"updates"`
	Mode       string `json:"mode"`
	Seed       int64  `json:"seed"`
	JSONOutput string `json:"-"`
}

type shuffleReport struct {
	Version   string        `json:"version"`
	Run       runInfo       `json:"run"`
	Workload  shuffleConfig `json:"workload"`
	LatencyUS latencyInfo   `json:"latency_us"`
	Totals    keyed.Stats   `json:"totals"`
	UpdatesPS float64       `json:"updates_per_sec"`
}

func shuffleCmd() *cobra.Command {
	cfg := shuffleConfig{
		Items:      1000,
		Updates:    1000,
		Mode:       "shuffle",
		Seed:       1,
		JSONOutput: "-",
	}

	cmd := &cobra.Command{
		Use:   "shuffle",
		Short: "Benchmark keyed list reconciliation under permutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Items <= 0 {
				return errors.New("--items must be > 0")
			}
			if cfg.Updates <= 0 {
				return errors.New("--updates must be > 0")
			}
			switch cfg.Mode {
			case "shuffle", "reverse", "rotate":
			default:
				return fmt.Errorf("unknown mode %q (shuffle|reverse|rotate)", cfg.Mode)
			}

			report := runShuffleBench(cfg)
			writeShuffleSummary(os.Stderr, report)
			return writeJSON(cfg.JSONOutput, report)
		},
	}

	cmd.Flags().IntVar(&cfg.Items, "items", cfg.Items, "list length")
	cmd.Flags().IntVar(&cfg.Updates, "updates", cfg.Updates, "number of reconciliation passes")
	cmd.Flags().StringVar(&cfg.Mode, "mode", cfg.Mode, "permutation mode: shuffle|reverse|rotate")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for shuffle mode")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", cfg.JSONOutput, "JSON output path ('-' for stdout)")

	return cmd
}

func runShuffleBench(cfg shuffleConfig) shuffleReport {
	rng := rand.New(rand.NewSource(cfg.Seed))

	items := make([]int, cfg.Items)
	for i := range items {
		items[i] = i
	}

	scope := reactive.NewScope(nil)
	defer scope.Dispose()

	var report shuffleReport
	reactive.WithScope(scope, func() {
		source := reactive.NewCell(append([]int(nil), items...))

		list := keyed.Each(
			keyed.FromCell(source),
			func(item, index int) any { return item },
			func(item int) string {
				return fmt.Sprintf("row-%d", item)
			},
		)
		defer list.Dispose()

		var totals keyed.Stats
		samples := make([]time.Duration, 0, cfg.Updates)

		start := time.Now()
		for n := 0; n < cfg.Updates; n++ {
			next := permute(cfg.Mode, items, rng)

			updateStart := time.Now()
			source.Set(next)
			samples = append(samples, time.Since(updateStart))

			st := list.LastStats()
			totals.Created += st.Created
			totals.Reused += st.Reused
			totals.Moved += st.Moved
			totals.Disposed += st.Disposed
			totals.Duplicates += st.Duplicates

			items = next
		}
		elapsed := time.Since(start)

		report = shuffleReport{
			Version:   "1",
			Run:       currentRunInfo(),
			Workload:  cfg,
			LatencyUS: latencySummary(samples),
			Totals:    totals,
			UpdatesPS: float64(cfg.Updates) / elapsed.Seconds(),
		}
	})

	return report
}

func permute(mode string, items []int, rng *rand.Rand) []int {
	next := append([]int(nil), items...)
	switch mode {
	case "shuffle":
		rng.Shuffle(len(next), func(i, j int) {
			next[i], next[j] = next[j], next[i]
		})
	case "reverse":
		for i, j := 0, len(next)-1; i < j; i, j = i+1, j-1 {
			next[i], next[j] = next[j], next[i]
		}
	case "rotate":
		if len(next) > 1 {
			first := next[0]
			copy(next, next[1:])
			next[len(next)-1] = first
		}
	}
	return next
}

func writeShuffleSummary(w io.Writer, report shuffleReport) {
	fmt.Fprintln(w, "=== Shuffle Benchmark ===")
	fmt.Fprintf(w, "Items: %d, updates: %d, mode: %s\n", report.Workload.Items, report.Workload.Updates, report.Workload.Mode)
	fmt.Fprintf(w, "Throughput: %.0f updates/s\n", report.UpdatesPS)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Update latency:")
	fmt.Fprintf(w, "  min: %.2f us\n", report.LatencyUS.Min)
	fmt.Fprintf(w, "  p50: %.2f us\n", report.LatencyUS.P50)
	fmt.Fprintf(w, "  p95: %.2f us\n", report.LatencyUS.P95)
	fmt.Fprintf(w, "  p99: %.2f us\n", report.LatencyUS.P99)
	fmt.Fprintf(w, "  max: %.2f us\n", report.LatencyUS.Max)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Reconciler totals:")
	fmt.Fprintf(w, "  created:  %d\n", report.Totals.Created)
	fmt.Fprintf(w, "  reused:   %d\n", report.Totals.Reused)
	fmt.Fprintf(w, "  moved:    %d\n", report.Totals.Moved)
	fmt.Fprintf(w, "  disposed: %d\n", report.Totals.Disposed)
}
