package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/elbywan/balises-sub000/pkg/reactive"
)

type graphConfig struct {
	Writes     int    `json:"writes"`
	ChainDepth int    `json:"chain_depth"`
	FanOut     int    `json:"fan_out"`
	BatchSize  int    `json:"batch_size"`
	JSONOutput string `json:"-"`
}

type graphReport struct {
	Version   string       `json:"version"`
	Run       runInfo      `json:"run"`
	Workload  graphConfig  `json:"workload"`
	LatencyUS latencyInfo  `json:"latency_us"`
	Engine    engineDeltas `json:"engine"`
	WritesPS  float64      `json:"writes_per_sec"`
}

type engineDeltas struct {
	CellWrites        uint64 `json:"cell_writes"`
	DerivedRecomputes uint64 `json:"derived_recomputes"`
	ReactionRuns      uint64 `json:"reaction_runs"`
	BatchFlushes      uint64 `json:"batch_flushes"`
}

func graphCmd() *cobra.Command {
	cfg := graphConfig{
		Writes:     100000,
		ChainDepth: 8,
		FanOut:     4,
		BatchSize:  1,
		JSONOutput: "-",
	}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Micro-benchmark writes through a derived chain with reaction fan-out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Writes <= 0 {
				return errors.New("--writes must be > 0")
			}
			if cfg.ChainDepth < 0 {
				return errors.New("--chain must be >= 0")
			}
			if cfg.FanOut < 0 {
				return errors.New("--fanout must be >= 0")
			}
			if cfg.BatchSize <= 0 {
				return errors.New("--batch must be > 0")
			}

			report := runGraphBench(cfg)
			writeGraphSummary(os.Stderr, report)
			return writeJSON(cfg.JSONOutput, report)
		},
	}

	cmd.Flags().IntVar(&cfg.Writes, "writes", cfg.Writes, "number of cell writes to perform")
	cmd.Flags().IntVar(&cfg.ChainDepth, "chain", cfg.ChainDepth, "derived chain depth between the cell and its reactions")
	cmd.Flags().IntVar(&cfg.FanOut, "fanout", cfg.FanOut, "number of reactions observing the chain tail")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "writes grouped per batch")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", cfg.JSONOutput, "JSON output path ('-' for stdout)")

	return cmd
}

func runGraphBench(cfg graphConfig) graphReport {
	scope := reactive.NewScope(nil)
	defer scope.Dispose()

	var report graphReport
	reactive.WithScope(scope, func() {
		source := reactive.NewCell(0)

		read := source.Get
		for i := 0; i < cfg.ChainDepth; i++ {
			prev := read
			d := reactive.NewDerived(func() int { return prev() + 1 })
			read = d.Get
		}

		sink := 0
		for i := 0; i < cfg.FanOut; i++ {
			reactive.NewReaction(func() reactive.Cleanup {
				sink = read()
				return nil
			})
		}

		before := reactive.Stats()
		samples := make([]time.Duration, 0, cfg.Writes/cfg.BatchSize+1)

		start := time.Now()
		for n := 0; n < cfg.Writes; {
			writeStart := time.Now()
			remaining := cfg.Writes - n
			step := cfg.BatchSize
			if step > remaining {
				step = remaining
			}
			reactive.Batch(func() {
				for i := 0; i < step; i++ {
					source.Set(n + i + 1)
				}
			})
			n += step
			samples = append(samples, time.Since(writeStart))
		}
		elapsed := time.Since(start)
		after := reactive.Stats()
		_ = sink

		report = graphReport{
			Version:   "1",
			Run:       currentRunInfo(),
			Workload:  cfg,
			LatencyUS: latencySummary(samples),
			Engine: engineDeltas{
				CellWrites:        after.CellWrites - before.CellWrites,
				DerivedRecomputes: after.DerivedRecomputes - before.DerivedRecomputes,
				ReactionRuns:      after.ReactionRuns - before.ReactionRuns,
				BatchFlushes:      after.BatchFlushes - before.BatchFlushes,
			},
			WritesPS: float64(cfg.Writes) / elapsed.Seconds(),
		}
	})

	return report
}

func writeGraphSummary(w io.Writer, report graphReport) {
	fmt.Fprintln(w, "=== Graph Benchmark ===")
	fmt.Fprintf(w, "Writes: %d (batch %d)\n", report.Workload.Writes, report.Workload.BatchSize)
	fmt.Fprintf(w, "Chain depth: %d, fan-out: %d\n", report.Workload.ChainDepth, report.Workload.FanOut)
	fmt.Fprintf(w, "Throughput: %.0f writes/s\n", report.WritesPS)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Batch latency:")
	fmt.Fprintf(w, "  min: %.2f us\n", report.LatencyUS.Min)
	fmt.Fprintf(w, "  p50: %.2f us\n", report.LatencyUS.P50)
	fmt.Fprintf(w, "  p95: %.2f us\n", report.LatencyUS.P95)
	fmt.Fprintf(w, "  p99: %.2f us\n", report.LatencyUS.P99)
	fmt.Fprintf(w, "  max: %.2f us\n", report.LatencyUS.Max)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Engine counters:")
	fmt.Fprintf(w, "  cell writes:        %d\n", report.Engine.CellWrites)
	fmt.Fprintf(w, "  derived recomputes: %d\n", report.Engine.DerivedRecomputes)
	fmt.Fprintf(w, "  reaction runs:      %d\n", report.Engine.ReactionRuns)
	fmt.Fprintf(w, "  batch flushes:      %d\n", report.Engine.BatchFlushes)
}
