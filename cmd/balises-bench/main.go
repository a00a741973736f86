package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "balises-bench",
		Short: "Benchmark and inspection tool for the balises reactive engine",
		Long: `balises-bench exercises the reactive graph and the keyed
reconciler under configurable workloads and reports latency,
throughput, and reuse statistics.

Commands:

  graph    micro-benchmark cell writes through derived chains and reactions
  shuffle  benchmark keyed list reconciliation under permutations
  serve    expose Prometheus metrics and a live sample stream over HTTP
  version  print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		graphCmd(),
		shuffleCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
