// Command treegen writes a synthetic evidence tree for scan testing and
// benchmarking.
//
// Examples:
//
//	go run ./cmd/treegen --out .data/flat_100k --files 100000
//	go run ./cmd/treegen --out .data/apps --files 200000 --layout apps
//	go run ./cmd/treegen --out .data/fanout --files 2000000 --layout fanout --depth 3 --fanout 60
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinalkan/triagescan/internal/treegen"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		opts   treegen.Options
		layout string
	)

	cmd := &cobra.Command{
		Use:          "treegen",
		Short:        "Generate a synthetic evidence tree",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := treegen.ParseLayout(layout)
			if err != nil {
				return err
			}

			opts.Layout = l

			start := time.Now()

			stats, err := treegen.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			elapsed := time.Since(start)
			fmt.Fprintf(cmd.ErrOrStderr(), "done: files=%d qualifying=%d elapsed=%v throughput=%.0f files/sec\n",
				stats.Files, stats.Qualifying, elapsed, float64(stats.Files)/elapsed.Seconds())

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Out, "out", "", "output directory (required)")
	f.Uint64Var(&opts.Files, "files", 10000, "number of files")
	f.IntVar(&opts.Workers, "workers", runtime.NumCPU(), "parallel writers")
	f.StringVar(&layout, "layout", "flat", "layout: flat, apps, fanout")
	f.IntVar(&opts.Depth, "depth", 3, "nesting depth (fanout)")
	f.IntVar(&opts.Fanout, "fanout", 10, "directories per level (fanout)")
	f.IntVar(&opts.MaxBody, "max-body", 4096, "maximum file size in bytes")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
