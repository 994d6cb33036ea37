package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mouse-blink/goevolve/internal/domain"
	m "github.com/mouse-blink/goevolve/internal/model"
)

const runLongDescription = `Run the targets of workflow documents under search. Each target is called
--calls times, round robin, from --parallel concurrent callers. Flags
override the search section of the documents; a report per target is saved
to the reports directory.

Strategies:
  fuzz          every call runs a fresh mutation of the reference steps
  incremental   the best variant of each round is mutated into the next
  genetic       rounds mix mutations with crossovers of ranked parents`

var runTargetFlags []string
var runCallsFlag int
var runParallelFlag int
var runStrategyFlag string
var runVariantsFlag int
var runIterationsFlag int
var runDirectionFlag string
var runSeedFlag int64
var runMetricsAddrFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Search for better variants of workflow targets",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs := domain.RunArgs{
				Paths:                parsePaths(args),
				Targets:              parseTargets(runTargetFlags),
				Calls:                runCallsFlag,
				Threads:              runParallelFlag,
				Strategy:             runStrategyFlag,
				VariantsPerRound:     runVariantsFlag,
				IterationsPerVariant: runIterationsFlag,
				Direction:            m.Direction(runDirectionFlag),
				Reports:              m.Path(reportsOutputDirFlag),
			}
			if cmd.Flags().Changed("seed") {
				seed := runSeedFlag
				runArgs.Seed = &seed
			}

			if runMetricsAddrFlag != "" {
				stop := serveMetrics(runMetricsAddrFlag, registry)
				defer stop()
			}

			return workflow.Run(cmd.Context(), runArgs)
		},
	}
	cmd.Flags().StringArrayVarP(&runTargetFlags, "target", "t", nil, "only search this target (can be repeated)")
	cmd.Flags().IntVarP(&runCallsFlag, "calls", "n", 0, "calls per target (default from the workflow, else 100)")
	cmd.Flags().IntVarP(&runParallelFlag, "parallel", "p", 1, "number of concurrent callers")
	cmd.Flags().StringVarP(&runStrategyFlag, "strategy", "s", "", "search strategy: fuzz, incremental or genetic")
	cmd.Flags().IntVar(&runVariantsFlag, "variants", 0, "variants per round")
	cmd.Flags().IntVar(&runIterationsFlag, "iterations", 0, "runs of each variant per round")
	cmd.Flags().StringVarP(&runDirectionFlag, "direction", "d", "", "optimisation direction: max or min")
	cmd.Flags().Int64Var(&runSeedFlag, "seed", 0, "random seed (default from the workflow, else the clock)")
	cmd.Flags().StringVar(&runMetricsAddrFlag, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return cmd
}

// serveMetrics exposes gatherer on addr under /metrics until the returned
// function is called.
func serveMetrics(addr string, gatherer prometheus.Gatherer) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
