// Package cmd provides the root command and CLI setup for goevolve.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mouse-blink/goevolve/internal/adapter"
	"github.com/mouse-blink/goevolve/internal/controller"
	"github.com/mouse-blink/goevolve/internal/domain"
	m "github.com/mouse-blink/goevolve/internal/model"
)

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.FSAdapter
var workflowStore adapter.WorkflowStore
var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI
var logger *slog.Logger
var logLevel = new(slog.LevelVar)
var registry = prometheus.NewRegistry()

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalFSAdapter()
	workflowStore = adapter.NewWorkflowStore(fsAdapter, goFileAdapter)
	reportStore = adapter.NewReportStore(fsAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		workflowStore,
		reportStore,
		ui,
		domain.WithLogger(logger),
		domain.WithRegistry(registry),
	)
}

var verboseFlag bool
var reportsOutputDirFlag string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goevolve",
		Short: "Evolve instrumented workflows at run time",
		Long: `Goevolve searches for better variants of instrumented workflow targets
while they run. Every call of a target is served by a variant chosen by the
search; outcomes are scored, ranked in rounds and the best variant becomes
the base of the next round.

Workflows are YAML documents. Paths follow the Go convention:
  - ./...              recursively scan the current directory
  - ./flows/...        recursively scan flows
  - hill.yaml          a single document`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verboseFlag {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log debug details to stderr")
	cmd.PersistentFlags().StringVarP(&reportsOutputDirFlag, "reports", "o", string(domain.DefaultReportsDir), "directory search reports are written to and read from")

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// parsePaths turns positional arguments into workflow roots. No arguments
// scans the working directory recursively.
func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{"./..."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

func parseTargets(names []string) []m.TargetID {
	targets := make([]m.TargetID, 0, len(names))
	for _, name := range names {
		targets = append(targets, m.TargetID(name))
	}

	return targets
}
