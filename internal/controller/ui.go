// Package controller provides output adapters for displaying search runs.
package controller

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModeRun
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithListMode sets the UI to target listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithRunMode sets the UI to search execution mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// TargetInfo describes one target of a workflow document for listings.
type TargetInfo struct {
	Workflow m.Path
	ID       m.TargetID
	Steps    int
	Operator string
	// Source is "file.go:Func" for targets imported from Go code.
	Source string
}

// RunInfo describes a search run before the first call.
type RunInfo struct {
	Workflow  m.Path
	Strategy  string
	Direction m.Direction
	Targets   []m.TargetID
	Calls     int
	Threads   int
	Seed      int64
}

// Progress reports one finished call. Err is the error of the variant body.
type Progress struct {
	Thread    int
	Target    m.TargetID
	Completed int
	Total     int
	Err       error
}

// UI defines the interface for displaying workflows, runs and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(options ...StartOption) error
	Close()
	Wait() // Wait for UI to finish (user closes it)
	DisplayTargets(targets []TargetInfo, err error) error
	DisplayRunInfo(info RunInfo)
	DisplayProgress(progress Progress)
	DisplayRoundSealed(round m.RankedRound)
	DisplayReport(report m.SearchReport, diff string) error
}

// NewUI picks the interactive TUI for terminals and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
