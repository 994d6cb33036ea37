package controller

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command

	mu     sync.Mutex
	failed int
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(_ ...StartOption) error {
	s.mu.Lock()
	s.failed = 0
	s.mu.Unlock()

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {
}

// Wait returns immediately; there is nothing to dismiss.
func (s *SimpleUI) Wait() {
}

// DisplayTargets prints the targets of the listed workflows or the error.
func (s *SimpleUI) DisplayTargets(targets []TargetInfo, err error) error {
	if err != nil {
		s.printf("list error: %v\n", err)
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Workflow", "Target", "Steps", "Operator"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
	})

	workflows := make(map[m.Path]struct{})
	steps := 0

	for _, t := range targets {
		workflows[t.Workflow] = struct{}{}
		steps += t.Steps

		operator := t.Operator
		if t.Source != "" {
			operator = fmt.Sprintf("%s (from %s)", operator, t.Source)
		}

		table.Append([]string{string(t.Workflow), string(t.ID), fmt.Sprintf("%d", t.Steps), operator})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Workflows %d", len(workflows)),
		fmt.Sprintf("Targets %d", len(targets)),
		fmt.Sprintf("%d", steps),
		"",
	})

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayRunInfo prints the settings of a run.
func (s *SimpleUI) DisplayRunInfo(info RunInfo) {
	s.printf("Running %s: %s search (%s), %d calls on %d target(s) with %d worker(s), seed %d\n",
		info.Workflow, info.Strategy, info.Direction, info.Calls, len(info.Targets), info.Threads, info.Seed)
}

// DisplayProgress prints a summary once the last call finished.
func (s *SimpleUI) DisplayProgress(progress Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if progress.Err != nil {
		s.failed++
	}

	if progress.Total > 0 && progress.Completed == progress.Total {
		s.printf("Completed %d calls, %d failed\n", progress.Completed, s.failed)
	}
}

// DisplayRoundSealed prints the winner of a sealed round.
func (s *SimpleUI) DisplayRoundSealed(round m.RankedRound) {
	if len(round.Entries) == 0 {
		return
	}

	best := round.Best()
	s.printf("%s round %d: best %s score %.4g\n", round.Target, round.Number, best.Variant.Name(), best.Score)
}

// DisplayReport prints the last ranking of a report and the diff of its
// best variant against the base.
func (s *SimpleUI) DisplayReport(report m.SearchReport, diff string) error {
	s.printf("\n%s  %s  (%s, %s, %d calls, seed %d)\n",
		report.Target, report.Workflow, report.Strategy, report.Direction, report.Calls, report.Seed)

	if len(report.Rounds) == 0 {
		s.printf("no sealed rounds\n")
		return nil
	}

	last := report.Rounds[len(report.Rounds)-1]

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Rank", "Variant", "Origin", "Operator", "Score", "Runs"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for i, e := range last.Entries {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			e.Variant,
			string(e.Origin),
			e.Operator,
			fmt.Sprintf("%.4g", e.Score),
			fmt.Sprintf("%d", e.Runs),
		})
	}

	table.SetFooter([]string{"", fmt.Sprintf("Rounds %d", len(report.Rounds)), "", "Best", fmt.Sprintf("%.4g", report.BestScore), ""})
	table.Render()
	s.printf("%s", tableBuffer.String())

	if strings.TrimSpace(diff) == "" {
		s.printf("best is identical to base\n")
		return nil
	}

	s.printf("%s", diff)

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
