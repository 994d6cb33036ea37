package controller

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TestListModelIntegration tests the full lifecycle of listModel with Bubble Tea
func TestListModelIntegration(t *testing.T) {
	model := newListModel()

	cmd := model.Init()
	if cmd == nil {
		t.Fatalf("Init() returned nil")
	}

	if _, ok := cmd().(tickMsg); !ok {
		t.Fatalf("Init() cmd did not return tickMsg")
	}

	if view := model.View(); !strings.Contains(view, "Loading") {
		t.Fatalf("View before targets = %q", view)
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	model = updated.(listModel)

	updated, _ = model.Update(targetsMsg{targets: []TargetInfo{
		{Workflow: "b.yaml", ID: "b.run", Steps: 2, Operator: "identity"},
		{Workflow: "a.yaml", ID: "a.walk", Steps: 5, Operator: "shuffle_steps"},
		{Workflow: "a.yaml", ID: "a.jump", Steps: 1, Operator: "recurse", Source: "main.go:jump"},
	}})
	model = updated.(listModel)

	if model.total != 3 || model.workflows != 2 || model.steps != 8 {
		t.Fatalf("totals = %d/%d/%d, want 3/2/8", model.total, model.workflows, model.steps)
	}

	first, ok := model.targetList.Items()[0].(targetItem)
	if !ok || first.info.ID != "a.jump" {
		t.Fatalf("first item = %#v, want a.jump", model.targetList.Items()[0])
	}

	view := model.View()
	if !strings.Contains(view, "goevolve targets") {
		t.Fatalf("View missing title")
	}

	if !strings.Contains(view, "a.walk") {
		t.Fatalf("View missing target\n%s", view)
	}

	updated, cmd = model.Update(tickMsg(time.Now()))
	model = updated.(listModel)

	if cmd == nil {
		t.Fatalf("Update tick did not return cmd")
	}

	if model.animOffset != 1 {
		t.Fatalf("animOffset = %d, want 1", model.animOffset)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model = updated.(listModel)

	if model.lastSelected != 1 || model.animOffset != 0 {
		t.Fatalf("selection = %d offset = %d, want 1 and 0", model.lastSelected, model.animOffset)
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("Quit key did not return tea.Quit")
	}
}

// TestRunModelIntegration tests the full lifecycle of runModel
func TestRunModelIntegration(t *testing.T) {
	model := newRunModel()

	cmd := model.Init()
	if cmd == nil {
		t.Fatalf("Init() returned nil")
	}

	if _, ok := cmd().(tickMsg); !ok {
		t.Fatalf("Init() cmd did not return tickMsg")
	}

	if view := model.View(); !strings.Contains(view, "Initializing") {
		t.Fatalf("View before render should show initializing")
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model = updated.(runModel)

	updated, _ = model.Update(runInfoMsg{info: RunInfo{Strategy: "genetic", Calls: 4, Threads: 2, Seed: 5}})
	model = updated.(runModel)

	updated, _ = model.Update(progressMsg{progress: Progress{Thread: 1, Target: "maze.move", Completed: 1, Total: 4}})
	model = updated.(runModel)

	updated, _ = model.Update(progressMsg{progress: Progress{Thread: 0, Target: "maze.turn", Completed: 2, Total: 4, Err: errors.New("raised")}})
	model = updated.(runModel)

	updated, _ = model.Update(roundSealedMsg{round: sampleRound()})
	model = updated.(runModel)

	if model.completed != 2 || model.failed != 1 || model.percent != 0.5 {
		t.Fatalf("progress = %d/%d %.2f, want 2/1 0.50", model.completed, model.failed, model.percent)
	}

	view := model.View()
	for _, want := range []string{"genetic search", "maze.move", "maze.turn", "round 3", "mutation by shuffle_steps"} {
		if !strings.Contains(view, want) {
			t.Fatalf("progress view missing %q\n%s", want, view)
		}
	}

	// keys other than quit are ignored while running
	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(runModel)

	if cmd != nil || model.showDiff {
		t.Fatalf("enter while running changed state")
	}

	updated, _ = model.Update(reportMsg{report: sampleReport(), diff: "--- base\n+++ best\n-x = 1\n+x = 2"})
	model = updated.(runModel)

	updated, _ = model.Update(reportMsg{report: sampleReport()})
	model = updated.(runModel)

	if !model.finished || len(model.resultsList.Items()) != 2 {
		t.Fatalf("finished = %v items = %d, want true and 2", model.finished, len(model.resultsList.Items()))
	}

	view = model.View()
	if !strings.Contains(view, "goevolve results") || !strings.Contains(view, "Changed:") {
		t.Fatalf("results view missing summary\n%s", view)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(runModel)

	if !model.showDiff || !strings.Contains(model.View(), "+x = 2") {
		t.Fatalf("enter did not open the diff")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model = updated.(runModel)

	if model.showDiff {
		t.Fatalf("moving the selection should close the diff")
	}

	// the second report has no diff
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	model = updated.(runModel)

	if model.showDiff {
		t.Fatalf("empty diff should not open")
	}

	updated, cmd = model.Update(tickMsg(time.Now()))
	model = updated.(runModel)

	if cmd == nil || model.animOffset == 0 {
		t.Fatalf("tick did not animate results")
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("Ctrl+C did not return tea.Quit")
	}
}

func TestRunModel_RunInfoResetsProgress(t *testing.T) {
	model := newRunModel()
	model.completed = 3
	model.failed = 2
	model.finished = true
	model.threadTargets[0] = "old"

	model = model.handleRunInfo(runInfoMsg{info: RunInfo{Calls: 10}})

	if model.completed != 0 || model.failed != 0 || model.finished || model.total != 10 {
		t.Fatalf("handleRunInfo did not reset: %+v", model)
	}

	if len(model.threadTargets) != 0 {
		t.Fatalf("thread targets not cleared")
	}
}

func TestRunModel_KeepsRecentRounds(t *testing.T) {
	model := newRunModel()

	for range recentRounds + 3 {
		model = model.handleRoundSealed(roundSealedMsg{round: sampleRound()})
	}

	if len(model.rounds) != recentRounds {
		t.Fatalf("rounds = %d, want %d", len(model.rounds), recentRounds)
	}
}

func TestRunModel_DiffBoxIsBounded(t *testing.T) {
	model := newRunModel()
	model.width = 80
	model.height = 30
	model.showDiff = true
	model.selectedDiff = strings.Repeat("+line\n", 40)

	if got := model.diffBoxHeight(); got != model.diffMaxLines()+3 {
		t.Fatalf("diffBoxHeight = %d, want %d", got, model.diffMaxLines()+3)
	}

	if box := model.renderDiffBox("6", 76); !strings.Contains(box, "…") {
		t.Fatalf("long diff should be truncated")
	}
}

// TestAnimationHelpers tests animation edge cases
func TestAnimationHelpers(t *testing.T) {
	if got := animateScroll("", 10, 0); got != "" {
		t.Fatalf("animateScroll empty string = %q", got)
	}

	if got := animateScroll("short", 20, 5); got != "short" {
		t.Fatalf("animateScroll short = %q", got)
	}

	if got := animateScroll("abcdef", 3, 0); got != "ab…" {
		t.Fatalf("animateScroll pause = %q", got)
	}

	text := "verylongtext"
	if animateScroll(text, 5, 10) == animateScroll(text, 5, 15) {
		t.Fatalf("animateScroll should change with offset")
	}

	if got := truncateToWidth("", 10); got != "" {
		t.Fatalf("truncateToWidth empty = %q", got)
	}

	if got := truncateToWidth("hello", 0); got != "" {
		t.Fatalf("truncateToWidth width 0 = %q", got)
	}

	if got := truncateToWidth("hello", 1); got != "…" {
		t.Fatalf("truncateToWidth width 1 = %q", got)
	}

	if got := truncateToWidth("test", 2); len([]rune(got)) != 2 {
		t.Fatalf("truncateToWidth length = %d, want 2", len([]rune(got)))
	}
}

func TestRenderDiffLine(t *testing.T) {
	for _, line := range []string{"+++ best", "--- base", "@@ -1 +1 @@", "+x", "-x", "", " x"} {
		if got := renderDiffLine(line, 40); !strings.Contains(got, strings.TrimSpace(line)) {
			t.Fatalf("renderDiffLine(%q) = %q", line, got)
		}
	}
}
