package controller

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/goevolve/internal/model"
)

type quitModel struct{}

func (m quitModel) Init() tea.Cmd { return tea.Quit }
func (m quitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, tea.Quit
}
func (m quitModel) View() string { return "" }

func newTestTUI(buf *bytes.Buffer) *TUI {
	tui := NewTUI(buf)
	tui.options = append(tui.options, tea.WithInput(nil))

	return tui
}

func waitFor(t *testing.T, name string, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s timed out", name)
	}
}

func TestTUI_StartWithModel_WaitAndClose(t *testing.T) {
	var buf bytes.Buffer
	tui := newTestTUI(&buf)

	if err := tui.startWithModel(quitModel{}); err != nil {
		t.Fatalf("startWithModel error = %v", err)
	}

	tui.send(runInfoMsg{info: RunInfo{Calls: 2}})

	waitFor(t, "Wait()", tui.Wait)
	waitFor(t, "Close()", tui.Close)
}

func TestTUI_Send_And_EnsureStarted_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	tui := newTestTUI(&buf)

	// send before start is a no-op
	tui.send(runInfoMsg{})

	tui.started = true
	tui.ensureStarted()

	if tui.program != nil {
		t.Fatalf("ensureStarted restarted a started TUI")
	}
}

func TestTUI_RunMode_DisplaysAndCloses(t *testing.T) {
	var buf bytes.Buffer
	tui := newTestTUI(&buf)

	if err := tui.Start(WithRunMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	tui.DisplayRunInfo(RunInfo{Strategy: "incremental", Calls: 2, Threads: 1})
	tui.DisplayProgress(Progress{Target: "maze.move", Completed: 1, Total: 2})
	tui.DisplayRoundSealed(sampleRound())

	if err := tui.DisplayReport(sampleReport(), "--- base\n+++ best\n"); err != nil {
		t.Fatalf("DisplayReport error = %v", err)
	}

	waitFor(t, "Close()", tui.Close)
}

func TestTUI_ListMode_DisplaysAndCloses(t *testing.T) {
	var buf bytes.Buffer
	tui := newTestTUI(&buf)

	if err := tui.Start(WithListMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	if err := tui.DisplayTargets([]TargetInfo{{ID: "maze.move", Steps: 3}}, nil); err != nil {
		t.Fatalf("DisplayTargets error = %v", err)
	}

	waitFor(t, "Close()", tui.Close)
}

func TestTUI_MultipleClose(t *testing.T) {
	var buf bytes.Buffer

	tui := newTestTUI(&buf)
	if err := tui.Start(WithViewMode()); err != nil {
		t.Fatalf("Start error = %v", err)
	}

	waitFor(t, "Close()", tui.Close)
	waitFor(t, "second Close()", tui.Close)

	tui2 := newTestTUI(&buf)
	tui2.Wait() // Wait without start is a no-op

	tui3 := newTestTUI(&buf)
	tui3.Close() // Close without start is a no-op
}

func TestTUI_DisplayMethods_NoProgram(t *testing.T) {
	var buf bytes.Buffer
	tui := newTestTUI(&buf)

	// Avoid starting Bubble Tea program in tests
	tui.started = true

	if err := tui.DisplayTargets(nil, nil); err != nil {
		t.Fatalf("DisplayTargets unexpected error = %v", err)
	}

	if err := tui.DisplayTargets(nil, errSentinel); !errors.Is(err, errSentinel) {
		t.Fatalf("DisplayTargets error = %v, want %v", err, errSentinel)
	}

	if !bytes.Contains(buf.Bytes(), []byte("list error: boom")) {
		t.Fatalf("output missing error: %q", buf.String())
	}

	tui.DisplayRunInfo(RunInfo{Threads: 2})
	tui.DisplayProgress(Progress{Completed: 1, Total: 1})
	tui.DisplayRoundSealed(m.RankedRound{})

	if err := tui.DisplayReport(m.SearchReport{}, ""); err != nil {
		t.Fatalf("DisplayReport error = %v", err)
	}
}

var errSentinel = errors.New("boom")
