package controller

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	options []tea.ProgramOption

	mu      sync.Mutex
	program *tea.Program
	started bool
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{
		output: output,
		options: []tea.ProgramOption{
			tea.WithOutput(output),
			tea.WithMouseCellMotion(),
		},
	}
}

// Start launches the Bubble Tea program for the requested mode.
func (t *TUI) Start(options ...StartOption) error {
	cfg := &StartConfig{mode: ModeRun}
	for _, opt := range options {
		opt(cfg)
	}

	switch cfg.mode {
	case ModeList:
		return t.startWithModel(newListModel())
	default:
		return t.startWithModel(newRunModel())
	}
}

func (t *TUI) startWithModel(model tea.Model) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	t.program = tea.NewProgram(model, t.options...)
	t.done = make(chan struct{})
	t.started = true

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := p.Run(); err != nil {
			_, _ = fmt.Fprintf(t.output, "ui error: %v\n", err)
		}
	}(t.program, t.done)

	return nil
}

func (t *TUI) ensureStarted() {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	if !started {
		_ = t.startWithModel(newRunModel())
	}
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.program
	started := t.started
	t.mu.Unlock()

	if !started || p == nil {
		return
	}

	p.Send(msg)
}

// Close stops the program and waits for it to restore the terminal.
func (t *TUI) Close() {
	t.mu.Lock()
	p, done := t.program, t.done
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Quit()
	<-done
}

// Wait blocks until the user quits the program.
func (t *TUI) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	<-done
}

// DisplayTargets shows the target list or prints the error.
func (t *TUI) DisplayTargets(targets []TargetInfo, err error) error {
	if err != nil {
		_, _ = fmt.Fprintf(t.output, "list error: %v\n", err)

		return err
	}

	t.ensureStarted()
	t.send(targetsMsg{targets: targets})

	return nil
}

// DisplayRunInfo shows the settings of a run.
func (t *TUI) DisplayRunInfo(info RunInfo) {
	t.ensureStarted()
	t.send(runInfoMsg{info: info})
}

// DisplayProgress advances the progress bar.
func (t *TUI) DisplayProgress(progress Progress) {
	t.send(progressMsg{progress: progress})
}

// DisplayRoundSealed adds a sealed round to the recent rounds box.
func (t *TUI) DisplayRoundSealed(round m.RankedRound) {
	t.send(roundSealedMsg{round: round})
}

// DisplayReport adds a report to the results list.
func (t *TUI) DisplayReport(report m.SearchReport, diff string) error {
	t.ensureStarted()
	t.send(reportMsg{report: report, diff: diff})

	return nil
}
