package controller

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	m "github.com/mouse-blink/goevolve/internal/model"
)

func TestNewUI_PlainOutputListsThroughCommand(t *testing.T) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ui := NewUI(cmd, false)
	if _, ok := ui.(*SimpleUI); !ok {
		t.Fatalf("NewUI(false) returned %T, want *SimpleUI", ui)
	}

	if err := ui.Start(WithListMode()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := ui.DisplayTargets([]TargetInfo{
		{Workflow: "hill.yaml", ID: "hill.climb", Steps: 3, Operator: "choose_from"},
	}, nil)
	if err != nil {
		t.Fatalf("DisplayTargets() error = %v", err)
	}

	ui.Wait()
	ui.Close()

	for _, want := range []string{"hill.climb", "choose_from", "TARGETS 1"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("command output missing %q\noutput:\n%s", want, out.String())
		}
	}
}

func TestNewUI_PlainOutputReportsRun(t *testing.T) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	ui := NewUI(cmd, false)
	if err := ui.Start(WithRunMode()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ui.DisplayRunInfo(RunInfo{
		Workflow:  "hill.yaml",
		Strategy:  "incremental",
		Direction: m.Maximize,
		Targets:   []m.TargetID{"hill.climb"},
		Calls:     1,
		Threads:   1,
		Seed:      3,
	})
	ui.DisplayProgress(Progress{Target: "hill.climb", Completed: 1, Total: 1})
	ui.Close()

	if !strings.Contains(out.String(), "Running hill.yaml: incremental search (max)") {
		t.Fatalf("run header missing\noutput:\n%s", out.String())
	}
}

func TestNewUI_TerminalWritesToCommandOutput(t *testing.T) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	tui, ok := NewUI(cmd, true).(*TUI)
	if !ok {
		t.Fatalf("NewUI(true) did not return *TUI")
	}

	if tui.output != &out {
		t.Fatalf("TUI output is not the command output")
	}

	if tui.started {
		t.Fatalf("NewUI(true) started the program early")
	}
}

func TestIsTTY_NonTerminals(t *testing.T) {
	report, err := os.Create(filepath.Join(t.TempDir(), "hill.climb.yaml"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer report.Close()

	tests := []struct {
		name string
		w    io.Writer
	}{
		{"buffer", &bytes.Buffer{}},
		{"report file", report},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsTTY(tt.w) {
				t.Fatalf("IsTTY(%s) = true, want false", tt.name)
			}
		})
	}

	if devNull, err := os.Open(os.DevNull); err == nil {
		defer devNull.Close()

		if IsTTY(devNull) {
			t.Fatalf("IsTTY(%s) = true, want false", os.DevNull)
		}
	}
}
