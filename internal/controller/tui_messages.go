package controller

import (
	m "github.com/mouse-blink/goevolve/internal/model"
)

// Message types.
type targetsMsg struct {
	targets []TargetInfo
}

type runInfoMsg struct {
	info RunInfo
}

type progressMsg struct {
	progress Progress
}

type roundSealedMsg struct {
	round m.RankedRound
}

type reportMsg struct {
	report m.SearchReport
	diff   string
}

// List item types.
type targetItem struct {
	info TargetInfo
}

func (t targetItem) FilterValue() string {
	return string(t.info.ID) + " " + string(t.info.Workflow) + " " + t.info.Operator
}
