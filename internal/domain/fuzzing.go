package domain

import (
	m "github.com/mouse-blink/goevolve/internal/model"
)

// FuzzingAdvisor mutates a fresh copy of the reference steps on every call.
// It keeps no rounds and records nothing.
type FuzzingAdvisor struct {
	*search
}

// NewFuzzingAdvisor creates a plain fuzzing advisor over rep. Round sizes
// are ignored and may be left at zero.
func NewFuzzingAdvisor(rep Representation, cfg Config) (*FuzzingAdvisor, error) {
	if cfg.VariantsPerRound == 0 {
		cfg.VariantsPerRound = 1
	}

	if cfg.IterationsPerVariant == 0 {
		cfg.IterationsPerVariant = 1
	}

	s, err := newSearch(rep, cfg, StrategyFuzz)
	if err != nil {
		return nil, err
	}

	return &FuzzingAdvisor{search: s}, nil
}

// BeforeCall returns an untracked invocation of a new mutation of the
// reference steps.
func (f *FuzzingAdvisor) BeforeCall(target m.TargetID, receiver any) (*Invocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts, err := f.state(target)
	if err != nil {
		return nil, err
	}

	v, err := f.mutate(target, ts, ts.base, ts.baseAdvice, receiver)
	if err != nil {
		return nil, err
	}

	return &Invocation{Target: target, Variant: v}, nil
}

// AfterCall is a no-op; fuzzing keeps no history.
func (f *FuzzingAdvisor) AfterCall(*Invocation, m.Outcome) error {
	return nil
}
