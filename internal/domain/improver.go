package domain

import (
	m "github.com/mouse-blink/goevolve/internal/model"
)

// IncrementalImprover runs rounds of fresh mutations of the current base.
// The best variant of each sealed round becomes the base of the next.
type IncrementalImprover struct {
	*search
}

// NewIncrementalImprover creates an incremental improver over rep.
func NewIncrementalImprover(rep Representation, cfg Config) (*IncrementalImprover, error) {
	s, err := newSearch(rep, cfg, StrategyIncremental)
	if err != nil {
		return nil, err
	}

	imp := &IncrementalImprover{search: s}
	s.build = imp.buildRound

	return imp, nil
}

func (imp *IncrementalImprover) buildRound(target m.TargetID, ts *targetState, receiver any) ([]*slot, error) {
	return imp.fuzzSlots(target, ts, receiver, imp.cfg.VariantsPerRound)
}
