package domain

import (
	"errors"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// GeneticImprover builds half of each round by crossing the ranked variants
// of the previous round and the rest by fuzzing the base.
type GeneticImprover struct {
	*search
}

// NewGeneticImprover creates a genetic improver over rep. Crossover uses
// cfg.Splicer.
func NewGeneticImprover(rep Representation, cfg Config) (*GeneticImprover, error) {
	s, err := newSearch(rep, cfg, StrategyGenetic)
	if err != nil {
		return nil, err
	}

	g := &GeneticImprover{search: s}
	s.build = g.buildRound

	return g, nil
}

func (g *GeneticImprover) buildRound(target m.TargetID, ts *targetState, receiver any) ([]*slot, error) {
	vpr := g.cfg.VariantsPerRound
	if len(ts.ranked) == 0 {
		return g.fuzzSlots(target, ts, receiver, vpr)
	}

	parents := ts.ranked[len(ts.ranked)-1].Entries
	splices := vpr / 2

	slots, err := g.fuzzSlots(target, ts, receiver, vpr-splices)
	if err != nil {
		return nil, err
	}

	for k := range splices {
		child, err := g.breed(target, ts, parents, k, receiver)
		if err != nil {
			return nil, err
		}

		slots = append(slots, child)
	}

	return slots, nil
}

// breed crosses the k-th parent pair of the round being built. Parents that
// cannot be spliced fall back to a mutation of the base.
func (g *GeneticImprover) breed(target m.TargetID, ts *targetState, parents []m.RankedEntry, k int, receiver any) (*slot, error) {
	if len(parents) >= 2 {
		i, j := parentPair(k, len(parents))

		a, b := parents[i].Variant, parents[j].Variant

		steps, err := g.cfg.Splicer.Splice(a.Steps, b.Steps)
		if err == nil {
			v := g.newVariant(target, ts, steps, m.Lineage{
				Origin:   m.OriginSplice,
				Parents:  []string{a.ID, b.ID},
				Operator: "splice",
			})

			return &slot{variant: v, advice: ts.baseAdvice}, nil
		}

		var incompatible *m.IncompatibleSpliceError
		if !errors.As(err, &incompatible) {
			return nil, err
		}

		g.cfg.Logger.Debug("splice skipped", "target", target, "parents", []string{a.Name(), b.Name()}, "reason", incompatible.Reason)
	}

	v, err := g.mutate(target, ts, ts.base, ts.baseAdvice, receiver)
	if err != nil {
		return nil, err
	}

	return &slot{variant: v, advice: ts.baseAdvice}, nil
}

// parentPair returns the k-th pair of ranks in the order (0,1), (0,2),
// (1,2), (0,3), (1,3), (2,3), ... restricted to n parents, wrapping around
// once every distinct pair has been used.
func parentPair(k, n int) (int, int) {
	k %= n * (n - 1) / 2

	j := 1
	for k >= j {
		k -= j
		j++
	}

	return k, j
}
