package mutagens

import (
	m "github.com/mouse-blink/goevolve/internal/model"
)

// NestedKinds are the containers RecurseIntoNestedSteps descends into when no
// target set is given.
var NestedKinds = m.NewKindSet(m.StepIf, m.StepWhile, m.StepFor, m.StepTry)

// Depth carries the recursion bounds explicitly through the descent.
type Depth struct {
	Current int
	Min     int
	Max     int
}

func (d Depth) deeper() Depth {
	d.Current++
	return d
}

// RecurseIntoNestedSteps applies mutator to the bodies of nested control
// structures before the enclosing level, depth first. Every branch of an If
// and every handler of a Try is visited. The mutator runs at depth d only
// when minDepth <= d <= maxDepth; nothing below maxDepth is visited.
func RecurseIntoNestedSteps(mutator Mutator, targets m.KindSet, minDepth, maxDepth int) Mutator {
	if len(targets) == 0 {
		targets = NestedKinds
	}

	return func(steps m.Steps, receiver any) (m.Steps, error) {
		return recurse(steps, receiver, mutator, targets, Depth{Current: 0, Min: minDepth, Max: maxDepth})
	}
}

func recurse(steps m.Steps, receiver any, mutator Mutator, targets m.KindSet, d Depth) (m.Steps, error) {
	if d.Current > d.Max {
		return steps, nil
	}

	out := steps.Copy()

	for i, step := range steps {
		if !targets.Has(step.Kind) {
			continue
		}

		c := step.Shallow()

		for _, block := range c.Blocks() {
			nested, err := recurse(*block, receiver, mutator, targets, d.deeper())
			if err != nil {
				return nil, err
			}

			*block = nested
		}

		out[i] = c
	}

	if d.Current >= d.Min {
		return mutator(out, receiver)
	}

	return out, nil
}
