package mutagens

import (
	"sync"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// Selector maps a step sequence to the regions a mutator should target.
// Regions are returned in increasing order and lie within [0, len(steps)].
type Selector func(steps m.Steps) []m.Region

// ChooseIdentity selects the whole sequence.
func ChooseIdentity(steps m.Steps) []m.Region {
	return []m.Region{{Start: 0, End: len(steps)}}
}

// ChooseRandomSteps samples n distinct single steps without replacement.
// When n covers the whole sequence the whole sequence is selected.
func ChooseRandomSteps(rng Random, n int) Selector {
	return func(steps m.Steps) []m.Region {
		if n <= 0 {
			return nil
		}

		if n >= len(steps) {
			return ChooseIdentity(steps)
		}

		indices := sample(rng, len(steps), n)
		regions := make([]m.Region, 0, len(indices))

		for _, i := range indices {
			regions = append(regions, m.Region{Start: i, End: i + 1})
		}

		return regions
	}
}

type lastSteps struct {
	mu      sync.Mutex
	n       int
	reapply bool
}

// ChooseLastSteps selects at least n steps from the end of the sequence,
// growing each region leftward over Pass placeholders so removed steps are
// not targeted again. With reapply false the returned selector keeps state:
// every call consumes the steps it covered from the quota, so repeated
// application runs out instead of hitting the tail forever.
func ChooseLastSteps(n int, reapply bool) Selector {
	ls := &lastSteps{n: n, reapply: reapply}
	return ls.choose
}

func (ls *lastSteps) choose(steps m.Steps) []m.Region {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	var selected []m.Region

	total := 0
	end := len(steps) - 1
	begin := end

	for total < ls.n && begin >= 0 {
		for (end-begin+1+total < ls.n || steps[begin].IsPass()) && begin > 0 {
			begin--
		}

		selected = append(selected, m.Region{Start: begin, End: end + 1})
		total += end - begin + 1

		end = begin - 1
		begin = end
	}

	if !ls.reapply {
		ls.n -= total
	}

	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}

	return selected
}

// ChooseLastStep selects the last step that is not a Pass, together with
// any trailing Pass steps.
func ChooseLastStep(steps m.Steps) []m.Region {
	return ChooseLastSteps(1, true)(steps)
}

// ExcludeControlStructures selects the maximal runs of steps that are not
// control structures of the target kinds. An empty targets set means every
// control kind.
func ExcludeControlStructures(targets m.KindSet) Selector {
	return controlRuns(targets, false)
}

// IncludeControlStructures selects the maximal runs of control structures of
// the target kinds. An empty targets set means every control kind.
func IncludeControlStructures(targets m.KindSet) Selector {
	return controlRuns(targets, true)
}

func controlRuns(targets m.KindSet, want bool) Selector {
	kinds := m.ControlKinds
	if len(targets) > 0 {
		kinds = m.ControlKinds.Intersect(targets)
	}

	return func(steps m.Steps) []m.Region {
		var regions []m.Region

		i := 0
		for i < len(steps) {
			if kinds.Has(steps[i].Kind) != want {
				i++
				continue
			}

			start := i
			for i < len(steps) && kinds.Has(steps[i].Kind) == want {
				i++
			}

			regions = append(regions, m.Region{Start: start, End: i})
		}

		return regions
	}
}

// Invert selects the complement of selector's regions. Invert(Invert(f))
// selects what f selects; only a degenerate leading [0, 0) region is pruned.
func Invert(selector Selector) Selector {
	return func(steps m.Steps) []m.Region {
		var inverted []m.Region

		start := 0
		for _, r := range selector(steps) {
			inverted = append(inverted, m.Region{Start: start, End: r.Start})
			start = r.End
		}

		if start != len(steps) {
			inverted = append(inverted, m.Region{Start: start, End: len(steps)})
		}

		if len(inverted) > 0 && inverted[0] == (m.Region{}) {
			inverted = inverted[1:]
		}

		return inverted
	}
}
