package domain

import (
	"sort"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// slot is one variant of an active round with its outcome history.
type slot struct {
	variant  *m.Variant
	advice   Advice
	outcomes []m.Outcome
	inFlight int
}

func (s *slot) busy() int {
	return len(s.outcomes) + s.inFlight
}

// round is the mutable population of a target between construction and
// sealing. It is only touched under the owning scheduler's mutex.
type round struct {
	target   m.TargetID
	number   int
	slots    []*slot
	recorded int
}

// available returns the indices of slots that can take another call.
func (r *round) available(quota int) []int {
	var free []int

	for i, s := range r.slots {
		if s.busy() < quota {
			free = append(free, i)
		}
	}

	return free
}

func (r *round) record(i int, outcome m.Outcome) {
	s := r.slots[i]
	if s.inFlight > 0 {
		s.inFlight--
	}

	s.outcomes = append(s.outcomes, outcome)
	r.recorded++
}

func (r *round) complete(quota int) bool {
	return r.recorded >= len(r.slots)*quota
}

// rank scores every slot by the mean of metric over its outcomes and sorts
// them by direction. Ties keep creation order.
func (r *round) rank(metric m.SuccessMetric, direction m.Direction) (m.RankedRound, error) {
	entries := make([]m.RankedEntry, 0, len(r.slots))

	for _, s := range r.slots {
		if len(s.outcomes) == 0 {
			return m.RankedRound{}, &m.SchedulingInvariantViolation{
				Target:  r.target,
				Round:   r.number,
				Variant: s.variant.Name(),
			}
		}

		total := 0.0
		for _, o := range s.outcomes {
			total += metric(o)
		}

		outcomes := make([]m.Outcome, len(s.outcomes))
		copy(outcomes, s.outcomes)

		entries = append(entries, m.RankedEntry{
			Variant:  s.variant,
			Score:    total / float64(len(s.outcomes)),
			Outcomes: outcomes,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return direction.Better(entries[i].Score, entries[j].Score)
	})

	return m.RankedRound{
		Target:    r.target,
		Number:    r.number,
		Direction: direction,
		Entries:   entries,
	}, nil
}
