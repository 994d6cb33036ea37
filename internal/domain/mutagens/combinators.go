package mutagens

import (
	"errors"
	"fmt"

	m "github.com/mouse-blink/goevolve/internal/model"
)

var (
	// ErrEmptyDistribution is returned by ChooseFrom when there is nothing to draw from.
	ErrEmptyDistribution = errors.New("empty mutator distribution")
	// ErrNegativeWeight is returned by ChooseFrom for a weight below zero.
	ErrNegativeWeight = errors.New("negative mutator weight")
)

// FilterSteps applies mutator to each region chosen by selector and splices
// the results back in place. Steps between regions are kept as they are.
func FilterSteps(selector Selector, mutator Mutator) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		regions := selector(steps)
		if err := m.ValidateRegions(regions, len(steps)); err != nil {
			return nil, fmt.Errorf("filter steps: %w", err)
		}

		out := make(m.Steps, 0, len(steps))
		prev := 0

		for _, r := range regions {
			out = append(out, steps[prev:r.Start]...)

			mutated, err := mutator(steps[r.Start:r.End:r.End], receiver)
			if err != nil {
				return nil, err
			}

			out = append(out, mutated...)
			prev = r.End
		}

		out = append(out, steps[prev:]...)

		return out, nil
	}
}

// InSequence threads the steps through each mutator in order.
func InSequence(mutators ...Mutator) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		for i, mutator := range mutators {
			var err error

			steps, err = mutator(steps, receiver)
			if err != nil {
				return nil, fmt.Errorf("sequence step %d: %w", i, err)
			}
		}

		return steps, nil
	}
}

// Weighted pairs a mutator with its relative weight in ChooseFrom.
type Weighted struct {
	Weight  float64
	Mutator Mutator
}

// ChooseFrom draws one mutator by cumulative weight on every application.
func ChooseFrom(rng Random, distribution []Weighted) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		total := 0.0

		for _, w := range distribution {
			if w.Weight < 0 {
				return nil, fmt.Errorf("choose from: %w: %v", ErrNegativeWeight, w.Weight)
			}

			total += w.Weight
		}

		if len(distribution) == 0 || total <= 0 {
			return nil, fmt.Errorf("choose from: %w", ErrEmptyDistribution)
		}

		p := rng.Float64() * total
		upTo := 0.0
		last := 0

		// Zero weights are never drawn, even for p == 0.
		for i, w := range distribution {
			if w.Weight == 0 {
				continue
			}

			last = i

			upTo += w.Weight
			if p < upTo {
				return w.Mutator(steps, receiver)
			}
		}

		return distribution[last].Mutator(steps, receiver)
	}
}

// Condition is evaluated each time a conditional mutator is applied.
type Condition func() bool

// Always is a Condition with a fixed answer.
func Always(b bool) Condition {
	return func() bool { return b }
}

// OnConditionThat applies mutator only when cond holds.
func OnConditionThat(cond Condition, mutator Mutator) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		if cond() {
			return mutator(steps, receiver)
		}

		return steps, nil
	}
}

// ContextRule applies Mutator when Match accepts the receiver.
type ContextRule struct {
	Match   func(receiver any) bool
	Mutator Mutator
}

// FilterContext applies every rule whose Match accepts the receiver, in order.
func FilterContext(rules ...ContextRule) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		for _, rule := range rules {
			if !rule.Match(receiver) {
				continue
			}

			var err error

			steps, err = rule.Mutator(steps, receiver)
			if err != nil {
				return nil, err
			}
		}

		return steps, nil
	}
}

// Counted records every application of mutator under name.
func Counted(invocations *Invocations, name string, mutator Mutator) Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		invocations.Log(receiver, name)
		return mutator(steps, receiver)
	}
}
