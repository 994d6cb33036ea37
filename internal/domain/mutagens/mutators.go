package mutagens

import (
	m "github.com/mouse-blink/goevolve/internal/model"
)

// ToEnd marks a replacement range that runs to the end of the sequence.
const ToEnd = -1

// Mutator rewrites a step sequence. The receiver is the bound object of the
// target, or nil. Mutators never modify their input; they return a new
// sequence and treat an empty sequence as a no-op.
type Mutator func(steps m.Steps, receiver any) (m.Steps, error)

// Identity returns the steps unchanged.
func Identity(steps m.Steps, _ any) (m.Steps, error) {
	return steps, nil
}

// ReplaceStepsWithPass turns every step into a Pass at the same source line.
func ReplaceStepsWithPass(steps m.Steps, _ any) (m.Steps, error) {
	out := make(m.Steps, len(steps))
	for i, step := range steps {
		out[i] = m.Pass(step.Pos)
	}

	return out, nil
}

// RemoveLastSteps replaces the last n non-Pass steps with Pass. With reapply
// false the operator remembers how many steps it has removed across calls.
func RemoveLastSteps(n int, reapply bool) Mutator {
	return FilterSteps(ChooseLastSteps(n, reapply), ReplaceStepsWithPass)
}

// RemoveLastStep replaces the last non-Pass step with Pass.
func RemoveLastStep(steps m.Steps, receiver any) (m.Steps, error) {
	return RemoveLastSteps(1, true)(steps, receiver)
}

// RemoveRandomStep replaces one uniformly chosen step with Pass.
func RemoveRandomStep(rng Random) Mutator {
	return FilterSteps(ChooseRandomSteps(rng, 1), ReplaceStepsWithPass)
}

// DuplicateSteps appends a deep copy of the steps to themselves.
func DuplicateSteps(steps m.Steps, _ any) (m.Steps, error) {
	out := make(m.Steps, 0, 2*len(steps))
	out = append(out, steps...)
	out = append(out, steps.Clone()...)

	return out, nil
}

// DuplicateLastStep inserts a copy of the last non-Pass step right after it.
func DuplicateLastStep(steps m.Steps, _ any) (m.Steps, error) {
	for i := len(steps) - 1; i >= 0; i-- {
		if !steps[i].IsPass() {
			return insertAfter(steps, i, steps[i].Clone()), nil
		}
	}

	return steps.Copy(), nil
}

// RepeatRandomStep inserts a copy of one uniformly chosen step right after it.
func RepeatRandomStep(rng Random) Mutator {
	return func(steps m.Steps, _ any) (m.Steps, error) {
		if len(steps) == 0 {
			return steps, nil
		}

		i := rng.Intn(len(steps))

		return insertAfter(steps, i, steps[i].Clone()), nil
	}
}

// ShuffleSteps returns a random permutation of the steps in a new slice.
func ShuffleSteps(rng Random) Mutator {
	return func(steps m.Steps, _ any) (m.Steps, error) {
		if len(steps) == 0 {
			return steps, nil
		}

		perm := rng.Perm(len(steps))
		out := make(m.Steps, len(steps))

		for i, p := range perm {
			out[i] = steps[p]
		}

		return out, nil
	}
}

// SwapIfBlocks exchanges the two branches of every If step.
func SwapIfBlocks(steps m.Steps, _ any) (m.Steps, error) {
	return rewrite(steps, func(step *m.Step) *m.Step {
		if step.Kind != m.StepIf {
			return nil
		}

		c := step.Shallow()
		c.Body, c.Else = step.Else, step.Body

		return c
	}), nil
}

// ReplaceConditionWith rewrites the test of every If and While step. The
// condition may be a literal, an expression, a predicate reference or a Go
// predicate.
func ReplaceConditionWith(cond m.Expr) Mutator {
	return func(steps m.Steps, _ any) (m.Steps, error) {
		return rewrite(steps, func(step *m.Step) *m.Step {
			if step.Kind != m.StepIf && step.Kind != m.StepWhile {
				return nil
			}

			c := step.Shallow()
			c.Cond = cond.Clone()

			return c
		}), nil
	}
}

// ReplaceForIteratorWith rewrites the iterable of every For step to the
// given literal list.
func ReplaceForIteratorWith(values []any) Mutator {
	return func(steps m.Steps, _ any) (m.Steps, error) {
		return rewrite(steps, func(step *m.Step) *m.Step {
			if step.Kind != m.StepFor {
				return nil
			}

			c := step.Shallow()
			c.Iter = m.Literal(values).Clone()

			return c
		}), nil
	}
}

// ReplaceStepsWith replaces steps[start:end] with a copy of fragment. An end
// of ToEnd means the end of the sequence.
func ReplaceStepsWith(start, end int, fragment m.Steps) Mutator {
	return func(steps m.Steps, _ any) (m.Steps, error) {
		finish := end
		if end == ToEnd {
			finish = len(steps)
		}

		if err := m.ValidateRegions([]m.Region{{Start: start, End: finish}}, len(steps)); err != nil {
			return nil, err
		}

		out := make(m.Steps, 0, len(steps)-(finish-start)+len(fragment))
		out = append(out, steps[:start]...)
		out = append(out, fragment.Clone()...)
		out = append(out, steps[finish:]...)

		return out, nil
	}
}

// InsertSteps inserts a copy of fragment before position pos.
func InsertSteps(pos int, fragment m.Steps) Mutator {
	return ReplaceStepsWith(pos, pos, fragment)
}

// rewrite applies fn to every step; a nil result keeps the original step.
func rewrite(steps m.Steps, fn func(*m.Step) *m.Step) m.Steps {
	out := make(m.Steps, len(steps))

	for i, step := range steps {
		if c := fn(step); c != nil {
			out[i] = c
			continue
		}

		out[i] = step
	}

	return out
}

func insertAfter(steps m.Steps, i int, step *m.Step) m.Steps {
	out := make(m.Steps, 0, len(steps)+1)
	out = append(out, steps[:i+1]...)
	out = append(out, step)
	out = append(out, steps[i+1:]...)

	return out
}
