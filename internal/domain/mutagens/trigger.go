package mutagens

import (
	"sync"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// Trigger arms a mutator from the outcome of another target. Each observed
// outcome that satisfies the condition lets the mutator run exactly once;
// otherwise the trigger's mutator behaves as Identity.
type Trigger struct {
	mu      sync.Mutex
	pending int
	cond    func(m.Outcome) bool
	mutator Mutator
}

// NewTrigger creates a trigger that arms mutator whenever cond holds.
func NewTrigger(cond func(m.Outcome) bool, mutator Mutator) *Trigger {
	return &Trigger{cond: cond, mutator: mutator}
}

// Observe inspects an outcome and arms the trigger when the condition holds.
func (t *Trigger) Observe(outcome m.Outcome) {
	if !t.cond(outcome) {
		return
	}

	t.mu.Lock()
	t.pending++
	t.mu.Unlock()
}

// Pending returns how many activations are waiting.
func (t *Trigger) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pending
}

// Mutator returns the operator to advise on the triggered target.
func (t *Trigger) Mutator() Mutator {
	return func(steps m.Steps, receiver any) (m.Steps, error) {
		t.mu.Lock()
		if t.pending == 0 {
			t.mu.Unlock()
			return steps, nil
		}
		t.pending--
		t.mu.Unlock()

		return t.mutator(steps, receiver)
	}
}
