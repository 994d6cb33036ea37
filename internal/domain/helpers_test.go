package domain

import (
	"context"
	"errors"
	"sync"

	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

var errUnknownTarget = errors.New("unknown target")

type executableFunc func(ctx context.Context, receiver any) (any, error)

func (f executableFunc) Run(ctx context.Context, receiver any) (any, error) {
	return f(ctx, receiver)
}

// fakeRepresentation serves fixed reference steps and runs variants with run.
type fakeRepresentation struct {
	steps          map[m.TargetID]m.Steps
	run            func(v *m.Variant) (any, error)
	materializeErr error
}

func (f *fakeRepresentation) Reference(target m.TargetID) (m.Steps, error) {
	steps, ok := f.steps[target]
	if !ok {
		return nil, errUnknownTarget
	}

	return steps.Clone(), nil
}

func (f *fakeRepresentation) Materialize(v *m.Variant) (m.Executable, error) {
	if f.materializeErr != nil {
		return nil, f.materializeErr
	}

	return executableFunc(func(context.Context, any) (any, error) {
		return f.run(v)
	}), nil
}

func step(name string, pos int) *m.Step {
	return &m.Step{Kind: m.StepAction, Call: name, Pos: pos}
}

func countCalls(steps m.Steps, name string) int {
	n := 0

	for _, s := range steps {
		if s.Kind == m.StepAction && s.Call == name {
			n++
		}
	}

	return n
}

// newCountingRepresentation scores a variant by how many "inc" steps it has.
func newCountingRepresentation(targets ...m.TargetID) *fakeRepresentation {
	rep := &fakeRepresentation{
		steps: make(map[m.TargetID]m.Steps),
		run: func(v *m.Variant) (any, error) {
			return float64(countCalls(v.Steps, "inc")), nil
		},
	}

	for _, t := range targets {
		rep.steps[t] = m.Steps{step("start", 1), step("finish", 2)}
	}

	return rep
}

// growAdvice appends k%4 "inc" steps on its k-th application.
func growAdvice() Advice {
	var (
		mu sync.Mutex
		k  int
	)

	return Advice{
		Operator: "grow",
		Mutate: func(steps m.Steps, _ any) (m.Steps, error) {
			mu.Lock()
			k++
			n := k % 4
			mu.Unlock()

			out := steps.Copy()
			for range n {
				out = append(out, step("inc", len(out)+1))
			}

			return out, nil
		},
	}
}

func testConfig(vpr, ipv int, advice map[m.TargetID]Advice) Config {
	return Config{
		VariantsPerRound:     vpr,
		IterationsPerVariant: ipv,
		Advice:               advice,
		Random:               mutagens.NewRandom(7),
	}
}

// drive runs n sequential calls through the advisor.
func drive(advisor RoundAdvisor, rep *fakeRepresentation, target m.TargetID, n int) ([]*Invocation, error) {
	invocations := make([]*Invocation, 0, n)

	for range n {
		inv, err := advisor.BeforeCall(target, nil)
		if err != nil {
			return invocations, err
		}

		value, runErr := rep.run(inv.Variant)
		if err := advisor.AfterCall(inv, m.Outcome{Value: value, Err: runErr}); err != nil {
			return invocations, err
		}

		invocations = append(invocations, inv)
	}

	return invocations, nil
}
