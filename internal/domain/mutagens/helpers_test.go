package mutagens

import (
	"testing"

	m "github.com/mouse-blink/goevolve/internal/model"
	"github.com/stretchr/testify/require"
)

// scriptedRandom replays canned answers so randomized operators are deterministic.
type scriptedRandom struct {
	t      *testing.T
	perms  [][]int
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Perm(n int) []int {
	require.NotEmpty(r.t, r.perms, "unexpected Perm(%d)", n)
	p := r.perms[0]
	r.perms = r.perms[1:]

	return p
}

func (r *scriptedRandom) Float64() float64 {
	require.NotEmpty(r.t, r.floats, "unexpected Float64()")
	f := r.floats[0]
	r.floats = r.floats[1:]

	return f
}

func (r *scriptedRandom) Intn(n int) int {
	require.NotEmpty(r.t, r.ints, "unexpected Intn(%d)", n)
	i := r.ints[0]
	r.ints = r.ints[1:]

	return i
}

func action(name string, pos int) *m.Step {
	return &m.Step{Kind: m.StepAction, Call: name, Pos: pos}
}

func actions(names ...string) m.Steps {
	steps := make(m.Steps, len(names))
	for i, name := range names {
		steps[i] = action(name, i+1)
	}

	return steps
}

// names renders a sequence as call names, "-" for Pass and the kind otherwise.
func names(steps m.Steps) []string {
	out := make([]string, len(steps))

	for i, s := range steps {
		switch s.Kind {
		case m.StepAction:
			out[i] = s.Call
		case m.StepPass:
			out[i] = "-"
		default:
			out[i] = string(s.Kind)
		}
	}

	return out
}
