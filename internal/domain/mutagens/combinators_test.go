package mutagens

import (
	"errors"
	"testing"

	m "github.com/mouse-blink/goevolve/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSteps(t *testing.T) {
	t.Run("mutates only the complement of the last step", func(t *testing.T) {
		steps := m.Steps{action("a", 1), action("b", 2), action("c", 3), {Kind: m.StepReturn, Pos: 4}}

		out, err := FilterSteps(Invert(ChooseLastStep), ReplaceStepsWithPass)(steps, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"-", "-", "-", "return"}, names(out))
		assert.Same(t, steps[3], out[3])
	})

	t.Run("length changing mutators splice cleanly", func(t *testing.T) {
		out, err := FilterSteps(ChooseLastStep, DuplicateSteps)(actions("a", "b"), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "b"}, names(out))
	})

	t.Run("several regions", func(t *testing.T) {
		selector := func(m.Steps) []m.Region {
			return []m.Region{{Start: 0, End: 1}, {Start: 2, End: 3}}
		}

		out, err := FilterSteps(selector, ReplaceStepsWithPass)(actions("a", "b", "c", "d"), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"-", "b", "-", "d"}, names(out))
	})

	t.Run("invalid region", func(t *testing.T) {
		selector := func(m.Steps) []m.Region {
			return []m.Region{{Start: 2, End: 1}}
		}

		_, err := FilterSteps(selector, Identity)(actions("a", "b", "c"), nil)

		var invalid *m.InvalidRegionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "end before start", invalid.Reason)
	})

	t.Run("overlapping regions", func(t *testing.T) {
		selector := func(m.Steps) []m.Region {
			return []m.Region{{Start: 0, End: 2}, {Start: 1, End: 3}}
		}

		_, err := FilterSteps(selector, Identity)(actions("a", "b", "c"), nil)

		var invalid *m.InvalidRegionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "overlaps previous region", invalid.Reason)
	})
}

func TestInSequence(t *testing.T) {
	out, err := InSequence(RemoveLastStep, RemoveLastStep, RemoveLastStep)(actions("a", "b", "c"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"-", "-", "-"}, names(out))

	out, err = InSequence()(actions("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(out))

	boom := errors.New("boom")
	failing := func(m.Steps, any) (m.Steps, error) { return nil, boom }

	_, err = InSequence(Identity, failing)(actions("a"), nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sequence step 1")
}

func TestChooseFrom(t *testing.T) {
	var picked []string

	pick := func(name string) Mutator {
		return func(steps m.Steps, _ any) (m.Steps, error) {
			picked = append(picked, name)
			return steps, nil
		}
	}

	distribution := []Weighted{
		{Weight: 1, Mutator: pick("first")},
		{Weight: 1, Mutator: pick("second")},
		{Weight: 2, Mutator: pick("third")},
	}

	rng := &scriptedRandom{t: t, floats: []float64{0.375, 0.0, 0.99}}
	choose := ChooseFrom(rng, distribution)

	for range 3 {
		_, err := choose(actions("a"), nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"second", "first", "third"}, picked)
}

func TestChooseFrom_NeverDrawsZeroWeights(t *testing.T) {
	var picked []string

	pick := func(name string) Mutator {
		return func(steps m.Steps, _ any) (m.Steps, error) {
			picked = append(picked, name)
			return steps, nil
		}
	}

	distribution := []Weighted{
		{Weight: 0, Mutator: pick("never")},
		{Weight: 1, Mutator: pick("first")},
		{Weight: 1, Mutator: pick("second")},
		{Weight: 0, Mutator: pick("never")},
	}

	// 0 is the lowest draw; 0.5 lands exactly on the boundary; values near 1
	// must not fall through to the trailing zero weight.
	rng := &scriptedRandom{t: t, floats: []float64{0.0, 0.5, 0.9999999999999999}}
	choose := ChooseFrom(rng, distribution)

	for range 3 {
		_, err := choose(actions("a"), nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"first", "second", "second"}, picked)
}

func TestChooseFrom_InvalidDistributions(t *testing.T) {
	_, err := ChooseFrom(&scriptedRandom{t: t}, nil)(actions("a"), nil)
	require.ErrorIs(t, err, ErrEmptyDistribution)

	_, err = ChooseFrom(&scriptedRandom{t: t}, []Weighted{{Weight: 0, Mutator: Identity}})(actions("a"), nil)
	require.ErrorIs(t, err, ErrEmptyDistribution)

	_, err = ChooseFrom(&scriptedRandom{t: t}, []Weighted{{Weight: -1, Mutator: Identity}})(actions("a"), nil)
	require.ErrorIs(t, err, ErrNegativeWeight)
}

func TestOnConditionThat(t *testing.T) {
	steps := actions("a", "b")

	out, err := OnConditionThat(Always(false), RemoveLastStep)(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(out))

	out, err = OnConditionThat(Always(true), RemoveLastStep)(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "-"}, names(out))

	calls := 0
	flipping := func() bool {
		calls++
		return calls%2 == 0
	}

	mutator := OnConditionThat(flipping, RemoveLastStep)
	out, err = mutator(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(out))

	out, err = mutator(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "-"}, names(out))
}

type robot struct{}

func TestFilterContext(t *testing.T) {
	isRobot := func(receiver any) bool {
		_, ok := receiver.(*robot)
		return ok
	}
	always := func(any) bool { return true }

	mutator := FilterContext(
		ContextRule{Match: isRobot, Mutator: RemoveLastStep},
		ContextRule{Match: always, Mutator: DuplicateLastStep},
	)

	out, err := mutator(actions("a", "b"), &robot{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "-"}, names(out))

	out, err = mutator(actions("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b"}, names(out))
}

func TestCounted(t *testing.T) {
	invocations := NewInvocations()
	remove := Counted(invocations, "remove_last_step", RemoveLastStep)
	duplicate := Counted(invocations, "duplicate_last_step", DuplicateLastStep)

	_, err := remove(actions("a"), &robot{})
	require.NoError(t, err)
	_, err = remove(actions("a"), &robot{})
	require.NoError(t, err)
	_, err = duplicate(actions("a"), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, invocations.Count(""))
	assert.Equal(t, 2, invocations.Count(ReceiverKey(&robot{})))
	assert.Equal(t, 1, invocations.Count("<nil>"))
	assert.Equal(t, 2, invocations.CountOperator("remove_last_step"))
	assert.Equal(t, 2, testutil.CollectAndCount(invocations))

	invocations.Reset()
	assert.Zero(t, invocations.Count(""))
	assert.Zero(t, testutil.CollectAndCount(invocations))
}

func TestReceiverKey(t *testing.T) {
	assert.Equal(t, "<nil>", ReceiverKey(nil))
	assert.Equal(t, "*mutagens.robot", ReceiverKey(&robot{}))
}
