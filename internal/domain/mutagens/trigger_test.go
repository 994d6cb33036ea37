package mutagens

import (
	"errors"
	"testing"

	m "github.com/mouse-blink/goevolve/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger(t *testing.T) {
	failed := func(o m.Outcome) bool { return o.Err != nil }
	trigger := NewTrigger(failed, RemoveLastStep)
	mutator := trigger.Mutator()
	steps := actions("a", "b")

	out, err := mutator(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(out), "unarmed trigger is identity")

	trigger.Observe(m.Outcome{Value: 1})
	assert.Zero(t, trigger.Pending())

	trigger.Observe(m.Outcome{Err: errors.New("stuck")})
	assert.Equal(t, 1, trigger.Pending())

	out, err = mutator(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "-"}, names(out))
	assert.Zero(t, trigger.Pending())

	out, err = mutator(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(out), "each activation fires once")
}
