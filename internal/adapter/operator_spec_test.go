package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

func actionSteps(calls ...string) m.Steps {
	steps := make(m.Steps, len(calls))
	for i, c := range calls {
		steps[i] = &m.Step{Kind: m.StepAction, Pos: i + 1, Call: c}
	}

	return steps
}

func calls(steps m.Steps) []string {
	out := make([]string, 0, len(steps))

	for _, s := range steps {
		if s.IsPass() {
			out = append(out, "pass")
			continue
		}

		out = append(out, s.Call)
	}

	return out
}

func compile(t *testing.T, c *OperatorCompiler, text string) mutagens.Mutator {
	t.Helper()

	op, err := c.CompileText(text)
	require.NoError(t, err)

	return op
}

func TestOperatorCompiler_Selectors(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)
	steps := m.Steps{
		{Kind: m.StepAction, Call: "a"},
		{Kind: m.StepIf, Cond: m.Literal(true)},
		{Kind: m.StepAction, Call: "b"},
		{Kind: m.StepWhile, Cond: m.Literal(false)},
	}

	tests := []struct {
		spec string
		want []m.Region
	}{
		{"identity", []m.Region{{Start: 0, End: 4}}},
		{"last_step", []m.Region{{Start: 3, End: 4}}},
		{"last_steps: 2", []m.Region{{Start: 2, End: 4}}},
		{"last_steps: {n: 2, reapply: true}", []m.Region{{Start: 2, End: 4}}},
		{"exclude_control: [if, while]", []m.Region{{Start: 0, End: 1}, {Start: 2, End: 3}}},
		{"include_control: [while]", []m.Region{{Start: 3, End: 4}}},
		{"invert: last_step", []m.Region{{Start: 0, End: 3}}},
		{"random_steps: 4", []m.Region{{Start: 0, End: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			var node yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(tt.spec), &node))

			selector, err := c.Selector(node.Content[0])
			require.NoError(t, err)
			assert.Equal(t, tt.want, selector(steps))
		})
	}

	selector, err := c.Selector(nil)
	require.NoError(t, err)
	assert.Equal(t, []m.Region{{Start: 0, End: 4}}, selector(steps))
}

func TestOperatorCompiler_ParameterisedOperators(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)
	steps := actionSteps("a", "b", "c", "d")

	tests := []struct {
		spec string
		want []string
	}{
		{"remove_last_steps: 2", []string{"a", "b", "pass", "pass"}},
		{"replace_steps: {start: 1, end: 3, steps: [{do: x}]}", []string{"a", "x", "d"}},
		{"insert: {at: 4, steps: [{do: z}]}", []string{"a", "b", "c", "d", "z"}},
		{"duplicate_steps", []string{"a", "b", "c", "d", "a", "b", "c", "d"}},
		{"filter: {select: {random_steps: 1}, op: identity}", []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			out, err := compile(t, c, tt.spec)(steps, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, calls(out))
		})
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, calls(steps), "input untouched")
}

func TestOperatorCompiler_RemoveLastStepsRemembersQuota(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)
	op := compile(t, c, "remove_last_steps: {n: 1, reapply: false}")

	out, err := op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "pass"}, calls(out))

	out, err = op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls(out))
}

func TestOperatorCompiler_Conditions(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)

	armed := false
	c.RegisterCondition("armed", func() bool { return armed })

	op := compile(t, c, "on_condition: {when: armed, op: remove_last_step}")

	out, err := op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls(out))

	armed = true
	out, err = op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "pass"}, calls(out))
}

func TestOperatorCompiler_CountsNamedOperators(t *testing.T) {
	invocations := mutagens.NewInvocations()
	c := NewOperatorCompiler(mutagens.NewRandom(3), invocations)

	op := compile(t, c, "in_sequence: [remove_last_step, shuffle_steps, remove_last_step]")

	_, err := op(actionSteps("a", "b", "c"), NewSession(nil))
	require.NoError(t, err)

	assert.Equal(t, 2, invocations.CountOperator("remove_last_step"))
	assert.Equal(t, 1, invocations.CountOperator("shuffle_steps"))
	assert.Equal(t, 3, invocations.Count(mutagens.ReceiverKey(&Session{})))
}

func TestOperatorCompiler_Errors(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)

	tests := []struct {
		spec string
		want string
	}{
		{"teleport", "unknown operator: teleport"},
		{"warp: 3", "unknown operator: warp"},
		{"in_sequence: remove_last_step", "expected a list of operators"},
		{"choose_from: {op: identity}", "choose_from expects a list"},
		{"on_condition: {op: identity}", "needs a when"},
		{"on_condition: {when: later, op: identity}", `unknown condition "later"`},
		{"filter: {select: everything, op: identity}", "selector everything"},
		{"filter: {select: {exclude_control: [loop]}, op: identity}", `unknown step kind "loop"`},
		{"replace_iterator: 3", "replace_iterator expects a list"},
		{"replace_steps: {start: 1, steps: [pass]}", "replace_steps needs end"},
		{"insert: {at: 0}", "missing steps"},
		{"recurse: {op: identity, max: deep}", "max:"},
		{"{a: 1, b: 2}", "single-key mapping"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := c.CompileText(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := c.CompileText("teleport")
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestOperatorCompiler_MissingSpecIsIdentity(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)

	op, err := c.Compile(nil)
	require.NoError(t, err)

	out, err := op(actionSteps("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, calls(out))
}

func TestOperatorName(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"remove_last_step", "remove_last_step"},
		{"filter: {select: last_step, op: identity}", "filter"},
	}

	for _, tt := range tests {
		var node yaml.Node
		require.NoError(t, yaml.Unmarshal([]byte(tt.spec), &node))
		assert.Equal(t, tt.want, OperatorName(&node))
	}

	assert.Equal(t, "identity", OperatorName(nil))
}

func TestOperatorCompiler_Trigger(t *testing.T) {
	c := NewOperatorCompiler(mutagens.NewRandom(3), nil)
	c.RegisterTrigger("failed", func(o m.Outcome) bool { return o.Err != nil })

	op := compile(t, c, "trigger: {name: failed, op: remove_last_step}")

	out, err := op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls(out), "unarmed trigger is identity")

	triggers := c.Triggers("failed")
	require.Len(t, triggers, 1)

	triggers[0].Observe(m.Outcome{Value: 1.0})
	triggers[0].Observe(m.Outcome{Err: assert.AnError})
	assert.Equal(t, 1, triggers[0].Pending())

	out, err = op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "pass"}, calls(out), "removed step leaves a pass")

	out, err = op(actionSteps("a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls(out), "one activation per armed outcome")

	_, err = c.CompileText("trigger: {op: identity}")
	require.ErrorContains(t, err, "trigger needs a name")

	_, err = c.CompileText("trigger: {name: later, op: identity}")
	require.ErrorContains(t, err, `unknown trigger "later"`)
}
