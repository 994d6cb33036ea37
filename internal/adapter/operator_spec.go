package adapter

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// ErrUnknownOperator is returned for an operator or selector name the
// compiler does not know.
var ErrUnknownOperator = errors.New("unknown operator")

// OperatorCompiler turns YAML operator specs into mutators.
//
// An operator is either a name (remove_last_step) or a single-key mapping
// whose key names a combinator or a parameterised operator:
//
//	filter:
//	  select: {invert: last_step}
//	  op: replace_with_pass
type OperatorCompiler struct {
	random      mutagens.Random
	invocations *mutagens.Invocations
	conditions  map[string]mutagens.Condition
	armers      map[string]func(m.Outcome) bool
	triggers    map[string][]*mutagens.Trigger
}

// NewOperatorCompiler creates a compiler drawing randomness from rng. When
// invocations is not nil every named operator is counted in it.
func NewOperatorCompiler(rng mutagens.Random, invocations *mutagens.Invocations) *OperatorCompiler {
	return &OperatorCompiler{
		random:      rng,
		invocations: invocations,
		conditions:  make(map[string]mutagens.Condition),
		armers:      make(map[string]func(m.Outcome) bool),
		triggers:    make(map[string][]*mutagens.Trigger),
	}
}

// RegisterCondition makes a named condition available to on_condition.
func (c *OperatorCompiler) RegisterCondition(name string, cond mutagens.Condition) {
	c.conditions[name] = cond
}

// RegisterTrigger makes a named trigger available to the trigger operator.
// Each compiled use gets its own mutagens.Trigger armed by cond.
func (c *OperatorCompiler) RegisterTrigger(name string, cond func(m.Outcome) bool) {
	c.armers[name] = cond
}

// Triggers returns the triggers compiled so far for name. The caller feeds
// them outcomes, usually through Weaver.Observe.
func (c *OperatorCompiler) Triggers(name string) []*mutagens.Trigger {
	return c.triggers[name]
}

// OperatorName labels an operator spec for lineages and listings.
func OperatorName(node *yaml.Node) string {
	if node == nil || node.IsZero() {
		return "identity"
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value
	case yaml.MappingNode:
		if len(node.Content) > 0 {
			return node.Content[0].Value
		}
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			return OperatorName(node.Content[0])
		}
	}

	return "operator"
}

// Compile compiles an operator spec. A missing spec compiles to identity.
func (c *OperatorCompiler) Compile(node *yaml.Node) (mutagens.Mutator, error) {
	if node == nil || node.IsZero() {
		return mutagens.Identity, nil
	}

	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	if node.Kind == yaml.ScalarNode {
		op, err := c.named(node)
		if err != nil {
			return nil, err
		}

		if c.invocations != nil {
			op = mutagens.Counted(c.invocations, node.Value, op)
		}

		return op, nil
	}

	key, value, err := singleKey(node)
	if err != nil {
		return nil, err
	}

	compile, ok := c.parameterised()[key]
	if !ok {
		return nil, fmt.Errorf("line %d: %w: %s", node.Line, ErrUnknownOperator, key)
	}

	return compile(value)
}

// CompileText compiles an operator spec given as YAML text.
func (c *OperatorCompiler) CompileText(text string) (mutagens.Mutator, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, err
	}

	return c.Compile(&node)
}

func (c *OperatorCompiler) named(node *yaml.Node) (mutagens.Mutator, error) {
	switch node.Value {
	case "identity":
		return mutagens.Identity, nil
	case "remove_last_step":
		return mutagens.RemoveLastStep, nil
	case "remove_random_step":
		return mutagens.RemoveRandomStep(c.random), nil
	case "duplicate_last_step":
		return mutagens.DuplicateLastStep, nil
	case "duplicate_steps":
		return mutagens.DuplicateSteps, nil
	case "repeat_random_step":
		return mutagens.RepeatRandomStep(c.random), nil
	case "shuffle_steps":
		return mutagens.ShuffleSteps(c.random), nil
	case "swap_if_blocks":
		return mutagens.SwapIfBlocks, nil
	case "replace_with_pass":
		return mutagens.ReplaceStepsWithPass, nil
	default:
		return nil, fmt.Errorf("line %d: %w: %s", node.Line, ErrUnknownOperator, node.Value)
	}
}

type compileFunc func(node *yaml.Node) (mutagens.Mutator, error)

func (c *OperatorCompiler) parameterised() map[string]compileFunc {
	return map[string]compileFunc{
		"in_sequence":       c.inSequence,
		"choose_from":       c.chooseFrom,
		"on_condition":      c.onCondition,
		"filter":            c.filter,
		"recurse":           c.recurse,
		"replace_condition": c.replaceCondition,
		"replace_iterator":  c.replaceIterator,
		"insert":            c.insert,
		"replace_steps":     c.replaceSteps,
		"remove_last_steps": c.removeLastSteps,
		"context":           c.context,
		"trigger":           c.trigger,
	}
}

func (c *OperatorCompiler) list(node *yaml.Node) ([]mutagens.Mutator, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, parseErrorf(node, "expected a list of operators")
	}

	ops := make([]mutagens.Mutator, 0, len(node.Content))

	for _, item := range node.Content {
		op, err := c.Compile(item)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func (c *OperatorCompiler) inSequence(node *yaml.Node) (mutagens.Mutator, error) {
	ops, err := c.list(node)
	if err != nil {
		return nil, err
	}

	return mutagens.InSequence(ops...), nil
}

func (c *OperatorCompiler) chooseFrom(node *yaml.Node) (mutagens.Mutator, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, parseErrorf(node, "choose_from expects a list of {weight, op}")
	}

	distribution := make([]mutagens.Weighted, 0, len(node.Content))

	for _, item := range node.Content {
		fields, err := mappingFields(item)
		if err != nil {
			return nil, err
		}

		w := mutagens.Weighted{Weight: 1}
		if weight, ok := fields["weight"]; ok {
			if err := weight.Decode(&w.Weight); err != nil {
				return nil, parseErrorf(weight, "weight: %v", err)
			}
		}

		if w.Mutator, err = c.Compile(fields["op"]); err != nil {
			return nil, err
		}

		distribution = append(distribution, w)
	}

	return mutagens.ChooseFrom(c.random, distribution), nil
}

func (c *OperatorCompiler) onCondition(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	when, ok := fields["when"]
	if !ok {
		return nil, parseErrorf(node, "on_condition needs a when")
	}

	var cond mutagens.Condition

	switch when.Tag {
	case "!!bool":
		var b bool
		if err := when.Decode(&b); err != nil {
			return nil, parseErrorf(when, "when: %v", err)
		}

		cond = mutagens.Always(b)
	default:
		if cond, ok = c.conditions[when.Value]; !ok {
			return nil, parseErrorf(when, "unknown condition %q", when.Value)
		}
	}

	op, err := c.Compile(fields["op"])
	if err != nil {
		return nil, err
	}

	return mutagens.OnConditionThat(cond, op), nil
}

func (c *OperatorCompiler) trigger(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	name, ok := fields["name"]
	if !ok {
		return nil, parseErrorf(node, "trigger needs a name")
	}

	cond, ok := c.armers[name.Value]
	if !ok {
		return nil, parseErrorf(name, "unknown trigger %q", name.Value)
	}

	op, err := c.Compile(fields["op"])
	if err != nil {
		return nil, err
	}

	t := mutagens.NewTrigger(cond, op)
	c.triggers[name.Value] = append(c.triggers[name.Value], t)

	return t.Mutator(), nil
}

func (c *OperatorCompiler) filter(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	selector, err := c.Selector(fields["select"])
	if err != nil {
		return nil, err
	}

	op, err := c.Compile(fields["op"])
	if err != nil {
		return nil, err
	}

	return mutagens.FilterSteps(selector, op), nil
}

func (c *OperatorCompiler) recurse(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	op, err := c.Compile(fields["op"])
	if err != nil {
		return nil, err
	}

	minDepth, maxDepth := 0, 10

	if n, ok := fields["min"]; ok {
		if err := n.Decode(&minDepth); err != nil {
			return nil, parseErrorf(n, "min: %v", err)
		}
	}

	if n, ok := fields["max"]; ok {
		if err := n.Decode(&maxDepth); err != nil {
			return nil, parseErrorf(n, "max: %v", err)
		}
	}

	var targets m.KindSet

	if into, ok := fields["into"]; ok {
		if targets, err = kindSet(into); err != nil {
			return nil, err
		}
	}

	return mutagens.RecurseIntoNestedSteps(op, targets, minDepth, maxDepth), nil
}

func (c *OperatorCompiler) replaceCondition(node *yaml.Node) (mutagens.Mutator, error) {
	cond, err := parseExpr(node)
	if err != nil {
		return nil, err
	}

	return mutagens.ReplaceConditionWith(cond), nil
}

func (c *OperatorCompiler) replaceIterator(node *yaml.Node) (mutagens.Mutator, error) {
	var values []any
	if err := node.Decode(&values); err != nil {
		return nil, parseErrorf(node, "replace_iterator expects a list: %v", err)
	}

	return mutagens.ReplaceForIteratorWith(values), nil
}

func (c *OperatorCompiler) insert(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	at := 0
	if n, ok := fields["at"]; ok {
		if err := n.Decode(&at); err != nil {
			return nil, parseErrorf(n, "at: %v", err)
		}
	}

	fragment, err := fragmentSteps(fields["steps"])
	if err != nil {
		return nil, err
	}

	return mutagens.InsertSteps(at, fragment), nil
}

func (c *OperatorCompiler) replaceSteps(node *yaml.Node) (mutagens.Mutator, error) {
	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	var start, end int

	for key, dst := range map[string]*int{"start": &start, "end": &end} {
		n, ok := fields[key]
		if !ok {
			return nil, parseErrorf(node, "replace_steps needs %s", key)
		}

		if err := n.Decode(dst); err != nil {
			return nil, parseErrorf(n, "%s: %v", key, err)
		}
	}

	fragment, err := fragmentSteps(fields["steps"])
	if err != nil {
		return nil, err
	}

	return mutagens.ReplaceStepsWith(start, end, fragment), nil
}

func (c *OperatorCompiler) removeLastSteps(node *yaml.Node) (mutagens.Mutator, error) {
	n, reapply, err := countSpec(node)
	if err != nil {
		return nil, err
	}

	return mutagens.RemoveLastSteps(n, reapply), nil
}

// context applies operators only to sessions whose variables match:
//
//	context:
//	  - when: {mode: night}
//	    op: remove_last_step
func (c *OperatorCompiler) context(node *yaml.Node) (mutagens.Mutator, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, parseErrorf(node, "context expects a list of {when, op}")
	}

	rules := make([]mutagens.ContextRule, 0, len(node.Content))

	for _, item := range node.Content {
		fields, err := mappingFields(item)
		if err != nil {
			return nil, err
		}

		var want map[string]any
		if when, ok := fields["when"]; ok {
			if err := when.Decode(&want); err != nil {
				return nil, parseErrorf(when, "when: %v", err)
			}
		}

		op, err := c.Compile(fields["op"])
		if err != nil {
			return nil, err
		}

		rules = append(rules, mutagens.ContextRule{Match: sessionMatches(want), Mutator: op})
	}

	return mutagens.FilterContext(rules...), nil
}

func sessionMatches(want map[string]any) func(receiver any) bool {
	return func(receiver any) bool {
		sess, ok := receiver.(*Session)
		if !ok {
			return false
		}

		for name, v := range want {
			got, ok := sess.Get(name)
			if !ok || !reflect.DeepEqual(got, normalize(v)) {
				return false
			}
		}

		return true
	}
}

// Selector compiles a selector spec. A missing spec selects the whole
// sequence.
func (c *OperatorCompiler) Selector(node *yaml.Node) (mutagens.Selector, error) {
	if node == nil || node.IsZero() {
		return mutagens.ChooseIdentity, nil
	}

	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "identity":
			return mutagens.ChooseIdentity, nil
		case "last_step":
			return mutagens.ChooseLastStep, nil
		default:
			return nil, fmt.Errorf("line %d: %w: selector %s", node.Line, ErrUnknownOperator, node.Value)
		}
	}

	key, value, err := singleKey(node)
	if err != nil {
		return nil, err
	}

	switch key {
	case "last_steps":
		n, reapply, err := countSpec(value)
		if err != nil {
			return nil, err
		}

		return mutagens.ChooseLastSteps(n, reapply), nil
	case "random_steps":
		var n int
		if err := value.Decode(&n); err != nil {
			return nil, parseErrorf(value, "random_steps: %v", err)
		}

		return mutagens.ChooseRandomSteps(c.random, n), nil
	case "exclude_control", "include_control":
		kinds, err := kindSet(value)
		if err != nil {
			return nil, err
		}

		if key == "exclude_control" {
			return mutagens.ExcludeControlStructures(kinds), nil
		}

		return mutagens.IncludeControlStructures(kinds), nil
	case "invert":
		inner, err := c.Selector(value)
		if err != nil {
			return nil, err
		}

		return mutagens.Invert(inner), nil
	default:
		return nil, fmt.Errorf("line %d: %w: selector %s", node.Line, ErrUnknownOperator, key)
	}
}

// countSpec reads either a bare count or {n, reapply}.
func countSpec(node *yaml.Node) (int, bool, error) {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return 0, false, parseErrorf(node, "%v", err)
		}

		return n, false, nil
	}

	var spec struct {
		N       int  `yaml:"n"`
		Reapply bool `yaml:"reapply"`
	}

	if err := node.Decode(&spec); err != nil {
		return 0, false, parseErrorf(node, "%v", err)
	}

	return spec.N, spec.Reapply, nil
}

var kindNames = map[string]m.StepKind{
	"if":     m.StepIf,
	"while":  m.StepWhile,
	"for":    m.StepFor,
	"try":    m.StepTry,
	"return": m.StepReturn,
	"func":   m.StepFunc,
}

func kindSet(node *yaml.Node) (m.KindSet, error) {
	var names []string
	if err := node.Decode(&names); err != nil {
		return nil, parseErrorf(node, "expected a list of step kinds: %v", err)
	}

	set := m.NewKindSet()

	for _, name := range names {
		kind, ok := kindNames[strings.ToLower(name)]
		if !ok {
			known := make([]string, 0, len(kindNames))
			for k := range kindNames {
				known = append(known, k)
			}

			sort.Strings(known)

			return nil, parseErrorf(node, "unknown step kind %q (want one of %s)", name, strings.Join(known, ", "))
		}

		set[kind] = struct{}{}
	}

	return set, nil
}

// fragmentSteps reads inserted steps given inline as a list or as YAML text.
func fragmentSteps(node *yaml.Node) (m.Steps, error) {
	if node == nil {
		return nil, errors.New("missing steps")
	}

	if node.Kind == yaml.ScalarNode {
		return ParseFragment(node.Value)
	}

	return parseSteps(node)
}

func singleKey(node *yaml.Node) (string, *yaml.Node, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", nil, fmt.Errorf("line %d: expected a single-key mapping", node.Line)
	}

	return node.Content[0].Value, node.Content[1], nil
}
