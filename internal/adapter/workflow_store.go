package adapter

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// ErrUnknownTarget is returned for a target the workflow does not declare.
var ErrUnknownTarget = errors.New("unknown target")

// SpliceSpec is the fixed frame of every step sequence in genetic mode.
type SpliceSpec struct {
	Prefix int `yaml:"prefix"`
	Suffix int `yaml:"suffix"`
}

// SearchSpec is the search section of a workflow document. CLI flags
// override it.
type SearchSpec struct {
	Strategy             string     `yaml:"strategy"`
	Calls                int        `yaml:"calls"`
	VariantsPerRound     int        `yaml:"variants_per_round"`
	IterationsPerVariant int        `yaml:"iterations_per_variant"`
	Direction            string     `yaml:"direction"`
	Seed                 *int64     `yaml:"seed"`
	KeepBest             bool       `yaml:"keep_best"`
	Metric               string     `yaml:"metric"`
	Splice               SpliceSpec `yaml:"splice"`
}

// SourceRef points a target at a Go function whose body seeds its steps.
// File is relative to the workflow document.
type SourceRef struct {
	File string `yaml:"file"`
	Func string `yaml:"func"`
}

// TriggerSpec arms a trigger operator from the outcomes of a target. When
// is a metric expression; a non-zero result arms the trigger once.
type TriggerSpec struct {
	Target m.TargetID `yaml:"target"`
	When   string     `yaml:"when"`
}

// TargetDoc is one instrumented target of a workflow.
type TargetDoc struct {
	ID     m.TargetID
	State  map[string]any
	Steps  m.Steps
	Source *SourceRef
	// Operator is the raw operator spec, compiled by OperatorCompiler.
	Operator *yaml.Node
}

// WorkflowDoc is a parsed workflow document.
type WorkflowDoc struct {
	Path       m.Path
	Name       string
	Search     SearchSpec
	State      map[string]any
	Procedures map[string]*m.Step
	Triggers   map[string]TriggerSpec
	Targets    []*TargetDoc
}

// Target looks up a target by id.
func (d *WorkflowDoc) Target(id m.TargetID) (*TargetDoc, bool) {
	for _, t := range d.Targets {
		if t.ID == id {
			return t, true
		}
	}

	return nil, false
}

// TargetIDs lists the targets in document order.
func (d *WorkflowDoc) TargetIDs() []m.TargetID {
	ids := make([]m.TargetID, 0, len(d.Targets))
	for _, t := range d.Targets {
		ids = append(ids, t.ID)
	}

	return ids
}

// WorkflowStore loads workflow documents.
type WorkflowStore interface {
	Load(path m.Path) (*WorkflowDoc, error)
}

// LocalWorkflowStore reads workflow documents through an FSAdapter and
// imports Go sources referenced by targets.
type LocalWorkflowStore struct {
	fs        FSAdapter
	goAdapter GoFileAdapter
}

// NewWorkflowStore constructs a LocalWorkflowStore.
func NewWorkflowStore(fs FSAdapter, goAdapter GoFileAdapter) *LocalWorkflowStore {
	return &LocalWorkflowStore{fs: fs, goAdapter: goAdapter}
}

// Load reads and parses the workflow document at path.
func (s *LocalWorkflowStore) Load(path m.Path) (*WorkflowDoc, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}

	doc, err := ParseWorkflow(data)
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}

	doc.Path = path

	for _, t := range doc.Targets {
		if t.Source == nil {
			continue
		}

		if t.Steps, err = s.importSource(path, t.Source); err != nil {
			return nil, fmt.Errorf("target %s: %w", t.ID, err)
		}
	}

	return doc, nil
}

func (s *LocalWorkflowStore) importSource(doc m.Path, ref *SourceRef) (m.Steps, error) {
	file := ref.File
	if !filepath.IsAbs(file) {
		file = string(s.fs.JoinPath(filepath.Dir(string(doc)), file))
	}

	src, err := s.fs.ReadFile(m.Path(file))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	steps, err := s.goAdapter.ImportFunc(file, src, ref.Func)
	if err != nil {
		return nil, fmt.Errorf("import %s from %s: %w", ref.Func, ref.File, err)
	}

	return steps, nil
}

type rawTarget struct {
	Name     string         `yaml:"name"`
	State    map[string]any `yaml:"state"`
	Operator yaml.Node      `yaml:"operator"`
	Steps    yaml.Node      `yaml:"steps"`
	Source   *SourceRef     `yaml:"source"`
}

type rawWorkflow struct {
	Name       string                 `yaml:"name"`
	Search     SearchSpec             `yaml:"search"`
	State      map[string]any         `yaml:"state"`
	Procedures map[string]yaml.Node   `yaml:"procedures"`
	Triggers   map[string]TriggerSpec `yaml:"triggers"`
	Targets    []rawTarget            `yaml:"targets"`
}

// ParseWorkflow parses a workflow document.
func ParseWorkflow(data []byte) (*WorkflowDoc, error) {
	var raw rawWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &WorkflowDoc{
		Name:       raw.Name,
		Search:     raw.Search,
		State:      raw.State,
		Procedures: make(map[string]*m.Step, len(raw.Procedures)),
		Triggers:   raw.Triggers,
	}

	names := make([]string, 0, len(raw.Procedures))
	for name := range raw.Procedures {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		node := raw.Procedures[name]

		proc, err := parseProcedure(name, &node)
		if err != nil {
			return nil, fmt.Errorf("procedure %s: %w", name, err)
		}

		doc.Procedures[name] = proc
	}

	seen := make(map[m.TargetID]bool)

	for i := range raw.Targets {
		rt := &raw.Targets[i]
		if rt.Name == "" {
			return nil, fmt.Errorf("target #%d has no name", i+1)
		}

		id := m.TargetID(rt.Name)
		if seen[id] {
			return nil, fmt.Errorf("duplicate target %s", id)
		}

		seen[id] = true

		steps, err := parseSteps(&rt.Steps)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", id, err)
		}

		if rt.Source != nil && steps != nil {
			return nil, fmt.Errorf("target %s: steps and source are exclusive", id)
		}

		target := &TargetDoc{ID: id, State: rt.State, Steps: steps, Source: rt.Source}
		if !rt.Operator.IsZero() {
			op := rt.Operator
			target.Operator = &op
		}

		doc.Targets = append(doc.Targets, target)
	}

	for name, trigger := range doc.Triggers {
		if !seen[trigger.Target] {
			return nil, fmt.Errorf("trigger %s: %w %s", name, ErrUnknownTarget, trigger.Target)
		}
	}

	return doc, nil
}

// parseProcedure accepts either a plain step list or a mapping with params
// and body.
func parseProcedure(name string, node *yaml.Node) (*m.Step, error) {
	proc := &m.Step{Kind: m.StepFunc, Name: name, Pos: node.Line}

	if node.Kind == yaml.SequenceNode {
		body, err := parseSteps(node)
		proc.Body = body

		return proc, err
	}

	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	if params, ok := fields["params"]; ok {
		if err := params.Decode(&proc.Params); err != nil {
			return nil, parseErrorf(params, "params: %v", err)
		}
	}

	if proc.Body, err = parseSteps(fields["body"]); err != nil {
		return nil, err
	}

	return proc, nil
}

// ParseFragment parses a YAML step list, or a single step mapping, such as
// the text given to an insert operator.
func ParseFragment(text string) (m.Steps, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, err
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return m.Steps{}, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.MappingNode || node.Kind == yaml.ScalarNode {
		step, err := parseStep(node)
		if err != nil {
			return nil, err
		}

		return m.Steps{step}, nil
	}

	return parseSteps(node)
}

// ParseError locates a malformed step in its document.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func parseErrorf(node *yaml.Node, format string, args ...any) error {
	return &ParseError{Line: node.Line, Msg: fmt.Sprintf(format, args...)}
}

// stepKeys maps the key that introduces a step to its kind and the other
// keys the step accepts.
var stepKeys = map[string]struct {
	kind  m.StepKind
	extra []string
}{
	"do":     {m.StepAction, []string{"args", "into"}},
	"set":    {m.StepAssign, []string{"to"}},
	"pass":   {m.StepPass, nil},
	"if":     {m.StepIf, []string{"then", "else"}},
	"while":  {m.StepWhile, []string{"body"}},
	"for":    {m.StepFor, []string{"in", "body"}},
	"try":    {m.StepTry, []string{"except"}},
	"raise":  {m.StepRaise, []string{"message"}},
	"return": {m.StepReturn, nil},
	"func":   {m.StepFunc, []string{"params", "body"}},
}

func parseSteps(node *yaml.Node) (m.Steps, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}

	if node.Kind != yaml.SequenceNode {
		return nil, parseErrorf(node, "expected a list of steps")
	}

	steps := make(m.Steps, 0, len(node.Content))

	for _, item := range node.Content {
		step, err := parseStep(item)
		if err != nil {
			return nil, err
		}

		steps = append(steps, step)
	}

	return steps, nil
}

func parseStep(node *yaml.Node) (*m.Step, error) {
	if node.Kind == yaml.ScalarNode {
		if node.Value == "pass" {
			return m.Pass(node.Line), nil
		}

		return nil, parseErrorf(node, "unexpected scalar step %q", node.Value)
	}

	fields, err := mappingFields(node)
	if err != nil {
		return nil, err
	}

	var key string

	for k := range fields {
		if _, ok := stepKeys[k]; !ok {
			continue
		}

		if key != "" {
			return nil, parseErrorf(node, "step mixes %q and %q", key, k)
		}

		key = k
	}

	if key == "" {
		return nil, parseErrorf(node, "step has none of the keys %s", strings.Join(sortedStepKeys(), ", "))
	}

	spec := stepKeys[key]
	allowed := map[string]bool{key: true, "line": true}

	for _, k := range spec.extra {
		allowed[k] = true
	}

	for k := range fields {
		if !allowed[k] {
			return nil, parseErrorf(fields[k], "unexpected key %q in %s step", k, key)
		}
	}

	step := &m.Step{Kind: spec.kind, Pos: node.Line}

	if line, ok := fields["line"]; ok {
		if err := line.Decode(&step.Pos); err != nil {
			return nil, parseErrorf(line, "line: %v", err)
		}
	}

	if err := fillStep(step, key, fields); err != nil {
		return nil, err
	}

	return step, nil
}

//nolint:cyclop // One branch per step kind.
func fillStep(step *m.Step, key string, fields map[string]*yaml.Node) error {
	head := fields[key]

	var err error

	switch step.Kind {
	case m.StepAction:
		step.Call = head.Value
		if into, ok := fields["into"]; ok {
			step.Target = into.Value
		}

		if args, ok := fields["args"]; ok {
			if args.Kind != yaml.SequenceNode {
				return parseErrorf(args, "args must be a list")
			}

			for _, a := range args.Content {
				e, err := parseExpr(a)
				if err != nil {
					return err
				}

				step.Args = append(step.Args, e)
			}
		}
	case m.StepAssign:
		step.Target = head.Value
		if step.Value, err = requiredExpr(fields, "to", head); err != nil {
			return err
		}
	case m.StepPass:
	case m.StepIf:
		if step.Cond, err = parseExpr(head); err != nil {
			return err
		}

		if step.Body, err = parseSteps(fields["then"]); err != nil {
			return err
		}

		step.Else, err = parseSteps(fields["else"])
	case m.StepWhile:
		if step.Cond, err = parseExpr(head); err != nil {
			return err
		}

		step.Body, err = parseSteps(fields["body"])
	case m.StepFor:
		step.Var = head.Value
		if step.Iter, err = requiredExpr(fields, "in", head); err != nil {
			return err
		}

		step.Body, err = parseSteps(fields["body"])
	case m.StepTry:
		if step.Body, err = parseSteps(head); err != nil {
			return err
		}

		step.Handlers, err = parseHandlers(fields["except"])
	case m.StepRaise:
		step.Name = head.Value
		if msg, ok := fields["message"]; ok {
			step.Message = msg.Value
		}
	case m.StepReturn:
		step.Value, err = parseExpr(head)
	case m.StepFunc:
		step.Name = head.Value
		if params, ok := fields["params"]; ok {
			if err := params.Decode(&step.Params); err != nil {
				return parseErrorf(params, "params: %v", err)
			}
		}

		step.Body, err = parseSteps(fields["body"])
	}

	return err
}

func parseHandlers(node *yaml.Node) ([]m.Handler, error) {
	if node == nil {
		return nil, nil
	}

	if node.Kind != yaml.SequenceNode {
		return nil, parseErrorf(node, "except must be a list of handlers")
	}

	handlers := make([]m.Handler, 0, len(node.Content))

	for _, item := range node.Content {
		fields, err := mappingFields(item)
		if err != nil {
			return nil, err
		}

		h := m.Handler{}
		if match, ok := fields["match"]; ok {
			h.Match = match.Value
		}

		if h.Body, err = parseSteps(fields["body"]); err != nil {
			return nil, err
		}

		handlers = append(handlers, h)
	}

	return handlers, nil
}

func requiredExpr(fields map[string]*yaml.Node, key string, at *yaml.Node) (m.Expr, error) {
	node, ok := fields[key]
	if !ok {
		return m.Expr{}, parseErrorf(at, "missing %q", key)
	}

	return parseExpr(node)
}

// parseExpr reads an expression: strings are expression source, other
// scalars and lists are literals, {predicate: name} refers to a registered
// predicate and {literal: value} forces a literal.
func parseExpr(node *yaml.Node) (m.Expr, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!str" {
			return m.Expression(node.Value), nil
		}

		return decodeLiteral(node)
	case yaml.SequenceNode:
		return decodeLiteral(node)
	case yaml.MappingNode:
		fields, err := mappingFields(node)
		if err != nil {
			return m.Expr{}, err
		}

		if p, ok := fields["predicate"]; ok && len(fields) == 1 {
			return m.FuncRef(p.Value), nil
		}

		if lit, ok := fields["literal"]; ok && len(fields) == 1 {
			return decodeLiteral(lit)
		}

		return m.Expr{}, parseErrorf(node, "expression mapping must hold only predicate or literal")
	default:
		return m.Expr{}, parseErrorf(node, "unsupported expression")
	}
}

func decodeLiteral(node *yaml.Node) (m.Expr, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return m.Expr{}, parseErrorf(node, "%v", err)
	}

	return m.Literal(v), nil
}

func mappingFields(node *yaml.Node) (map[string]*yaml.Node, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		line := 0
		if node != nil {
			line = node.Line
		}

		return nil, &ParseError{Line: line, Msg: "expected a mapping"}
	}

	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	return fields, nil
}

func sortedStepKeys() []string {
	keys := make([]string, 0, len(stepKeys))
	for k := range stepKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
