package adapter

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"sync"

	"github.com/Knetic/govaluate"

	m "github.com/mouse-blink/goevolve/internal/model"
)

var (
	// ErrUnknownAction is returned for an action step nothing can resolve.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnknownPredicate is returned for a predicate reference that was never registered.
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrLoopLimit stops a loop that would run past MaxIterations.
	ErrLoopLimit = errors.New("loop iteration limit reached")
	// ErrCallDepth stops runaway procedure recursion.
	ErrCallDepth = errors.New("procedure call depth exceeded")
)

const (
	defaultMaxIterations = 10000
	defaultMaxCallDepth  = 200
)

// RaisedError is the error produced by a raise step.
type RaisedError struct {
	Name    string
	Message string
	Pos     int
}

func (e *RaisedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s raised at line %d", e.Name, e.Pos)
	}

	return fmt.Sprintf("%s raised at line %d: %s", e.Name, e.Pos, e.Message)
}

// Session is the state a run works on: the variables declared by the
// workflow and everything emitted so far. Passing the same session to
// several calls lets them share state.
type Session struct {
	mu      sync.Mutex
	vars    map[string]any
	emitted []any
}

// NewSession creates a session seeded with a copy of state.
func NewSession(state map[string]any) *Session {
	vars := make(map[string]any, len(state))
	for k, v := range state {
		vars[k] = normalize(v)
	}

	return &Session{vars: vars}
}

// Get returns a session variable.
func (s *Session) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vars[name]

	return v, ok
}

// Set stores a session variable.
func (s *Session) Set(name string, v any) {
	s.mu.Lock()
	s.vars[name] = normalize(v)
	s.mu.Unlock()
}

// Vars returns a copy of the session variables.
func (s *Session) Vars() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.vars)
}

// Emit appends values to the run log.
func (s *Session) Emit(values ...any) {
	s.mu.Lock()
	for _, v := range values {
		s.emitted = append(s.emitted, normalize(v))
	}
	s.mu.Unlock()
}

// Emitted returns a copy of the run log.
func (s *Session) Emitted() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]any(nil), s.emitted...)
}

func (s *Session) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.vars[name]

	return ok
}

// Action is a host action callable from an action step. Its result is
// stored when the step names an "into" variable.
type Action func(ctx context.Context, s *Session, args []any) (any, error)

// Predicate is a host predicate referenced from a condition.
type Predicate func(s *Session) (bool, error)

// Dispatcher routes a call to another target through the search.
type Dispatcher interface {
	Call(ctx context.Context, target m.TargetID, receiver any) (any, error)
}

// Interpreter executes workflow steps. It serves the reference steps of
// every target declared by its document and materializes variants into
// runnable programs.
type Interpreter struct {
	doc *WorkflowDoc

	// MaxIterations bounds each loop and range; MaxCallDepth bounds nested
	// procedure and target calls.
	MaxIterations int
	MaxCallDepth  int

	mu         sync.RWMutex
	actions    map[string]Action
	predicates map[string]Predicate
	dispatcher Dispatcher
	compiled   map[string]*govaluate.EvaluableExpression
	functions  map[string]govaluate.ExpressionFunction
}

// NewInterpreter creates an interpreter for doc.
func NewInterpreter(doc *WorkflowDoc) *Interpreter {
	in := &Interpreter{
		doc:           doc,
		MaxIterations: defaultMaxIterations,
		MaxCallDepth:  defaultMaxCallDepth,
		actions:       make(map[string]Action),
		predicates:    make(map[string]Predicate),
		compiled:      make(map[string]*govaluate.EvaluableExpression),
	}
	in.functions = in.expressionFunctions()

	return in
}

// Doc returns the document the interpreter runs.
func (in *Interpreter) Doc() *WorkflowDoc {
	return in.doc
}

// RegisterAction makes a host action callable by name.
func (in *Interpreter) RegisterAction(name string, action Action) {
	in.mu.Lock()
	in.actions[name] = action
	in.mu.Unlock()
}

// RegisterPredicate makes a host predicate available to {predicate: name}.
func (in *Interpreter) RegisterPredicate(name string, predicate Predicate) {
	in.mu.Lock()
	in.predicates[name] = predicate
	in.mu.Unlock()
}

// SetDispatcher routes action steps naming another target through d, so that
// nested target calls take part in the search.
func (in *Interpreter) SetDispatcher(d Dispatcher) {
	in.mu.Lock()
	in.dispatcher = d
	in.mu.Unlock()
}

// NewSession creates a session for target seeded with the document state
// overlaid by the target state.
func (in *Interpreter) NewSession(target m.TargetID) *Session {
	state := maps.Clone(in.doc.State)
	if state == nil {
		state = make(map[string]any)
	}

	if t, ok := in.doc.Target(target); ok {
		maps.Copy(state, t.State)
	}

	return NewSession(state)
}

// Reference returns a copy of the declared steps of target.
func (in *Interpreter) Reference(target m.TargetID) (m.Steps, error) {
	t, ok := in.doc.Target(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}

	steps := t.Steps.Clone()
	if steps == nil {
		steps = m.Steps{}
	}

	return steps, nil
}

// Materialize turns a variant into a runnable program.
func (in *Interpreter) Materialize(v *m.Variant) (m.Executable, error) {
	if _, ok := in.doc.Target(v.Target); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, v.Target)
	}

	return &program{in: in, target: v.Target, steps: v.Steps}, nil
}

type program struct {
	in     *Interpreter
	target m.TargetID
	steps  m.Steps
}

// Run executes the program. The receiver is the *Session to work on; nil
// starts a fresh one.
func (p *program) Run(ctx context.Context, receiver any) (any, error) {
	var sess *Session

	switch r := receiver.(type) {
	case nil:
		sess = p.in.NewSession(p.target)
	case *Session:
		sess = r
	default:
		return nil, fmt.Errorf("run %s: unsupported receiver %T", p.target, receiver)
	}

	depth, _ := ctx.Value(depthKey{}).(int)

	return p.in.run(ctx, sess, p.steps, depth)
}

// depthKey carries the call depth across dispatched target calls.
type depthKey struct{}

func (in *Interpreter) run(ctx context.Context, sess *Session, steps m.Steps, depth int) (any, error) {
	fr := &frame{sess: sess, locals: make(map[string]any), depth: depth}

	res, err := in.exec(ctx, fr, steps)
	if err != nil {
		return nil, err
	}

	return res.value, nil
}

type frame struct {
	sess   *Session
	locals map[string]any
	procs  map[string]*m.Step
	parent *frame
	depth  int
}

func (f *frame) set(name string, v any) {
	if _, local := f.locals[name]; !local && f.sess.has(name) {
		f.sess.Set(name, v)
		return
	}

	f.locals[name] = normalize(v)
}

func (f *frame) params() map[string]any {
	params := f.sess.Vars()
	maps.Copy(params, f.locals)

	// Function arguments are appended onto a leading list; clipping keeps
	// that append off the shared backing array.
	for k, v := range params {
		if list, ok := v.([]any); ok {
			params[k] = slices.Clip(list)
		}
	}

	return params
}

func (f *frame) procedure(name string) (*m.Step, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if p, ok := fr.procs[name]; ok {
			return p, true
		}
	}

	return nil, false
}

func (f *frame) declare(proc *m.Step) {
	if f.procs == nil {
		f.procs = make(map[string]*m.Step)
	}

	f.procs[proc.Name] = proc
}

// result carries the value of a return step out of nested bodies.
type result struct {
	returned bool
	value    any
}

//nolint:cyclop,gocognit // One branch per step kind.
func (in *Interpreter) exec(ctx context.Context, fr *frame, steps m.Steps) (result, error) {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result{}, err
		}

		switch step.Kind {
		case m.StepPass:
		case m.StepAction:
			v, err := in.call(ctx, fr, step)
			if err != nil {
				return result{}, err
			}

			if step.Target != "" {
				fr.set(step.Target, v)
			}
		case m.StepAssign:
			v, err := in.eval(fr, step.Value)
			if err != nil {
				return result{}, stepError(step, err)
			}

			fr.set(step.Target, v)
		case m.StepIf:
			ok, err := in.test(fr, step.Cond)
			if err != nil {
				return result{}, stepError(step, err)
			}

			body := step.Else
			if ok {
				body = step.Body
			}

			if res, err := in.exec(ctx, fr, body); err != nil || res.returned {
				return res, err
			}
		case m.StepWhile:
			if res, err := in.loop(ctx, fr, step); err != nil || res.returned {
				return res, err
			}
		case m.StepFor:
			if res, err := in.each(ctx, fr, step); err != nil || res.returned {
				return res, err
			}
		case m.StepTry:
			if res, err := in.try(ctx, fr, step); err != nil || res.returned {
				return res, err
			}
		case m.StepRaise:
			return result{}, &RaisedError{Name: step.Name, Message: step.Message, Pos: step.Pos}
		case m.StepReturn:
			v, err := in.eval(fr, step.Value)
			if err != nil {
				return result{}, stepError(step, err)
			}

			return result{returned: true, value: v}, nil
		case m.StepFunc:
			fr.declare(step)
		default:
			return result{}, fmt.Errorf("line %d: unsupported step kind %q", step.Pos, step.Kind)
		}
	}

	return result{}, nil
}

func (in *Interpreter) loop(ctx context.Context, fr *frame, step *m.Step) (result, error) {
	for i := 0; ; i++ {
		if i >= in.MaxIterations {
			return result{}, stepError(step, ErrLoopLimit)
		}

		ok, err := in.test(fr, step.Cond)
		if err != nil {
			return result{}, stepError(step, err)
		}

		if !ok {
			return result{}, nil
		}

		if res, err := in.exec(ctx, fr, step.Body); err != nil || res.returned {
			return res, err
		}
	}
}

func (in *Interpreter) each(ctx context.Context, fr *frame, step *m.Step) (result, error) {
	v, err := in.eval(fr, step.Iter)
	if err != nil {
		return result{}, stepError(step, err)
	}

	items, err := iterable(v, in.MaxIterations)
	if err != nil {
		return result{}, stepError(step, err)
	}

	for _, item := range items {
		fr.set(step.Var, item)

		if res, err := in.exec(ctx, fr, step.Body); err != nil || res.returned {
			return res, err
		}
	}

	return result{}, nil
}

func (in *Interpreter) try(ctx context.Context, fr *frame, step *m.Step) (result, error) {
	res, err := in.exec(ctx, fr, step.Body)
	if err == nil || isContextError(err) {
		return res, err
	}

	var raised *RaisedError

	name := "error"
	if errors.As(err, &raised) {
		name = raised.Name
	}

	for _, h := range step.Handlers {
		if h.Match == "" || h.Match == name {
			return in.exec(ctx, fr, h.Body)
		}
	}

	return res, err
}

// call resolves an action: the emit built-in, then procedures, then other
// targets of the document, then host actions.
func (in *Interpreter) call(ctx context.Context, fr *frame, step *m.Step) (any, error) {
	args := make([]any, 0, len(step.Args))

	for _, a := range step.Args {
		v, err := in.eval(fr, a)
		if err != nil {
			return nil, stepError(step, err)
		}

		args = append(args, v)
	}

	if step.Call == "emit" {
		fr.sess.Emit(args...)
		return nil, nil
	}

	if fr.depth >= in.MaxCallDepth {
		return nil, stepError(step, ErrCallDepth)
	}

	if proc, ok := fr.procedure(step.Call); ok {
		return in.invoke(ctx, fr, proc, args)
	}

	if proc, ok := in.doc.Procedures[step.Call]; ok {
		return in.invoke(ctx, &frame{sess: fr.sess, depth: fr.depth}, proc, args)
	}

	in.mu.RLock()
	dispatcher := in.dispatcher
	action, isAction := in.actions[step.Call]
	in.mu.RUnlock()

	if target, ok := in.doc.Target(m.TargetID(step.Call)); ok {
		if dispatcher != nil {
			return dispatcher.Call(context.WithValue(ctx, depthKey{}, fr.depth+1), target.ID, fr.sess)
		}

		return in.run(ctx, fr.sess, target.Steps, fr.depth+1)
	}

	if isAction {
		return action(ctx, fr.sess, args)
	}

	return nil, stepError(step, fmt.Errorf("%w: %s", ErrUnknownAction, step.Call))
}

func (in *Interpreter) invoke(ctx context.Context, caller *frame, proc *m.Step, args []any) (any, error) {
	if len(args) != len(proc.Params) {
		return nil, fmt.Errorf("line %d: %s takes %d arguments, got %d", proc.Pos, proc.Name, len(proc.Params), len(args))
	}

	fr := &frame{sess: caller.sess, locals: make(map[string]any, len(args)), parent: caller, depth: caller.depth + 1}
	for i, p := range proc.Params {
		fr.locals[p] = normalize(args[i])
	}

	res, err := in.exec(ctx, fr, proc.Body)
	if err != nil {
		return nil, err
	}

	return res.value, nil
}

func (in *Interpreter) test(fr *frame, cond m.Expr) (bool, error) {
	if cond.Kind == m.ExprNone {
		return false, errors.New("missing condition")
	}

	v, err := in.eval(fr, cond)
	if err != nil {
		return false, err
	}

	return truthy(v), nil
}

func (in *Interpreter) eval(fr *frame, e m.Expr) (any, error) {
	switch e.Kind {
	case m.ExprNone:
		return nil, nil
	case m.ExprLiteral:
		return normalize(e.Literal), nil
	case m.ExprText:
		expr, err := in.compile(e.Text)
		if err != nil {
			return nil, err
		}

		v, err := expr.Evaluate(fr.params())
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", e.Text, err)
		}

		return normalize(v), nil
	case m.ExprFuncRef:
		in.mu.RLock()
		pred, ok := in.predicates[e.Text]
		in.mu.RUnlock()

		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPredicate, e.Text)
		}

		return pred(fr.sess)
	case m.ExprCallable:
		return e.Callable(), nil
	default:
		return nil, fmt.Errorf("unsupported expression kind %q", e.Kind)
	}
}

func (in *Interpreter) compile(text string) (*govaluate.EvaluableExpression, error) {
	in.mu.RLock()
	expr, ok := in.compiled[text]
	in.mu.RUnlock()

	if ok {
		return expr, nil
	}

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(text, in.functions)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}

	in.mu.Lock()
	in.compiled[text] = expr
	in.mu.Unlock()

	return expr, nil
}

func stepError(step *m.Step, err error) error {
	var raised *RaisedError
	if errors.As(err, &raised) || isContextError(err) {
		return err
	}

	return fmt.Errorf("line %d: %w", step.Pos, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func iterable(v any, limit int) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case float64:
		return rangeOf(0, t, limit)
	case string:
		items := make([]any, 0, len(t))
		for _, r := range t {
			items = append(items, string(r))
		}

		return items, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot iterate over %T", v)
	}
}

// normalize turns every number into float64, the only numeric type
// expressions work with.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}

		return out
	default:
		return v
	}
}

// rangeOf lists from, from+1, ... below to, refusing more than limit items.
func rangeOf(from, to float64, limit int) ([]any, error) {
	span := math.Ceil(to - from)
	if math.IsNaN(span) {
		return nil, fmt.Errorf("range from %v to %v is not a number", from, to)
	}

	if span > float64(limit) {
		return nil, fmt.Errorf("range of %v items: %w", span, ErrLoopLimit)
	}

	if span <= 0 {
		return []any{}, nil
	}

	n := int(span)
	items := make([]any, 0, n)

	for i := range n {
		items = append(items, from+float64(i))
	}

	return items, nil
}

func numbers(name string, args []any) ([]float64, error) {
	out := make([]float64, 0, len(args))

	for _, a := range args {
		if list, ok := a.([]any); ok {
			nested, err := numbers(name, list)
			if err != nil {
				return nil, err
			}

			out = append(out, nested...)

			continue
		}

		f, ok := normalize(a).(float64)
		if !ok {
			return nil, fmt.Errorf("%s: %v is not a number", name, a)
		}

		out = append(out, f)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no arguments", name)
	}

	return out, nil
}

func (in *Interpreter) expressionFunctions() map[string]govaluate.ExpressionFunction {
	return map[string]govaluate.ExpressionFunction{
		"min": func(args ...any) (any, error) {
			xs, err := numbers("min", args)
			if err != nil {
				return nil, err
			}

			lo := xs[0]
			for _, x := range xs[1:] {
				lo = math.Min(lo, x)
			}

			return lo, nil
		},
		"max": func(args ...any) (any, error) {
			xs, err := numbers("max", args)
			if err != nil {
				return nil, err
			}

			hi := xs[0]
			for _, x := range xs[1:] {
				hi = math.Max(hi, x)
			}

			return hi, nil
		},
		"abs": func(args ...any) (any, error) {
			xs, err := numbers("abs", args)
			if err != nil {
				return nil, err
			}

			return math.Abs(xs[0]), nil
		},
		"range": func(args ...any) (any, error) {
			xs, err := numbers("range", args)
			if err != nil {
				return nil, err
			}

			if len(xs) == 1 {
				return rangeOf(0, xs[0], in.MaxIterations)
			}

			return rangeOf(xs[0], xs[1], in.MaxIterations)
		},
		// The argument separator splices a leading list into the call, so
		// contains(xs, v) arrives as the items of xs followed by v.
		"contains": func(args ...any) (any, error) {
			if len(args) == 0 {
				return nil, errors.New("contains: takes a list and a value")
			}

			list, want := args[:len(args)-1], normalize(args[len(args)-1])
			for _, item := range list {
				if reflect.DeepEqual(normalize(item), want) {
					return true, nil
				}
			}

			return false, nil
		},
	}
}
