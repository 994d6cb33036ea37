// Package model defines the data structures for mutation search.
package model

// StepKind identifies what a step does when executed.
type StepKind string

const (
	// StepAction calls a named action or procedure.
	StepAction StepKind = "action"
	// StepAssign stores the value of an expression in a variable.
	StepAssign StepKind = "assign"
	// StepPass is the no-op placeholder left behind by removals.
	StepPass StepKind = "pass"
	// StepIf runs Body when Cond holds, Else otherwise.
	StepIf StepKind = "if"
	// StepWhile repeats Body while Cond holds.
	StepWhile StepKind = "while"
	// StepFor runs Body once per element of Iter, bound to Var.
	StepFor StepKind = "for"
	// StepTry runs Body and routes raised errors to Handlers.
	StepTry StepKind = "try"
	// StepRaise raises an error carrying Message.
	StepRaise StepKind = "raise"
	// StepReturn ends the enclosing body with Value.
	StepReturn StepKind = "return"
	// StepFunc declares a nested procedure called Name.
	StepFunc StepKind = "func"
)

// ControlKinds lists the kinds treated as control structures by selectors.
var ControlKinds = NewKindSet(StepIf, StepWhile, StepFor, StepTry, StepReturn, StepFunc)

// KindSet is a set of step kinds.
type KindSet map[StepKind]struct{}

// NewKindSet builds a KindSet from the given kinds.
func NewKindSet(kinds ...StepKind) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}

	return set
}

// Has reports whether k is in the set.
func (s KindSet) Has(k StepKind) bool {
	_, ok := s[k]
	return ok
}

// Intersect returns the kinds present in both sets.
func (s KindSet) Intersect(other KindSet) KindSet {
	out := make(KindSet)

	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}

	return out
}

// Handler is one exception handler of a Try step. An empty Match catches everything.
type Handler struct {
	Match string
	Body  Steps
}

// Step is one node of a structured step sequence.
type Step struct {
	Kind StepKind
	// Pos is the source line the step came from; mutators carry it over.
	Pos int

	Call string
	Args []Expr

	Target string
	Value  Expr

	Cond Expr

	Var  string
	Iter Expr

	Body     Steps
	Else     Steps
	Handlers []Handler

	Name    string
	Params  []string
	Message string
}

// Steps is an ordered step sequence owned by a single variant.
type Steps []*Step

// Pass returns a no-op placeholder at the given source line.
func Pass(pos int) *Step {
	return &Step{Kind: StepPass, Pos: pos}
}

// IsPass reports whether the step is a no-op placeholder.
func (s *Step) IsPass() bool {
	return s == nil || s.Kind == StepPass
}

// Clone returns a deep copy of the step and everything nested in it.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}

	c := *s
	c.Args = cloneExprs(s.Args)
	c.Value = s.Value.Clone()
	c.Cond = s.Cond.Clone()
	c.Iter = s.Iter.Clone()
	c.Body = s.Body.Clone()
	c.Else = s.Else.Clone()

	if s.Params != nil {
		c.Params = append([]string(nil), s.Params...)
	}

	if s.Handlers != nil {
		c.Handlers = make([]Handler, len(s.Handlers))
		for i, h := range s.Handlers {
			c.Handlers[i] = Handler{Match: h.Match, Body: h.Body.Clone()}
		}
	}

	return &c
}

// Shallow copies the step struct and its handler list but shares nested
// steps. It is used when only the top-level fields are about to be replaced.
func (s *Step) Shallow() *Step {
	c := *s
	if s.Handlers != nil {
		c.Handlers = make([]Handler, len(s.Handlers))
		copy(c.Handlers, s.Handlers)
	}

	return &c
}

// Blocks returns pointers to every nested body of the step: the body, the
// else branch of an If and each handler body of a Try. Callers may replace
// the pointed-to sequences on a cloned step.
func (s *Step) Blocks() []*Steps {
	switch s.Kind {
	case StepIf:
		return []*Steps{&s.Body, &s.Else}
	case StepWhile, StepFor, StepFunc:
		return []*Steps{&s.Body}
	case StepTry:
		blocks := []*Steps{&s.Body}
		for i := range s.Handlers {
			blocks = append(blocks, &s.Handlers[i].Body)
		}

		return blocks
	default:
		return nil
	}
}

// Clone deep-copies the sequence. A nil sequence stays nil.
func (s Steps) Clone() Steps {
	if s == nil {
		return nil
	}

	out := make(Steps, len(s))
	for i, step := range s {
		out[i] = step.Clone()
	}

	return out
}

// Copy returns a new slice holding the same step pointers.
func (s Steps) Copy() Steps {
	out := make(Steps, len(s))
	copy(out, s)

	return out
}

// Count counts the steps in the sequence including nested bodies.
func (s Steps) Count() int {
	n := 0

	for _, step := range s {
		n++

		for _, block := range step.Blocks() {
			n += block.Count()
		}
	}

	return n
}

func cloneExprs(in []Expr) []Expr {
	if in == nil {
		return nil
	}

	out := make([]Expr, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}

	return out
}
