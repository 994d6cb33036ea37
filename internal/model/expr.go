package model

import "fmt"

// ExprKind tells how an expression is evaluated.
type ExprKind string

const (
	// ExprNone marks an absent expression.
	ExprNone ExprKind = ""
	// ExprLiteral holds a Go value as is.
	ExprLiteral ExprKind = "literal"
	// ExprText holds expression source evaluated against the frame variables.
	ExprText ExprKind = "text"
	// ExprFuncRef names a registered zero-argument predicate.
	ExprFuncRef ExprKind = "func"
	// ExprCallable wraps a Go predicate.
	ExprCallable ExprKind = "callable"
)

// Expr is a condition, iterable or value expression of a step.
type Expr struct {
	Kind     ExprKind
	Literal  any
	Text     string
	Callable func() bool
}

// Literal wraps a Go value.
func Literal(v any) Expr {
	return Expr{Kind: ExprLiteral, Literal: v}
}

// Expression wraps expression source text such as "x < 3".
func Expression(text string) Expr {
	return Expr{Kind: ExprText, Text: text}
}

// FuncRef refers to a predicate registered with the interpreter under name.
func FuncRef(name string) Expr {
	return Expr{Kind: ExprFuncRef, Text: name}
}

// Callable wraps a Go predicate evaluated on every test.
func Callable(fn func() bool) Expr {
	return Expr{Kind: ExprCallable, Callable: fn}
}

// IsZero reports whether the expression is absent.
func (e Expr) IsZero() bool {
	return e.Kind == ExprNone
}

// Clone copies the expression; literal lists are copied element by element.
func (e Expr) Clone() Expr {
	if list, ok := e.Literal.([]any); ok {
		cp := make([]any, len(list))
		copy(cp, list)
		e.Literal = cp
	}

	return e
}

// String renders the expression for listings.
func (e Expr) String() string {
	switch e.Kind {
	case ExprLiteral:
		if s, ok := e.Literal.(string); ok {
			return fmt.Sprintf("%q", s)
		}

		return fmt.Sprintf("%v", e.Literal)
	case ExprText:
		return e.Text
	case ExprFuncRef:
		return e.Text + "()"
	case ExprCallable:
		return "<callable>()"
	default:
		return ""
	}
}
