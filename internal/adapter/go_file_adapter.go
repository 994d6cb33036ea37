package adapter

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// ErrUnsupportedStatement is returned for Go statements that have no step
// equivalent.
var ErrUnsupportedStatement = errors.New("unsupported statement")

// GoFileAdapter imports the body of a Go function as steps, so existing Go
// code can seed a target.
type GoFileAdapter interface {
	// Parse builds an AST using the provided file set and optional source bytes.
	Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error)
	// ImportFunc converts the body of the named function into steps. Methods
	// are addressed as Type.Method.
	ImportFunc(filename string, src []byte, name string) (m.Steps, error)
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// Parse builds an AST for the provided filename/source pair.
func (a *LocalGoFileAdapter) Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error) {
	return parser.ParseFile(fileSet, filename, src, parser.ParseComments)
}

// ImportFunc converts the body of the named function into steps.
func (a *LocalGoFileAdapter) ImportFunc(filename string, src []byte, name string) (m.Steps, error) {
	fset := token.NewFileSet()

	file, err := a.Parse(fset, filename, src)
	if err != nil {
		return nil, err
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil || funcName(fn) != name {
			continue
		}

		imp := &goImporter{fset: fset}

		return imp.block(fn.Body.List)
	}

	return nil, fmt.Errorf("function %s not found in %s", name, filename)
}

func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}

	recv := fn.Recv.List[0].Type
	if star, ok := recv.(*ast.StarExpr); ok {
		recv = star.X
	}

	if idx, ok := recv.(*ast.IndexExpr); ok {
		recv = idx.X
	}

	return types.ExprString(recv) + "." + fn.Name.Name
}

type goImporter struct {
	fset *token.FileSet
}

func (g *goImporter) line(n ast.Node) int {
	return g.fset.Position(n.Pos()).Line
}

func (g *goImporter) unsupported(n ast.Node, what string) error {
	return fmt.Errorf("line %d: %w: %s", g.line(n), ErrUnsupportedStatement, what)
}

func (g *goImporter) block(stmts []ast.Stmt) (m.Steps, error) {
	steps := m.Steps{}

	for _, stmt := range stmts {
		converted, err := g.stmt(stmt)
		if err != nil {
			return nil, err
		}

		steps = append(steps, converted...)
	}

	return steps, nil
}

//nolint:cyclop // One branch per statement type.
func (g *goImporter) stmt(stmt ast.Stmt) (m.Steps, error) {
	pos := g.line(stmt)

	switch s := stmt.(type) {
	case *ast.EmptyStmt:
		return m.Steps{m.Pass(pos)}, nil
	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			return nil, g.unsupported(s, "bare expression")
		}

		return m.Steps{g.call(call, "", pos)}, nil
	case *ast.AssignStmt:
		step, err := g.assign(s)
		if err != nil {
			return nil, err
		}

		return m.Steps{step}, nil
	case *ast.IncDecStmt:
		op := "+"
		if s.Tok == token.DEC {
			op = "-"
		}

		target := types.ExprString(s.X)

		return m.Steps{{Kind: m.StepAssign, Pos: pos, Target: target, Value: m.Expression(target + " " + op + " 1")}}, nil
	case *ast.IfStmt:
		step, err := g.ifStmt(s)
		if err != nil {
			return nil, err
		}

		return m.Steps{step}, nil
	case *ast.ForStmt:
		return g.forStmt(s)
	case *ast.RangeStmt:
		step, err := g.rangeStmt(s)
		if err != nil {
			return nil, err
		}

		return m.Steps{step}, nil
	case *ast.ReturnStmt:
		step := &m.Step{Kind: m.StepReturn, Pos: pos}
		if len(s.Results) > 0 {
			step.Value = g.expr(s.Results[0])
		}

		return m.Steps{step}, nil
	case *ast.BlockStmt:
		return g.block(s.List)
	default:
		return nil, g.unsupported(s, fmt.Sprintf("%T", s))
	}
}

func (g *goImporter) call(call *ast.CallExpr, into string, pos int) *m.Step {
	name := types.ExprString(call.Fun)

	if name == "panic" {
		msg := ""
		if len(call.Args) > 0 {
			msg = types.ExprString(call.Args[0])
			if unq, err := strconv.Unquote(msg); err == nil {
				msg = unq
			}
		}

		return &m.Step{Kind: m.StepRaise, Pos: pos, Name: "panic", Message: msg}
	}

	step := &m.Step{Kind: m.StepAction, Pos: pos, Call: callName(name), Target: into}
	for _, arg := range call.Args {
		step.Args = append(step.Args, g.expr(arg))
	}

	return step
}

// callName drops a receiver prefix such as w.env.Append.
func callName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}

	return name
}

func (g *goImporter) assign(s *ast.AssignStmt) (*m.Step, error) {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return nil, g.unsupported(s, "multiple assignment")
	}

	target := types.ExprString(s.Lhs[0])
	pos := g.line(s)

	if call, ok := s.Rhs[0].(*ast.CallExpr); ok {
		return g.call(call, target, pos), nil
	}

	value := g.expr(s.Rhs[0])

	switch s.Tok {
	case token.ASSIGN, token.DEFINE:
	case token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.QUO_ASSIGN:
		op := strings.TrimSuffix(s.Tok.String(), "=")
		value = m.Expression(fmt.Sprintf("%s %s (%s)", target, op, types.ExprString(s.Rhs[0])))
	default:
		return nil, g.unsupported(s, "assignment "+s.Tok.String())
	}

	return &m.Step{Kind: m.StepAssign, Pos: pos, Target: target, Value: value}, nil
}

func (g *goImporter) ifStmt(s *ast.IfStmt) (*m.Step, error) {
	if s.Init != nil {
		return nil, g.unsupported(s, "if with init statement")
	}

	body, err := g.block(s.Body.List)
	if err != nil {
		return nil, err
	}

	step := &m.Step{Kind: m.StepIf, Pos: g.line(s), Cond: g.expr(s.Cond), Body: body}

	if s.Else != nil {
		if step.Else, err = g.stmt(s.Else); err != nil {
			return nil, err
		}
	}

	return step, nil
}

// forStmt turns a three-clause loop into its init step followed by a while
// loop whose body ends with the post statement.
func (g *goImporter) forStmt(s *ast.ForStmt) (m.Steps, error) {
	var steps m.Steps

	if s.Init != nil {
		init, err := g.stmt(s.Init)
		if err != nil {
			return nil, err
		}

		steps = append(steps, init...)
	}

	body, err := g.block(s.Body.List)
	if err != nil {
		return nil, err
	}

	if s.Post != nil {
		post, err := g.stmt(s.Post)
		if err != nil {
			return nil, err
		}

		body = append(body, post...)
	}

	cond := m.Literal(true)
	if s.Cond != nil {
		cond = g.expr(s.Cond)
	}

	return append(steps, &m.Step{Kind: m.StepWhile, Pos: g.line(s), Cond: cond, Body: body}), nil
}

func (g *goImporter) rangeStmt(s *ast.RangeStmt) (*m.Step, error) {
	variable := "_"

	switch {
	case s.Value != nil:
		variable = types.ExprString(s.Value)
	case s.Key != nil:
		variable = types.ExprString(s.Key)
	}

	body, err := g.block(s.Body.List)
	if err != nil {
		return nil, err
	}

	return &m.Step{Kind: m.StepFor, Pos: g.line(s), Var: variable, Iter: g.expr(s.X), Body: body}, nil
}

func (g *goImporter) expr(e ast.Expr) m.Expr {
	switch x := e.(type) {
	case *ast.BasicLit:
		switch x.Kind {
		case token.INT, token.FLOAT:
			if f, err := strconv.ParseFloat(x.Value, 64); err == nil {
				return m.Literal(f)
			}
		case token.STRING:
			if s, err := strconv.Unquote(x.Value); err == nil {
				return m.Literal(s)
			}
		}
	case *ast.Ident:
		switch x.Name {
		case "true":
			return m.Literal(true)
		case "false":
			return m.Literal(false)
		case "nil":
			return m.Literal(nil)
		}
	case *ast.CompositeLit:
		values := make([]any, 0, len(x.Elts))
		for _, elt := range x.Elts {
			v := g.expr(elt)
			if v.Kind != m.ExprLiteral {
				return m.Expression(types.ExprString(e))
			}

			values = append(values, v.Literal)
		}

		return m.Literal(values)
	}

	return m.Expression(types.ExprString(e))
}
