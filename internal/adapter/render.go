package adapter

import (
	"fmt"
	"strings"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// Render prints steps as an indented listing, one step per line, prefixed
// with the source line each step came from.
func Render(steps m.Steps) string {
	var b strings.Builder

	renderSteps(&b, steps, 0)

	return b.String()
}

func renderSteps(b *strings.Builder, steps m.Steps, depth int) {
	for _, s := range steps {
		renderStep(b, s, depth)
	}
}

func renderLine(b *strings.Builder, pos, depth int, text string) {
	if pos > 0 {
		fmt.Fprintf(b, "%4d  ", pos)
	} else {
		b.WriteString("      ")
	}

	b.WriteString(strings.Repeat("    ", depth))
	b.WriteString(text)
	b.WriteByte('\n')
}

//nolint:cyclop // One branch per step kind.
func renderStep(b *strings.Builder, s *m.Step, depth int) {
	switch s.Kind {
	case m.StepPass:
		renderLine(b, s.Pos, depth, "pass")
	case m.StepAction:
		call := fmt.Sprintf("%s(%s)", s.Call, joinExprs(s.Args))
		if s.Target != "" {
			call = s.Target + " = " + call
		}

		renderLine(b, s.Pos, depth, call)
	case m.StepAssign:
		renderLine(b, s.Pos, depth, fmt.Sprintf("%s = %s", s.Target, s.Value))
	case m.StepIf:
		renderLine(b, s.Pos, depth, fmt.Sprintf("if %s:", s.Cond))
		renderBlock(b, s.Body, depth+1)

		if len(s.Else) > 0 {
			renderLine(b, 0, depth, "else:")
			renderBlock(b, s.Else, depth+1)
		}
	case m.StepWhile:
		renderLine(b, s.Pos, depth, fmt.Sprintf("while %s:", s.Cond))
		renderBlock(b, s.Body, depth+1)
	case m.StepFor:
		renderLine(b, s.Pos, depth, fmt.Sprintf("for %s in %s:", s.Var, s.Iter))
		renderBlock(b, s.Body, depth+1)
	case m.StepTry:
		renderLine(b, s.Pos, depth, "try:")
		renderBlock(b, s.Body, depth+1)

		for _, h := range s.Handlers {
			header := "except:"
			if h.Match != "" {
				header = fmt.Sprintf("except %s:", h.Match)
			}

			renderLine(b, 0, depth, header)
			renderBlock(b, h.Body, depth+1)
		}
	case m.StepRaise:
		text := "raise " + s.Name
		if s.Message != "" {
			text += fmt.Sprintf("(%q)", s.Message)
		}

		renderLine(b, s.Pos, depth, text)
	case m.StepReturn:
		renderLine(b, s.Pos, depth, strings.TrimSpace("return "+s.Value.String()))
	case m.StepFunc:
		renderLine(b, s.Pos, depth, fmt.Sprintf("func %s(%s):", s.Name, strings.Join(s.Params, ", ")))
		renderBlock(b, s.Body, depth+1)
	default:
		renderLine(b, s.Pos, depth, string(s.Kind))
	}
}

// renderBlock prints an empty block as pass so listings stay readable.
func renderBlock(b *strings.Builder, steps m.Steps, depth int) {
	if len(steps) == 0 {
		renderLine(b, 0, depth, "pass")
		return
	}

	renderSteps(b, steps, depth)
}

func joinExprs(exprs []m.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}

	return strings.Join(parts, ", ")
}
