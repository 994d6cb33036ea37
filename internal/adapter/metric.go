package adapter

import (
	"fmt"

	"github.com/Knetic/govaluate"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// CompileMetric builds a success metric from an expression over the
// variables value, failed and duration_ms. A value that is not a number is
// exposed as 0 and a result that is not a number scores 0.
func CompileMetric(text string) (m.SuccessMetric, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(text, expressionFunctions())
	if err != nil {
		return nil, fmt.Errorf("parse metric %q: %w", text, err)
	}

	return func(o m.Outcome) float64 {
		value, ok := normalize(o.Value).(float64)
		if !ok {
			if b, isBool := o.Value.(bool); isBool && b {
				value = 1
			}
		}

		v, err := expr.Evaluate(map[string]any{
			"value":       value,
			"failed":      o.Err != nil,
			"duration_ms": float64(o.Duration.Milliseconds()),
		})
		if err != nil {
			return 0
		}

		switch score := v.(type) {
		case float64:
			return score
		case bool:
			if score {
				return 1
			}

			return 0
		default:
			return 0
		}
	}, nil
}
