package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/goevolve/internal/model"
)

func TestCompileMetric(t *testing.T) {
	metric, err := CompileMetric("failed ? -100 : 0 - abs(42 - value)")
	require.NoError(t, err)

	tests := []struct {
		name    string
		outcome m.Outcome
		want    float64
	}{
		{"exact", m.Outcome{Value: 42.0}, 0},
		{"integer value", m.Outcome{Value: 40}, -2},
		{"failed", m.Outcome{Err: errors.New("fell")}, -100},
		{"not a number", m.Outcome{Value: "tall"}, -42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, metric(tt.outcome), 1e-9)
		})
	}
}

func TestCompileMetric_DurationAndBooleans(t *testing.T) {
	fast, err := CompileMetric("duration_ms < 100")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, fast(m.Outcome{Duration: 20 * time.Millisecond}), 1e-9)
	assert.InDelta(t, 0.0, fast(m.Outcome{Duration: time.Second}), 1e-9)

	truthy, err := CompileMetric("value")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, truthy(m.Outcome{Value: true}), 1e-9)
}

func TestCompileMetric_Errors(t *testing.T) {
	_, err := CompileMetric("value +")
	require.Error(t, err)

	unknown, err := CompileMetric("missing * 2")
	require.NoError(t, err)
	assert.Zero(t, unknown(m.Outcome{Value: 1.0}))
}
