package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// ErrInvalidConfig is returned by scheduler constructors for unusable settings.
var ErrInvalidConfig = errors.New("invalid search configuration")

// Strategy names accepted by NewAdvisor and the CLI.
const (
	StrategyFuzz        = "fuzz"
	StrategyIncremental = "incremental"
	StrategyGenetic     = "genetic"
)

// Advice is the mutation operator bound to a target.
type Advice struct {
	Operator string
	Mutate   mutagens.Mutator
}

// IdentityAdvice leaves the steps as they are.
var IdentityAdvice = Advice{Operator: "identity", Mutate: mutagens.Identity}

// Config holds the settings of a scheduler. It is fixed at construction.
type Config struct {
	VariantsPerRound     int
	IterationsPerVariant int
	SuccessMetric        m.SuccessMetric
	Advice               map[m.TargetID]Advice
	Direction            m.Direction
	Random               mutagens.Random
	Logger               *slog.Logger
	Metrics              *Metrics
	// KeepBest carries the current base into slot 0 of every round.
	KeepBest bool
	// Splicer crosses parents in genetic mode. Defaults to a CutSplicer.
	Splicer Splicer
	// OnSeal is called with every sealed round while the scheduler is
	// locked. It must not call back into the scheduler.
	OnSeal func(m.RankedRound)
}

func (c Config) withDefaults() (Config, error) {
	if c.VariantsPerRound < 1 {
		return c, fmt.Errorf("%w: variants per round must be at least 1, got %d", ErrInvalidConfig, c.VariantsPerRound)
	}

	if c.IterationsPerVariant < 1 {
		return c, fmt.Errorf("%w: iterations per variant must be at least 1, got %d", ErrInvalidConfig, c.IterationsPerVariant)
	}

	switch c.Direction {
	case "":
		c.Direction = m.Maximize
	case m.Maximize, m.Minimize:
	default:
		return c, fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, c.Direction)
	}

	if c.SuccessMetric == nil {
		c.SuccessMetric = NumericValue
	}

	if c.Random == nil {
		c.Random = mutagens.NewRandom(time.Now().UnixNano())
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Splicer == nil {
		c.Splicer = &CutSplicer{Random: c.Random}
	}

	for target, advice := range c.Advice {
		if advice.Mutate == nil {
			return c, fmt.Errorf("%w: advice for %s has no mutator", ErrInvalidConfig, target)
		}
	}

	return c, nil
}

// Advisor is a RoundAdvisor that exposes its search history.
type Advisor interface {
	RoundAdvisor
	RankedRounds(target m.TargetID) []m.RankedRound
	Best(target m.TargetID) (m.RankedEntry, bool)
	Base(target m.TargetID) (*m.Variant, bool)
	Reset()
}

// NewAdvisor creates the scheduler named by strategy. An empty name selects
// the incremental improver.
func NewAdvisor(strategy string, rep Representation, cfg Config) (Advisor, error) {
	switch strategy {
	case StrategyFuzz:
		return NewFuzzingAdvisor(rep, cfg)
	case StrategyIncremental, "":
		return NewIncrementalImprover(rep, cfg)
	case StrategyGenetic:
		return NewGeneticImprover(rep, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, strategy)
	}
}

func (c Config) adviceFor(target m.TargetID) Advice {
	if advice, ok := c.Advice[target]; ok {
		return advice
	}

	return IdentityAdvice
}

// NumericValue scores an outcome by its value. Numbers convert directly and
// true counts as 1. Failed runs and other values score 0.
func NumericValue(o m.Outcome) float64 {
	if o.Err != nil {
		return 0
	}

	switch v := o.Value.(type) {
	case float64:
		if math.IsNaN(v) {
			return 0
		}

		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case bool:
		if v {
			return 1
		}

		return 0
	default:
		return 0
	}
}
