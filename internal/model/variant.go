package model

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TargetID identifies an instrumented target, e.g. "maze.move".
type TargetID string

// Origin records how a variant came to be.
type Origin string

const (
	// OriginBase is the untouched reference steps of a target.
	OriginBase Origin = "base"
	// OriginMutation is a variant produced by a mutation operator.
	OriginMutation Origin = "mutation"
	// OriginSplice is a variant produced by crossover of two parents.
	OriginSplice Origin = "splice"
)

// Lineage links a variant back to where it came from.
type Lineage struct {
	Origin   Origin
	Parents  []string
	Operator string
}

// Variant is a named, independently owned step sequence. It is never
// modified after creation.
type Variant struct {
	ID      string
	Seq     int
	Target  TargetID
	Steps   Steps
	Lineage Lineage
}

// Name is a short label for listings.
func (v *Variant) Name() string {
	if len(v.ID) > 8 {
		return fmt.Sprintf("%s#%d-%s", v.Target, v.Seq, v.ID[:8])
	}

	return fmt.Sprintf("%s#%d-%s", v.Target, v.Seq, v.ID)
}

// Outcome is the raw result of one execution of a variant.
type Outcome struct {
	Value    any
	Err      error
	Duration time.Duration
}

// SuccessMetric maps one outcome to a comparable score.
type SuccessMetric func(Outcome) float64

// Executable runs a materialized variant body.
type Executable interface {
	Run(ctx context.Context, receiver any) (any, error)
}

// Direction tells which end of the score range ranks first.
type Direction string

const (
	// Maximize ranks the highest mean score first.
	Maximize Direction = "max"
	// Minimize ranks the lowest mean score first, e.g. distance to a target.
	Minimize Direction = "min"
)

// Better reports whether score a ranks strictly ahead of b. NaN ranks
// behind every number in both directions.
func (d Direction) Better(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return !math.IsNaN(a) && math.IsNaN(b)
	}

	if d == Minimize {
		return a < b
	}

	return a > b
}

// RankedEntry is one variant of a sealed round with its score.
type RankedEntry struct {
	Variant  *Variant
	Score    float64
	Outcomes []Outcome
}

// RankedRound is a sealed round sorted by score. It is read-only.
type RankedRound struct {
	Target    TargetID
	Number    int
	Direction Direction
	Entries   []RankedEntry
}

// Best returns the top entry.
func (r RankedRound) Best() RankedEntry {
	return r.Entries[0]
}
