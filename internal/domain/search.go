package domain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// Representation owns the reference steps of each target and turns variants
// into something that can run.
type Representation interface {
	Reference(target m.TargetID) (m.Steps, error)
	Materialize(v *m.Variant) (m.Executable, error)
}

// RoundAdvisor is consulted around every call of an instrumented target.
// BeforeCall picks the variant to run; AfterCall records what it produced.
type RoundAdvisor interface {
	BeforeCall(target m.TargetID, receiver any) (*Invocation, error)
	AfterCall(inv *Invocation, outcome m.Outcome) error
}

// Invocation is the handle of one call between BeforeCall and AfterCall.
type Invocation struct {
	Target  m.TargetID
	Variant *m.Variant
	// Round is the number of the round the call counts toward, 0 if untracked.
	Round int

	slot    int
	epoch   int
	tracked bool
}

// Tracked reports whether the outcome of this call is recorded in a round.
func (i *Invocation) Tracked() bool {
	return i.tracked
}

// targetState is everything a scheduler knows about one target.
type targetState struct {
	reference  m.Steps
	base       *m.Variant
	baseAdvice Advice
	current    *round
	ranked     []m.RankedRound
	seq        int
	rounds     int
}

// roundBuilder fills a new round for a target. It runs under the search mutex.
type roundBuilder func(target m.TargetID, ts *targetState, receiver any) ([]*slot, error)

// search is the core shared by every strategy: per-target state, round
// construction, selection, recording and sealing under a single mutex.
type search struct {
	mu       sync.Mutex
	rep      Representation
	cfg      Config
	strategy string
	build    roundBuilder
	targets  map[m.TargetID]*targetState
	epoch    int
}

func newSearch(rep Representation, cfg Config, strategy string) (*search, error) {
	if rep == nil {
		return nil, fmt.Errorf("%w: representation is required", ErrInvalidConfig)
	}

	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	return &search{
		rep:      rep,
		cfg:      cfg,
		strategy: strategy,
		targets:  make(map[m.TargetID]*targetState),
	}, nil
}

// state returns the target's state, fetching its reference steps on first use.
func (s *search) state(target m.TargetID) (*targetState, error) {
	if ts, ok := s.targets[target]; ok {
		return ts, nil
	}

	steps, err := s.rep.Reference(target)
	if err != nil {
		return nil, fmt.Errorf("reference steps of %s: %w", target, err)
	}

	ts := &targetState{
		reference:  steps,
		baseAdvice: s.cfg.adviceFor(target),
	}
	ts.base = s.newVariant(target, ts, steps.Clone(), m.Lineage{Origin: m.OriginBase})
	s.targets[target] = ts

	s.cfg.Logger.Debug("target initialized", "target", target, "strategy", s.strategy, "steps", steps.Count())

	return ts, nil
}

func (s *search) newVariant(target m.TargetID, ts *targetState, steps m.Steps, lineage m.Lineage) *m.Variant {
	v := &m.Variant{
		ID:      uuid.NewString(),
		Seq:     ts.seq,
		Target:  target,
		Steps:   steps,
		Lineage: lineage,
	}
	ts.seq++
	s.cfg.Metrics.variantCreated(target, lineage.Origin)

	return v
}

// mutate applies advice to a deep copy of parent.
func (s *search) mutate(target m.TargetID, ts *targetState, parent *m.Variant, advice Advice, receiver any) (*m.Variant, error) {
	steps, err := advice.Mutate(parent.Steps.Clone(), receiver)
	if err != nil {
		return nil, fmt.Errorf("mutate %s with %s: %w", parent.Name(), advice.Operator, err)
	}

	return s.newVariant(target, ts, steps, m.Lineage{
		Origin:   m.OriginMutation,
		Parents:  []string{parent.ID},
		Operator: advice.Operator,
	}), nil
}

// fuzzSlots creates n slots of fresh mutations of the base. The first slot
// holds the untouched base in the first round, or in every round with
// KeepBest.
func (s *search) fuzzSlots(target m.TargetID, ts *targetState, receiver any, n int) ([]*slot, error) {
	slots := make([]*slot, 0, n)

	if n > 0 && (len(ts.ranked) == 0 || s.cfg.KeepBest) {
		slots = append(slots, &slot{variant: ts.base, advice: ts.baseAdvice})
	}

	for len(slots) < n {
		v, err := s.mutate(target, ts, ts.base, ts.baseAdvice, receiver)
		if err != nil {
			return nil, err
		}

		slots = append(slots, &slot{variant: v, advice: ts.baseAdvice})
	}

	return slots, nil
}

// BeforeCall selects a variant of target with spare quota and marks it in
// flight. A new round is built when none is active. When every slot is in
// flight the base runs untracked.
func (s *search) BeforeCall(target m.TargetID, receiver any) (*Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, err := s.state(target)
	if err != nil {
		return nil, err
	}

	if ts.current == nil {
		if err := s.openRound(target, ts, receiver); err != nil {
			return nil, err
		}
	}

	free := ts.current.available(s.cfg.IterationsPerVariant)
	if len(free) == 0 {
		s.cfg.Logger.Debug("all variants in flight, running base", "target", target, "round", ts.current.number)

		return &Invocation{Target: target, Variant: ts.base}, nil
	}

	i := free[s.cfg.Random.Intn(len(free))]
	chosen := ts.current.slots[i]
	chosen.inFlight++

	return &Invocation{
		Target:  target,
		Variant: chosen.variant,
		Round:   ts.current.number,
		slot:    i,
		epoch:   s.epoch,
		tracked: true,
	}, nil
}

func (s *search) openRound(target m.TargetID, ts *targetState, receiver any) error {
	slots, err := s.build(target, ts, receiver)
	if err != nil {
		return fmt.Errorf("build round %d of %s: %w", ts.rounds+1, target, err)
	}

	ts.rounds++
	ts.current = &round{target: target, number: ts.rounds, slots: slots}

	s.cfg.Logger.Debug("round opened", "target", target, "round", ts.rounds, "variants", len(slots))

	return nil
}

// AfterCall records the outcome against the invocation's variant and seals
// the round once every variant has used its quota.
func (s *search) AfterCall(inv *Invocation, outcome m.Outcome) error {
	if inv == nil || !inv.tracked {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.targets[inv.Target]
	if !ok || inv.epoch != s.epoch || ts.current == nil || ts.current.number != inv.Round {
		// The round was reset or sealed under this call; drop the outcome.
		return nil
	}

	ts.current.record(inv.slot, outcome)

	if !ts.current.complete(s.cfg.IterationsPerVariant) {
		return nil
	}

	return s.seal(inv.Target, ts)
}

func (s *search) seal(target m.TargetID, ts *targetState) error {
	r := ts.current
	ts.current = nil

	ranked, err := r.rank(s.cfg.SuccessMetric, s.cfg.Direction)
	if err != nil {
		s.cfg.Logger.Error("round discarded", "target", target, "round", r.number, "error", err)
		return err
	}

	ts.ranked = append(ts.ranked, ranked)

	best := ranked.Best()
	ts.base = best.Variant

	for _, sl := range r.slots {
		if sl.variant == best.Variant {
			ts.baseAdvice = sl.advice
			break
		}
	}

	s.cfg.Metrics.roundSealed(target, best.Score)

	if s.cfg.OnSeal != nil {
		s.cfg.OnSeal(ranked)
	}

	s.cfg.Logger.Info("round sealed",
		"target", target,
		"round", ranked.Number,
		"best", best.Variant.Name(),
		"best_score", best.Score,
	)

	return nil
}

// RankedRounds returns the sealed rounds of target, oldest first.
func (s *search) RankedRounds(target m.TargetID) []m.RankedRound {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.targets[target]
	if !ok {
		return nil
	}

	out := make([]m.RankedRound, len(ts.ranked))
	copy(out, ts.ranked)

	return out
}

// Best returns the top entry of the latest sealed round of target.
func (s *search) Best(target m.TargetID) (m.RankedEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.targets[target]
	if !ok || len(ts.ranked) == 0 {
		return m.RankedEntry{}, false
	}

	return ts.ranked[len(ts.ranked)-1].Best(), true
}

// Base returns the variant currently used as the base of target.
func (s *search) Base(target m.TargetID) (*m.Variant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.targets[target]
	if !ok {
		return nil, false
	}

	return ts.base, true
}

// Reset forgets every target. Outcomes of calls still in flight are dropped.
func (s *search) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targets = make(map[m.TargetID]*targetState)
	s.epoch++
}
