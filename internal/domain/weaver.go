package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// DispatchError is a failure of the advisor around a call, as opposed to an
// error of the variant body. A run cannot continue past it.
type DispatchError struct {
	Target m.TargetID
	Op     string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s of %s: %v", e.Op, e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Weaver dispatches calls of instrumented targets: it asks the advisor which
// variant to run, materializes and runs it, then reports the outcome back.
// It is safe for concurrent callers.
type Weaver struct {
	advisor RoundAdvisor
	rep     Representation
	logger  *slog.Logger
	metrics *Metrics

	mu        sync.RWMutex
	observers map[m.TargetID][]func(m.Outcome)
}

// NewWeaver creates a weaver. A nil logger means slog.Default().
func NewWeaver(advisor RoundAdvisor, rep Representation, logger *slog.Logger, metrics *Metrics) *Weaver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Weaver{
		advisor:   advisor,
		rep:       rep,
		logger:    logger,
		metrics:   metrics,
		observers: make(map[m.TargetID][]func(m.Outcome)),
	}
}

// Observe registers fn to receive every outcome of target, e.g. to arm a
// mutagens.Trigger guarding another target.
func (w *Weaver) Observe(target m.TargetID, fn func(m.Outcome)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.observers[target] = append(w.observers[target], fn)
}

// Call runs one invocation of target for receiver and returns what the
// chosen variant returned. Body errors are recorded as part of the outcome
// and returned to the caller.
func (w *Weaver) Call(ctx context.Context, target m.TargetID, receiver any) (any, error) {
	inv, err := w.advisor.BeforeCall(target, receiver)
	if err != nil {
		return nil, &DispatchError{Target: target, Op: "select variant", Err: err}
	}

	w.metrics.callDispatched(target)

	start := time.Now()

	var value any

	exe, runErr := w.rep.Materialize(inv.Variant)
	if runErr != nil {
		runErr = fmt.Errorf("materialize %s: %w", inv.Variant.Name(), runErr)
	} else {
		value, runErr = exe.Run(ctx, receiver)
	}

	outcome := m.Outcome{Value: value, Err: runErr, Duration: time.Since(start)}

	w.logger.Debug("call finished",
		"target", target,
		"variant", inv.Variant.Name(),
		"tracked", inv.Tracked(),
		"duration", outcome.Duration,
		"error", runErr,
	)

	if err := w.advisor.AfterCall(inv, outcome); err != nil {
		return value, errors.Join(runErr, &DispatchError{Target: target, Op: "record outcome", Err: err})
	}

	w.notify(target, outcome)

	return value, runErr
}

func (w *Weaver) notify(target m.TargetID, outcome m.Outcome) {
	w.mu.RLock()
	observers := w.observers[target]
	w.mu.RUnlock()

	for _, fn := range observers {
		fn(outcome)
	}
}
