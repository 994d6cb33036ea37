package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/goevolve/internal/adapter"
	"github.com/mouse-blink/goevolve/internal/controller"
	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// Defaults applied when neither the workflow nor the flags set a value.
const (
	DefaultCalls                = 100
	DefaultVariantsPerRound     = 4
	DefaultIterationsPerVariant = 1
	DefaultReportsDir           = m.Path(".goevolve-reports")
)

// ErrNoWorkflows is returned when the given paths hold no workflow document.
var ErrNoWorkflows = errors.New("no workflow documents found")

// ListArgs holds the arguments of List.
type ListArgs struct {
	Paths []m.Path
}

// RunArgs holds the arguments of Run. Zero values leave the workflow's
// search section in charge.
type RunArgs struct {
	Paths                []m.Path
	Targets              []m.TargetID
	Calls                int
	Threads              int
	Strategy             string
	VariantsPerRound     int
	IterationsPerVariant int
	Direction            m.Direction
	Seed                 *int64
	Reports              m.Path
}

// ViewArgs holds the arguments of View.
type ViewArgs struct {
	Reports m.Path
	Targets []m.TargetID
}

// Workflow defines the use cases behind the command line.
type Workflow interface {
	List(args ListArgs) error
	Run(ctx context.Context, args RunArgs) error
	View(args ViewArgs) error
}

// WorkflowOption configures a workflow.
type WorkflowOption func(*workflow)

// WithLogger sets the logger handed to schedulers and weavers.
func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(w *workflow) {
		w.logger = logger
	}
}

// WithRegistry registers the search metrics and the mutator application
// counts with reg.
func WithRegistry(reg prometheus.Registerer) WorkflowOption {
	return func(w *workflow) {
		w.registry = reg
	}
}

// WithAction makes a host action available to every interpreted target.
func WithAction(name string, action adapter.Action) WorkflowOption {
	return func(w *workflow) {
		w.actions[name] = action
	}
}

// WithPredicate makes a host predicate available to every interpreted target.
func WithPredicate(name string, predicate adapter.Predicate) WorkflowOption {
	return func(w *workflow) {
		w.predicates[name] = predicate
	}
}

type workflow struct {
	fsAdapter   adapter.FSAdapter
	store       adapter.WorkflowStore
	reportStore adapter.ReportStore
	ui          controller.UI
	logger      *slog.Logger
	registry    prometheus.Registerer
	metrics     *Metrics
	invocations *mutagens.Invocations
	actions     map[string]adapter.Action
	predicates  map[string]adapter.Predicate
}

// NewWorkflow creates a new Workflow instance with the provided adapters.
func NewWorkflow(
	fsAdapter adapter.FSAdapter,
	store adapter.WorkflowStore,
	reportStore adapter.ReportStore,
	ui controller.UI,
	options ...WorkflowOption,
) Workflow {
	w := &workflow{
		fsAdapter:   fsAdapter,
		store:       store,
		reportStore: reportStore,
		ui:          ui,
		invocations: mutagens.NewInvocations(),
		actions:     make(map[string]adapter.Action),
		predicates:  make(map[string]adapter.Predicate),
	}

	for _, opt := range options {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	if w.registry != nil {
		w.metrics = NewMetrics(w.registry)
		if err := w.registry.Register(w.invocations); err != nil {
			w.logger.Warn("mutator counts not exported", "error", err)
		}
	}

	return w
}

// List shows every target of the workflow documents under args.Paths.
func (w *workflow) List(args ListArgs) error {
	if err := w.ui.Start(controller.WithListMode()); err != nil {
		return err
	}
	defer w.ui.Close()

	targets, err := w.listTargets(args.Paths)
	if err := w.ui.DisplayTargets(targets, err); err != nil {
		return err
	}

	w.ui.Wait()

	return nil
}

func (w *workflow) listTargets(paths []m.Path) ([]controller.TargetInfo, error) {
	docs, err := w.documents(paths)
	if err != nil {
		return nil, err
	}

	var targets []controller.TargetInfo

	for _, path := range docs {
		doc, err := w.store.Load(path)
		if err != nil {
			return nil, err
		}

		for _, t := range doc.Targets {
			info := controller.TargetInfo{
				Workflow: path,
				ID:       t.ID,
				Steps:    t.Steps.Count(),
				Operator: adapter.OperatorName(t.Operator),
			}
			if t.Source != nil {
				info.Source = fmt.Sprintf("%s:%s", t.Source.File, t.Source.Func)
			}

			targets = append(targets, info)
		}
	}

	return targets, nil
}

func (w *workflow) documents(paths []m.Path) ([]m.Path, error) {
	docs, err := w.fsAdapter.Get(paths)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoWorkflows, paths)
	}

	return docs, nil
}

// Run searches every selected target of each workflow document and saves a
// report per target.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	docs, err := w.documents(args.Paths)
	if err != nil {
		return err
	}

	if err := w.ui.Start(controller.WithRunMode()); err != nil {
		return err
	}
	defer w.ui.Close()

	w.invocations.Reset()

	searched := 0

	for _, path := range docs {
		ran, err := w.runDocument(ctx, path, args)
		if err != nil {
			return fmt.Errorf("run %s: %w", path, err)
		}

		if ran {
			searched++
		}
	}

	if searched == 0 {
		return fmt.Errorf("%w: none of %v", adapter.ErrUnknownTarget, args.Targets)
	}

	w.ui.Wait()

	return nil
}

// runPlan is the search section of a document with the flags applied.
type runPlan struct {
	targets    []m.TargetID
	strategy   string
	calls      int
	threads    int
	variants   int
	iterations int
	direction  m.Direction
	seed       int64
	keepBest   bool
	metric     string
	splice     adapter.SpliceSpec
}

func planRun(doc *adapter.WorkflowDoc, args RunArgs) runPlan {
	search := doc.Search

	plan := runPlan{
		strategy:   firstString(args.Strategy, search.Strategy, StrategyIncremental),
		calls:      firstPositive(args.Calls, search.Calls, DefaultCalls),
		threads:    firstPositive(args.Threads, 1),
		variants:   firstPositive(args.VariantsPerRound, search.VariantsPerRound, DefaultVariantsPerRound),
		iterations: firstPositive(args.IterationsPerVariant, search.IterationsPerVariant, DefaultIterationsPerVariant),
		direction:  m.Direction(firstString(string(args.Direction), search.Direction, string(m.Maximize))),
		keepBest:   search.KeepBest,
		metric:     search.Metric,
		splice:     search.Splice,
	}

	switch {
	case args.Seed != nil:
		plan.seed = *args.Seed
	case search.Seed != nil:
		plan.seed = *search.Seed
	default:
		plan.seed = time.Now().UnixNano()
	}

	if len(args.Targets) == 0 {
		plan.targets = doc.TargetIDs()
	}

	for _, id := range args.Targets {
		if _, ok := doc.Target(id); ok {
			plan.targets = append(plan.targets, id)
		}
	}

	return plan
}

// runDocument searches the selected targets of one document. It reports
// false when the document declares none of them.
func (w *workflow) runDocument(ctx context.Context, path m.Path, args RunArgs) (bool, error) {
	doc, err := w.store.Load(path)
	if err != nil {
		return false, err
	}

	plan := planRun(doc, args)
	if len(plan.targets) == 0 {
		w.logger.Debug("no selected targets", "workflow", path)
		return false, nil
	}

	rng := mutagens.NewRandom(plan.seed)

	interpreter := adapter.NewInterpreter(doc)
	for name, action := range w.actions {
		interpreter.RegisterAction(name, action)
	}

	for name, predicate := range w.predicates {
		interpreter.RegisterPredicate(name, predicate)
	}

	compiler := adapter.NewOperatorCompiler(rng, w.invocations)

	for name, trigger := range doc.Triggers {
		cond, err := adapter.CompileMetric(trigger.When)
		if err != nil {
			return false, fmt.Errorf("trigger %s: %w", name, err)
		}

		compiler.RegisterTrigger(name, func(o m.Outcome) bool { return cond(o) != 0 })
	}

	advice, err := compileAdvice(compiler, doc, plan.targets)
	if err != nil {
		return false, err
	}

	var metric m.SuccessMetric
	if plan.metric != "" {
		if metric, err = adapter.CompileMetric(plan.metric); err != nil {
			return false, err
		}
	}

	advisor, err := NewAdvisor(plan.strategy, interpreter, Config{
		VariantsPerRound:     plan.variants,
		IterationsPerVariant: plan.iterations,
		SuccessMetric:        metric,
		Advice:               advice,
		Direction:            plan.direction,
		Random:               rng,
		Logger:               w.logger,
		Metrics:              w.metrics,
		KeepBest:             plan.keepBest,
		Splicer:              &CutSplicer{Random: rng, Prefix: plan.splice.Prefix, Suffix: plan.splice.Suffix},
		OnSeal:               w.ui.DisplayRoundSealed,
	})
	if err != nil {
		return false, err
	}

	weaver := NewWeaver(advisor, interpreter, w.logger, w.metrics)
	interpreter.SetDispatcher(weaver)

	for name, trigger := range doc.Triggers {
		for _, t := range compiler.Triggers(name) {
			weaver.Observe(trigger.Target, t.Observe)
		}
	}

	w.ui.DisplayRunInfo(controller.RunInfo{
		Workflow:  path,
		Strategy:  plan.strategy,
		Direction: plan.direction,
		Targets:   plan.targets,
		Calls:     plan.calls * len(plan.targets),
		Threads:   plan.threads,
		Seed:      plan.seed,
	})

	w.logger.Info("search started",
		"workflow", path,
		"strategy", plan.strategy,
		"targets", len(plan.targets),
		"calls", plan.calls,
		"seed", plan.seed,
	)

	if err := w.drive(ctx, weaver, interpreter, plan); err != nil {
		return false, err
	}

	hash, err := w.fsAdapter.HashFile(path)
	if err != nil {
		w.logger.Warn("workflow not fingerprinted", "workflow", path, "error", err)
	}

	for _, target := range plan.targets {
		report := buildReport(doc, plan, advisor, target)
		report.Workflow = path
		report.Hash = hash

		saved, err := w.reportStore.SaveReport(reportsDir(args.Reports), report)
		if err != nil {
			return false, err
		}

		w.logger.Debug("report saved", "target", target, "path", saved)

		if err := w.ui.DisplayReport(report, Diff(report)); err != nil {
			return false, err
		}
	}

	return true, nil
}

func compileAdvice(compiler *adapter.OperatorCompiler, doc *adapter.WorkflowDoc, targets []m.TargetID) (map[m.TargetID]Advice, error) {
	advice := make(map[m.TargetID]Advice, len(targets))

	for _, id := range targets {
		t, _ := doc.Target(id)

		op, err := compiler.Compile(t.Operator)
		if err != nil {
			return nil, fmt.Errorf("operator of %s: %w", id, err)
		}

		advice[id] = Advice{Operator: adapter.OperatorName(t.Operator), Mutate: op}
	}

	return advice, nil
}

// drive issues plan.calls calls per target, round robin over the targets,
// from plan.threads concurrent callers. Body errors are outcomes; dispatch
// errors stop the run.
func (w *workflow) drive(ctx context.Context, weaver *Weaver, interpreter *adapter.Interpreter, plan runPlan) error {
	total := plan.calls * len(plan.targets)
	jobs := make(chan m.TargetID)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		for range plan.calls {
			for _, target := range plan.targets {
				select {
				case jobs <- target:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		return nil
	})

	var completed atomic.Int64

	for thread := range plan.threads {
		g.Go(func() error {
			for target := range jobs {
				_, err := weaver.Call(ctx, target, interpreter.NewSession(target))

				var dispatchErr *DispatchError
				if errors.As(err, &dispatchErr) {
					return err
				}

				w.ui.DisplayProgress(controller.Progress{
					Thread:    thread,
					Target:    target,
					Completed: int(completed.Add(1)),
					Total:     total,
					Err:       err,
				})
			}

			return nil
		})
	}

	return g.Wait()
}

func buildReport(doc *adapter.WorkflowDoc, plan runPlan, advisor Advisor, target m.TargetID) m.SearchReport {
	report := m.SearchReport{
		Target:    target,
		Strategy:  plan.strategy,
		Direction: plan.direction,
		Calls:     plan.calls,
		Seed:      plan.seed,
	}

	if t, ok := doc.Target(target); ok {
		report.Base = adapter.Render(t.Steps)
	}

	for _, r := range advisor.RankedRounds(target) {
		report.Rounds = append(report.Rounds, m.Summarize(r))
	}

	if best, ok := advisor.Best(target); ok {
		report.BestScore = best.Score
		report.Best = adapter.Render(best.Variant.Steps)
	}

	return report
}

// View shows the saved reports, each with the diff of its best variant
// against the base.
func (w *workflow) View(args ViewArgs) error {
	reports, err := w.reportStore.LoadReports(reportsDir(args.Reports))
	if err != nil {
		return err
	}

	if err := w.ui.Start(controller.WithViewMode()); err != nil {
		return err
	}
	defer w.ui.Close()

	wanted := make(map[m.TargetID]bool, len(args.Targets))
	for _, t := range args.Targets {
		wanted[t] = true
	}

	for _, report := range reports {
		if len(wanted) > 0 && !wanted[report.Target] {
			continue
		}

		if err := w.ui.DisplayReport(report, Diff(report)); err != nil {
			return err
		}
	}

	w.ui.Wait()

	return nil
}

// Diff returns the unified diff of the base listing against the best one,
// or "" when the search kept no best variant or it equals the base.
func Diff(report m.SearchReport) string {
	if report.Best == "" || report.Best == report.Base {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(report.Base),
		B:        difflib.SplitLines(report.Best),
		FromFile: "base",
		ToFile:   "best",
		Context:  3,
	})
	if err != nil {
		return ""
	}

	return strings.TrimRight(diff, "\n") + "\n"
}

func reportsDir(dir m.Path) m.Path {
	if dir == "" {
		return DefaultReportsDir
	}

	return dir
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}

	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
