package flow

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// FlowPrepFunc computes the parameter sets of a flow run.
// A single flow merges the sets, in order, into its traversal parameters.
// A batch flow runs the graph once per set.
type FlowPrepFunc[S any] func(ctx context.Context, shared *S, params Params) ([]Params, error)

// FlowPostFunc decides the action a flow returns once its traversals are done.
// last is the action that ended the last traversal.
type FlowPostFunc[S any] func(ctx context.Context, shared *S, params Params, sets []Params, last Action) (Action, error)

// Flow walks a graph from its entry step.
type Flow[S any] struct {
	graph    *Graph[S]
	start    StepID
	strategy Strategy
	params   Params
	prepare  FlowPrepFunc[S]
	finalize FlowPostFunc[S]
	logger   *zap.Logger
	hooks    []model.FlowOption
}

// NewFlow creates a flow running the graph once per run.
func NewFlow[S any](g *Graph[S], start StepID, opts ...FlowOption) (*Flow[S], error) {
	return newFlow(g, start, Single, nil, opts...)
}

// NewBatchFlow creates a flow running the graph once per parameter set returned by prep,
// one set after the other. The first failing traversal stops the run.
func NewBatchFlow[S any](g *Graph[S], start StepID, prep FlowPrepFunc[S], opts ...FlowOption) (*Flow[S], error) {
	return newFlow(g, start, SequentialBatch, prep, opts...)
}

// NewParallelBatchFlow creates a flow running the graph once per parameter set returned by prep,
// all sets at the same time, against the same shared state. Steps mutating the shared state
// must synchronise themselves. The first failing traversal fails the run.
func NewParallelBatchFlow[S any](g *Graph[S], start StepID, prep FlowPrepFunc[S], opts ...FlowOption) (*Flow[S], error) {
	return newFlow(g, start, ParallelBatch, prep, opts...)
}

func newFlow[S any](g *Graph[S], start StepID, strategy Strategy, prep FlowPrepFunc[S], opts ...FlowOption) (*Flow[S], error) {
	if g == nil {
		return nil, ErrGraphMustBeSet
	}

	settings := &flowSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	if settings.logger == nil {
		settings.logger = zap.NewNop()
	}

	f := &Flow[S]{
		graph:    g,
		start:    start,
		strategy: strategy,
		params:   settings.params,
		prepare:  prep,
		logger:   settings.logger,
		hooks:    settings.hooks,
	}

	err := f.prepareHooks()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// prepareHooks announces the reachable topology to the flow options.
func (f *Flow[S]) prepareHooks() error {
	ids, edges, err := f.graph.reachable(f.start)
	if err != nil {
		return err
	}

	if unreachable := f.graph.Len() - len(ids); unreachable > 0 {
		f.logger.Warn("some steps are not reachable from the entry step",
			zap.Int("unreachable", unreachable))
	}

	for _, hook := range f.hooks {
		err := hook.New()
		if err != nil {
			return errors.Wrap(err, "unable to apply flow option")
		}

		for _, id := range ids {
			def, err := f.graph.step(id)
			if err != nil {
				return err
			}

			err = hook.PrepareStep(def.info)
			if err != nil {
				return errors.Wrap(err, "unable to run prepare step option")
			}
		}

		for _, e := range edges {
			from, _ := f.graph.step(e.from)
			to, _ := f.graph.step(e.to)

			err = hook.PrepareEdge(from.info, to.info, string(e.action))
			if err != nil {
				return errors.Wrap(err, "unable to run prepare edge option")
			}
		}
	}

	return nil
}

// WithPrepare returns a copy of the flow computing its parameter sets with fn.
func (f *Flow[S]) WithPrepare(fn FlowPrepFunc[S]) *Flow[S] {
	cp := *f
	cp.prepare = fn

	return &cp
}

// WithFinalize returns a copy of the flow deciding its returned action with fn.
func (f *Flow[S]) WithFinalize(fn FlowPostFunc[S]) *Flow[S] {
	cp := *f
	cp.finalize = fn

	return &cp
}

// Run walks the graph against shared.
//
// The returned Result is never nil: on failure it lists the visits made before the error.
func (f *Flow[S]) Run(ctx context.Context, shared *S) (*Result, error) {
	return f.RunWithParams(ctx, shared, nil)
}

// RunWithParams is Run with extra parameters overriding the flow own parameters.
func (f *Flow[S]) RunWithParams(ctx context.Context, shared *S, params Params) (*Result, error) {
	tr := newTracker(uuid.New().String())

	if shared == nil {
		return tr.res, ErrSharedMustBeSet
	}

	action, outcome, err := f.orchestrate(ctx, shared, params, tr)
	if err != nil {
		return tr.res, err
	}

	tr.res.Action = action
	tr.res.Outcome = outcome

	return tr.res, nil
}

// Prepare returns the flow parameter sets. It makes the flow usable as a step.
func (f *Flow[S]) Prepare(ctx context.Context, shared *S, params Params) (any, error) {
	if f.prepare == nil {
		return []Params(nil), nil
	}

	return f.prepare(ctx, shared, params)
}

// Execute does nothing: a flow work happens while it walks its graph.
func (f *Flow[S]) Execute(context.Context, any) (any, error) {
	return nil, nil
}

// Finalize returns the action of the flow. Without a finalize function a single flow returns
// the action that ended its traversal and a batch flow returns the default action.
func (f *Flow[S]) Finalize(ctx context.Context, shared *S, params Params, input, output any) (Action, error) {
	sets, _ := input.([]Params)
	last, _ := output.(Action)

	if f.finalize != nil {
		return f.finalize(ctx, shared, params, sets, last)
	}

	if f.strategy != Single {
		return DefaultAction, nil
	}

	return last.orDefault(), nil
}

func (f *Flow[S]) orchestrate(ctx context.Context, shared *S, params Params, tr *tracker) (Action, Outcome, error) {
	action, outcome, err := f.orchestrateRun(ctx, shared, params, tr)

	finishErr := f.finish()
	if err != nil {
		if finishErr != nil {
			f.logger.Error("unable to finish flow options", zap.Error(finishErr))
		}

		return "", outcome, err
	}

	if finishErr != nil {
		return "", outcome, finishErr
	}

	return action, outcome, nil
}

func (f *Flow[S]) orchestrateRun(ctx context.Context, shared *S, params Params, tr *tracker) (Action, Outcome, error) {
	params = f.params.Merge(params)

	prepared, err := f.Prepare(ctx, shared, params)
	if err != nil {
		return "", OutcomeCompleted, errors.Wrap(err, "unable to prepare flow")
	}

	sets, _ := prepared.([]Params)

	var (
		last    Action
		outcome Outcome
	)

	switch f.strategy {
	case Single:
		last, outcome, err = f.traverse(ctx, shared, params.Merge(sets...), tr)
	case SequentialBatch:
		last, outcome, err = f.traverseSequential(ctx, shared, params, sets, tr)
	case ParallelBatch:
		last, outcome, err = f.traverseParallel(ctx, shared, params, sets, tr)
	default:
		err = errors.Wrapf(ErrInvalidConfig, "strategy %d", f.strategy)
	}

	if err != nil {
		return "", outcome, err
	}

	action, err := f.Finalize(ctx, shared, params, sets, last)
	if err != nil {
		return "", outcome, errors.Wrap(err, "unable to finalize flow")
	}

	return action.orDefault(), outcome, nil
}

func (f *Flow[S]) traverse(ctx context.Context, shared *S, params Params, tr *tracker) (Action, Outcome, error) {
	t := newTraversal(f.graph, f.logger, f.hooks, shared, tr)

	return t.walk(ctx, f.start, params)
}

func (f *Flow[S]) traverseSequential(ctx context.Context, shared *S, params Params, sets []Params, tr *tracker) (Action, Outcome, error) {
	var last Action

	outcome := OutcomeCompleted

	for i, set := range sets {
		action, out, err := f.traverse(ctx, shared, params.Merge(set), tr)
		if err != nil {
			return "", outcome, errors.Wrapf(err, "batch %d", i)
		}

		last = action
		outcome = worst(outcome, out)
	}

	return last, outcome, nil
}

func (f *Flow[S]) traverseParallel(ctx context.Context, shared *S, params Params, sets []Params, tr *tracker) (Action, Outcome, error) {
	actions := make([]Action, len(sets))
	outcomes := make([]Outcome, len(sets))

	errGrp, dCtx := errgroup.WithContext(ctx)

	for i, set := range sets {
		errGrp.Go(func() error {
			action, out, err := f.traverse(dCtx, shared, params.Merge(set), tr)
			if err != nil {
				return errors.Wrapf(err, "batch %d", i)
			}

			actions[i] = action
			outcomes[i] = out

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return "", OutcomeCompleted, err
	}

	outcome := OutcomeCompleted
	for _, out := range outcomes {
		outcome = worst(outcome, out)
	}

	var last Action
	if len(actions) > 0 {
		last = actions[len(actions)-1]
	}

	return last, outcome, nil
}

func (f *Flow[S]) finish() error {
	for _, hook := range f.hooks {
		err := hook.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish flow option")
		}
	}

	return nil
}

var _ Phases[struct{}] = (*Flow[struct{}])(nil)
