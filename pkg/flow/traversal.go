package flow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// nested is implemented by flows used as steps of another graph.
type nested[S any] interface {
	orchestrate(ctx context.Context, shared *S, params Params, tr *tracker) (Action, Outcome, error)
}

// traversal is one walk of a graph. It owns the execution records of the steps it visits.
type traversal[S any] struct {
	graph   *Graph[S]
	logger  *zap.Logger
	hooks   []model.FlowOption
	shared  *S
	table   *execTable
	tracker *tracker
}

func newTraversal[S any](g *Graph[S], logger *zap.Logger, hooks []model.FlowOption, shared *S, tr *tracker) *traversal[S] {
	return &traversal[S]{
		graph:   g,
		logger:  logger,
		hooks:   hooks,
		shared:  shared,
		table:   newExecTable(),
		tracker: tr,
	}
}

// walk visits steps from start until the chosen action has no successor.
func (t *traversal[S]) walk(ctx context.Context, start StepID, params Params) (Action, Outcome, error) {
	def, err := t.graph.step(start)
	if err != nil {
		return "", OutcomeCompleted, err
	}

	for {
		action, err := t.visit(ctx, def, def.cfg.Params.Merge(params))
		if err != nil {
			return "", OutcomeCompleted, err
		}

		next, ok := t.graph.successor(def, action)
		if !ok {
			if t.graph.hasSuccessors(def) {
				t.logger.Debug("no successor for action, traversal ends",
					zap.String("step", def.info.Name),
					zap.String("action", string(action)))

				return action, OutcomeDeadEnded, nil
			}

			return action, OutcomeCompleted, nil
		}

		err = t.onTransition(def, next, action)
		if err != nil {
			return "", OutcomeCompleted, err
		}

		def = next
	}
}

// visit runs the prepare, execute and finalize cycle of one step.
func (t *traversal[S]) visit(ctx context.Context, def *stepDef[S], params Params) (Action, error) {
	start := time.Now()
	visit := &model.Visit{Step: def.info}

	action, err := t.cycle(ctx, def, params, visit)
	if err != nil {
		return "", errors.Wrapf(err, "step %q", def.info.Name)
	}

	visit.Action = string(action)
	visit.Duration = time.Since(start)

	t.tracker.add(*visit)

	err = t.onVisit(visit)
	if err != nil {
		return "", err
	}

	return action, nil
}

func (t *traversal[S]) cycle(ctx context.Context, def *stepDef[S], params Params, visit *model.Visit) (Action, error) {
	if sub, ok := def.phases.(nested[S]); ok {
		visit.Items = 1
		action, _, err := sub.orchestrate(ctx, t.shared, params, t.tracker)

		return action.orDefault(), err
	}

	input, err := def.phases.Prepare(ctx, t.shared, params)
	if err != nil {
		return "", errors.Wrap(err, "unable to prepare")
	}

	var output any

	switch def.cfg.Strategy {
	case Single:
		output, err = t.execSingle(ctx, def, input, visit)
	case SequentialBatch:
		output, err = t.execSequential(ctx, def, input, visit)
	case ParallelBatch:
		output, err = t.execParallel(ctx, def, input, visit)
	default:
		err = errors.Wrapf(ErrInvalidConfig, "strategy %d", def.cfg.Strategy)
	}

	if err != nil {
		return "", err
	}

	action, err := def.phases.Finalize(ctx, t.shared, params, input, output)
	if err != nil {
		return "", errors.Wrap(err, "unable to finalize")
	}

	return action.orDefault(), nil
}

func (t *traversal[S]) onAttemptFailed(def *stepDef[S], attempt int, cause error) error {
	for _, hook := range t.hooks {
		err := hook.OnAttemptFailed(def.info, attempt, cause)
		if err != nil {
			return errors.Wrap(err, "unable to run attempt failed option")
		}
	}

	return nil
}

func (t *traversal[S]) onVisit(visit *model.Visit) error {
	for _, hook := range t.hooks {
		err := hook.OnVisit(visit)
		if err != nil {
			return errors.Wrap(err, "unable to run visit option")
		}
	}

	return nil
}

func (t *traversal[S]) onTransition(from, to *stepDef[S], action Action) error {
	for _, hook := range t.hooks {
		err := hook.OnTransition(from.info, to.info, string(action))
		if err != nil {
			return errors.Wrap(err, "unable to run transition option")
		}
	}

	return nil
}
