package flow

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// Strategy defines how a step runs its execute phase.
type Strategy int

const (
	// Single runs execute once with the prepare result.
	Single Strategy = iota
	// SequentialBatch runs execute once per item, in input order.
	SequentialBatch
	// ParallelBatch runs execute once per item, all items at the same time.
	ParallelBatch
)

func (s Strategy) String() string {
	switch s {
	case Single:
		return model.SingleStrategy
	case SequentialBatch:
		return model.SequentialBatchStrategy
	case ParallelBatch:
		return model.ParallelBatchStrategy
	default:
		return "unknown"
	}
}

// Phases is the contract every step implements.
//
// Execute must not reach the shared state: its only input is what Prepare returned.
// For batch strategies Prepare returns a slice, Execute receives one item at a time and
// Finalize receives the outputs as a []any in input order.
type Phases[S any] interface {
	Prepare(ctx context.Context, shared *S, params Params) (any, error)
	Execute(ctx context.Context, input any) (any, error)
	Finalize(ctx context.Context, shared *S, params Params, input, output any) (Action, error)
}

// Fallbacker is implemented by steps able to recover once their attempts are exhausted.
// The returned output replaces the one Execute failed to produce. Returning an error
// fails the step.
type Fallbacker interface {
	Fallback(ctx context.Context, input any, err error) (any, error)
}

// Base provides the default phases. Embed it and override what the step needs.
type Base[S any] struct{}

func (Base[S]) Prepare(context.Context, *S, Params) (any, error) { return nil, nil }

func (Base[S]) Execute(context.Context, any) (any, error) { return nil, nil }

func (Base[S]) Finalize(context.Context, *S, Params, any, any) (Action, error) {
	return DefaultAction, nil
}

// Funcs adapts plain functions to Phases. Nil functions fall back to the default phases.
type Funcs[S any] struct {
	PrepareFn  func(ctx context.Context, shared *S, params Params) (any, error)
	ExecuteFn  func(ctx context.Context, input any) (any, error)
	FinalizeFn func(ctx context.Context, shared *S, params Params, input, output any) (Action, error)
	FallbackFn func(ctx context.Context, input any, err error) (any, error)
}

func (f Funcs[S]) Prepare(ctx context.Context, shared *S, params Params) (any, error) {
	if f.PrepareFn == nil {
		return nil, nil
	}

	return f.PrepareFn(ctx, shared, params)
}

func (f Funcs[S]) Execute(ctx context.Context, input any) (any, error) {
	if f.ExecuteFn == nil {
		return nil, nil
	}

	return f.ExecuteFn(ctx, input)
}

func (f Funcs[S]) Finalize(ctx context.Context, shared *S, params Params, input, output any) (Action, error) {
	if f.FinalizeFn == nil {
		return DefaultAction, nil
	}

	return f.FinalizeFn(ctx, shared, params, input, output)
}

// Fallback re-raises err unless FallbackFn is set.
func (f Funcs[S]) Fallback(ctx context.Context, input any, err error) (any, error) {
	if f.FallbackFn == nil {
		return nil, err
	}

	return f.FallbackFn(ctx, input, err)
}

// StepConfig is the per-step configuration, fixed once the step is added to a graph.
type StepConfig struct {
	Strategy    Strategy
	MaxAttempts int
	RetryDelay  time.Duration
	// Params are the step defaults, overridden by the flow and batch parameters.
	Params Params
}

func (c *StepConfig) validate() error {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}

	if c.MaxAttempts < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max attempts %d", c.MaxAttempts)
	}

	if c.RetryDelay < 0 {
		return errors.Wrapf(ErrInvalidConfig, "retry delay %s", c.RetryDelay)
	}

	switch c.Strategy {
	case Single, SequentialBatch, ParallelBatch:
	default:
		return errors.Wrapf(ErrInvalidConfig, "strategy %d", c.Strategy)
	}

	return nil
}

type StepOption func(c *StepConfig)

// StepRetry sets the number of attempts, first one included, and the delay between them.
func StepRetry(maxAttempts int, delay time.Duration) StepOption {
	return func(c *StepConfig) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

func StepStrategy(strategy Strategy) StepOption {
	return func(c *StepConfig) {
		c.Strategy = strategy
	}
}

func StepParams(params Params) StepOption {
	return func(c *StepConfig) {
		c.Params = params
	}
}

// Items converts a typed slice into the []any a batch prepare phase may return.
func Items[T any](xs []T) []any {
	items := make([]any, len(xs))
	for i, x := range xs {
		items[i] = x
	}

	return items
}
