package flow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const noItem = -1

// execWithRetry runs the execute phase until it succeeds or attempts are exhausted,
// then resolves the failure through the step fallback.
func (t *traversal[S]) execWithRetry(ctx context.Context, def *stepDef[S], item int, input any) (any, *execRecord, error) {
	key := recordKey{step: def.id, item: item}
	rec := t.table.open(key)

	defer t.table.close(key)

	execCtx := ctx
	if item != noItem {
		execCtx = withItem(ctx, item)
	}

	for {
		rec.attempt++
		rec.state = stateAttempting

		out, err := def.phases.Execute(withAttempt(execCtx, rec.attempt), input)
		if err == nil {
			rec.state = stateSucceeded

			return out, rec, nil
		}

		rec.lastErr = err

		hookErr := t.onAttemptFailed(def, rec.attempt, err)
		if hookErr != nil {
			return nil, rec, hookErr
		}

		if rec.attempt >= def.cfg.MaxAttempts {
			rec.state = stateExhausted

			break
		}

		t.logger.Debug("step attempt failed, retrying",
			zap.String("step", def.info.Name),
			zap.Int("attempt", rec.attempt),
			zap.Duration("delay", def.cfg.RetryDelay),
			zap.Error(err))

		err = wait(ctx, def.cfg.RetryDelay)
		if err != nil {
			return nil, rec, err
		}
	}

	out, err := fallback(ctx, def.phases, input, rec.lastErr)
	if err != nil {
		return nil, rec, err
	}

	rec.fellBack = true

	return out, rec, nil
}

func fallback[S any](ctx context.Context, phases Phases[S], input any, err error) (any, error) {
	fb, ok := phases.(Fallbacker)
	if !ok {
		return nil, err
	}

	return fb.Fallback(ctx, input, err)
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return errors.Wrap(ctx.Err(), "retry interrupted")
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "retry interrupted")
	case <-timer.C:
		return nil
	}
}
