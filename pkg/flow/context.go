package flow

import "context"

type ctxKey int

const (
	attemptKey ctxKey = iota
	itemKey
)

func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptFromContext returns the current execute attempt, starting at 1.
// It returns 0 outside of an execute phase.
func AttemptFromContext(ctx context.Context) int {
	attempt, _ := ctx.Value(attemptKey).(int)

	return attempt
}

func withItem(ctx context.Context, item int) context.Context {
	return context.WithValue(ctx, itemKey, item)
}

// ItemFromContext returns the index of the batch item being executed.
func ItemFromContext(ctx context.Context) (int, bool) {
	item, ok := ctx.Value(itemKey).(int)

	return item, ok
}
