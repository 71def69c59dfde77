package flow

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// toItems turns a batch prepare result into a list of items. Nil is an empty batch.
func toItems(input any) ([]any, error) {
	if input == nil {
		return nil, nil
	}

	if items, ok := input.([]any); ok {
		return items, nil
	}

	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil, errors.Wrapf(ErrNotBatch, "got %T", input)
	}

	items := make([]any, val.Len())
	for i := range items {
		items[i] = val.Index(i).Interface()
	}

	return items, nil
}

func countRecord(visit *model.Visit, rec *execRecord) {
	if rec == nil {
		return
	}

	visit.Attempts += rec.attempt
	if rec.fellBack {
		visit.Fallbacks++
	}
}

func (t *traversal[S]) execSingle(ctx context.Context, def *stepDef[S], input any, visit *model.Visit) (any, error) {
	visit.Items = 1

	out, rec, err := t.execWithRetry(ctx, def, noItem, input)
	countRecord(visit, rec)

	return out, err
}

// execSequential runs items one after the other. A failing item stops the batch.
func (t *traversal[S]) execSequential(ctx context.Context, def *stepDef[S], input any, visit *model.Visit) (any, error) {
	items, err := toItems(input)
	if err != nil {
		return nil, err
	}

	visit.Items = len(items)
	outputs := make([]any, len(items))

	for i, item := range items {
		out, rec, err := t.execWithRetry(ctx, def, i, item)
		countRecord(visit, rec)

		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}

		outputs[i] = out
	}

	return outputs, nil
}

// execParallel starts every item at once. The first unrecovered failure cancels
// the others and fails the batch.
func (t *traversal[S]) execParallel(ctx context.Context, def *stepDef[S], input any, visit *model.Visit) (any, error) {
	items, err := toItems(input)
	if err != nil {
		return nil, err
	}

	visit.Items = len(items)
	outputs := make([]any, len(items))
	records := make([]*execRecord, len(items))

	errGrp, dCtx := errgroup.WithContext(ctx)

	for i, item := range items {
		errGrp.Go(func() error {
			out, rec, err := t.execWithRetry(dCtx, def, i, item)
			records[i] = rec

			if err != nil {
				return errors.Wrapf(err, "item %d", i)
			}

			outputs[i] = out

			return nil
		})
	}

	err = errGrp.Wait()

	for _, rec := range records {
		countRecord(visit, rec)
	}

	if err != nil {
		return nil, err
	}

	return outputs, nil
}
