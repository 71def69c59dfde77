package flow_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-taskflow/pkg/flow"
)

func upperBatch(execute func(ctx context.Context, input any) (any, error)) flow.Funcs[state] {
	return flow.Funcs[state]{
		PrepareFn: func(context.Context, *state, flow.Params) (any, error) {
			return []string{"a", "b", "c"}, nil
		},
		ExecuteFn: execute,
		FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, output any) (flow.Action, error) {
			s.set("out", output)

			return "", nil
		},
	}
}

func TestSequentialBatchKeepsOrderAndRetriesItems(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)

	f := singleStepFlow(t, upperBatch(func(ctx context.Context, input any) (any, error) {
		item := input.(string)

		mu.Lock()
		order = append(order, item)
		mu.Unlock()

		if item == "b" && flow.AttemptFromContext(ctx) == 1 {
			return nil, assert.AnError
		}

		return strings.ToUpper(item), nil
	}), flow.StepStrategy(flow.SequentialBatch), flow.StepRetry(2, 0))

	shared := newState()
	res, err := f.Run(t.Context(), shared)
	require.NoError(t, err)

	assert.Equal(t, []any{"A", "B", "C"}, shared.get("out"))
	assert.Equal(t, []string{"a", "b", "b", "c"}, order)
	require.Len(t, res.Visits, 1)
	assert.Equal(t, 4, res.Visits[0].Attempts)
	assert.Equal(t, 3, res.Visits[0].Items)
}

func TestSequentialBatchFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("recovered item", func(t *testing.T) {
		t.Parallel()

		phases := upperBatch(func(_ context.Context, input any) (any, error) {
			if input == "b" {
				return nil, assert.AnError
			}

			return strings.ToUpper(input.(string)), nil
		})
		phases.FallbackFn = func(context.Context, any, error) (any, error) {
			return "x", nil
		}

		f := singleStepFlow(t, phases, flow.StepStrategy(flow.SequentialBatch), flow.StepRetry(2, 0))

		shared := newState()
		res, err := f.Run(t.Context(), shared)
		require.NoError(t, err)
		assert.Equal(t, []any{"A", "x", "C"}, shared.get("out"))
		assert.Equal(t, 1, res.Visits[0].Fallbacks)
		assert.Equal(t, 4, res.Visits[0].Attempts)
	})

	t.Run("raising fallback stops the batch", func(t *testing.T) {
		t.Parallel()

		var executed []any

		f := singleStepFlow(t, upperBatch(func(_ context.Context, input any) (any, error) {
			executed = append(executed, input)
			if input == "b" {
				return nil, assert.AnError
			}

			return input, nil
		}), flow.StepStrategy(flow.SequentialBatch))

		shared := newState()
		_, err := f.Run(t.Context(), shared)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "item 1")
		assert.Equal(t, []any{"a", "b"}, executed)
		assert.Nil(t, shared.get("out"))
	})
}

func TestParallelBatchKeepsInputOrder(t *testing.T) {
	t.Parallel()

	const size = 10

	var running, maxRunning atomic.Int32

	f := singleStepFlow(t, flow.Funcs[state]{
		PrepareFn: func(context.Context, *state, flow.Params) (any, error) {
			items := make([]int, size)
			for i := range items {
				items[i] = i
			}

			return items, nil
		},
		ExecuteFn: func(ctx context.Context, input any) (any, error) {
			now := running.Add(1)
			defer running.Add(-1)

			for {
				prev := maxRunning.Load()
				if now <= prev || maxRunning.CompareAndSwap(prev, now) {
					break
				}
			}

			item, ok := flow.ItemFromContext(ctx)
			if !ok || item != input.(int) {
				return nil, assert.AnError
			}

			time.Sleep(time.Duration(size-item) * 5 * time.Millisecond)

			return input.(int) * 10, nil
		},
		FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, output any) (flow.Action, error) {
			s.set("out", output)

			return "", nil
		},
	}, flow.StepStrategy(flow.ParallelBatch))

	shared := newState()
	res, err := f.Run(t.Context(), shared)
	require.NoError(t, err)

	expected := make([]any, size)
	for i := range expected {
		expected[i] = i * 10
	}

	assert.Equal(t, expected, shared.get("out"))
	assert.Equal(t, size, res.Visits[0].Items)
	assert.Greater(t, maxRunning.Load(), int32(1))
}

func TestParallelBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()

	var finalized atomic.Bool

	f := singleStepFlow(t, flow.Funcs[state]{
		PrepareFn: func(context.Context, *state, flow.Params) (any, error) {
			return []int{0, 1, 2, 3}, nil
		},
		ExecuteFn: func(ctx context.Context, input any) (any, error) {
			if input == 2 {
				return nil, assert.AnError
			}

			<-ctx.Done()

			return nil, ctx.Err()
		},
		FinalizeFn: func(context.Context, *state, flow.Params, any, any) (flow.Action, error) {
			finalized.Store(true)

			return "", nil
		},
	}, flow.StepStrategy(flow.ParallelBatch))

	res, err := f.Run(t.Context(), newState())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "item 2")
	assert.False(t, finalized.Load())
	assert.Empty(t, res.Visits)
}

func TestParallelBatchFallbackPerItem(t *testing.T) {
	t.Parallel()

	f := singleStepFlow(t, flow.Funcs[state]{
		PrepareFn: func(context.Context, *state, flow.Params) (any, error) {
			return flow.Items([]string{"a", "b", "c"}), nil
		},
		ExecuteFn: func(_ context.Context, input any) (any, error) {
			if input == "c" {
				return nil, assert.AnError
			}

			return input, nil
		},
		FallbackFn: func(_ context.Context, input any, _ error) (any, error) {
			return "fallback-" + input.(string), nil
		},
		FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, output any) (flow.Action, error) {
			s.set("out", output)

			return "", nil
		},
	}, flow.StepStrategy(flow.ParallelBatch), flow.StepRetry(2, 0))

	shared := newState()
	res, err := f.Run(t.Context(), shared)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "fallback-c"}, shared.get("out"))
	assert.Equal(t, 4, res.Visits[0].Attempts)
	assert.Equal(t, 1, res.Visits[0].Fallbacks)
}

func TestBatchPrepareResult(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		prepared    any
		expectedOut any
		expectedErr error
	}{
		"nil is an empty batch": {prepared: nil, expectedOut: []any{}},
		"typed slice":           {prepared: []int{1, 2}, expectedOut: []any{1, 2}},
		"array":                 {prepared: [2]string{"x", "y"}, expectedOut: []any{"x", "y"}},
		"not a slice":           {prepared: 42, expectedErr: flow.ErrNotBatch},
	}

	for name, tc := range tcs {
		for _, strategy := range []flow.Strategy{flow.SequentialBatch, flow.ParallelBatch} {
			t.Run(name+"/"+strategy.String(), func(t *testing.T) {
				t.Parallel()

				f := singleStepFlow(t, flow.Funcs[state]{
					PrepareFn: func(context.Context, *state, flow.Params) (any, error) { return tc.prepared, nil },
					ExecuteFn: func(_ context.Context, input any) (any, error) { return input, nil },
					FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, output any) (flow.Action, error) {
						s.set("out", output)

						return "", nil
					},
				}, flow.StepStrategy(strategy))

				shared := newState()
				_, err := f.Run(t.Context(), shared)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)

					return
				}

				require.NoError(t, err)
				assert.Equal(t, tc.expectedOut, shared.get("out"))
			})
		}
	}
}

func TestBatchFlowRunsSetsInOrder(t *testing.T) {
	t.Parallel()

	g := flow.NewGraph[state]()
	a := addStep(t, g, "A", flow.Funcs[state]{
		PrepareFn: func(_ context.Context, s *state, params flow.Params) (any, error) {
			s.visit(params.GetString("name"))

			return params.GetString("name"), nil
		},
		ExecuteFn: func(_ context.Context, input any) (any, error) {
			if input == "fail" {
				return nil, assert.AnError
			}

			return input, nil
		},
	})

	tcs := map[string]struct {
		names       []string
		expected    []string
		expectedErr error
	}{
		"all sets": {
			names:    []string{"one", "two", "three"},
			expected: []string{"one", "two", "three"},
		},
		"first failing set stops the run": {
			names:       []string{"one", "fail", "three"},
			expected:    []string{"one", "fail"},
			expectedErr: assert.AnError,
		},
		"no set": {
			expected: nil,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f, err := flow.NewBatchFlow(g, a, func(context.Context, *state, flow.Params) ([]flow.Params, error) {
				sets := make([]flow.Params, 0, len(tc.names))
				for _, n := range tc.names {
					sets = append(sets, flow.Params{"name": n})
				}

				return sets, nil
			})
			require.NoError(t, err)

			shared := newState()
			res, err := f.Run(t.Context(), shared)

			assert.Equal(t, tc.expected, shared.visited)

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				assert.Contains(t, err.Error(), "batch 1")

				return
			}

			require.NoError(t, err)
			assert.Len(t, res.Visits, len(tc.names))
			assert.Equal(t, flow.DefaultAction, res.Action)
		})
	}
}

func TestBatchFlowSetOverridesParams(t *testing.T) {
	t.Parallel()

	g := flow.NewGraph[state]()
	a := addStep(t, g, "A", flow.Funcs[state]{
		PrepareFn: func(_ context.Context, s *state, params flow.Params) (any, error) {
			s.visit(params.GetString("lang") + "/" + params.GetString("format"))

			return nil, nil
		},
	})

	f, err := flow.NewBatchFlow(g, a, func(_ context.Context, _ *state, params flow.Params) ([]flow.Params, error) {
		assert.Equal(t, "html", params.GetString("format"))

		return []flow.Params{{"lang": "en"}, {"lang": "fr", "format": "pdf"}}, nil
	}, flow.FlowParams(flow.Params{"format": "txt"}))
	require.NoError(t, err)

	shared := newState()
	_, err = f.RunWithParams(t.Context(), shared, flow.Params{"format": "html"})
	require.NoError(t, err)
	assert.Equal(t, []string{"en/html", "fr/pdf"}, shared.visited)
}

func TestParallelBatchFlow(t *testing.T) {
	t.Parallel()

	g := flow.NewGraph[state]()
	a := addStep(t, g, "A", flow.Funcs[state]{
		PrepareFn: func(_ context.Context, _ *state, params flow.Params) (any, error) {
			return params.GetInt("n"), nil
		},
		ExecuteFn: func(ctx context.Context, input any) (any, error) {
			if input == 3 {
				return nil, assert.AnError
			}

			return input, nil
		},
		FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, output any) (flow.Action, error) {
			s.visit(strings.Repeat("*", output.(int)))

			return "", nil
		},
	})
	b := addStep(t, g, "B", flow.Funcs[state]{})
	require.NoError(t, g.Then(a, b))

	sets := func(ns ...int) flow.FlowPrepFunc[state] {
		return func(context.Context, *state, flow.Params) ([]flow.Params, error) {
			out := make([]flow.Params, len(ns))
			for i, n := range ns {
				out[i] = flow.Params{"n": n}
			}

			return out, nil
		}
	}

	t.Run("all sets", func(t *testing.T) {
		t.Parallel()

		f, err := flow.NewParallelBatchFlow(g, a, sets(1, 2, 4, 5))
		require.NoError(t, err)

		shared := newState()
		res, err := f.Run(t.Context(), shared)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"*", "**", "****", "*****"}, shared.visited)
		assert.Len(t, res.Visits, 8)
		assert.Equal(t, flow.OutcomeCompleted, res.Outcome)
	})

	t.Run("one failing set fails the run", func(t *testing.T) {
		t.Parallel()

		f, err := flow.NewParallelBatchFlow(g, a, sets(1, 2, 3))
		require.NoError(t, err)

		_, err = f.Run(t.Context(), newState())
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "batch 2")
	})
}

func TestBatchFlowAsNestedStep(t *testing.T) {
	t.Parallel()

	inner := flow.NewGraph[state]()
	x := addStep(t, inner, "X", flow.Funcs[state]{
		FinalizeFn: func(_ context.Context, s *state, params flow.Params, _, _ any) (flow.Action, error) {
			s.visit("X" + params.GetString("id"))

			return "", nil
		},
	})

	batch, err := flow.NewBatchFlow(inner, x, func(context.Context, *state, flow.Params) ([]flow.Params, error) {
		return []flow.Params{{"id": "1"}, {"id": "2"}}, nil
	})
	require.NoError(t, err)

	outer := flow.NewGraph[state]()
	sub := addStep(t, outer, "sub", batch)
	end := addStep(t, outer, "end", recordStep("end", ""))
	require.NoError(t, outer.Then(sub, end))

	f, err := flow.NewFlow(outer, sub)
	require.NoError(t, err)

	shared := newState()
	res, err := f.Run(t.Context(), shared)
	require.NoError(t, err)
	assert.Equal(t, []string{"X1", "X2", "end"}, shared.visited)
	assert.Equal(t, []string{"X", "X", "sub", "end"}, res.StepNames())
}
