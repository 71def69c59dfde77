package flow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-taskflow/pkg/flow"
)

type state struct {
	mu      sync.Mutex
	visited []string
	outputs map[string]any
}

func newState() *state {
	return &state{outputs: make(map[string]any)}
}

func (s *state) visit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visited = append(s.visited, name)
}

func (s *state) set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[key] = value
}

func (s *state) get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outputs[key]
}

// recordStep records its name in the shared state and returns action.
func recordStep(name string, action flow.Action) flow.Funcs[state] {
	return flow.Funcs[state]{
		FinalizeFn: func(_ context.Context, s *state, _ flow.Params, _, _ any) (flow.Action, error) {
			s.visit(name)

			return action, nil
		},
	}
}

func addStep(t *testing.T, g *flow.Graph[state], name string, phases flow.Phases[state], opts ...flow.StepOption) flow.StepID {
	t.Helper()

	id, err := g.Add(name, phases, opts...)
	require.NoError(t, err)

	return id
}

func newObservedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)

	return zap.New(core), logs
}
