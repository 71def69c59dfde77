package flow

import (
	"context"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// StepID identifies a step inside its graph.
type StepID int

// NoStep is returned alongside errors.
const NoStep StepID = -1

type stepDef[S any] struct {
	id         StepID
	info       *model.StepInfo
	phases     Phases[S]
	cfg        StepConfig
	successors map[Action]StepID
}

// Graph holds step definitions and their action-labelled edges.
//
// A graph is assembled once, then run by any number of flows. Steps and edges
// must not be added while a flow is running it.
type Graph[S any] struct {
	mu     sync.RWMutex
	steps  []*stepDef[S]
	byName map[string]StepID
	logger *zap.Logger
}

// NewGraph creates an empty graph.
func NewGraph[S any](opts ...GraphOption) *Graph[S] {
	settings := &graphSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	if settings.logger == nil {
		settings.logger = zap.NewNop()
	}

	return &Graph[S]{
		byName: make(map[string]StepID),
		logger: settings.logger,
	}
}

// Add registers a step under a unique name.
func (g *Graph[S]) Add(name string, phases Phases[S], opts ...StepOption) (StepID, error) {
	if g == nil {
		return NoStep, ErrGraphMustBeSet
	}

	if name == "" {
		return NoStep, ErrEmptyStepName
	}

	if phases == nil {
		return NoStep, ErrPhasesMustBeSet
	}

	cfg := StepConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	err := cfg.validate()
	if err != nil {
		return NoStep, errors.Wrapf(err, "step %q", name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[name]; ok {
		return NoStep, errors.Wrapf(ErrDuplicateStep, "step %q", name)
	}

	id := StepID(len(g.steps))
	strategy := cfg.Strategy.String()

	if _, ok := phases.(nested[S]); ok {
		strategy = model.FlowStrategy
	}

	g.steps = append(g.steps, &stepDef[S]{
		id: id,
		info: &model.StepInfo{
			ID:          int(id),
			Name:        name,
			Strategy:    strategy,
			MaxAttempts: cfg.MaxAttempts,
			RetryDelay:  cfg.RetryDelay,
		},
		phases:     phases,
		cfg:        cfg,
		successors: make(map[Action]StepID),
	})
	g.byName[name] = id

	return id, nil
}

// Connect registers to as the successor of from for action.
// A previous successor registered for the same action is replaced.
func (g *Graph[S]) Connect(from StepID, action Action, to StepID) error {
	if g == nil {
		return ErrGraphMustBeSet
	}

	action = action.orDefault()

	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.lookup(from)
	if err != nil {
		return err
	}

	dst, err := g.lookup(to)
	if err != nil {
		return err
	}

	if prev, ok := src.successors[action]; ok {
		g.logger.Warn("overwriting successor",
			zap.String("step", src.info.Name),
			zap.String("action", string(action)),
			zap.String("previous", g.steps[prev].info.Name),
			zap.String("successor", dst.info.Name))
	}

	src.successors[action] = to

	return nil
}

// Then connects from to to with the default action.
func (g *Graph[S]) Then(from, to StepID) error {
	return g.Connect(from, DefaultAction, to)
}

// Lookup returns the ID of the step registered under name.
func (g *Graph[S]) Lookup(name string) (StepID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.byName[name]

	return id, ok
}

// Step returns a copy of the step description.
func (g *Graph[S]) Step(id StepID) (model.StepInfo, error) {
	def, err := g.step(id)
	if err != nil {
		return model.StepInfo{}, err
	}

	return *def.info, nil
}

// Successor returns the step following id for action.
func (g *Graph[S]) Successor(id StepID, action Action) (StepID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	def, err := g.lookup(id)
	if err != nil {
		return NoStep, false
	}

	next, ok := def.successors[action.orDefault()]

	return next, ok
}

func (g *Graph[S]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.steps)
}

// RunStep runs a single prepare, execute and finalize cycle of the step.
// Successors are never followed, use a Flow to traverse the graph.
func (g *Graph[S]) RunStep(ctx context.Context, id StepID, shared *S, params Params) (Action, error) {
	if g == nil {
		return "", ErrGraphMustBeSet
	}

	if shared == nil {
		return "", ErrSharedMustBeSet
	}

	def, err := g.step(id)
	if err != nil {
		return "", err
	}

	if g.hasSuccessors(def) {
		g.logger.Warn("step has successors that will not run, use a flow to traverse the graph",
			zap.String("step", def.info.Name))
	}

	t := newTraversal(g, g.logger, nil, shared, nil)

	return t.visit(ctx, def, def.cfg.Params.Merge(params))
}

func (g *Graph[S]) step(id StepID) (*stepDef[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.lookup(id)
}

// lookup must be called with g.mu held.
func (g *Graph[S]) lookup(id StepID) (*stepDef[S], error) {
	if id < 0 || int(id) >= len(g.steps) {
		return nil, errors.Wrapf(ErrUnknownStep, "id %d", id)
	}

	return g.steps[id], nil
}

func (g *Graph[S]) successor(def *stepDef[S], action Action) (*stepDef[S], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	next, ok := def.successors[action]
	if !ok {
		return nil, false
	}

	return g.steps[next], true
}

func (g *Graph[S]) hasSuccessors(def *stepDef[S]) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(def.successors) > 0
}

type edge struct {
	from, to StepID
	action   Action
}

// reachable returns the steps reachable from start, in breadth-first order, and the edges between them.
func (g *Graph[S]) reachable(start StepID) ([]StepID, []edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, err := g.lookup(start); err != nil {
		return nil, nil, err
	}

	topology := graph.New(func(id StepID) StepID { return id }, graph.Directed())

	for _, def := range g.steps {
		err := topology.AddVertex(def.id)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to add vertex")
		}
	}

	for _, def := range g.steps {
		for _, to := range def.successors {
			err := topology.AddEdge(def.id, to)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, nil, errors.Wrapf(err, "unable to add edge from %d to %d", def.id, to)
			}
		}
	}

	ids := []StepID{}
	visited := make(map[StepID]struct{})

	err := graph.BFS(topology, start, func(id StepID) bool {
		ids = append(ids, id)
		visited[id] = struct{}{}

		return false
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to walk graph")
	}

	edges := []edge{}

	for _, id := range ids {
		for action, to := range g.steps[id].successors {
			if _, ok := visited[to]; ok {
				edges = append(edges, edge{from: id, to: to, action: action})
			}
		}
	}

	return ids, edges, nil
}
