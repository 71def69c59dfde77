package flow

import (
	"sync"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

// Outcome tells how a run ended.
type Outcome int

const (
	// OutcomeCompleted means the last visited step has no successor at all.
	OutcomeCompleted Outcome = iota
	// OutcomeDeadEnded means the last visited step has successors, none for the chosen action.
	OutcomeDeadEnded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeDeadEnded:
		return "dead-ended"
	default:
		return "unknown"
	}
}

func worst(a, b Outcome) Outcome {
	if a == OutcomeDeadEnded || b == OutcomeDeadEnded {
		return OutcomeDeadEnded
	}

	return OutcomeCompleted
}

// Visit is the report of one step visit.
type Visit = model.Visit

// Result describes a top-level run.
type Result struct {
	RunID   string
	Outcome Outcome
	// Action is the action returned by the flow finalize phase.
	Action Action
	// Visits lists every step visit, nested flows included. Visits of concurrent
	// traversals are listed in completion order.
	Visits []Visit
}

// StepNames returns the name of every visited step, in visit order.
func (r *Result) StepNames() []string {
	names := make([]string, len(r.Visits))
	for i, v := range r.Visits {
		names[i] = v.Step.Name
	}

	return names
}

// tracker collects visits of a top-level run across nested and concurrent traversals.
type tracker struct {
	mu  sync.Mutex
	res *Result
}

func newTracker(runID string) *tracker {
	return &tracker{
		res: &Result{RunID: runID, Visits: []Visit{}},
	}
}

func (tr *tracker) add(visit Visit) {
	if tr == nil {
		return
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.res.Visits = append(tr.res.Visits, visit)
}
