package measure

import (
	"sync"
	"time"
)

// TransitionInfo counts the transitions coming from one predecessor, by action.
type TransitionInfo struct {
	Actions map[string]int64
	Total   int64
}

type DefaultMetric struct {
	allTransitions map[string]*TransitionInfo
	mu             *sync.Mutex
	stepElapsed    time.Duration
	visits         int64
	attempts       int64
	failures       int64
	fallbacks      int64
}

func (mt *DefaultMetric) AddVisit(elapsed time.Duration, attempts, fallbacks int) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.visits++
	mt.stepElapsed += elapsed
	mt.attempts += int64(attempts)
	mt.fallbacks += int64(fallbacks)
}

func (mt *DefaultMetric) AddFailure() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.failures++
}

func (mt *DefaultMetric) AddTransition(fromStepName, action string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.allTransitions[fromStepName] == nil {
		mt.allTransitions[fromStepName] = &TransitionInfo{Actions: make(map[string]int64)}
	}

	tr := mt.allTransitions[fromStepName]
	tr.Actions[action]++
	tr.Total++
}

func (mt *DefaultMetric) Visits() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.visits
}

func (mt *DefaultMetric) Attempts() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.attempts
}

func (mt *DefaultMetric) Failures() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failures
}

func (mt *DefaultMetric) Fallbacks() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.fallbacks
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.visits == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stepElapsed) / float64(mt.visits)))
}

// AllTransitions returns a copy of the incoming transitions by predecessor name.
func (mt *DefaultMetric) AllTransitions() map[string]*TransitionInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	all := make(map[string]*TransitionInfo, len(mt.allTransitions))

	for from, tr := range mt.allTransitions {
		actions := make(map[string]int64, len(tr.Actions))
		for action, total := range tr.Actions {
			actions[action] = total
		}

		all[from] = &TransitionInfo{Actions: actions, Total: tr.Total}
	}

	return all
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Hour)
	case d > time.Minute:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)
