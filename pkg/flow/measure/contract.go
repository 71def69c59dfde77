package measure

import "time"

// Measure collects one Metric per step.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the visits of a single step.
type Metric interface {
	AddVisit(elapsed time.Duration, attempts, fallbacks int)
	AddFailure()
	AddTransition(fromStepName, action string)
	Visits() int64
	Attempts() int64
	Failures() int64
	Fallbacks() int64
	AVGDuration() time.Duration
	AllTransitions() map[string]*TransitionInfo
}
