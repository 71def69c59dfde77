package model

import "time"

// Strategy names as reported in StepInfo.
const (
	SingleStrategy          = "single"
	SequentialBatchStrategy = "sequential_batch"
	ParallelBatchStrategy   = "parallel_batch"
	FlowStrategy            = "flow"
)

// StepInfo describes a step definition. It never changes once the graph is assembled.
type StepInfo struct {
	ID          int
	Name        string
	Strategy    string
	MaxAttempts int
	RetryDelay  time.Duration
}

// Visit is the report of one step visit within a traversal.
type Visit struct {
	Step *StepInfo
	// Action is the action chosen by the step finalize phase.
	Action string
	// Attempts counts every execute call, summed over batch items.
	Attempts int
	// Fallbacks counts how many executions were resolved by a fallback.
	Fallbacks int
	// Items is the number of batch items, 1 for a single step.
	Items    int
	Duration time.Duration
}
