package model

// FlowOption defines the interface for flow options.
//
// Hooks may be called from several goroutines at once when a step or a flow
// runs in parallel batch mode, implementations must be safe for concurrent use.
type FlowOption interface {
	// New initialises the flow option.
	New() error

	flowTopologyOption
	flowExecutionOption

	// Finish runs after every top-level run, whatever its result.
	Finish() error
}

// flowTopologyOption defines the hooks called once when the flow is built.
type flowTopologyOption interface {
	// PrepareStep runs for every step reachable from the entry step.
	PrepareStep(step *StepInfo) error
	// PrepareEdge runs for every edge between reachable steps.
	PrepareEdge(from, to *StepInfo, action string) error
}

// flowExecutionOption defines the hooks called while a flow runs.
type flowExecutionOption interface {
	// OnAttemptFailed runs everytime an execute call returns an error.
	OnAttemptFailed(step *StepInfo, attempt int, err error) error
	// OnVisit runs after a step finalize phase returned.
	OnVisit(visit *Visit) error
	// OnTransition runs when the traversal follows an edge.
	OnTransition(from, to *StepInfo, action string) error
}
