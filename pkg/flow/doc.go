// Package flow provides a small graph-based orchestrator for asynchronous processing steps.
//
// A step exposes three phases. Prepare reads the shared run state and returns the step input,
// Execute performs the actual work (an API call, a rendering, any I/O) using only that input,
// and Finalize writes the result back into the shared state and returns an action. The action
// is a plain string label that selects the next step in the graph, the default action being
// used when a step does not pick one.
//
// Every step retries its Execute phase up to its configured number of attempts with a fixed
// delay in between. Once attempts are exhausted, the step Fallback is called if it implements
// Fallbacker, otherwise the last error is returned and the run stops. A step may also run its
// Execute phase once per item of a collection, one after the other or all at the same time,
// the output order always matching the input order.
//
// Steps are registered in a Graph and linked by action-labelled edges. A Flow walks the graph
// from an entry step until the chosen action has no registered successor. Step definitions are
// never mutated by a run: the attempt counters live in an execution table owned by the
// traversal, so the same graph can be run many times, sequentially or concurrently.
//
// A Flow is itself a step, which means flows can be nested inside larger graphs. Batch flows run
// the whole graph once per parameter set, sequentially or concurrently.
package flow
