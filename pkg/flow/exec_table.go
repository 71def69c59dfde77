package flow

import "sync"

type attemptState int

const (
	stateIdle attemptState = iota
	stateAttempting
	stateSucceeded
	stateExhausted
)

// execRecord is the run-scoped state of one step execution.
type execRecord struct {
	state    attemptState
	attempt  int
	lastErr  error
	fellBack bool
}

type recordKey struct {
	step StepID
	item int
}

// execTable holds the execution records of a single traversal.
// A record is opened when the traversal reaches a step and closed when the visit ends.
type execTable struct {
	mu      sync.Mutex
	records map[recordKey]*execRecord
}

func newExecTable() *execTable {
	return &execTable{
		records: make(map[recordKey]*execRecord),
	}
}

func (t *execTable) open(key recordKey) *execRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := &execRecord{state: stateIdle}
	t.records[key] = rec

	return rec
}

func (t *execTable) close(key recordKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, key)
}

func (t *execTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}
