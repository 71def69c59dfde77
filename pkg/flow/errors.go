package flow

import (
	"github.com/pkg/errors"
)

var (
	ErrGraphMustBeSet  = errors.New("graph must be set")
	ErrSharedMustBeSet = errors.New("shared state must be set")
	ErrPhasesMustBeSet = errors.New("step phases must be set")
	ErrEmptyStepName   = errors.New("step name must not be empty")
	ErrDuplicateStep   = errors.New("step already exists")
	ErrUnknownStep     = errors.New("unknown step")
	ErrInvalidConfig   = errors.New("invalid step config")
	// ErrNotBatch is returned when a batch step prepare phase does not return a slice.
	ErrNotBatch = errors.New("batch input must be a slice")
)
