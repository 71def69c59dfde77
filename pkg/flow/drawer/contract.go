package drawer

import (
	"time"

	"github.com/askiada/go-taskflow/pkg/flow/measure"
)

// Drawer is an interface that defines the methods for drawing a flow graph.
type Drawer interface {
	// AddStep adds a step to the drawer.
	AddStep(stepName string) error
	// AddLink adds an action-labelled link between two steps.
	AddLink(fromStepName, toStepName, action string) error
	// Draw creates a file with the flow graph.
	Draw() error
	// SetTotalTime sets the run time label of the graph.
	SetTotalTime(startTime time.Time) error
	// AddMeasure adds a measure to the drawer.
	AddMeasure(measure measure.Measure) error
}
