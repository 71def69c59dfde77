package drawer

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-taskflow/pkg/flow/measure"
	"github.com/askiada/go-taskflow/pkg/flow/model"
)

type flowDrawer struct {
	Drawer
	m         measure.Measure
	mu        sync.Mutex
	startTime time.Time
}

func (fd *flowDrawer) New() error {
	return nil
}

func (fd *flowDrawer) PrepareStep(step *model.StepInfo) error {
	return fd.AddStep(step.Name)
}

func (fd *flowDrawer) PrepareEdge(from, to *model.StepInfo, action string) error {
	return fd.AddLink(from.Name, to.Name, action)
}

func (fd *flowDrawer) OnAttemptFailed(step *model.StepInfo, attempt int, err error) error {
	return nil
}

func (fd *flowDrawer) OnVisit(visit *model.Visit) error {
	return nil
}

func (fd *flowDrawer) OnTransition(from, to *model.StepInfo, action string) error {
	return nil
}

func (fd *flowDrawer) Finish() error {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.m != nil {
		err := fd.SetTotalTime(fd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = fd.AddMeasure(fd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := fd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw flow")
	}

	fd.startTime = time.Now()

	return nil
}

// FlowDrawer draws the flow graph after every run. When msr is not nil, it must also be
// attached to the flow with measure.FlowMeasure so the drawing carries its values.
func FlowDrawer(drawer Drawer, msr measure.Measure) model.FlowOption {
	return &flowDrawer{Drawer: drawer, m: msr, startTime: time.Now()}
}
