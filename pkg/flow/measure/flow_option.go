package measure

import (
	"github.com/askiada/go-taskflow/pkg/flow/model"
)

type flowMeasure struct {
	Measure
}

func (fm *flowMeasure) New() error {
	return nil
}

func (fm *flowMeasure) PrepareStep(step *model.StepInfo) error {
	fm.AddMetric(step.Name)

	return nil
}

func (fm *flowMeasure) PrepareEdge(from, to *model.StepInfo, action string) error {
	return nil
}

func (fm *flowMeasure) OnAttemptFailed(step *model.StepInfo, attempt int, err error) error {
	fm.AddMetric(step.Name).AddFailure()

	return nil
}

func (fm *flowMeasure) OnVisit(visit *model.Visit) error {
	fm.AddMetric(visit.Step.Name).AddVisit(visit.Duration, visit.Attempts, visit.Fallbacks)

	return nil
}

func (fm *flowMeasure) OnTransition(from, to *model.StepInfo, action string) error {
	fm.AddMetric(to.Name).AddTransition(from.Name, action)

	return nil
}

func (fm *flowMeasure) Finish() error {
	return nil
}

// FlowMeasure records step visits, failures and transitions into measure.
func FlowMeasure(measure Measure) model.FlowOption {
	return &flowMeasure{measure}
}
