package measure

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

type prometheusFlow struct {
	visits      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// FlowPrometheus exports step visits, failures, fallbacks, transitions and durations
// as Prometheus collectors registered on reg.
func FlowPrometheus(reg prometheus.Registerer, namespace string) (model.FlowOption, error) {
	pf := &prometheusFlow{
		visits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_visits_total",
				Help:      "Total number of step visits by chosen action",
			},
			[]string{"step", "action"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_attempt_failures_total",
				Help:      "Total number of failed execute attempts",
			},
			[]string{"step"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_fallbacks_total",
				Help:      "Total number of executions recovered by a fallback",
			},
			[]string{"step"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of edges followed",
			},
			[]string{"from", "to", "action"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Step visit duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
	}

	for _, c := range []prometheus.Collector{pf.visits, pf.failures, pf.fallbacks, pf.transitions, pf.duration} {
		err := reg.Register(c)
		if err != nil {
			return nil, errors.Wrap(err, "unable to register collector")
		}
	}

	return pf, nil
}

func (pf *prometheusFlow) New() error {
	return nil
}

// PrepareStep initialises the step series so they are exported before the first run.
func (pf *prometheusFlow) PrepareStep(step *model.StepInfo) error {
	pf.failures.WithLabelValues(step.Name)
	pf.fallbacks.WithLabelValues(step.Name)

	return nil
}

func (pf *prometheusFlow) PrepareEdge(from, to *model.StepInfo, action string) error {
	pf.transitions.WithLabelValues(from.Name, to.Name, action)

	return nil
}

func (pf *prometheusFlow) OnAttemptFailed(step *model.StepInfo, attempt int, err error) error {
	pf.failures.WithLabelValues(step.Name).Inc()

	return nil
}

func (pf *prometheusFlow) OnVisit(visit *model.Visit) error {
	pf.visits.WithLabelValues(visit.Step.Name, visit.Action).Inc()
	pf.fallbacks.WithLabelValues(visit.Step.Name).Add(float64(visit.Fallbacks))
	pf.duration.WithLabelValues(visit.Step.Name).Observe(visit.Duration.Seconds())

	return nil
}

func (pf *prometheusFlow) OnTransition(from, to *model.StepInfo, action string) error {
	pf.transitions.WithLabelValues(from.Name, to.Name, action).Inc()

	return nil
}

func (pf *prometheusFlow) Finish() error {
	return nil
}
