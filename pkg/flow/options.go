package flow

import (
	"go.uber.org/zap"

	"github.com/askiada/go-taskflow/pkg/flow/model"
)

type graphSettings struct {
	logger *zap.Logger
}

type GraphOption func(s *graphSettings)

// GraphLogger sets the logger used to report graph assembly warnings and direct step runs.
func GraphLogger(logger *zap.Logger) GraphOption {
	return func(s *graphSettings) {
		s.logger = logger
	}
}

type flowSettings struct {
	params Params
	logger *zap.Logger
	hooks  []model.FlowOption
}

type FlowOption func(s *flowSettings)

// FlowParams sets the flow own parameters, shared by every step it visits.
func FlowParams(params Params) FlowOption {
	return func(s *flowSettings) {
		s.params = params
	}
}

func FlowLogger(logger *zap.Logger) FlowOption {
	return func(s *flowSettings) {
		s.logger = logger
	}
}

// FlowHooks attaches options such as measure.FlowMeasure or drawer.FlowDrawer.
func FlowHooks(hooks ...model.FlowOption) FlowOption {
	return func(s *flowSettings) {
		s.hooks = append(s.hooks, hooks...)
	}
}
