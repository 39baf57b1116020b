package terraform

import (
	"context"

	"sunbeam/internal/step"
)

// InitStep runs terraform init for a plan.
type InitStep struct {
	step.Base
	helper *Helper
}

// NewInitStep returns a step initializing helper's plan.
func NewInitStep(helper *Helper) *InitStep {
	return &InitStep{
		Base:   step.NewBase("Initialize Terraform", "Initializing Terraform from provider mirror"),
		helper: helper,
	}
}

// Run runs terraform init.
func (s *InitStep) Run(ctx context.Context, _ step.Progress) step.Result {
	if err := s.helper.Init(ctx); err != nil {
		s.helper.logger.Debug().Err(err).Msg("Terraform init failed")
		return step.Failed(err.Error())
	}
	return step.Completed()
}
