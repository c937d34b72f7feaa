package service

import (
	"context"
	"strings"

	"devfolio/internal/aiwriter"
	"devfolio/internal/featureflags"
	"devfolio/internal/models"
)

// Drafter produces description drafts.
type Drafter interface {
	Draft(ctx context.Context, req aiwriter.Request) (*aiwriter.Draft, error)
}

type DescriptionService struct {
	drafter Drafter
	flags   *featureflags.Manager
}

func NewDescriptionService(drafter Drafter, flags *featureflags.Manager) *DescriptionService {
	return &DescriptionService{drafter: drafter, flags: flags}
}

// DraftDescription asks the language model for a title, description and tech stack.
func (s *DescriptionService) DraftDescription(ctx context.Context, accountID string, req aiwriter.Request) (*aiwriter.Draft, error) {
	if err := s.flags.Require(featureflags.AIDescriptions, accountID); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if s.drafter == nil {
		return nil, models.NewFeatureDisabledError(featureflags.AIDescriptions)
	}
	req.TechStack = cleanTags(req.TechStack)
	req.RepoURL = strings.TrimSpace(req.RepoURL)
	req.LiveURL = strings.TrimSpace(req.LiveURL)
	return s.drafter.Draft(ctx, req)
}
