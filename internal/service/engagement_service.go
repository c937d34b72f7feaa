package service

import (
	"context"

	"devfolio/internal/models"
	"devfolio/internal/observability"
	"devfolio/internal/repository"
)

// EngagementService toggles likes and counts views. The store's unique index
// and atomic increment are the only synchronisation.
type EngagementService struct {
	projects repository.ProjectRepository
	likes    repository.LikeRepository
}

func NewEngagementService(projects repository.ProjectRepository, likes repository.LikeRepository) *EngagementService {
	return &EngagementService{projects: projects, likes: likes}
}

// ToggleLike flips the account's like on the project and returns the new
// state with a fresh count. Two calls in a row toggle twice.
func (s *EngagementService) ToggleLike(ctx context.Context, accountID string, projectID uint) (*models.LikeResult, error) {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Project", projectID)
	}

	liked, err := s.likes.Exists(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}

	if liked {
		// Zero rows means a concurrent unlike got there first.
		if _, err := s.likes.Delete(ctx, accountID, projectID); err != nil {
			return nil, err
		}
		liked = false
	} else {
		err := s.likes.Create(ctx, &models.Like{UserID: accountID, ProjectID: projectID})
		if err != nil && !models.HasCode(err, models.CodeConflict) {
			return nil, err
		}
		liked = true
	}

	count, err := s.likes.CountByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	observability.LikeToggles.WithLabelValues(result).Inc()

	return &models.LikeResult{Liked: liked, LikeCount: count}, nil
}

// IncrementViews adds one view with a single atomic update.
func (s *EngagementService) IncrementViews(ctx context.Context, projectID uint) error {
	if err := s.projects.IncrementViews(ctx, projectID); err != nil {
		return err
	}
	observability.ProjectViews.Inc()
	return nil
}
