package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"devfolio/internal/models"
	"devfolio/internal/repository"
	"devfolio/internal/validation"
)

const maxCommentLen = 10000

type CommentService struct {
	comments repository.CommentRepository
	projects repository.ProjectRepository
}

func NewCommentService(comments repository.CommentRepository, projects repository.ProjectRepository) *CommentService {
	return &CommentService{comments: comments, projects: projects}
}

func (s *CommentService) AddComment(ctx context.Context, accountID string, projectID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(validation.StripHTML(content))
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Project", projectID)
	}

	comment := &models.Comment{
		Content:   content,
		UserID:    accountID,
		ProjectID: projectID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the project's comments newest first.
func (s *CommentService) ListComments(ctx context.Context, projectID uint) ([]models.Comment, error) {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Project", projectID)
	}
	return s.comments.ListByProject(ctx, projectID)
}

// DeleteComment removes a comment; only its author may do so.
func (s *CommentService) DeleteComment(ctx context.Context, accountID string, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != accountID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.comments.Delete(ctx, commentID)
}
