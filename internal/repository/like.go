package repository

import (
	"context"

	"devfolio/internal/models"

	"gorm.io/gorm"
)

// LikeRepository stores one row per (account, project) like.
// Reads go to the primary so a toggle observes its own write.
type LikeRepository interface {
	Exists(ctx context.Context, userID string, projectID uint) (bool, error)
	// Create returns a Conflict error when the like already exists.
	Create(ctx context.Context, like *models.Like) error
	// Delete reports how many rows were removed; zero is not an error.
	Delete(ctx context.Context, userID string, projectID uint) (int64, error)
	CountByProject(ctx context.Context, projectID uint) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Exists(ctx context.Context, userID string, projectID uint) (bool, error) {
	var count int64
	err := primary(r.db).WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error
	if err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Already liked", err)
		}
		return storeError(err)
	}
	return nil
}

func (r *likeRepository) Delete(ctx context.Context, userID string, projectID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Delete(&models.Like{})
	if res.Error != nil {
		return 0, storeError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) CountByProject(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	err := primary(r.db).WithContext(ctx).Model(&models.Like{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}
