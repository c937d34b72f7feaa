package repository

import (
	"context"

	"devfolio/internal/models"

	"gorm.io/gorm"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, publishedOnly bool) ([]models.Project, error)
	GetPublishedBySlug(ctx context.Context, ownerID, slug string) (*models.Project, error)
	// SlugsByOwner returns the owner's slugs from the primary, skipping excludeID when non-zero.
	SlugsByOwner(ctx context.Context, ownerID string, excludeID uint) (map[string]struct{}, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	// Delete removes the project together with its likes and comments.
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	Popular(ctx context.Context, limit int) ([]models.Project, error)
	Search(ctx context.Context, query string, limit int) ([]models.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// withCounts adds the like and comment count subqueries.
func withCounts(db *gorm.DB) *gorm.DB {
	return db.Select("projects.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.project_id = projects.id) AS likes_count, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.project_id = projects.id) AS comments_count")
}

const newestFirst = "projects.created_at DESC, projects.id DESC"

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := withCounts(primary(r.db).WithContext(ctx)).
		Preload("User").
		Where("projects.id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, notFoundOr(err, "Project", id)
	}
	return &project, nil
}

func (r *projectRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := primary(r.db).WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerID string, publishedOnly bool) ([]models.Project, error) {
	q := withCounts(r.db.WithContext(ctx)).Where("projects.user_id = ?", ownerID)
	if publishedOnly {
		q = q.Where("projects.published = ?", true)
	}
	var projects []models.Project
	if err := q.Order(newestFirst).Find(&projects).Error; err != nil {
		return nil, storeError(err)
	}
	return projects, nil
}

func (r *projectRepository) GetPublishedBySlug(ctx context.Context, ownerID, slug string) (*models.Project, error) {
	var project models.Project
	err := withCounts(r.db.WithContext(ctx)).
		Preload("User").
		Where("projects.user_id = ? AND projects.slug = ? AND projects.published = ?", ownerID, slug, true).
		First(&project).Error
	if err != nil {
		return nil, notFoundOr(err, "Project", slug)
	}
	return &project, nil
}

func (r *projectRepository) SlugsByOwner(ctx context.Context, ownerID string, excludeID uint) (map[string]struct{}, error) {
	q := primary(r.db).WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", ownerID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var slugs []string
	if err := q.Pluck("slug", &slugs).Error; err != nil {
		return nil, storeError(err)
	}
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	return set, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(project).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Slug already in use", err)
		}
		return storeError(err)
	}
	return nil
}

var projectColumns = []string{
	"title", "description", "image_url", "tech_stack", "live_url", "repo_url", "published", "slug", "updated_at",
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	res := r.db.WithContext(ctx).Model(project).Omit("User").Select(projectColumns).Updates(project)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return models.NewConflictError("Slug already in use", res.Error)
		}
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", project.ID)
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return storeError(err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return storeError(err)
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return storeError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Project", id)
		}
		return nil
	})
}

func (r *projectRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", id)
	}
	return nil
}

func (r *projectRepository) Popular(ctx context.Context, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := withCounts(r.db.WithContext(ctx)).
		Preload("User").
		Where("projects.published = ?", true).
		Order("projects.views DESC, " + newestFirst).
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, storeError(err)
	}
	return projects, nil
}

func (r *projectRepository) Search(ctx context.Context, query string, limit int) ([]models.Project, error) {
	op := "ILIKE"
	if r.db.Dialector.Name() == "sqlite" {
		op = "LIKE"
	}
	pattern := "%" + escapeLike(query) + "%"

	var projects []models.Project
	err := withCounts(r.db.WithContext(ctx)).
		Preload("User").
		Where("projects.published = ?", true).
		Where("(projects.title "+op+" ? ESCAPE '\\' OR projects.description "+op+" ? ESCAPE '\\')", pattern, pattern).
		Order(newestFirst).
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, storeError(err)
	}
	return projects, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
