package service

import (
	"context"
	"strings"

	"devfolio/internal/cache"
	"devfolio/internal/featureflags"
	"devfolio/internal/ident"
	"devfolio/internal/models"
	"devfolio/internal/observability"
	"devfolio/internal/repository"
	"devfolio/internal/search"
	"devfolio/internal/storage"
	"devfolio/internal/validation"
)

const (
	DefaultPopularLimit = 10
	MaxListLimit        = 50
	maxTitleLen         = 200
	maxDescriptionLen   = 5000
	maxTechTags         = 20
)

type ProjectService struct {
	projects repository.ProjectRepository
	accounts repository.AccountRepository
	indexer  search.ProjectIndexer
	images   storage.ImageStorage
	flags    *featureflags.Manager
}

type CreateProjectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	TechStack   []string `json:"techStack"`
	LiveURL     string   `json:"liveUrl"`
	RepoURL     string   `json:"repoUrl"`
	Published   bool     `json:"published"`
}

// UpdateProjectInput is a partial update; nil fields are left unchanged.
type UpdateProjectInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	TechStack   *[]string `json:"techStack"`
	LiveURL     *string   `json:"liveUrl"`
	RepoURL     *string   `json:"repoUrl"`
	Published   *bool     `json:"published"`
}

func NewProjectService(
	projects repository.ProjectRepository,
	accounts repository.AccountRepository,
	indexer search.ProjectIndexer,
	images storage.ImageStorage,
	flags *featureflags.Manager,
) *ProjectService {
	if indexer == nil {
		indexer = search.NewNoopIndexer()
	}
	if images == nil {
		images = storage.NewUnconfigured()
	}
	return &ProjectService{
		projects: projects,
		accounts: accounts,
		indexer:  indexer,
		images:   images,
		flags:    flags,
	}
}

func (s *ProjectService) ListMine(ctx context.Context, accountID string) ([]models.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

func (s *ProjectService) Create(ctx context.Context, accountID string, in CreateProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	project := &models.Project{
		UserID:      accountID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		TechStack:   cleanTags(in.TechStack),
		LiveURL:     strings.TrimSpace(in.LiveURL),
		RepoURL:     strings.TrimSpace(in.RepoURL),
		Published:   in.Published,
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	base := ident.SlugBase(title)
	for attempt := 0; ; attempt++ {
		existing, err := s.projects.SlugsByOwner(ctx, accountID, 0)
		if err != nil {
			return nil, models.NewLookupFailedError(err)
		}
		project.Slug = ident.ResolveUniqueSlug(base, existing)

		err = s.projects.Create(ctx, project)
		if err == nil {
			break
		}
		if !models.HasCode(err, models.CodeConflict) {
			return nil, err
		}
		if attempt == 1 {
			return nil, models.NewAllocationExhaustedError("slug", err)
		}
		observability.IdentifierAllocationRetries.WithLabelValues("slug").Inc()
		project.ID = 0
	}

	created, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, created, created.Published)
	return created, nil
}

// Update applies a partial update. The slug is regenerated only when the new
// title derives a different slug base than the stored title.
func (s *ProjectService) Update(ctx context.Context, accountID string, projectID uint, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.owned(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}
	wasPublished := project.Published
	oldImage := project.ImageURL

	retitled := false
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		retitled = ident.SlugBase(title) != ident.SlugBase(project.Title)
		project.Title = title
	}
	if in.Description != nil {
		project.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		project.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.TechStack != nil {
		project.TechStack = cleanTags(*in.TechStack)
	}
	if in.LiveURL != nil {
		project.LiveURL = strings.TrimSpace(*in.LiveURL)
	}
	if in.RepoURL != nil {
		project.RepoURL = strings.TrimSpace(*in.RepoURL)
	}
	if in.Published != nil {
		project.Published = *in.Published
	}
	if project.TechStack == nil {
		project.TechStack = []string{}
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.save(ctx, project, retitled); err != nil {
		return nil, err
	}

	updated, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	discardImage(ctx, s.images, oldImage, updated.ImageURL)
	s.afterMutation(ctx, updated, wasPublished || updated.Published)
	return updated, nil
}

// save writes project, resolving a fresh slug when retitled. A slug conflict
// at commit gets one more resolution pass.
func (s *ProjectService) save(ctx context.Context, project *models.Project, retitled bool) error {
	if !retitled {
		return s.projects.Update(ctx, project)
	}
	base := ident.SlugBase(project.Title)
	for attempt := 0; ; attempt++ {
		existing, err := s.projects.SlugsByOwner(ctx, project.UserID, project.ID)
		if err != nil {
			return models.NewLookupFailedError(err)
		}
		project.Slug = ident.ResolveUniqueSlug(base, existing)

		err = s.projects.Update(ctx, project)
		if err == nil || !models.HasCode(err, models.CodeConflict) {
			return err
		}
		if attempt == 1 {
			return models.NewAllocationExhaustedError("slug", err)
		}
		observability.IdentifierAllocationRetries.WithLabelValues("slug").Inc()
	}
}

func (s *ProjectService) SetPublished(ctx context.Context, accountID string, projectID uint, published bool) (*models.Project, error) {
	return s.Update(ctx, accountID, projectID, UpdateProjectInput{Published: &published})
}

func (s *ProjectService) Delete(ctx context.Context, accountID string, projectID uint) error {
	project, err := s.owned(ctx, accountID, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}

	discardImage(ctx, s.images, project.ImageURL, "")
	wasPublished := project.Published
	project.Published = false
	s.afterMutation(ctx, project, wasPublished)
	return nil
}

// GetPublic returns a published project by its owner's username and slug.
func (s *ProjectService) GetPublic(ctx context.Context, username, slug string) (*models.Project, error) {
	owner, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.projects.GetPublishedBySlug(ctx, owner.ID, slug)
}

func (s *ProjectService) Popular(ctx context.Context, limit int) ([]models.Project, error) {
	limit = clampLimit(limit, DefaultPopularLimit)
	var projects []models.Project
	err := cache.Aside(ctx, cache.PopularKey(limit), &projects, cache.PopularTTL, func() error {
		var fetchErr error
		projects, fetchErr = s.projects.Popular(ctx, limit)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

func (s *ProjectService) Search(ctx context.Context, query string, limit int) ([]models.Project, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	projects, err := s.projects.Search(ctx, query, clampLimit(limit, 20))
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Reindex pushes every published project of the account to the search index.
func (s *ProjectService) Reindex(ctx context.Context, accountID string) (int, error) {
	projects, err := s.projects.ListByOwner(ctx, accountID, true)
	if err != nil {
		return 0, err
	}
	for i := range projects {
		if err := s.indexer.Index(ctx, &projects[i]); err != nil {
			return i, err
		}
	}
	return len(projects), nil
}

func (s *ProjectService) owned(ctx context.Context, accountID string, projectID uint) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != accountID {
		return nil, models.NewForbiddenError("You do not own this project")
	}
	return project, nil
}

// afterMutation keeps the caches and the search feed in step with a change.
// publicChange is true when the project was or is now publicly visible.
func (s *ProjectService) afterMutation(ctx context.Context, project *models.Project, publicChange bool) {
	if !publicChange {
		return
	}
	if project.User != nil {
		cache.InvalidateProfile(ctx, project.User.UsernameOrEmpty())
	} else if owner, err := s.accounts.GetByID(ctx, project.UserID); err == nil {
		cache.InvalidateProfile(ctx, owner.UsernameOrEmpty())
	}
	cache.InvalidatePopular(ctx)

	if s.flags.Enabled(featureflags.SearchIndex, project.UserID) {
		syncIndex(ctx, s.indexer, project)
	}
}

func validateProject(p *models.Project) error {
	if len(p.Title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if len(p.Description) > maxDescriptionLen {
		return models.NewValidationError("Description too long (max 5000 characters)")
	}
	if len(p.TechStack) > maxTechTags {
		return models.NewValidationError("Too many tech stack tags (max 20)")
	}
	for _, u := range []struct{ field, value string }{
		{"imageUrl", p.ImageURL},
		{"liveUrl", p.LiveURL},
		{"repoUrl", p.RepoURL},
	} {
		if err := optionalURL(u.field, &u.value); err != nil {
			return err
		}
	}
	return nil
}

// cleanTags trims tags and drops empty and repeated ones, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = validation.StripHTML(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
