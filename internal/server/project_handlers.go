package server

import (
	"strings"

	"devfolio/internal/models"
	"devfolio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProjects lists every project of the authenticated account.
func (s *Server) GetMyProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.ListMine(c.UserContext(), accountID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject creates a project owned by the authenticated account.
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req service.CreateProjectInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projectService.Create(c.UserContext(), accountID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// UpdateProject applies a partial update to an owned project.
func (s *Server) UpdateProject(c *fiber.Ctx) error {
	projectID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.UpdateProjectInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projectService.Update(c.UserContext(), accountID(c), projectID, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// PublishProject toggles public visibility of an owned project.
func (s *Server) PublishProject(c *fiber.Ctx) error {
	projectID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Published *bool `json:"published"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Published == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("published is required"))
	}

	project, err := s.projectService.SetPublished(c.UserContext(), accountID(c), projectID, *req.Published)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject removes an owned project with its likes and comments.
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	projectID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.projectService.Delete(c.UserContext(), accountID(c), projectID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ReindexMyProjects pushes the account's published projects to the search index.
func (s *Server) ReindexMyProjects(c *fiber.Ctx) error {
	n, err := s.projectService.Reindex(c.UserContext(), accountID(c))
	if err != nil {
		return respondServiceError(c, models.NewUpstreamError("Reindex failed", err))
	}
	return c.JSON(fiber.Map{"indexed": n})
}

// GetPublicProject returns a published project by owner username and slug.
func (s *Server) GetPublicProject(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	slug := strings.TrimSpace(c.Params("slug"))
	if username == "" || slug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and slug are required"))
	}

	project, err := s.projectService.GetPublic(c.UserContext(), username, slug)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}

// GetPopularProjects lists published projects ordered by likes and views.
func (s *Server) GetPopularProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.Popular(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}

// SearchProjects finds published projects by title, description or tech stack.
func (s *Server) SearchProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}
