package server

import (
	"github.com/gofiber/fiber/v2"
)

// ToggleLike likes or unlikes a project for the authenticated account.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	projectID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.engagementService.ToggleLike(c.UserContext(), accountID(c), projectID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// RecordView counts one view of a project. No authentication required.
func (s *Server) RecordView(c *fiber.Ctx) error {
	projectID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.IncrementViews(c.UserContext(), projectID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
