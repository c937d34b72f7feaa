package server

import (
	"strings"

	"devfolio/internal/models"
	"devfolio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyAccount returns the authenticated account, creating it on first sign-in.
func (s *Server) GetMyAccount(c *fiber.Ctx) error {
	account, ok := c.Locals("account").(*models.Account)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}
	return c.JSON(account)
}

// UpdateMyProfile applies a partial profile update.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	account, err := s.accountService.UpdateProfile(c.UserContext(), accountID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(account)
}

// GetPublicProfile returns a user's public profile with their published projects.
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username is required"))
	}

	profile, err := s.accountService.GetPublicProfile(c.UserContext(), username)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}
