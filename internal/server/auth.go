package server

import (
	"context"

	"devfolio/internal/auth"
	"devfolio/internal/middleware"
	"devfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired returns the authentication middleware.
// It verifies the bearer token, makes sure the account row exists and stores
// the account id in locals and in the user context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := s.verifier.Verify(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, identity.ID)
		c.SetUserContext(ctx)

		account, err := s.accountService.GetOrCreateAccount(ctx, *identity)
		if err != nil {
			return respondServiceError(c, err)
		}

		c.Locals("accountID", account.ID)
		c.Locals("account", account)
		return c.Next()
	}
}

// accountID returns the authenticated account id set by AuthRequired.
func accountID(c *fiber.Ctx) string {
	id, _ := c.Locals("accountID").(string)
	return id
}
