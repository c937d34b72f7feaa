package server

import (
	"io"

	"devfolio/internal/aiwriter"
	"devfolio/internal/models"
	"devfolio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/upload with multipart fields "file" and "path".
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file provided"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	url, err := s.mediaService.Upload(c.UserContext(), service.UploadInput{
		AccountID:   accountID(c),
		Kind:        c.FormValue("path"),
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// ProxyImage relays a remote image so the browser can load it same-origin.
func (s *Server) ProxyImage(c *fiber.Ctx) error {
	img, err := s.mediaService.ProxyImage(c.UserContext(), c.Query("url"))
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET")
	return c.Send(img.Body)
}

// GetOGImage returns the preview image advertised by a page, or null.
func (s *Server) GetOGImage(c *fiber.Ctx) error {
	image, err := s.mediaService.FindOGImage(c.UserContext(), c.Query("url"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"imageUrl": image})
}

// GenerateDescription drafts a project title, description and tech stack.
func (s *Server) GenerateDescription(c *fiber.Ctx) error {
	var req aiwriter.Request
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	draft, err := s.descriptionService.DraftDescription(c.UserContext(), accountID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(draft)
}
