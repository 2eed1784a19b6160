package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// DefaultAllowedImageTypes are the MIME types a post image may be uploaded as
var DefaultAllowedImageTypes = []string{"image/jpg", "image/jpeg", "image/png", "image/webp"}

// UploadHandler hands out signed upload URLs for post images
type UploadHandler struct {
	service      *services.ContentService
	allowedTypes []string
}

// NewUploadHandler creates a new UploadHandler. An empty allow-list falls back to
// DefaultAllowedImageTypes.
func NewUploadHandler(service *services.ContentService, allowedTypes []string) *UploadHandler {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedImageTypes
	}
	return &UploadHandler{service: service, allowedTypes: allowedTypes}
}

// RegisterUploadRoutes registers upload-related routes
func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.POST("/uploads/signed-url", h.CreateSignedURL)
}

// CreateSignedURL returns a URL the caller can PUT an image to
func (h *UploadHandler) CreateSignedURL(c echo.Context) error {
	var req models.UploadURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	mimeType := strings.ToLower(strings.TrimSpace(req.MimeType))
	if !slices.Contains(h.allowedTypes, mimeType) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported file type, allowed: "+strings.Join(h.allowedTypes, ", "))
	}

	url, err := h.service.IssueUploadURL(c.Request().Context(), services.UploadURLInput{
		FileName: req.FileName,
		MimeType: mimeType,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}
