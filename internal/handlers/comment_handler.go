package handlers

import (
	"net/http"

	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	service *services.ContentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(service *services.ContentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsForPost)
	g.DELETE("/posts/:post_id/comments", h.DeleteCommentsForPost)
	g.DELETE("/posts/:post_id/comments/:id", h.DeleteComment)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.Request().Context(), services.AddCommentInput{
		PostID:  c.Param("post_id"),
		Content: req.Content,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, comment)
}

// GetCommentsForPost retrieves all comments for a specific post
func (h *CommentHandler) GetCommentsForPost(c echo.Context) error {
	comments, err := h.service.GetAllComments(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, comments)
}

// DeleteComment deletes a single comment of a post
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.service.DeleteSingleComment(c.Request().Context(), c.Param("post_id"), c.Param("id")); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteCommentsForPost removes every comment of a post
func (h *CommentHandler) DeleteCommentsForPost(c echo.Context) error {
	postID := c.Param("post_id")
	removed, err := h.service.DeleteComments(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "deleted": removed})
}
