package handlers

import (
	"net/http"

	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	service *services.ContentService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(service *services.ContentService) *LikeHandler {
	return &LikeHandler{service: service}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.LikePost)
	g.DELETE("/posts/:post_id/likes", h.UnlikePost)
	g.DELETE("/posts/:post_id/likes/all", h.DeleteLikesForPost)
	g.GET("/posts/:post_id/likes", h.GetLikesForPost)
	g.GET("/posts/:post_id/likes/status", h.GetUserLikeStatusForPost)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	postID := c.Param("post_id")
	if err := h.service.Like(c.Request().Context(), postID); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"post_id": postID, "liked": true})
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	if err := h.service.Unlike(c.Request().Context(), c.Param("post_id")); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetLikesForPost returns the like count of a post and who liked it
func (h *LikeHandler) GetLikesForPost(c echo.Context) error {
	summary, err := h.service.TotalLikes(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, summary)
}

// GetUserLikeStatusForPost reports whether the caller has liked a post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	postID := c.Param("post_id")
	hasLiked, err := h.service.HasLiked(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "has_liked": hasLiked})
}

// DeleteLikesForPost removes every like of a post
func (h *LikeHandler) DeleteLikesForPost(c echo.Context) error {
	postID := c.Param("post_id")
	removed, err := h.service.DeleteLikes(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "deleted": removed})
}
