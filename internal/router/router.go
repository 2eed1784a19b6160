package router

import (
	"log"

	"github.com/anonto42/thunderlink/backend/internal/handlers"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// Dependencies are the collaborators the routes are built from
type Dependencies struct {
	Service *services.ContentService
	// Auth resolves the caller of every /api/v1 request
	Auth              echo.MiddlewareFunc
	AllowedImageTypes []string
	// Health lists the dependencies /health pings
	Health map[string]handlers.Pinger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck(deps.Health))

	api := e.Group("/api/v1")
	if deps.Auth != nil {
		api.Use(deps.Auth)
		log.Println("Authentication middleware applied to /api/v1 group.")
	}

	// Post routes
	postHandler := handlers.NewPostHandler(deps.Service)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(deps.Service)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(deps.Service)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	// Upload routes
	uploadHandler := handlers.NewUploadHandler(deps.Service, deps.AllowedImageTypes)
	uploadHandler.RegisterUploadRoutes(api)
	log.Println("Upload routes configured.")

	log.Println("All routes configured.")
}
