package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/anonto42/thunderlink/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// httpError converts a service error into the HTTP error the client sees.
// Unexpected errors are logged and reported as 500 without detail.
func httpError(err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrThrottled):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrAlreadyLiked), errors.Is(err, services.ErrNotLiked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	log.Printf("request failed: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
