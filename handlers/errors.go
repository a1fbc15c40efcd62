package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"qserveu/internal/status"
)

// writeError maps the service error taxonomy onto HTTP responses. Business
// rule violations surface their message verbatim; store failures surface a
// generic message and are expected to be logged where they happened.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, status.ErrAlreadyQueued):
		return c.JSON(http.StatusConflict, errBody(err.Error()))
	case errors.Is(err, status.ErrCannotCancel):
		return c.JSON(http.StatusConflict, errBody("Queue cannot be cancelled (might be serving already)"))
	case errors.Is(err, status.ErrOfficeNotFound):
		return c.JSON(http.StatusNotFound, errBody("Office not found"))
	case errors.Is(err, status.ErrStudentExists):
		return c.JSON(http.StatusConflict, errBody("Student ID already exists"))
	case errors.Is(err, status.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errBody("Invalid credentials"))
	case errors.Is(err, status.ErrWrongNetwork):
		return c.JSON(http.StatusForbidden, errBody(err.Error()))
	case errors.Is(err, status.ErrStore):
		return c.JSON(http.StatusBadGateway, errBody("Service temporarily unavailable. Please try again."))
	default:
		return c.JSON(http.StatusInternalServerError, errBody("Unexpected error"))
	}
}

func errBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// studentID reads the authenticated subject set by the JWT middleware.
func studentID(c echo.Context) string {
	id, _ := c.Get("student_id").(string)
	return id
}
