package security

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"qserveu/utils"
)

// JWTAuth validates the Bearer token and stores the authenticated student row
// id under "student_id" for downstream handlers.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing bearer token"})
			}

			subject, err := utils.ParseAccessToken(secret, token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			c.Set("student_id", subject)
			return next(c)
		}
	}
}
