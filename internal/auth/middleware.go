package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"admindeck-backend/internal/models"
)

// Context keys for storing user data
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "session_token"
)

// SessionCookieName is the cookie the login handler sets and the middleware
// reads.
const SessionCookieName = "session_token"

// RequireAuth middleware validates the session token, refreshes its activity
// timestamp and resolves the user for downstream handlers.
func RequireAuth(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			ok, err := svc.ValidateSession(token)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "session lookup failed",
				})
			}
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired session",
				})
			}

			user, err := svc.GetUserFromSession(token)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "session lookup failed",
				})
			}
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired session",
				})
			}

			c.Set(ContextKeyUser, user)
			c.Set(ContextKeyToken, token)

			return next(c)
		}
	}
}

// RequireRole middleware checks for specific user roles.
// Must be used after RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(ContextKeyUser).(*models.User)
			if !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}

			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "insufficient permissions",
			})
		}
	}
}

// RequireAdmin is a convenience middleware that requires admin role
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}

// TokenFromRequest extracts the session token from the cookie or the
// Authorization header.
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
