package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"admindeck-backend/internal/auth"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api *echo.Group, h *Handlers, authSvc *auth.Service) {
	// Health check (public)
	api.GET("/health", healthCheck)

	// Auth routes (public - no auth required for login)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/me", h.me)

	// Protected auth routes
	authProtected := authGroup.Group("")
	authProtected.Use(auth.RequireAuth(authSvc))
	authProtected.POST("/sessions/cleanup", h.cleanupSessions, auth.RequireAdmin())
	authProtected.GET("/audit", h.listAuditEvents, auth.RequireAdmin())
	authProtected.PUT("/users/:id/disabled", h.setUserDisabled, auth.RequireAdmin())
}

func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
