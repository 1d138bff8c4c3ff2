package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the session routes. Account creation lives with
// the users package.
func RegisterRoutes(e *echo.Echo, authService *Service, authMiddleware *Middleware) {
	h := &handler{
		authService: authService,
	}

	g := e.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.GET("/me", h.me, authMiddleware.Authenticate)
}
