package users

import (
	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the user management routes and the account
// creation routes under /auth.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
	}

	staff := authMiddleware.RequireRole(models.StaffRoles...)
	admin := authMiddleware.RequireRole(models.RoleAdmin)

	users := e.Group("/users")
	users.Use(authMiddleware.Authenticate)
	users.GET("", h.list, staff)
	users.GET("/:id", h.retrieve, staff)
	users.POST("", h.create, admin)
	users.PUT("/:id", h.update, staff)
	users.DELETE("/:id", h.deactivate, staff)

	accounts := e.Group("/auth")
	accounts.POST("/register", h.register(models.RoleMember))
	accounts.POST("/admin/create-librarian", h.register(models.RoleLibrarian), authMiddleware.Authenticate, admin)
	accounts.POST("/admin/create-admin", h.register(models.RoleAdmin), authMiddleware.Authenticate, admin)

	return userService
}
