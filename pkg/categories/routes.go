package categories

import (
	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers category routes. Reads are public.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	categoryService := NewService(db)

	h := &handler{
		categoryService: categoryService,
	}

	staff := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequireRole(models.StaffRoles...)}

	g := e.Group("/categories")
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, staff...)
	g.PUT("/:id", h.update, staff...)
	g.DELETE("/:id", h.delete, staff...)

	return categoryService
}
