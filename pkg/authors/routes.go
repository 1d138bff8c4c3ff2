package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers author routes. Reads are public.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	authorService := NewService(db)

	h := &handler{
		authorService: authorService,
	}

	staff := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequireRole(models.StaffRoles...)}

	g := e.Group("/authors")
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, staff...)
	g.PUT("/:id", h.update, staff...)
	g.DELETE("/:id", h.delete, staff...)

	return authorService
}
