package books

import (
	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the catalog routes. Browsing is public, changes
// need a librarian or an admin.
func RegisterRoutes(e *echo.Echo, db *bun.DB, engine *availability.Engine, authMiddleware *auth.Middleware) *Service {
	bookService := NewService(db, engine)

	h := &handler{
		bookService: bookService,
	}

	staff := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequireRole(models.StaffRoles...)}

	g := e.Group("/books")
	g.GET("", h.list)
	g.GET("/:isbn", h.retrieve)
	g.POST("", h.create, staff...)
	g.POST("/import", h.importVolume, staff...)
	g.PUT("/:isbn", h.update, staff...)
	g.DELETE("/:isbn", h.delete, staff...)

	return bookService
}
