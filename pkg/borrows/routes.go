package borrows

import (
	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the borrow routes. Every route needs a signed in
// user.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, engine *availability.Engine, authMiddleware *auth.Middleware) *Service {
	borrowService := NewService(db, engine, cfg)

	h := &handler{
		borrowService: borrowService,
	}

	staff := authMiddleware.RequireRole(models.StaffRoles...)
	admin := authMiddleware.RequireRole(models.RoleAdmin)

	g := e.Group("/borrows")
	g.Use(authMiddleware.Authenticate)
	g.GET("", h.list, admin)
	g.GET("/unreturned", h.unreturned, staff)
	g.GET("/user", h.mine)
	g.GET("/:id", h.retrieve, staff)
	g.POST("", h.create)
	g.POST("/:id/return", h.returnBorrow, staff)
	g.DELETE("/:id", h.delete, staff)

	return borrowService
}
