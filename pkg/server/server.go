package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/authors"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/binder"
	"github.com/quillbooks/quill/pkg/books"
	"github.com/quillbooks/quill/pkg/borrows"
	"github.com/quillbooks/quill/pkg/categories"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/users"
	"github.com/quillbooks/quill/pkg/version"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := newEcho(cfg, db)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	e.GET("/", index)

	authService := auth.NewService(db, cfg)
	authMiddleware := auth.NewMiddleware(authService)
	// Shared so that book edits and new borrows of the same book serialise.
	engine := availability.NewEngine()

	config.RegisterRoutes(e, cfg)
	auth.RegisterRoutes(e, authService, authMiddleware)
	users.RegisterRoutes(e, db, authMiddleware)
	authors.RegisterRoutes(e, db, authMiddleware)
	categories.RegisterRoutes(e, db, authMiddleware)
	books.RegisterRoutes(e, db, engine, authMiddleware)
	borrows.RegisterRoutes(e, db, cfg, engine, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":    "quill",
		"version": version.Version,
	})
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
