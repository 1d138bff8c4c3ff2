package books

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		ISBN:        params.ISBN,
		Title:       params.Title,
		TotalCopies: *params.TotalCopies,
		Cover:       blankToNil(params.Cover),
		Description: blankToNil(params.Description),
		AuthorID:    params.AuthorID,
		CategoryID:  params.CategoryID,
	}
	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("created book", logger.Data{"isbn": book.ISBN})

	return c.JSON(http.StatusCreated, book)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ISBN: c.Param("isbn")})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.bookService.ListBooks(ctx, ListBooksOptions(params))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ISBN: c.Param("isbn")})
	if err != nil {
		return err
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.TotalCopies != nil && *params.TotalCopies != book.TotalCopies {
		book.TotalCopies = *params.TotalCopies
		opts.Columns = append(opts.Columns, "total_copies")
	}
	if params.Cover != nil {
		book.Cover = blankToNil(params.Cover)
		opts.Columns = append(opts.Columns, "cover")
	}
	if params.Description != nil {
		book.Description = blankToNil(params.Description)
		opts.Columns = append(opts.Columns, "description")
	}
	if params.AuthorID != nil && *params.AuthorID != book.AuthorID {
		book.AuthorID = *params.AuthorID
		opts.Columns = append(opts.Columns, "author_id")
	}
	if params.CategoryID != nil && *params.CategoryID != book.CategoryID {
		book.CategoryID = *params.CategoryID
		opts.Columns = append(opts.Columns, "category_id")
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	isbn := c.Param("isbn")

	if err := h.bookService.DeleteBook(ctx, isbn); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("deleted book", logger.Data{"isbn": isbn})

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) importVolume(c echo.Context) error {
	ctx := c.Request().Context()

	// Volumes carry many fields that aren't imported.
	c.Set("disallow_unknown_fields", false)

	params := ImportBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.VolumeInfo.ISBN() == "" {
		return errcodes.ValidationError(`"industryIdentifiers" must include an ISBN_13 or ISBN_10 entry`)
	}

	book, err := h.bookService.ImportBook(ctx, &params.Volume, *params.TotalCopies)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, book)
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
