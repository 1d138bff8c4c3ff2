package borrows

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
)

type handler struct {
	borrowService *Service
}

// create lends a book. Members borrow for themselves; librarians and admins
// must name the member they are lending to.
func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUserFromContext(c)

	params := CreateBorrowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateBorrowOptions{BookISBN: params.BookISBN}
	if user.IsStaff() {
		if params.UserID == nil {
			return errcodes.ValidationError(`"user_id" is required`)
		}
		opts.UserID = *params.UserID
		opts.MembersOnly = true
	} else {
		if params.UserID != nil && *params.UserID != user.ID {
			return errcodes.Forbidden("Borrowing for another user")
		}
		opts.UserID = user.ID
	}

	borrow, err := h.borrowService.CreateBorrow(ctx, opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, borrow)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	borrow, err := h.borrowService.RetrieveBorrow(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, borrow)
}

func (h *handler) returnBorrow(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	borrow, err := h.borrowService.ReturnBorrow(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, borrow)
}

func (h *handler) unreturned(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUnreturnedQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.borrowService.ListUnreturned(ctx, ListUnreturnedOptions(params))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBorrowsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.borrowService.ListBorrows(ctx, ListBorrowsOptions(params))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

func (h *handler) mine(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUserFromContext(c)

	borrows, err := h.borrowService.ListUserBorrows(ctx, user.ID)
	if err != nil {
		return err
	}

	resp := struct {
		Borrows []*models.Borrow `json:"borrows"`
	}{borrows}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	if err := h.borrowService.DeleteBorrow(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
