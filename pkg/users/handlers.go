package users

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions(params))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// register returns a handler that creates an account with a fixed role.
func (h *handler) register(role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		params := RegisterPayload{}
		if err := c.Bind(&params); err != nil {
			return errors.WithStack(err)
		}

		user, err := h.userService.Create(ctx, CreateUserOptions{
			Name:     params.Name,
			Email:    params.Email,
			Password: params.Password,
			Role:     role,
		})
		if err != nil {
			return err
		}

		return c.JSON(http.StatusCreated, user)
	}
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	actor := auth.GetUserFromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if user.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return errcodes.Forbidden("Editing an admin account")
	}

	opts := UpdateOptions{Columns: []string{}, Password: params.Password}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return errcodes.ValidationError(`"name" can't be blank`)
		}
		if name != user.Name {
			user.Name = name
			opts.Columns = append(opts.Columns, "name")
		}
	}
	if params.Email != nil && auth.NormalizeEmail(*params.Email) != user.Email {
		user.Email = *params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.Role != nil && *params.Role != user.Role {
		if actor.ID == user.ID {
			return errcodes.ValidationError("You cannot change your own role.")
		}
		if *params.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
			return errcodes.Forbidden("Granting the admin role")
		}
		user.Role = *params.Role
		opts.Columns = append(opts.Columns, "role")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		if actor.ID == user.ID {
			return errcodes.ValidationError("You cannot deactivate your own account.")
		}
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if err := h.userService.Update(ctx, user, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	actor := auth.GetUserFromContext(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	if actor.ID == id {
		return errcodes.ValidationError("You cannot deactivate your own account.")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return errcodes.Forbidden("Deactivating an admin account")
	}

	if err := h.userService.Deactivate(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
