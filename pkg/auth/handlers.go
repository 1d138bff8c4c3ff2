package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// CookieName is the name of the session cookie.
const CookieName = "quill_session"

type handler struct {
	authService *Service
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	setSessionCookie(c, token.Value, token.ExpiresAt)
	log.Info("user logged in", logger.Data{"user_id": user.ID, "role": user.Role})

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token.Value,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt,
		User:        user,
	})
}

func (h *handler) logout(c echo.Context) error {
	setSessionCookie(c, "", time.Time{})
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) me(c echo.Context) error {
	user := GetUserFromContext(c)
	if user == nil {
		return errcodes.Unauthorized("")
	}
	return c.JSON(http.StatusOK, user)
}

// setSessionCookie writes the session cookie. A zero expiry clears it.
func setSessionCookie(c echo.Context, value string, expiresAt time.Time) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get(echo.HeaderXForwardedProto) == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if expiresAt.IsZero() {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = expiresAt
	}
	c.SetCookie(cookie)
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}
