package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
)

const userKey = "user"

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate resolves the caller from a bearer token or the session
// cookie. The user is reloaded on every request so deactivation takes effect
// immediately.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("")
		}

		user, err := m.resolve(c, token)
		if err != nil {
			return err
		}

		c.Set(userKey, user)
		return next(c)
	}
}

// RequireRole rejects callers that hold none of the given roles. It must run
// after Authenticate.
func (m *Middleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUserFromContext(c)
			if user == nil {
				return errcodes.Unauthorized("")
			}
			if !user.HasRole(roles...) {
				return errcodes.Forbidden("This action for role " + user.Role)
			}
			return next(c)
		}
	}
}

func (m *Middleware) resolve(c echo.Context, token string) (*models.User, error) {
	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		return nil, errcodes.Unauthorized("Invalid or expired token.")
	}
	user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return nil, errcodes.Unauthorized("User not found or inactive.")
	}
	return user, nil
}

func tokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetUserFromContext returns the authenticated user, or nil for anonymous
// requests.
func GetUserFromContext(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}
