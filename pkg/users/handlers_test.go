package users

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/binder"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e      *echo.Echo
	tokens map[string]string
	ids    map[string]int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := newTestDB(t)
	authService := auth.NewService(db, config.NewForTest())

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	svc := RegisterRoutes(e, db, auth.NewMiddleware(authService))

	ts := &testServer{e: e, tokens: map[string]string{}, ids: map[string]int{}}
	for _, role := range models.Roles {
		user, err := svc.Create(context.Background(), CreateUserOptions{
			Name: role, Email: role + "@example.com", Password: "password", Role: role,
		})
		require.NoError(t, err)
		token, err := authService.GenerateToken(user)
		require.NoError(t, err)
		ts.tokens[role] = token.Value
		ts.ids[role] = user.ID
	}
	return ts
}

func (ts *testServer) do(method, path, role, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if role != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+ts.tokens[role])
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Authorization(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	member := fmt.Sprintf("/users/%d", ts.ids[models.RoleMember])
	admin := fmt.Sprintf("/users/%d", ts.ids[models.RoleAdmin])

	tests := []struct {
		name, method, path, role, body string
		status                         int
	}{
		{"anonymous list", http.MethodGet, "/users", "", "", http.StatusUnauthorized},
		{"member list", http.MethodGet, "/users", models.RoleMember, "", http.StatusForbidden},
		{"librarian list", http.MethodGet, "/users", models.RoleLibrarian, "", http.StatusOK},
		{"librarian retrieve", http.MethodGet, member, models.RoleLibrarian, "", http.StatusOK},
		{"unknown id", http.MethodGet, "/users/abc", models.RoleAdmin, "", http.StatusNotFound},
		{"librarian create", http.MethodPost, "/users", models.RoleLibrarian, `{"name":"n","email":"n@example.com","password":"password"}`, http.StatusForbidden},
		{"admin create", http.MethodPost, "/users", models.RoleAdmin, `{"name":"n","email":"n@example.com","password":"password","role":"librarian"}`, http.StatusCreated},
		{"duplicate email", http.MethodPost, "/users", models.RoleAdmin, `{"name":"n","email":"MEMBER@example.com","password":"password"}`, http.StatusConflict},
		{"short password", http.MethodPost, "/users", models.RoleAdmin, `{"name":"n","email":"z@example.com","password":"short"}`, http.StatusUnprocessableEntity},
		{"librarian promotes to admin", http.MethodPut, member, models.RoleLibrarian, `{"role":"admin"}`, http.StatusForbidden},
		{"librarian edits admin", http.MethodPut, admin, models.RoleLibrarian, `{"name":"x"}`, http.StatusForbidden},
		{"librarian renames member", http.MethodPut, member, models.RoleLibrarian, `{"name":"Renamed"}`, http.StatusOK},
		{"admin self demotion", http.MethodPut, admin, models.RoleAdmin, `{"role":"member"}`, http.StatusUnprocessableEntity},
		{"self deactivation", http.MethodDelete, admin, models.RoleAdmin, "", http.StatusUnprocessableEntity},
		{"librarian deactivates admin", http.MethodDelete, admin, models.RoleLibrarian, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.role, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_Register(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/register", "", `{"name":"New","email":"new@example.com","password":"password","role":"admin"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "role is not accepted on self registration")

	rec = ts.do(http.MethodPost, "/auth/register", "", `{"name":"New","email":"new@example.com","password":"password"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"member"`)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = ts.do(http.MethodPost, "/auth/admin/create-librarian", models.RoleLibrarian, `{"name":"L","email":"l@example.com","password":"password"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/admin/create-librarian", models.RoleAdmin, `{"name":"L","email":"l@example.com","password":"password"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"librarian"`)

	rec = ts.do(http.MethodPost, "/auth/admin/create-admin", models.RoleAdmin, `{"name":"A","email":"a2@example.com","password":"password"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
}

func TestRoutes_Deactivate(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodDelete, fmt.Sprintf("/users/%d", ts.ids[models.RoleMember]), models.RoleLibrarian, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The deactivated member's token stops working straight away.
	rec = ts.do(http.MethodGet, "/users", models.RoleMember, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
