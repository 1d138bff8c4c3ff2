package books

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/binder"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*fixture
	e      *echo.Echo
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	f := newFixture(t)
	authService := auth.NewService(f.db, config.NewForTest())

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	f.svc = RegisterRoutes(e, f.db, availability.NewEngine(), auth.NewMiddleware(authService))

	ts := &testServer{fixture: f, e: e, tokens: map[string]string{}}
	for _, role := range models.Roles {
		hash, err := auth.HashPassword("password")
		require.NoError(t, err)
		now := time.Now()
		user := &models.User{
			Name: role, Email: role + "@example.com", PasswordHash: hash, Role: role,
			IsActive: true, CreatedAt: now, UpdatedAt: now,
		}
		_, err = f.db.NewInsert().Model(user).Exec(context.Background())
		require.NoError(t, err)
		token, err := authService.GenerateToken(user)
		require.NoError(t, err)
		ts.tokens[role] = token.Value
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
	ts.newBook(t, "9780441478125", "The Left Hand of Darkness", 1)

	tests := []struct {
		name, method, path, role string
		status                   int
	}{
		{"anonymous list", http.MethodGet, "/books", "", http.StatusOK},
		{"anonymous retrieve", http.MethodGet, "/books/9780441478125", "", http.StatusOK},
		{"anonymous create", http.MethodPost, "/books", "", http.StatusUnauthorized},
		{"member create", http.MethodPost, "/books", models.RoleMember, http.StatusForbidden},
		{"member update", http.MethodPut, "/books/9780441478125", models.RoleMember, http.StatusForbidden},
		{"member delete", http.MethodDelete, "/books/9780441478125", models.RoleMember, http.StatusForbidden},
		{"member import", http.MethodPost, "/books/import", models.RoleMember, http.StatusForbidden},
	}

	for _, tt := range tests {
		rec := ts.do(tt.method, tt.path, tt.role, `{}`)
		assert.Equal(t, tt.status, rec.Code, tt.name)
	}
}

func TestHandlers_CreateAndRetrieve(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	body := fmt.Sprintf(`{"isbn":"9780441478125","title":"  The Left Hand of Darkness ","author_id":%d,"category_id":%d,"cover":"https://example.com/c.jpg"}`,
		ts.author.ID, ts.category.ID)
	rec := ts.do(http.MethodPost, "/books", models.RoleLibrarian, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "The Left Hand of Darkness", created.Title)
	assert.Equal(t, 1, created.TotalCopies)
	assert.Equal(t, 1, created.AvailableCopies)

	rec = ts.do(http.MethodGet, "/books/9780441478125", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_available":true`)

	rec = ts.do(http.MethodPost, "/books", models.RoleAdmin, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlers_CreateValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"zero copies", `{"isbn":"1","title":"x","author_id":1,"category_id":1,"total_copies":0}`},
		{"long title", `{"isbn":"1","title":"` + strings.Repeat("a", 201) + `","author_id":1,"category_id":1}`},
		{"bad isbn", `{"isbn":"not-an-isbn","title":"x","author_id":1,"category_id":1}`},
		{"bad cover", `{"isbn":"1","title":"x","author_id":1,"category_id":1,"cover":"ftp://x"}`},
		{"missing author", `{"isbn":"1","title":"x","category_id":1}`},
	}

	for _, tt := range tests {
		rec := ts.do(http.MethodPost, "/books", models.RoleLibrarian, tt.body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, tt.name)
	}
}

func TestHandlers_List(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.newBook(t, "1001", "The Dispossessed", 1)
	ts.newBook(t, "1002", "The Lathe of Heaven", 1)

	rec := ts.do(http.MethodGet, "/books?title=lathe&per_page=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Pages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "1002", page.Books[0].ISBN)

	rec = ts.do(http.MethodGet, "/books?per_page=500", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlers_Update(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.newBook(t, "9780441478125", "Draft", 2)
	ts.lend(t, "9780441478125")
	ts.lend(t, "9780441478125")

	rec := ts.do(http.MethodPut, "/books/9780441478125", models.RoleLibrarian, `{"title":"Final","description":"A classic."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"title":"Final"`)
	assert.Contains(t, rec.Body.String(), `"available_copies":0`)

	rec = ts.do(http.MethodPut, "/books/9780441478125", models.RoleLibrarian, `{"total_copies":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, "/books/9780441478125", models.RoleLibrarian, `{"author_id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/books/missing", models.RoleLibrarian, `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_Delete(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.newBook(t, "9780441478125", "Gone soon", 1)

	rec := ts.do(http.MethodDelete, "/books/9780441478125", models.RoleAdmin, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, "/books/9780441478125", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_Import(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	body := `{
		"kind": "books#volume",
		"id": "zyTCAlFPjgYC",
		"etag": "f0zKg75Mx/I",
		"volumeInfo": {
			"title": "The Google Story",
			"authors": ["David A. Vise"],
			"publisher": "Random House Digital, Inc.",
			"publishedDate": "2005-11-15",
			"description": "<b>The</b> story",
			"industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780553804577"}],
			"pageCount": 207,
			"printType": "BOOK",
			"categories": ["Browsers (Computer programs)"],
			"imageLinks": {"thumbnail": "https://books.google.com/thumb"}
		},
		"saleInfo": {"country": "US"},
		"total_copies": 3
	}`

	rec := ts.do(http.MethodPost, "/books/import", models.RoleLibrarian, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, "9780553804577", book.ISBN)
	assert.Equal(t, 3, book.TotalCopies)
	require.NotNil(t, book.Description)
	assert.Equal(t, "The story", *book.Description)

	rec = ts.do(http.MethodPost, "/books/import", models.RoleLibrarian,
		`{"volumeInfo":{"title":"x","authors":["y"],"industryIdentifiers":[{"type":"OTHER","identifier":"z"}]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
