package authors

import (
	"context"
	"testing"
	"time"

	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/migrations"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func addBook(t *testing.T, db *bun.DB, isbn string, authorID int, deleted bool) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	category := &models.Category{}
	err := db.NewSelect().Model(category).Limit(1).Scan(ctx)
	if err != nil {
		category = &models.Category{Name: "General", CreatedAt: now, UpdatedAt: now}
		_, err = db.NewInsert().Model(category).Exec(ctx)
		require.NoError(t, err)
	}

	book := &models.Book{ISBN: isbn, Title: "Book " + isbn, TotalCopies: 1, AuthorID: authorID, CategoryID: category.ID, CreatedAt: now, UpdatedAt: now}
	if deleted {
		book.DeletedAt = &now
	}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
}

func TestCreateAuthor_UniqueIgnoringCase(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{Name: "  Terry Pratchett "}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	assert.NotZero(t, author.ID)
	assert.Equal(t, "Terry Pratchett", author.Name)

	err := svc.CreateAuthor(ctx, &models.Author{Name: "terry pratchett"})
	assert.ErrorIs(t, err, errcodes.Conflict("Author already exists."))
}

func TestRetrieveAuthor_BooksCount(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{Name: "N. K. Jemisin"}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	addBook(t, db, "1", author.ID, false)
	addBook(t, db, "2", author.ID, false)
	addBook(t, db, "3", author.ID, true)

	got, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, got.BooksCount)

	missing := 404
	_, err = svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &missing})
	assert.ErrorIs(t, err, errcodes.NotFound("Author"))
}

func TestListAuthorsWithTotal(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, name := range []string{"Zadie Smith", "Anne Carson", "Ann Leckie"} {
		require.NoError(t, svc.CreateAuthor(ctx, &models.Author{Name: name}))
	}

	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Ann Leckie", authors[0].Name)

	search := "ANN"
	authors, total, err = svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{Search: &search})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, authors, 2)
}

func TestUpdateAuthor(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := &models.Author{Name: "Iain Banks"}
	require.NoError(t, svc.CreateAuthor(ctx, a))
	b := &models.Author{Name: "Iain M. Banks"}
	require.NoError(t, svc.CreateAuthor(ctx, b))

	b.Name = "IAIN BANKS"
	err := svc.UpdateAuthor(ctx, b, UpdateAuthorOptions{Columns: []string{"name"}})
	assert.ErrorIs(t, err, errcodes.Conflict("Author already exists."))

	// Changing only the case of your own name is fine.
	a.Name = "IAIN BANKS"
	require.NoError(t, svc.UpdateAuthor(ctx, a, UpdateAuthorOptions{Columns: []string{"name"}}))
}

func TestDeleteAuthor(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	used := &models.Author{Name: "Used"}
	require.NoError(t, svc.CreateAuthor(ctx, used))
	addBook(t, db, "1", used.ID, true)
	unused := &models.Author{Name: "Unused"}
	require.NoError(t, svc.CreateAuthor(ctx, unused))

	err := svc.DeleteAuthor(ctx, used.ID)
	assert.ErrorIs(t, err, errcodes.Conflict("Author still has books."))

	require.NoError(t, svc.DeleteAuthor(ctx, unused.ID))
	_, err = svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &unused.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Author"))

	err = svc.DeleteAuthor(ctx, unused.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Author"))
}

func TestFindOrCreateAuthor(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	first, err := FindOrCreateAuthor(ctx, db, "Ted Chiang")
	require.NoError(t, err)
	second, err := FindOrCreateAuthor(ctx, db, " ted chiang ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = FindOrCreateAuthor(ctx, db, "   ")
	assert.Error(t, err)
}
