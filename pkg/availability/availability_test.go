package availability

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
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
	"github.com/uptrace/bun/dialect/pgdialect"
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

// seed creates one author, category and member, then a book per isbn with
// the given number of copies.
func seed(t *testing.T, db *bun.DB, copies map[string]int) int {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	author := &models.Author{Name: "Octavia Butler", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)
	category := &models.Category{Name: "Fiction", CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(category).Exec(ctx)
	require.NoError(t, err)
	user := &models.User{Name: "Reader", Email: "reader@example.com", PasswordHash: "x", Role: models.RoleMember, IsActive: true, CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	for isbn, n := range copies {
		book := &models.Book{ISBN: isbn, Title: "Kindred " + isbn, TotalCopies: n, AuthorID: author.ID, CategoryID: category.ID, CreatedAt: now, UpdatedAt: now}
		_, err = db.NewInsert().Model(book).Exec(ctx)
		require.NoError(t, err)
	}
	return user.ID
}

func lend(t *testing.T, db *bun.DB, userID int, isbn string, returned bool) {
	t.Helper()
	now := time.Now()
	b := &models.Borrow{UserID: userID, BookISBN: isbn, BorrowedAt: now, DueAt: models.DueDate(now, 14)}
	if returned {
		b.ReturnedAt = &now
	}
	_, err := db.NewInsert().Model(b).Exec(context.Background())
	require.NoError(t, err)
}

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, active, available int
	}{
		{3, 0, 3},
		{3, 2, 1},
		{3, 3, 0},
		{1, 4, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.available, Compute(tt.total, tt.active), "total=%d active=%d", tt.total, tt.active)
		assert.Equal(t, tt.available > 0, IsAvailable(tt.total, tt.active))
	}
}

func TestEngine_ActiveLoans(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	userID := seed(t, db, map[string]int{"111": 3, "222": 1, "333": 2})

	lend(t, db, userID, "111", false)
	lend(t, db, userID, "111", false)
	lend(t, db, userID, "111", true)
	lend(t, db, userID, "222", true)

	e := NewEngine()

	count, err := e.ActiveLoans(ctx, db, "111")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	counts, err := e.ActiveLoansByBook(ctx, db, []string{"111", "222", "333"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"111": 2}, counts)

	empty, err := e.ActiveLoansByBook(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEngine_Populate(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	userID := seed(t, db, map[string]int{"111": 2, "222": 1})

	lend(t, db, userID, "111", false)
	lend(t, db, userID, "222", false)

	a := &models.Book{ISBN: "111", TotalCopies: 2}
	b := &models.Book{ISBN: "222", TotalCopies: 1}
	require.NoError(t, NewEngine().Populate(ctx, db, a, b))

	assert.Equal(t, 1, a.ActiveLoans)
	assert.Equal(t, 1, a.AvailableCopies)
	assert.True(t, a.IsAvailable)

	assert.Equal(t, 1, b.ActiveLoans)
	assert.Equal(t, 0, b.AvailableCopies)
	assert.False(t, b.IsAvailable)
}

func TestEngine_Lock(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := e.Lock("978-0")
			defer unlock()
			n := inside.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())

	// Different books don't contend.
	unlockA := e.Lock("a")
	unlockB := e.Lock("b")
	unlockB()
	unlockA()

	assert.Zero(t, e.locks.Size())
}

func TestEngine_LockReleasesEntries(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	for i := 0; i < 100; i++ {
		e.Lock(fmt.Sprintf("missing-%d", i))()
	}
	assert.Zero(t, e.locks.Size())

	unlock := e.Lock("978-0")
	waiting := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		close(waiting)
		e.Lock("978-0")()
		close(acquired)
	}()
	<-waiting
	assert.Equal(t, 1, e.locks.Size())
	unlock()
	<-acquired
	assert.Zero(t, e.locks.Size())
}

func TestLockBookRow(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, map[string]int{"978-0": 2, "978-1": 1})

	_, err := db.NewUpdate().Model((*models.Book)(nil)).Set("deleted_at = ?", time.Now()).Where("isbn = ?", "978-1").Exec(ctx)
	require.NoError(t, err)

	err = db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := LockBookRow(ctx, tx, "978-0")
		require.NoError(t, err)
		assert.Equal(t, 2, book.TotalCopies)

		_, err = LockBookRow(ctx, tx, "978-1")
		assert.ErrorIs(t, err, errcodes.NotFound("Book"))
		_, err = LockBookRow(ctx, tx, "missing")
		assert.ErrorIs(t, err, errcodes.NotFound("Book"))
		return nil
	})
	require.NoError(t, err)
}

func TestBookRowQuery_LocksOnPostgres(t *testing.T) {
	t.Parallel()

	sqldb, err := sql.Open("pgx", "postgres://localhost:5432/quill")
	require.NoError(t, err)
	pg := bun.NewDB(sqldb, pgdialect.New())
	defer pg.Close()

	query := bookRowQuery(pg, &models.Book{}, "978-0").String()
	assert.Contains(t, query, "FOR UPDATE")
	assert.Contains(t, query, "b.deleted_at IS NULL")

	lite := newTestDB(t)
	assert.NotContains(t, bookRowQuery(lite, &models.Book{}, "978-0").String(), "FOR UPDATE")
}
