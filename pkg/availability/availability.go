// Package availability derives how many copies of a book can be lent out
// from the loan ledger. Nothing here is cached: every call reads the ledger.
package availability

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Compute returns the number of copies on the shelf. It never goes below
// zero, even if the ledger somehow holds more active loans than copies.
func Compute(totalCopies, activeLoans int) int {
	if available := totalCopies - activeLoans; available > 0 {
		return available
	}
	return 0
}

// IsAvailable reports whether at least one copy can be lent.
func IsAvailable(totalCopies, activeLoans int) bool {
	return Compute(totalCopies, activeLoans) > 0
}

// Engine answers availability questions and hands out per-book locks so that
// checking and writing a loan happen as one step.
type Engine struct {
	locks *xsync.MapOf[string, *bookLock]
}

// bookLock is dropped from the table once nobody holds or waits for it.
type bookLock struct {
	mu    sync.Mutex
	users int
}

func NewEngine() *Engine {
	return &Engine{locks: xsync.NewMapOf[string, *bookLock]()}
}

// Lock blocks until the caller holds the lock for isbn and returns the
// matching unlock function, which must be called exactly once.
func (e *Engine) Lock(isbn string) func() {
	l, _ := e.locks.Compute(isbn, func(l *bookLock, loaded bool) (*bookLock, bool) {
		if !loaded {
			l = &bookLock{}
		}
		l.users++
		return l, false
	})
	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		e.locks.Compute(isbn, func(l *bookLock, _ bool) (*bookLock, bool) {
			l.users--
			return l, l.users == 0
		})
	}
}

// LockBookRow loads a live book inside a transaction. On Postgres the row
// stays locked FOR UPDATE until the transaction ends, so loan writers in other
// processes queue behind it; SQLite already runs one transaction at a time.
func LockBookRow(ctx context.Context, idb bun.IDB, isbn string) (*models.Book, error) {
	book := &models.Book{}
	if err := bookRowQuery(idb, book, isbn).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

func bookRowQuery(idb bun.IDB, book *models.Book, isbn string) *bun.SelectQuery {
	q := idb.NewSelect().
		Model(book).
		Where("b.isbn = ?", isbn).
		Where("b.deleted_at IS NULL")
	if idb.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	return q
}

// ActiveLoans counts the unreturned borrows of a single book.
func (e *Engine) ActiveLoans(ctx context.Context, idb bun.IDB, isbn string) (int, error) {
	count, err := idb.NewSelect().
		Model((*models.Borrow)(nil)).
		Where("br.book_isbn = ?", isbn).
		Where("br.returned_at IS NULL").
		Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// ActiveLoansByBook counts unreturned borrows for many books with a single
// grouped query. Books without loans are absent from the map.
func (e *Engine) ActiveLoansByBook(ctx context.Context, idb bun.IDB, isbns []string) (map[string]int, error) {
	counts := make(map[string]int, len(isbns))
	if len(isbns) == 0 {
		return counts, nil
	}

	var rows []struct {
		BookISBN string `bun:"book_isbn"`
		Count    int    `bun:"count"`
	}
	err := idb.NewSelect().
		Model((*models.Borrow)(nil)).
		Column("br.book_isbn").
		ColumnExpr("COUNT(*) AS count").
		Where("br.book_isbn IN (?)", bun.In(isbns)).
		Where("br.returned_at IS NULL").
		Group("br.book_isbn").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, r := range rows {
		counts[r.BookISBN] = r.Count
	}
	return counts, nil
}

// Populate fills the derived availability fields on each book.
func (e *Engine) Populate(ctx context.Context, idb bun.IDB, books ...*models.Book) error {
	isbns := make([]string, 0, len(books))
	for _, b := range books {
		isbns = append(isbns, b.ISBN)
	}
	counts, err := e.ActiveLoansByBook(ctx, idb, isbns)
	if err != nil {
		return err
	}
	for _, b := range books {
		Apply(b, counts[b.ISBN])
	}
	return nil
}

// Apply sets the derived fields of b from a known active loan count.
func Apply(b *models.Book, activeLoans int) {
	b.ActiveLoans = activeLoans
	b.AvailableCopies = Compute(b.TotalCopies, activeLoans)
	b.IsAvailable = b.AvailableCopies > 0
}
