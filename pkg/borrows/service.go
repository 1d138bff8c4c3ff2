package borrows

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/config"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type CreateBorrowOptions struct {
	UserID   int
	BookISBN string
	// MembersOnly rejects borrowers that aren't members. Staff creating a loan
	// on someone's behalf set it.
	MembersOnly bool
}

type ListUnreturnedOptions struct {
	Page    int
	PerPage int
	Search  *string
}

type ListBorrowsOptions struct {
	Page    int
	PerPage int
	UserID  *int
	Active  *bool
}

// Page is one page of ledger entries.
type Page struct {
	Borrows     []*models.Borrow `json:"borrows"`
	Total       int              `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// Service drives the borrow lifecycle: a borrow is created active, and is
// returned exactly once.
type Service struct {
	db                 *bun.DB
	engine             *availability.Engine
	borrowingLimitDays int
	now                func() time.Time
}

func NewService(db *bun.DB, engine *availability.Engine, cfg *config.Config) *Service {
	return &Service{
		db:                 db,
		engine:             engine,
		borrowingLimitDays: cfg.BorrowingLimitDays,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// CreateBorrow lends a copy of a book to a user. The availability check and
// the insert happen under the book's lock inside one transaction, so two
// borrowers can never take the last copy at the same time.
func (svc *Service) CreateBorrow(ctx context.Context, opts CreateBorrowOptions) (*models.Borrow, error) {
	log := logger.FromContext(ctx)

	unlock := svc.engine.Lock(opts.BookISBN)
	defer unlock()

	var borrow *models.Borrow
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		user, err := activeUser(ctx, tx, opts.UserID)
		if err != nil {
			return err
		}
		if opts.MembersOnly && user.Role != models.RoleMember {
			return errcodes.ValidationError("Books can only be lent to members.")
		}

		book, err := availability.LockBookRow(ctx, tx, opts.BookISBN)
		if err != nil {
			return err
		}

		active, err := svc.engine.ActiveLoans(ctx, tx, book.ISBN)
		if err != nil {
			return err
		}
		if !availability.IsAvailable(book.TotalCopies, active) {
			log.Warn("no copies available", logger.Data{
				"isbn":         book.ISBN,
				"user_id":      user.ID,
				"total_copies": book.TotalCopies,
				"active_loans": active,
			})
			return errcodes.Conflict("No copies available.")
		}

		now := svc.now()
		borrow = &models.Borrow{
			UserID:     user.ID,
			BookISBN:   book.ISBN,
			BorrowedAt: now,
			DueAt:      models.DueDate(now, svc.borrowingLimitDays),
		}
		return insertBorrow(ctx, tx, borrow)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	log.Info("borrow created", logger.Data{
		"borrow_id": borrow.ID,
		"user_id":   borrow.UserID,
		"isbn":      borrow.BookISBN,
		"due_at":    borrow.DueAt,
	})

	return svc.RetrieveBorrow(ctx, borrow.ID)
}

// ReturnBorrow closes an active borrow. A second return is a conflict and
// leaves the first return time untouched.
func (svc *Service) ReturnBorrow(ctx context.Context, id int) (*models.Borrow, error) {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		borrow, err := retrieveBorrow(ctx, tx, id)
		if err != nil {
			return err
		}
		if !borrow.IsActive() {
			return errcodes.Conflict("Borrow already returned.")
		}

		returned, err := markReturned(ctx, tx, id, svc.now())
		if err != nil {
			return err
		}
		if !returned {
			return errcodes.Conflict("Borrow already returned.")
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("borrow returned", logger.Data{"borrow_id": id})

	return svc.RetrieveBorrow(ctx, id)
}

func (svc *Service) RetrieveBorrow(ctx context.Context, id int) (*models.Borrow, error) {
	borrow, err := retrieveBorrow(ctx, svc.db, id)
	if err != nil {
		return nil, err
	}
	borrow.Refresh(svc.now())
	return borrow, nil
}

// ListUnreturned pages through active borrows, soonest due first. Search
// matches a case-insensitive substring of the borrower's name.
func (svc *Service) ListUnreturned(ctx context.Context, opts ListUnreturnedOptions) (*Page, error) {
	page, perPage := normalizePage(opts.Page, opts.PerPage)
	borrows := []*models.Borrow{}

	q := selectBorrows(svc.db, &borrows).
		Where("br.returned_at IS NULL").
		Order("br.due_at ASC", "br.id ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where(`LOWER("user"."name") LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Search))
	}

	return svc.scanPage(ctx, q, &borrows, page, perPage)
}

// ListBorrows pages through the whole ledger, newest first.
func (svc *Service) ListBorrows(ctx context.Context, opts ListBorrowsOptions) (*Page, error) {
	page, perPage := normalizePage(opts.Page, opts.PerPage)
	borrows := []*models.Borrow{}

	q := selectBorrows(svc.db, &borrows).
		Order("br.borrowed_at DESC", "br.id DESC")

	if opts.UserID != nil {
		q = q.Where("br.user_id = ?", *opts.UserID)
	}
	if opts.Active != nil {
		if *opts.Active {
			q = q.Where("br.returned_at IS NULL")
		} else {
			q = q.Where("br.returned_at IS NOT NULL")
		}
	}

	return svc.scanPage(ctx, q, &borrows, page, perPage)
}

// ListUserBorrows returns a user's whole borrowing history, newest first.
func (svc *Service) ListUserBorrows(ctx context.Context, userID int) ([]*models.Borrow, error) {
	borrows := []*models.Borrow{}
	err := selectBorrows(svc.db, &borrows).
		Where("br.user_id = ?", userID).
		Order("br.borrowed_at DESC", "br.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := svc.now()
	for _, b := range borrows {
		b.Refresh(now)
	}
	return borrows, nil
}

// DeleteBorrow removes a ledger entry outright, whatever its state.
func (svc *Service) DeleteBorrow(ctx context.Context, id int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := retrieveBorrow(ctx, tx, id); err != nil {
			return err
		}
		return deleteBorrow(ctx, tx, id)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Warn("borrow deleted", logger.Data{"borrow_id": id})
	return nil
}

func (svc *Service) scanPage(ctx context.Context, q *bun.SelectQuery, borrows *[]*models.Borrow, page, perPage int) (*Page, error) {
	total, err := q.
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := svc.now()
	for _, b := range *borrows {
		b.Refresh(now)
	}

	return &Page{
		Borrows:     *borrows,
		Total:       total,
		Pages:       (total + perPage - 1) / perPage,
		CurrentPage: page,
	}, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
