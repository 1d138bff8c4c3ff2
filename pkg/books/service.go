package books

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/authors"
	"github.com/quillbooks/quill/pkg/availability"
	"github.com/quillbooks/quill/pkg/categories"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/htmlutil"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type RetrieveBookOptions struct {
	ISBN           string
	IncludeDeleted bool
}

type ListBooksOptions struct {
	Page     int
	PerPage  int
	Title    *string
	Author   *string
	Category *string
}

type UpdateBookOptions struct {
	Columns []string
}

// Page is one page of the catalog.
type Page struct {
	Books       []*models.Book `json:"books"`
	Total       int            `json:"total"`
	Pages       int            `json:"pages"`
	CurrentPage int            `json:"current_page"`
}

type Service struct {
	db     *bun.DB
	engine *availability.Engine
}

func NewService(db *bun.DB, engine *availability.Engine) *Service {
	return &Service{db, engine}
}

// CreateBook adds a book to the catalog. A soft-deleted book with the same
// ISBN is brought back with the new fields instead of inserting a new row.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	unlock := svc.engine.Lock(book.ISBN)
	defer unlock()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return createBook(ctx, tx, book)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return svc.reload(ctx, book)
}

func createBook(ctx context.Context, tx bun.Tx, book *models.Book) error {
	if err := ensureReferences(ctx, tx, book.AuthorID, book.CategoryID); err != nil {
		return err
	}

	existing, err := retrieveBook(ctx, tx, RetrieveBookOptions{ISBN: book.ISBN, IncludeDeleted: true})
	if err != nil && !errors.Is(err, errcodes.NotFound("Book")) {
		return err
	}

	now := time.Now()
	book.UpdatedAt = now

	if existing == nil {
		book.CreatedAt = now
		_, err := tx.NewInsert().
			Model(book).
			Exec(ctx)
		return errors.WithStack(err)
	}

	if !existing.IsDeleted() {
		return errcodes.Conflict("Book already exists.")
	}

	book.CreatedAt = existing.CreatedAt
	book.DeletedAt = nil
	_, err = tx.NewUpdate().
		Model(book).
		Column("title", "total_copies", "cover", "description", "author_id", "category_id", "deleted_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("restored book", logger.Data{"isbn": book.ISBN})
	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book, err := retrieveBook(ctx, svc.db, opts)
	if err != nil {
		return nil, err
	}
	if err := svc.engine.Populate(ctx, svc.db, book); err != nil {
		return nil, err
	}
	return book, nil
}

func retrieveBook(ctx context.Context, idb bun.IDB, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := idb.
		NewSelect().
		Model(book).
		Relation("Author").
		Relation("Category").
		Where("b.isbn = ?", opts.ISBN)

	if !opts.IncludeDeleted {
		q = q.Where("b.deleted_at IS NULL")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// ListBooks returns a page of the catalog ordered by title. Text filters match
// case-insensitive substrings of the title, author name and category name.
func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) (*Page, error) {
	page, perPage := normalizePage(opts.Page, opts.PerPage)
	books := []*models.Book{}

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Author").
		Relation("Category").
		Where("b.deleted_at IS NULL").
		Order("b.title ASC", "b.isbn ASC").
		Limit(perPage).
		Offset((page - 1) * perPage)

	if opts.Title != nil && *opts.Title != "" {
		q = q.Where(`LOWER(b.title) LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Title))
	}
	if opts.Author != nil && *opts.Author != "" {
		q = q.Where(`LOWER(author.name) LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Author))
	}
	if opts.Category != nil && *opts.Category != "" {
		q = q.Where(`LOWER(category.name) LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Category))
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := svc.engine.Populate(ctx, svc.db, books...); err != nil {
		return nil, err
	}

	return &Page{
		Books:       books,
		Total:       total,
		Pages:       pageCount(total, perPage),
		CurrentPage: page,
	}, nil
}

// UpdateBook writes the given columns. Lowering total_copies below the number
// of copies currently lent out is rejected.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	unlock := svc.engine.Lock(book.ISBN)
	defer unlock()

	book.UpdatedAt = time.Now()
	columns := append(slices.Clone(opts.Columns), "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := availability.LockBookRow(ctx, tx, book.ISBN); err != nil {
			return err
		}
		if err := ensureReferences(ctx, tx, book.AuthorID, book.CategoryID); err != nil {
			return err
		}

		if slices.Contains(columns, "total_copies") {
			active, err := svc.engine.ActiveLoans(ctx, tx, book.ISBN)
			if err != nil {
				return err
			}
			if book.TotalCopies < active {
				logger.FromContext(ctx).Warn("rejected copy reduction", logger.Data{
					"isbn":         book.ISBN,
					"total_copies": book.TotalCopies,
					"active_loans": active,
				})
				return errcodes.Conflict("Total copies can't be lower than the number of borrowed copies.")
			}
		}

		res, err := tx.NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Where("deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return svc.reload(ctx, book)
}

// DeleteBook removes the book from the catalog while keeping its row for the
// loan history. Books with copies still lent out can't be deleted.
func (svc *Service) DeleteBook(ctx context.Context, isbn string) error {
	unlock := svc.engine.Lock(isbn)
	defer unlock()

	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := availability.LockBookRow(ctx, tx, isbn)
		if err != nil {
			return err
		}

		active, err := svc.engine.ActiveLoans(ctx, tx, isbn)
		if err != nil {
			return err
		}
		if active > 0 {
			return errcodes.Conflict("Book still has borrowed copies.")
		}

		now := time.Now()
		book.DeletedAt = &now
		book.UpdatedAt = now
		_, err = tx.NewUpdate().
			Model(book).
			Column("deleted_at", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

// ImportBook creates a book from a Google Books volume, creating the author
// and category by name when they don't exist yet.
func (svc *Service) ImportBook(ctx context.Context, volume *Volume, totalCopies int) (*models.Book, error) {
	info := volume.VolumeInfo
	isbn := info.ISBN()
	if isbn == "" {
		return nil, errcodes.ValidationError("Volume has no ISBN identifier.")
	}
	title := strings.TrimSpace(info.Title)
	if title == "" {
		return nil, errcodes.ValidationError("Volume has no title.")
	}
	if len(info.Authors) == 0 {
		return nil, errcodes.ValidationError("Volume has no author.")
	}
	categoryName := UncategorizedName
	if len(info.Categories) > 0 && strings.TrimSpace(info.Categories[0]) != "" {
		categoryName = info.Categories[0]
	}

	book := &models.Book{
		ISBN:        isbn,
		Title:       title,
		TotalCopies: totalCopies,
	}
	if info.ImageLinks != nil && info.ImageLinks.Thumbnail != "" {
		cover := info.ImageLinks.Thumbnail
		book.Cover = &cover
	}
	if info.Description != "" {
		if description := htmlutil.StripTags(info.Description); description != "" {
			book.Description = &description
		}
	}

	unlock := svc.engine.Lock(isbn)
	defer unlock()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		author, err := authors.FindOrCreateAuthor(ctx, tx, info.Authors[0])
		if err != nil {
			return err
		}
		category, err := categories.FindOrCreateCategory(ctx, tx, categoryName)
		if err != nil {
			return err
		}
		book.AuthorID = author.ID
		book.CategoryID = category.ID
		return createBook(ctx, tx, book)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("imported book", logger.Data{"isbn": isbn, "volume_id": volume.ID})

	if err := svc.reload(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (svc *Service) reload(ctx context.Context, book *models.Book) error {
	fresh, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: book.ISBN})
	if err != nil {
		return err
	}
	*book = *fresh
	return nil
}

func ensureReferences(ctx context.Context, idb bun.IDB, authorID, categoryID int) error {
	exists, err := idb.NewSelect().
		Model((*models.Author)(nil)).
		Where("a.id = ?", authorID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Author")
	}

	exists, err = idb.NewSelect().
		Model((*models.Category)(nil)).
		Where("c.id = ?", categoryID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Category")
	}
	return nil
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

func pageCount(total, perPage int) int {
	return (total + perPage - 1) / perPage
}
