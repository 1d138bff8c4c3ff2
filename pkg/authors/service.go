package authors

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID   *int
	Name *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	Search *string
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// booksCount counts the catalog books written by the selected author.
const booksCount = "(SELECT COUNT(*) FROM books AS bk WHERE bk.author_id = a.id AND bk.deleted_at IS NULL) AS books_count"

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	return createAuthor(ctx, svc.db, author)
}

func createAuthor(ctx context.Context, idb bun.IDB, author *models.Author) error {
	author.Name = strings.TrimSpace(author.Name)
	now := time.Now()
	if author.CreatedAt.IsZero() {
		author.CreatedAt = now
	}
	author.UpdatedAt = author.CreatedAt

	return errors.WithStack(idb.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNameFree(ctx, tx, author.Name, 0); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(author).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	return retrieveAuthor(ctx, svc.db, opts)
}

func retrieveAuthor(ctx context.Context, idb bun.IDB, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := idb.
		NewSelect().
		Model(author).
		ColumnExpr("a.*").
		ColumnExpr(booksCount)

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(a.name) = LOWER(?)", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

// FindOrCreateAuthor returns the author with the given name, ignoring case,
// creating it first if needed. Book imports run it inside their transaction.
func FindOrCreateAuthor(ctx context.Context, idb bun.IDB, name string) (*models.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Author name can't be empty.")
	}

	author, err := retrieveAuthor(ctx, idb, RetrieveAuthorOptions{Name: &name})
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, errcodes.NotFound("Author")) {
		return nil, err
	}

	author = &models.Author{Name: name}
	if err := createAuthor(ctx, idb, author); err != nil {
		return nil, err
	}
	return author, nil
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}

	q := svc.db.
		NewSelect().
		Model(&authors).
		ColumnExpr("a.*").
		ColumnExpr(booksCount).
		Order("a.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where(`LOWER(a.name) LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Search))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	author.Name = strings.TrimSpace(author.Name)
	author.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNameFree(ctx, tx, author.Name, author.ID); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model(author).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

// DeleteAuthor removes an author nobody references. Soft-deleted books still
// count, their rows keep the foreign key.
func (svc *Service) DeleteAuthor(ctx context.Context, id int) error {
	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := retrieveAuthor(ctx, tx, RetrieveAuthorOptions{ID: &id}); err != nil {
			return err
		}

		referenced, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("b.author_id = ?", id).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if referenced {
			return errcodes.Conflict("Author still has books.")
		}

		_, err = tx.NewDelete().
			Model((*models.Author)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

func ensureNameFree(ctx context.Context, idb bun.IDB, name string, exceptID int) error {
	q := idb.NewSelect().
		Model((*models.Author)(nil)).
		Where("LOWER(a.name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("a.id != ?", exceptID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("Author already exists.")
	}
	return nil
}
