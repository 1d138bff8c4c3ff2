package categories

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

type RetrieveCategoryOptions struct {
	ID   *int
	Name *string
}

type ListCategoriesOptions struct {
	Limit  *int
	Offset *int
	Search *string
}

type UpdateCategoryOptions struct {
	Columns []string
}

// MinNameLength is the shortest category name accepted.
const MinNameLength = 3

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// booksCount counts the catalog books filed under the selected category.
const booksCount = "(SELECT COUNT(*) FROM books AS bk WHERE bk.category_id = c.id AND bk.deleted_at IS NULL) AS books_count"

func (svc *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	return createCategory(ctx, svc.db, category)
}

func createCategory(ctx context.Context, idb bun.IDB, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = category.CreatedAt

	return errors.WithStack(idb.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNameFree(ctx, tx, category.Name, 0); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(category).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

func (svc *Service) RetrieveCategory(ctx context.Context, opts RetrieveCategoryOptions) (*models.Category, error) {
	return retrieveCategory(ctx, svc.db, opts)
}

func retrieveCategory(ctx context.Context, idb bun.IDB, opts RetrieveCategoryOptions) (*models.Category, error) {
	category := &models.Category{}

	q := idb.
		NewSelect().
		Model(category).
		ColumnExpr("c.*").
		ColumnExpr(booksCount)

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(c.name) = LOWER(?)", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Category")
		}
		return nil, errors.WithStack(err)
	}

	return category, nil
}

// FindOrCreateCategory returns the category with the given name, ignoring case,
// creating it first if needed. Book imports run it inside their transaction.
func FindOrCreateCategory(ctx context.Context, idb bun.IDB, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if len(name) < MinNameLength {
		return nil, errcodes.ValidationError("Category name must be at least 3 characters.")
	}

	category, err := retrieveCategory(ctx, idb, RetrieveCategoryOptions{Name: &name})
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, errcodes.NotFound("Category")) {
		return nil, err
	}

	category = &models.Category{Name: name}
	if err := createCategory(ctx, idb, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (svc *Service) ListCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	categories := []*models.Category{}

	q := svc.db.
		NewSelect().
		Model(&categories).
		ColumnExpr("c.*").
		ColumnExpr(booksCount).
		Order("c.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where(`LOWER(c.name) LIKE ? ESCAPE '\'`, database.ContainsPattern(*opts.Search))
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
	return categories, total, nil
}

func (svc *Service) UpdateCategory(ctx context.Context, category *models.Category, opts UpdateCategoryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	category.Name = strings.TrimSpace(category.Name)
	category.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNameFree(ctx, tx, category.Name, category.ID); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model(category).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

// DeleteCategory removes a category no book is filed under, deleted books
// included.
func (svc *Service) DeleteCategory(ctx context.Context, id int) error {
	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := retrieveCategory(ctx, tx, RetrieveCategoryOptions{ID: &id}); err != nil {
			return err
		}

		referenced, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("b.category_id = ?", id).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if referenced {
			return errcodes.Conflict("Category still has books.")
		}

		_, err = tx.NewDelete().
			Model((*models.Category)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	}))
}

func ensureNameFree(ctx context.Context, idb bun.IDB, name string, exceptID int) error {
	q := idb.NewSelect().
		Model((*models.Category)(nil)).
		Where("LOWER(c.name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("c.id != ?", exceptID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("Category already exists.")
	}
	return nil
}
