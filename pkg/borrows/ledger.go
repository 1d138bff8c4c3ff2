package borrows

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/uptrace/bun"
)

// The ledger is the borrows table. Rows are only ever inserted, stamped with
// a return time once, or removed by an administrator.

func insertBorrow(ctx context.Context, idb bun.IDB, borrow *models.Borrow) error {
	_, err := idb.NewInsert().
		Model(borrow).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func retrieveBorrow(ctx context.Context, idb bun.IDB, id int) (*models.Borrow, error) {
	borrow := &models.Borrow{}
	err := idb.NewSelect().
		Model(borrow).
		Relation("User").
		Relation("Book").
		Where("br.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Borrow")
		}
		return nil, errors.WithStack(err)
	}
	return borrow, nil
}

// markReturned stamps the return time on an active borrow. It reports false
// when the borrow was already returned by the time the update ran.
func markReturned(ctx context.Context, idb bun.IDB, id int, at time.Time) (bool, error) {
	res, err := idb.NewUpdate().
		Model((*models.Borrow)(nil)).
		Set("returned_at = ?", at).
		Where("id = ?", id).
		Where("returned_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return n > 0, nil
}

func deleteBorrow(ctx context.Context, idb bun.IDB, id int) error {
	_, err := idb.NewDelete().
		Model((*models.Borrow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

func activeUser(ctx context.Context, idb bun.IDB, id int) (*models.User, error) {
	user := &models.User{}
	err := idb.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// selectBorrows starts a listing query with the display relations loaded.
func selectBorrows(idb bun.IDB, borrows *[]*models.Borrow) *bun.SelectQuery {
	return idb.NewSelect().
		Model(borrows).
		Relation("User").
		Relation("Book")
}
