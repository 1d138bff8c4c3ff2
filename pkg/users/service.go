package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/quillbooks/quill/pkg/auth"
	"github.com/quillbooks/quill/pkg/database"
	"github.com/quillbooks/quill/pkg/errcodes"
	"github.com/quillbooks/quill/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db  *bun.DB
	now func() time.Time
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Create creates a new active user. The role defaults to member.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	role := opts.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsValidRole(role) {
		return nil, errcodes.ValidationError("Invalid role.")
	}

	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         strings.TrimSpace(opts.Name),
		Email:        auth.NormalizeEmail(opts.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureEmailFree(ctx, tx, user.Email, 0); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(user).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("user created", logger.Data{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// Retrieve gets a user by ID, including deactivated ones.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("User")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Limit           int
	Offset          int
	Role            string
	Search          string
	IncludeInactive bool
}

// List returns a page of users ordered by id, plus the total match count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		Order("u.id ASC")

	if !opts.IncludeInactive {
		query = query.Where("u.is_active = ?", true)
	}
	if opts.Role != "" {
		query = query.Where("u.role = ?", opts.Role)
	}
	if opts.Search != "" {
		pattern := database.ContainsPattern(opts.Search)
		query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(`LOWER(u.name) LIKE ? ESCAPE '\'`, pattern).WhereOr(`u.email LIKE ? ESCAPE '\'`, pattern)
		})
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return users, total, nil
}

// UpdateOptions contains options for updating a user.
type UpdateOptions struct {
	Columns  []string
	Password *string
}

// Update writes the listed columns of user. Email changes are checked for
// uniqueness and deactivation goes through the same guard as Deactivate.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	columns := opts.Columns
	if opts.Password != nil {
		hash, err := auth.HashPassword(*opts.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		columns = append(columns, "password_hash")
	}
	if len(columns) == 0 {
		return nil
	}

	user.UpdatedAt = s.now()
	columns = append(columns, "updated_at")

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, col := range columns {
			switch {
			case col == "email":
				user.Email = auth.NormalizeEmail(user.Email)
				if err := ensureEmailFree(ctx, tx, user.Email, user.ID); err != nil {
					return err
				}
			case col == "is_active" && !user.IsActive:
				if err := ensureNoActiveLoans(ctx, tx, user.ID); err != nil {
					return err
				}
			}
		}

		_, err := tx.NewUpdate().
			Model(user).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// Deactivate switches a user off. Their borrow history is kept, which is why
// users are never hard deleted.
func (s *Service) Deactivate(ctx context.Context, userID int) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("u.id = ?", userID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}
		if err := ensureNoActiveLoans(ctx, tx, userID); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("is_active = ?", false).
			Set("updated_at = ?", s.now()).
			Where("id = ?", userID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("user deactivated", logger.Data{"user_id": userID})
	return nil
}

// CountUsers returns the total number of users.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

func ensureEmailFree(ctx context.Context, idb bun.IDB, email string, exceptID int) error {
	q := idb.NewSelect().
		Model((*models.User)(nil)).
		Where("u.email = ?", email)
	if exceptID != 0 {
		q = q.Where("u.id != ?", exceptID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("Email already registered.")
	}
	return nil
}

func ensureNoActiveLoans(ctx context.Context, idb bun.IDB, userID int) error {
	active, err := idb.NewSelect().
		Model((*models.Borrow)(nil)).
		Where("br.user_id = ?", userID).
		Where("br.returned_at IS NULL").
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if active {
		return errcodes.Conflict("User still has borrowed books.")
	}
	return nil
}
