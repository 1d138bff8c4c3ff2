package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		t := typesFor(db)
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE authors (
				id %s,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL
			)`, t.ID),
			`CREATE UNIQUE INDEX ux_authors_name ON authors (LOWER(name))`,

			fmt.Sprintf(`CREATE TABLE categories (
				id %s,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL
			)`, t.ID),
			`CREATE UNIQUE INDEX ux_categories_name ON categories (LOWER(name))`,

			fmt.Sprintf(`CREATE TABLE books (
				isbn TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				deleted_at TIMESTAMPTZ,
				title TEXT NOT NULL,
				total_copies INTEGER NOT NULL DEFAULT 1 CHECK (total_copies >= 1),
				cover TEXT,
				description TEXT,
				author_id %[1]s NOT NULL REFERENCES authors (id),
				category_id %[1]s NOT NULL REFERENCES categories (id)
			)`, t.Ref),
			`CREATE INDEX ix_books_author_id ON books (author_id)`,
			`CREATE INDEX ix_books_category_id ON books (category_id)`,
			`CREATE INDEX ix_books_title ON books (LOWER(title))`,

			fmt.Sprintf(`CREATE TABLE users (
				id %s,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('member', 'librarian', 'admin')),
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)`, t.ID),
			`CREATE UNIQUE INDEX ux_users_email ON users (LOWER(email))`,

			fmt.Sprintf(`CREATE TABLE borrows (
				id %s,
				user_id %s NOT NULL REFERENCES users (id),
				book_isbn TEXT NOT NULL REFERENCES books (isbn),
				borrowed_at TIMESTAMPTZ NOT NULL,
				due_at TIMESTAMPTZ NOT NULL,
				returned_at TIMESTAMPTZ
			)`, t.ID, t.Ref),
			`CREATE INDEX ix_borrows_user_id ON borrows (user_id)`,
			`CREATE INDEX ix_borrows_book_isbn ON borrows (book_isbn)`,
			`CREATE INDEX ix_borrows_active ON borrows (book_isbn) WHERE returned_at IS NULL`,
			`CREATE INDEX ix_borrows_due_at ON borrows (due_at) WHERE returned_at IS NULL`,
		)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db,
			`DROP TABLE IF EXISTS borrows`,
			`DROP TABLE IF EXISTS users`,
			`DROP TABLE IF EXISTS books`,
			`DROP TABLE IF EXISTS categories`,
			`DROP TABLE IF EXISTS authors`,
		)
	}

	Migrations.MustRegister(up, down)
}
