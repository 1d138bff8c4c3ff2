package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	err := migrator.Init(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// columnTypes holds the pieces of DDL that differ between SQLite and
// Postgres. Everything else in the migrations is shared SQL.
type columnTypes struct {
	ID  string
	Ref string
}

func typesFor(db *bun.DB) columnTypes {
	if db.Dialect().Name() == dialect.PG {
		return columnTypes{ID: "BIGSERIAL PRIMARY KEY", Ref: "BIGINT"}
	}
	return columnTypes{ID: "INTEGER PRIMARY KEY AUTOINCREMENT", Ref: "INTEGER"}
}

// execAll runs each statement in order, stopping at the first failure.
func execAll(ctx context.Context, db *bun.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration statement failed: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' && i > 0 {
			return s[:i]
		}
	}
	return s
}
