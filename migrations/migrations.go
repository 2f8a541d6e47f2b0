// Package migrations holds the schema for accounts and audit logs.
package migrations

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registered migration set
var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator over the registered set
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations)
}

// Migrate initializes the tracking tables and applies pending migrations
// under the migration lock. It returns the applied group, which is empty
// when nothing was pending.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)

	if err := migrator.Init(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize migrator")
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to acquire migration lock")
	}
	defer migrator.Unlock(ctx)

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "migration failed")
	}
	return group, nil
}
