package migrations_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/goliatone/go-booknook-auth/internal/dbx"
	"github.com/goliatone/go-booknook-auth/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesTables(t *testing.T) {
	ctx := context.Background()
	db, err := dbx.NewDB(ctx, "file:migrations_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbx.Close(db)

	group, err := migrations.Migrate(ctx, db)
	require.NoError(t, err)
	assert.NotZero(t, group.ID)

	count, err := db.NewSelect().Model((*auth.Account)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = db.NewSelect().Model((*auth.AuditLog)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	again, err := migrations.Migrate(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, again.ID)

	ms, err := migrations.NewMigrator(db).MigrationsWithStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
	for _, m := range ms {
		assert.NotZero(t, m.GroupID, m.Name)
	}
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	db, err := dbx.NewDB(ctx, "file:migrations_rollback_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbx.Close(db)

	_, err = migrations.Migrate(ctx, db)
	require.NoError(t, err)

	group, err := migrations.NewMigrator(db).Rollback(ctx)
	require.NoError(t, err)
	assert.NotZero(t, group.ID)

	_, err = db.NewSelect().Model((*auth.Account)(nil)).Count(ctx)
	assert.Error(t, err)
}
