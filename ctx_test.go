package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestAccountContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.AccountFromContext(ctx)
	assert.False(t, ok)

	_, ok = auth.AccountFromContext(auth.WithAccount(ctx, nil))
	assert.False(t, ok)

	account := auth.NewAccount("u-1", "a@x.com", "a", testNow)
	got, ok := auth.AccountFromContext(auth.WithAccount(ctx, account))
	require.True(t, ok)
	assert.Same(t, account, got)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.ClaimsFromContext(ctx)
	assert.False(t, ok)

	claims := &auth.SessionClaims{Email: "a@x.com"}
	got, ok := auth.ClaimsFromContext(auth.WithClaims(ctx, claims))
	require.True(t, ok)
	assert.Same(t, claims, got)
}

func TestSessionDB(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.Equal(t, bun.IDB(db), auth.SessionDB(ctx, db))

	repo := auth.NewRepositoryManager(db)
	err := repo.WithSession(ctx, func(ctx context.Context, conn bun.IDB) error {
		assert.Equal(t, conn, auth.SessionDB(ctx, db))

		// nested sessions reuse the pinned connection
		return repo.WithSession(ctx, func(_ context.Context, inner bun.IDB) error {
			assert.Equal(t, conn, inner)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithSession_ReleasesOnError(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithSession(ctx, func(context.Context, bun.IDB) error { return boom })
	assert.ErrorIs(t, err, boom)

	// the single sqlite connection is free again
	_, err = repo.Accounts().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestMultiActivitySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	})

	sink := auth.MultiActivitySink{first, nil, failing, second}
	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess})

	assert.EqualError(t, err, "sink down")
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)

	var nilFunc auth.ActivitySinkFunc
	assert.NoError(t, nilFunc.Record(context.Background(), auth.ActivityEvent{}))
}
